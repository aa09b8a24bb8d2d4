package assistant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// ValidateGeminiKey rejects keys that are obviously not Google API keys.
func ValidateGeminiKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("assistant: gemini api key is required")
	}
	if !strings.HasPrefix(apiKey, "AIza") {
		return errors.New("assistant: gemini api key looks invalid (expected AIza prefix)")
	}
	return nil
}

// geminiChat sends one message on a chat seeded with history and returns
// the response together with the chat history after the exchange.
type geminiChat interface {
	Send(ctx context.Context, history []*genai.Content, prompt string) (*genai.GenerateContentResponse, []*genai.Content, error)
}

type genaiChat struct {
	model *genai.GenerativeModel
}

func (c genaiChat) Send(ctx context.Context, history []*genai.Content, prompt string) (*genai.GenerateContentResponse, []*genai.Content, error) {
	cs := c.model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return nil, nil, err
	}
	return resp, cs.History, nil
}

// GeminiCompleter implements Completer with Google's Gemini API.
type GeminiCompleter struct {
	client  *genai.Client
	chat    geminiChat
	modelID string
}

// NewGeminiCompleter creates a Gemini-backed completer.
func NewGeminiCompleter(ctx context.Context, apiKey, modelID string) (*GeminiCompleter, error) {
	if err := ValidateGeminiKey(apiKey); err != nil {
		return nil, err
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(apiKey)))
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to create gemini client: %w", err)
	}
	return &GeminiCompleter{
		client:  client,
		chat:    genaiChat{model: client.GenerativeModel(modelID)},
		modelID: modelID,
	}, nil
}

func (c *GeminiCompleter) Converse(ctx context.Context, history []Message, prompt string) (Reply, error) {
	resp, after, err := c.chat.Send(ctx, toGenaiHistory(history), prompt)
	if err != nil {
		return Reply{}, classifyGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return Reply{}, &CompletionError{Kind: KindUnexpected, Err: errors.New("gemini returned no candidates")}
	}

	candidate := resp.Candidates[0]
	text := contentText(candidate.Content)
	if text == "" {
		return Reply{}, &CompletionError{Kind: KindUnexpected, Err: errors.New("gemini returned empty content")}
	}
	return Reply{
		Text:       text,
		Transcript: fromGenaiHistory(after),
		StopReason: candidate.FinishReason.String(),
	}, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiCompleter) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &CompletionError{Kind: KindContentBlocked, Err: err}
	}
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return &CompletionError{Kind: KindServiceCall, Err: err}
	}
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return &CompletionError{Kind: KindServiceCall, Err: err}
	}
	if isTransportError(err) {
		return &CompletionError{Kind: KindTransport, Err: err}
	}
	return &CompletionError{Kind: KindUnexpected, Err: err}
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func toGenaiHistory(history []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := RoleUser
		if m.Role == RoleModel {
			role = RoleModel
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
	}
	return out
}

func fromGenaiHistory(history []*genai.Content) []Message {
	out := make([]Message, 0, len(history))
	for _, c := range history {
		if c == nil {
			continue
		}
		role := RoleUser
		if c.Role == RoleModel {
			role = RoleModel
		}
		out = append(out, Message{Role: role, Text: contentText(c)})
	}
	return out
}

func contentText(c *genai.Content) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
