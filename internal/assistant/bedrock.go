package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockCompleter implements Completer with the Bedrock Converse API.
type BedrockCompleter struct {
	api     bedrockConverseAPI
	modelID string
}

func NewBedrockCompleter(api bedrockConverseAPI, modelID string) *BedrockCompleter {
	if api == nil {
		panic("assistant: bedrock converse client cannot be nil")
	}
	return &BedrockCompleter{api: api, modelID: strings.TrimSpace(modelID)}
}

func (c *BedrockCompleter) Converse(ctx context.Context, history []Message, prompt string) (Reply, error) {
	if c.modelID == "" {
		return Reply{}, &CompletionError{Kind: KindUnexpected, Err: errors.New("bedrock model id is required")}
	}

	messages := make([]brtypes.Message, 0, len(history)+1)
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := brtypes.ConversationRoleUser
		if m.Role == RoleModel {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, textMessage(role, text))
	}
	messages = append(messages, textMessage(brtypes.ConversationRoleUser, prompt))

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.modelID),
		Messages: messages,
	})
	if err != nil {
		return Reply{}, classifyBedrockError(err)
	}

	switch out.StopReason {
	case brtypes.StopReasonGuardrailIntervened, brtypes.StopReasonContentFiltered:
		return Reply{}, &CompletionError{Kind: KindContentBlocked, Err: errors.New("bedrock stop reason " + string(out.StopReason))}
	}

	text := bedrockOutputText(out)
	if text == "" {
		return Reply{}, &CompletionError{Kind: KindUnexpected, Err: errors.New("bedrock returned empty content")}
	}

	transcript := cloneMessages(history)
	transcript = append(transcript,
		Message{Role: RoleUser, Text: prompt},
		Message{Role: RoleModel, Text: text},
	)
	return Reply{Text: text, Transcript: transcript, StopReason: string(out.StopReason)}, nil
}

func textMessage(role brtypes.ConversationRole, text string) brtypes.Message {
	return brtypes.Message{
		Role:    role,
		Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
	}
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) string {
	if out == nil {
		return ""
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return strings.TrimSpace(b.String())
}

func classifyBedrockError(err error) error {
	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) || isTransportError(err) {
		return &CompletionError{Kind: KindTransport, Err: err}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &CompletionError{Kind: KindServiceCall, Err: err}
	}
	return &CompletionError{Kind: KindUnexpected, Err: err}
}
