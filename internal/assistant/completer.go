package assistant

import "context"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one entry of the conversation transcript. User entries hold
// the full prompt that was sent, including retrieved context.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Reply is what a completion provider returns for one prompt.
type Reply struct {
	Text string
	// Transcript is the provider's view of the conversation after the
	// exchange. Nil means "history + prompt + Text".
	Transcript []Message
	StopReason string
}

// Completer sends one prompt, with the prior transcript as context, to an
// external text-completion service. Errors should be *CompletionError so
// the session can classify them; anything else is reported as unexpected.
type Completer interface {
	Converse(ctx context.Context, history []Message, prompt string) (Reply, error)
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
