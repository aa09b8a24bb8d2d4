package assistant

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCompletionErrorMatchesItsSentinelOnly(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &CompletionError{Kind: KindTransport, Err: errors.New("reset")})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport match")
	}
	for _, other := range []error{ErrContentBlocked, ErrServiceCall, ErrUnexpected} {
		if errors.Is(err, other) {
			t.Fatalf("unexpected match with %v", other)
		}
	}
}

func TestUserMessagesAreDistinct(t *testing.T) {
	seen := map[string]ErrorKind{}
	for _, kind := range []ErrorKind{KindContentBlocked, KindServiceCall, KindTransport, KindUnexpected} {
		msg := UserMessage(&CompletionError{Kind: kind, Err: errors.New("detail")})
		prefix := strings.SplitN(msg, "Detail:", 2)[0]
		if prev, ok := seen[prefix]; ok {
			t.Fatalf("%s and %s share a message", prev, kind)
		}
		seen[prefix] = kind
		if !strings.HasSuffix(msg, "Detail: detail") {
			t.Fatalf("message lacks detail: %q", msg)
		}
	}
	if UserMessage(nil) != "" {
		t.Fatalf("nil error should render empty")
	}
}
