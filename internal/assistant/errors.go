package assistant

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed assistant turn.
type ErrorKind string

const (
	KindContentBlocked ErrorKind = "content_blocked"
	KindServiceCall    ErrorKind = "service_call"
	KindTransport      ErrorKind = "transport"
	KindUnexpected     ErrorKind = "unexpected"
)

var (
	ErrContentBlocked = errors.New("assistant: content blocked")
	ErrServiceCall    = errors.New("assistant: completion service call failed")
	ErrTransport      = errors.New("assistant: transport failure")
	ErrUnexpected     = errors.New("assistant: unexpected failure")

	// ErrTurnInFlight is returned by Submit while another turn is sending.
	ErrTurnInFlight = errors.New("assistant: a turn is already in flight")
	// ErrEmptyMessage is returned by Submit for blank input.
	ErrEmptyMessage = errors.New("assistant: message is empty")
	// ErrUnknownTurn is returned when polling an id the session does not hold.
	ErrUnknownTurn = errors.New("assistant: unknown turn")
)

// CompletionError carries the classified cause of a failed completion.
type CompletionError struct {
	Kind ErrorKind
	Err  error
}

func (e *CompletionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("assistant: %s", e.Kind)
	}
	return fmt.Sprintf("assistant: %s: %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool {
	switch target {
	case ErrContentBlocked:
		return e.Kind == KindContentBlocked
	case ErrServiceCall:
		return e.Kind == KindServiceCall
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrUnexpected:
		return e.Kind == KindUnexpected
	}
	return false
}

// KindOf returns the classification of err; unclassified errors are
// unexpected.
func KindOf(err error) ErrorKind {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnexpected
}

// UserMessage renders a failure for the chat view. Each kind has its own
// wording; the detail is the underlying error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	detail := err.Error()
	var ce *CompletionError
	if errors.As(err, &ce) && ce.Err != nil {
		detail = ce.Err.Error()
	}
	switch KindOf(err) {
	case KindContentBlocked:
		return "Respons diblokir karena alasan keamanan. Harap coba lagi dengan pesan lain. Detail: " + detail
	case KindServiceCall:
		return "Kesalahan saat memanggil layanan asisten. Pastikan API Key benar dan ada koneksi internet. Detail: " + detail
	case KindTransport:
		return "Kesalahan koneksi jaringan. Pastikan Anda memiliki koneksi internet yang stabil. Detail: " + detail
	default:
		return "Terjadi kesalahan tak terduga saat berinteraksi dengan layanan asisten. Detail: " + detail
	}
}
