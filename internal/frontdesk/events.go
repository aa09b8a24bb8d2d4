package frontdesk

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/klinik-awan/internal/assistant"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// OutcomeSource streams finished chat turns.
type OutcomeSource interface {
	Subscribe() (<-chan assistant.Outcome, func())
}

// Event is one frame sent to a chat view over the websocket.
type Event struct {
	Type      string              `json:"type"` // "transcript", "typing", "reply", "error", "pong"
	TurnID    string              `json:"turn_id,omitempty"`
	Text      string              `json:"text,omitempty"`
	ErrorKind string              `json:"error_kind,omitempty"`
	Greeting  string              `json:"greeting,omitempty"`
	Messages  []assistant.Message `json:"messages,omitempty"`
}

// InboundEvent is what a chat view sends.
type InboundEvent struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// EventsHandler pushes turn outcomes to connected chat views and accepts
// messages from them.
type EventsHandler struct {
	desk   *Desk
	source OutcomeSource
	logger *logging.Logger
}

func NewEventsHandler(desk *Desk, source OutcomeSource, logger *logging.Logger) *EventsHandler {
	if desk == nil || source == nil {
		panic("frontdesk: desk and outcome source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EventsHandler{desk: desk, source: source, logger: logger}
}

// HandleWebSocket upgrades GET /chat/events.
func (h *EventsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn)
	}).ServeHTTP(w, r)
}

func (h *EventsHandler) serveWS(ctx context.Context, conn *websocket.Conn) {
	outcomes, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	frames := make(chan Event, 8)
	inbound := make(chan InboundEvent)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg InboundEvent
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				h.logger.Debug("frontdesk: chat connection closed", "error", err)
				return
			}
			select {
			case inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.logger.Info("frontdesk: chat connection opened")
	frames <- h.transcriptEvent(ctx)

	for {
		select {
		case frame := <-frames:
			if err := websocket.JSON.Send(conn, frame); err != nil {
				return
			}
		case msg := <-inbound:
			if ev, ok := h.handleInbound(ctx, msg); ok {
				if err := websocket.JSON.Send(conn, ev); err != nil {
					return
				}
			}
		case outcome := <-outcomes:
			if err := websocket.JSON.Send(conn, outcomeEvent(outcome)); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *EventsHandler) handleInbound(ctx context.Context, msg InboundEvent) (Event, bool) {
	switch msg.Type {
	case "ping":
		return Event{Type: "pong"}, true
	case "message":
		if strings.TrimSpace(msg.Text) == "" {
			return Event{}, false
		}
		res := h.desk.Dispatch(ctx, Command{Kind: CmdSubmitChat, Message: msg.Text})
		if !res.Success {
			return Event{Type: "error", Text: res.Message}, true
		}
		accepted, _ := res.Data.(TurnAccepted)
		return Event{Type: "typing", TurnID: accepted.TurnID, Text: res.Message}, true
	}
	return Event{}, false
}

func (h *EventsHandler) transcriptEvent(ctx context.Context) Event {
	res := h.desk.Dispatch(ctx, Command{Kind: CmdChatTranscript})
	ev := Event{Type: "transcript", Greeting: assistant.Greeting}
	if data, ok := res.Data.(ChatTranscript); ok {
		ev.Messages = data.Messages
	}
	return ev
}

func outcomeEvent(o assistant.Outcome) Event {
	if o.Status == assistant.TurnSucceeded {
		return Event{Type: "reply", TurnID: o.TurnID, Text: o.Reply}
	}
	return Event{Type: "error", TurnID: o.TurnID, Text: o.Message, ErrorKind: string(o.ErrorKind)}
}
