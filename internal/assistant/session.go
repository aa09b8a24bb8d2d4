// Package assistant runs the clinic chat assistant: a keyword retriever
// that builds prompts from clinic data, completion providers, and a session
// that allows one turn in flight at a time.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/wolfman30/klinik-awan/internal/observability/metrics"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// Greeting is shown when the chat view opens.
const Greeting = "Hai! Saya MediBot, asisten virtual Klinik Awan. Apa yang bisa saya bantu hari ini?"

const (
	defaultTurnTimeout = 60 * time.Second
	saveTimeout        = 5 * time.Second
	maxRememberedTurns = 64
	subscriberBuffer   = 8
)

var assistantTracer = otel.Tracer("klinik.internal.assistant")

// State is the session's admission state.
type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

// TurnStatus is the lifecycle position of one turn.
type TurnStatus string

const (
	TurnSending   TurnStatus = "sending"
	TurnSucceeded TurnStatus = "succeeded"
	TurnFailed    TurnStatus = "failed"
)

// Outcome is the terminal result of a turn. While the turn is running only
// TurnID and Status are set.
type Outcome struct {
	TurnID    string     `json:"turn_id"`
	Status    TurnStatus `json:"status"`
	Reply     string     `json:"reply,omitempty"`
	Intent    Intent     `json:"intent,omitempty"`
	ErrorKind ErrorKind  `json:"error_kind,omitempty"`
	Message   string     `json:"message,omitempty"`
	Err       error      `json:"-"`
}

// Turn is a future for one submitted message.
type Turn struct {
	ID        string
	Message   string
	StartedAt time.Time

	done    chan struct{}
	mu      sync.Mutex
	outcome Outcome
}

func newTurn(id, message string) *Turn {
	return &Turn{
		ID:        id,
		Message:   message,
		StartedAt: time.Now().UTC(),
		done:      make(chan struct{}),
		outcome:   Outcome{TurnID: id, Status: TurnSending},
	}
}

// Done is closed once the outcome is final and the session is idle again.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Outcome returns the current outcome; Status is TurnSending until Done.
func (t *Turn) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Wait blocks until the turn finishes or ctx ends. Abandoning the wait does
// not cancel the turn.
func (t *Turn) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.Outcome(), nil
	case <-ctx.Done():
		return t.Outcome(), ctx.Err()
	}
}

func (t *Turn) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Turn) setOutcome(o Outcome) {
	t.mu.Lock()
	t.outcome = o
	t.mu.Unlock()
}

// Session owns the transcript and admits one turn at a time.
type Session struct {
	completer Completer
	retriever *Retriever
	logger    *logging.Logger
	metrics   *metrics.AssistantMetrics
	store     TranscriptStore
	key       string
	timeout   time.Duration
	newID     func() string

	sem *semaphore.Weighted

	mu          sync.Mutex
	state       State
	transcript  []Message
	turns       map[string]*Turn
	order       []string
	subscribers map[int]chan Outcome
	nextSub     int
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithTranscriptStore persists the transcript under key.
func WithTranscriptStore(store TranscriptStore, key string) SessionOption {
	return func(s *Session) {
		s.store = store
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

// WithTurnTimeout bounds each completion call.
func WithTurnTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSessionMetrics records turn outcomes.
func WithSessionMetrics(m *metrics.AssistantMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithTurnIDs overrides turn id generation.
func WithTurnIDs(fn func() string) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewSession(completer Completer, retriever *Retriever, logger *logging.Logger, opts ...SessionOption) *Session {
	if completer == nil {
		panic("assistant: completer required")
	}
	if retriever == nil {
		panic("assistant: retriever required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Session{
		completer:   completer,
		retriever:   retriever,
		logger:      logger,
		key:         "default",
		timeout:     defaultTurnTimeout,
		newID:       uuid.NewString,
		sem:         semaphore.NewWeighted(1),
		state:       StateIdle,
		turns:       make(map[string]*Turn),
		subscribers: make(map[int]chan Outcome),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted transcript, if any.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	transcript, err := s.store.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("assistant: restore transcript: %w", err)
	}
	s.mu.Lock()
	s.transcript = transcript
	s.mu.Unlock()
	s.logger.Info("transcript restored", "key", s.key, "messages", len(transcript))
	return nil
}

// Submit starts a turn for message. It returns ErrTurnInFlight without
// touching the transcript while another turn is sending.
func (s *Session) Submit(ctx context.Context, message string) (*Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if !s.sem.TryAcquire(1) {
		s.mu.Unlock()
		s.metrics.ObserveRejected()
		s.logger.Warn("turn rejected, another turn in flight")
		return nil, ErrTurnInFlight
	}
	turn := newTurn(s.newID(), message)
	history := cloneMessages(s.transcript)
	s.state = StateSending
	s.remember(turn)
	s.mu.Unlock()

	s.logger.Info("turn submitted", "turn_id", turn.ID, "history", len(history))
	go s.run(context.WithoutCancel(ctx), turn, history)
	return turn, nil
}

func (s *Session) run(base context.Context, turn *Turn, history []Message) {
	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()
	ctx, span := assistantTracer.Start(ctx, "assistant.turn")
	defer span.End()
	span.SetAttributes(attribute.String("klinik.turn_id", turn.ID))
	start := time.Now()

	prompt, reply, err := s.converse(ctx, turn.Message, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	span.SetAttributes(attribute.String("klinik.intent", string(prompt.Intent)))

	s.finish(base, turn, prompt, history, reply, err, start)
}

// converse builds the prompt and calls the completer. A panic in either is
// reported as an unexpected failure so cleanup still runs.
func (s *Session) converse(ctx context.Context, message string, history []Message) (prompt Prompt, reply Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CompletionError{Kind: KindUnexpected, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	prompt, err = s.retriever.Build(ctx, message)
	if err != nil {
		return prompt, Reply{}, &CompletionError{Kind: KindUnexpected, Err: err}
	}
	s.logger.Debug("prompt built", "intent", string(prompt.Intent), "specialty", prompt.Specialty, "length", len(prompt.Text))

	reply, err = s.completer.Converse(ctx, history, prompt.Text)
	if err != nil {
		var ce *CompletionError
		if !errors.As(err, &ce) {
			if isTransportError(err) {
				err = &CompletionError{Kind: KindTransport, Err: err}
			} else {
				err = &CompletionError{Kind: KindUnexpected, Err: err}
			}
		}
		return prompt, Reply{}, err
	}
	return prompt, reply, nil
}

func (s *Session) finish(base context.Context, turn *Turn, prompt Prompt, history []Message, reply Reply, err error, start time.Time) {
	outcome := Outcome{TurnID: turn.ID, Intent: prompt.Intent}
	var transcript []Message
	if err == nil {
		transcript = cloneMessages(reply.Transcript)
		if transcript == nil {
			transcript = append(cloneMessages(history),
				Message{Role: RoleUser, Text: prompt.Text},
				Message{Role: RoleModel, Text: reply.Text},
			)
		}
		outcome.Status = TurnSucceeded
		outcome.Reply = reply.Text
	} else {
		outcome.Status = TurnFailed
		outcome.ErrorKind = KindOf(err)
		outcome.Message = UserMessage(err)
		outcome.Err = err
	}

	if err == nil {
		s.mu.Lock()
		s.transcript = transcript
		s.mu.Unlock()

		if s.store != nil {
			saveCtx, cancel := context.WithTimeout(base, saveTimeout)
			if saveErr := s.store.Save(saveCtx, s.key, transcript); saveErr != nil {
				s.logger.Warn("transcript not persisted", "turn_id", turn.ID, "error", saveErr)
			}
			cancel()
		}
	}

	turn.setOutcome(outcome)

	s.mu.Lock()
	s.state = StateIdle
	s.sem.Release(1)
	subs := make([]chan Outcome, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	close(turn.done)

	elapsed := time.Since(start)
	label := string(outcome.Status)
	if err != nil {
		label = string(outcome.ErrorKind)
	}
	s.metrics.ObserveTurn(label, string(prompt.Intent), elapsed.Seconds())
	if err != nil {
		s.logger.Error("turn failed", "turn_id", turn.ID, "intent", string(prompt.Intent), "kind", string(outcome.ErrorKind), "error", err, "duration_ms", elapsed.Milliseconds())
	} else {
		s.logger.Info("turn succeeded", "turn_id", turn.ID, "intent", string(prompt.Intent), "transcript", len(transcript), "duration_ms", elapsed.Milliseconds())
	}

	for _, ch := range subs {
		select {
		case ch <- outcome:
		default:
			s.logger.Warn("subscriber lagging, outcome dropped", "turn_id", turn.ID)
		}
	}
}

// State reports whether a turn is in flight.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.transcript)
}

// Turn looks up a recent turn by id.
func (s *Session) Turn(id string) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn, ok := s.turns[id]
	if !ok {
		return nil, ErrUnknownTurn
	}
	return turn, nil
}

// Reset clears the transcript. It is refused while a turn is sending.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSending {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.transcript = nil
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(ctx, s.key); err != nil {
			return fmt.Errorf("assistant: reset transcript: %w", err)
		}
	}
	s.logger.Info("transcript reset", "key", s.key)
	return nil
}

// Subscribe delivers the outcome of every turn that finishes after the
// call. Slow subscribers miss outcomes rather than block the session.
func (s *Session) Subscribe() (<-chan Outcome, func()) {
	ch := make(chan Outcome, subscriberBuffer)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// remember must be called with s.mu held.
func (s *Session) remember(turn *Turn) {
	s.turns[turn.ID] = turn
	s.order = append(s.order, turn.ID)
	for len(s.order) > maxRememberedTurns {
		oldest := s.turns[s.order[0]]
		if oldest != nil && !oldest.finished() {
			break
		}
		delete(s.turns, s.order[0])
		s.order = s.order[1:]
	}
}
