package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TranscriptStore persists a session transcript between runs. Load returns
// nil, nil when nothing is stored under the key.
type TranscriptStore interface {
	Load(ctx context.Context, key string) ([]Message, error)
	Save(ctx context.Context, key string, transcript []Message) error
	Delete(ctx context.Context, key string) error
}

// MemoryTranscriptStore keeps transcripts for the life of the process.
type MemoryTranscriptStore struct {
	mu    sync.Mutex
	items map[string][]Message
}

func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{items: make(map[string][]Message)}
}

func (s *MemoryTranscriptStore) Load(_ context.Context, key string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.items[key]), nil
}

func (s *MemoryTranscriptStore) Save(_ context.Context, key string, transcript []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = cloneMessages(transcript)
	return nil
}

func (s *MemoryTranscriptStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

const defaultTranscriptTTL = 24 * time.Hour

// RedisTranscriptStore keeps transcripts as JSON values with a TTL.
type RedisTranscriptStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisTranscriptStore(client *redis.Client, ttl time.Duration) *RedisTranscriptStore {
	if client == nil {
		panic("assistant: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &RedisTranscriptStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("klinik.internal.assistant.transcript"),
	}
}

func (s *RedisTranscriptStore) Load(ctx context.Context, key string) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.load_transcript")
	defer span.End()

	data, err := s.redis.Get(ctx, transcriptKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to load transcript: %w", err)
	}

	var transcript []Message
	if err := json.Unmarshal(data, &transcript); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to decode transcript: %w", err)
	}
	return transcript, nil
}

func (s *RedisTranscriptStore) Save(ctx context.Context, key string, transcript []Message) error {
	ctx, span := s.tracer.Start(ctx, "assistant.save_transcript")
	defer span.End()

	data, err := json.Marshal(transcript)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to marshal transcript: %w", err)
	}
	if err := s.redis.Set(ctx, transcriptKey(key), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to persist transcript: %w", err)
	}
	return nil
}

func (s *RedisTranscriptStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "assistant.delete_transcript")
	defer span.End()

	if err := s.redis.Del(ctx, transcriptKey(key)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to delete transcript: %w", err)
	}
	return nil
}

func transcriptKey(key string) string {
	return fmt.Sprintf("transcript:%s", key)
}
