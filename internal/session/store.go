package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/arogya-ai/clinic-intake/internal/identity"
)

// ErrNotFound is returned when no session is stored for the user.
var ErrNotFound = errors.New("session: not found")

// Store keeps authenticated profiles in Redis for the token's lifetime.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewStore creates a Redis-backed session store.
func NewStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *Store {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("clinic.internal.session")
	}
	return &Store{
		redis:  client,
		ttl:    ttl,
		tracer: tracer,
	}
}

// Save writes the profile under the user's session key, refreshing the TTL.
func (s *Store) Save(ctx context.Context, userID string, p identity.Profile) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	data, err := json.Marshal(p)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(userID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist profile: %w", err)
	}
	return nil
}

// Get reads the profile for the user, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID string) (identity.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return identity.Profile{}, ErrNotFound
		}
		span.RecordError(err)
		return identity.Profile{}, fmt.Errorf("session: failed to load profile: %w", err)
	}

	var p identity.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		span.RecordError(err)
		return identity.Profile{}, fmt.Errorf("session: failed to decode profile: %w", err)
	}
	return p, nil
}

// Delete removes the user's session key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to delete: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}
