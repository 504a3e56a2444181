package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionTTL is fixed at five days (60*60*24*5 seconds).
	SessionTTL    = 5 * 24 * time.Hour
	SessionCookie = "__session"
)

// Sessions maps opaque session tokens to user ids.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionStore keeps sessions in Redis as plain string keys that expire
// after SessionTTL.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore stores teacher sessions in rdb under sessionKey(token).
// The token handed to the browser is a random UUID and carries no user data.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(sessionID string) string { return "teacher_session:" + sessionID }

// Create opens a session for userID and returns its token.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("session: empty user id")
	}
	sid := uuid.New().String()
	if err := s.rdb.Set(ctx, sessionKey(sid), userID, SessionTTL).Err(); err != nil {
		return "", err
	}
	return sid, nil
}

// Get resolves a token. Unknown, expired and empty tokens yield "".
func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	val, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// Delete ends a session. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
