package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/models"
)

var (
	// ErrNotAuthenticated covers a missing, unknown or expired session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotConfigured means the identity provider credentials are absent.
	ErrNotConfigured = errors.New("server credentials are not configured")
)

// ProfileStore persists teacher profiles.
type ProfileStore interface {
	UpsertTeacher(ctx context.Context, t models.Teacher) error
	GetTeacher(ctx context.Context, id string) (*models.Teacher, error)
}

// Result is the outcome of EstablishSession. Callers must check Success.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Token is the new session cookie value when Success is true.
	Token string `json:"-"`
	UID   string `json:"-"`
}

// Gateway exchanges identity tokens for server sessions and resolves
// session cookies back to user ids.
type Gateway struct {
	mu          sync.Mutex
	verifier    IdentityVerifier
	newVerifier func() (IdentityVerifier, error)

	sessions Sessions
	profiles ProfileStore
	log      zerolog.Logger
}

// NewGateway builds a gateway. newVerifier is called lazily, once it
// succeeds, on the first request that needs it. profiles may be nil.
func NewGateway(newVerifier func() (IdentityVerifier, error), sessions Sessions, profiles ProfileStore, log zerolog.Logger) *Gateway {
	return &Gateway{
		newVerifier: newVerifier,
		sessions:    sessions,
		profiles:    profiles,
		log:         log.With().Str("component", "auth").Logger(),
	}
}

// ensureInitialized sets up the identity verifier if it is not set up yet.
func (g *Gateway) ensureInitialized() (IdentityVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.verifier, nil
	}
	if g.newVerifier == nil {
		return nil, ErrNotConfigured
	}
	v, err := g.newVerifier()
	if err != nil {
		return nil, err
	}
	g.verifier = v
	return v, nil
}

// EstablishSession verifies idToken and creates a five-day session. It never
// returns an error; failures are reported in the Result.
func (g *Gateway) EstablishSession(ctx context.Context, idToken string) Result {
	verifier, err := g.ensureInitialized()
	if err != nil {
		g.log.Error().Err(err).Msg("identity provider not initialized")
		return failure(ErrNotConfigured)
	}
	if !wellFormed(idToken) {
		return failure(ErrMalformedToken)
	}

	id, err := verifier.Verify(ctx, idToken)
	if err != nil {
		g.log.Warn().Err(err).Msg("identity token rejected")
		return failure(err)
	}

	sid, err := g.sessions.Create(ctx, id.UID)
	if err != nil {
		g.log.Error().Err(err).Str("uid", id.UID).Msg("session create failed")
		return failure(errors.New("session storage unavailable"))
	}

	if g.profiles != nil {
		now := time.Now().UTC()
		err := g.profiles.UpsertTeacher(ctx, models.Teacher{
			ID: id.UID, Email: id.Email, DisplayName: id.Name,
			FirstSeen: now, LastLogin: now,
		})
		if err != nil {
			g.log.Warn().Err(err).Str("uid", id.UID).Msg("teacher profile upsert failed")
		}
	}

	return Result{Success: true, Token: sid, UID: id.UID}
}

func failure(err error) Result {
	return Result{Error: fmt.Sprintf("Failed to create session cookie. %v", err)}
}

// Authenticate resolves a session cookie value to a user id.
func (g *Gateway) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotAuthenticated
	}
	uid, err := g.sessions.Get(ctx, token)
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	if uid == "" {
		return "", ErrNotAuthenticated
	}
	return uid, nil
}

// Logout drops the server side of a session.
func (g *Gateway) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return g.sessions.Delete(ctx, token)
}

// Profile returns the stored teacher profile. Without a profile store only
// the id is known.
func (g *Gateway) Profile(ctx context.Context, uid string) (*models.Teacher, error) {
	if g.profiles == nil {
		return &models.Teacher{ID: uid}, nil
	}
	return g.profiles.GetTeacher(ctx, uid)
}

// SessionCookieFor builds the cookie carrying token.
func SessionCookieFor(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	}
}
