package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/models"
)

const (
	testProject = "sahayak-test"
	testIssuer  = "https://securetoken.google.com/sahayak-test"
)

type memSessions struct {
	mu   sync.Mutex
	m    map[string]string
	next int
	err  error
}

func newMemSessions() *memSessions { return &memSessions{m: map[string]string{}} }

func (s *memSessions) Create(_ context.Context, uid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.next++
	sid := fmt.Sprintf("sid-%d", s.next)
	s.m[sid] = uid
	return sid, nil
}

func (s *memSessions) Get(_ context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[sid], nil
}

func (s *memSessions) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sid)
	return nil
}

type memProfiles struct {
	upserts []models.Teacher
	err     error
}

func (p *memProfiles) UpsertTeacher(_ context.Context, t models.Teacher) error {
	p.upserts = append(p.upserts, t)
	return p.err
}

func (p *memProfiles) GetTeacher(_ context.Context, id string) (*models.Teacher, error) {
	for _, t := range p.upserts {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, errors.New("not found")
}

type keyPair struct {
	priv *rsa.PrivateKey
	pem  string
}

func newKeyPair(t *testing.T) keyPair {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return keyPair{priv: priv, pem: string(block)}
}

func (k keyPair) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(k.priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func validClaims(sub string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":   sub,
		"iss":   testIssuer,
		"aud":   testProject,
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": "asha@school.example",
		"name":  "Asha",
	}
}

func newTestGateway(t *testing.T, k keyPair, sessions Sessions, profiles ProfileStore) (*Gateway, *int) {
	calls := 0
	factory := func() (IdentityVerifier, error) {
		calls++
		return NewJWTVerifier(k.pem, testIssuer, testProject)
	}
	return NewGateway(factory, sessions, profiles, zerolog.Nop()), &calls
}

func TestEstablishSession(t *testing.T) {
	k := newKeyPair(t)
	sessions := newMemSessions()
	profiles := &memProfiles{}
	g, calls := newTestGateway(t, k, sessions, profiles)
	ctx := context.Background()

	res := g.EstablishSession(ctx, k.sign(t, validClaims("teacher-1")))
	if !res.Success || res.Error != "" {
		t.Fatalf("result = %+v", res)
	}
	if res.UID != "teacher-1" || res.Token == "" {
		t.Fatalf("result = %+v", res)
	}

	uid, err := g.Authenticate(ctx, res.Token)
	if err != nil || uid != "teacher-1" {
		t.Fatalf("Authenticate = %q, %v", uid, err)
	}
	if len(profiles.upserts) != 1 || profiles.upserts[0].Email != "asha@school.example" {
		t.Fatalf("upserts = %+v", profiles.upserts)
	}

	g.EstablishSession(ctx, k.sign(t, validClaims("teacher-2")))
	if *calls != 1 {
		t.Fatalf("verifier built %d times, want 1", *calls)
	}
}

func TestEstablishSessionRejects(t *testing.T) {
	k := newKeyPair(t)
	other := newKeyPair(t)

	expired := validClaims("teacher-1")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongAud := validClaims("teacher-1")
	wrongAud["aud"] = "someone-else"
	noSub := validClaims("")

	cases := map[string]string{
		"garbage":       "not-a-token",
		"empty":         "",
		"empty segment": "a..c",
		"wrong key":     other.sign(t, validClaims("teacher-1")),
		"expired":       k.sign(t, expired),
		"wrong aud":     k.sign(t, wrongAud),
		"no subject":    k.sign(t, noSub),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			sessions := newMemSessions()
			g, _ := newTestGateway(t, k, sessions, nil)
			res := g.EstablishSession(context.Background(), tok)
			if res.Success {
				t.Fatal("expected failure")
			}
			if !strings.HasPrefix(res.Error, "Failed to create session cookie. ") {
				t.Fatalf("Error = %q", res.Error)
			}
			if len(sessions.m) != 0 {
				t.Fatal("session created for rejected token")
			}
		})
	}
}

func TestEstablishSessionNotConfigured(t *testing.T) {
	calls := 0
	g := NewGateway(func() (IdentityVerifier, error) {
		calls++
		return nil, ErrNotConfigured
	}, newMemSessions(), nil, zerolog.Nop())

	for i := 0; i < 2; i++ {
		res := g.EstablishSession(context.Background(), "a.b.c")
		if res.Success || !strings.Contains(res.Error, ErrNotConfigured.Error()) {
			t.Fatalf("result = %+v", res)
		}
	}
	// A failed setup is retried on the next request.
	if calls != 2 {
		t.Fatalf("factory calls = %d, want 2", calls)
	}
}

func TestEstablishSessionStoreDown(t *testing.T) {
	k := newKeyPair(t)
	sessions := newMemSessions()
	sessions.err = errors.New("connection refused")
	g, _ := newTestGateway(t, k, sessions, nil)

	res := g.EstablishSession(context.Background(), k.sign(t, validClaims("teacher-1")))
	if res.Success || strings.Contains(res.Error, "connection refused") {
		t.Fatalf("result = %+v", res)
	}
}

func TestProfileUpsertFailureIsIgnored(t *testing.T) {
	k := newKeyPair(t)
	g, _ := newTestGateway(t, k, newMemSessions(), &memProfiles{err: errors.New("db down")})

	res := g.EstablishSession(context.Background(), k.sign(t, validClaims("teacher-1")))
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
}

func TestAuthenticateUnknownSession(t *testing.T) {
	g := NewGateway(nil, newMemSessions(), nil, zerolog.Nop())
	for _, tok := range []string{"", "missing"} {
		if _, err := g.Authenticate(context.Background(), tok); !errors.Is(err, ErrNotAuthenticated) {
			t.Fatalf("Authenticate(%q) err = %v", tok, err)
		}
	}
}

func TestLoginHandlerSetsCookie(t *testing.T) {
	k := newKeyPair(t)
	g, _ := newTestGateway(t, k, newMemSessions(), nil)
	h := NewHandler(g, true)

	body := fmt.Sprintf(`{"id_token":%q}`, k.sign(t, validClaims("teacher-1")))
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"success":true}` {
		t.Fatalf("body = %s", got)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %v", cookies)
	}
	c := cookies[0]
	if c.Name != "__session" || !c.HttpOnly || !c.Secure || c.Path != "/" {
		t.Fatalf("cookie = %+v", c)
	}
	if c.MaxAge != 432000 || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie MaxAge/SameSite = %d/%v", c.MaxAge, c.SameSite)
	}
}

func TestLoginHandlerFailure(t *testing.T) {
	k := newKeyPair(t)
	g, _ := newTestGateway(t, k, newMemSessions(), nil)
	h := NewHandler(g, true)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"id_token":"x"}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("cookie set on failure")
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	sessions := newMemSessions()
	sid, _ := sessions.Create(context.Background(), "teacher-1")
	h := NewHandler(NewGateway(nil, sessions, nil, zerolog.Nop()), false)

	req := httptest.NewRequest(http.MethodPost, "/api/session/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if _, ok := sessions.m[sid]; ok {
		t.Fatal("session still stored")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies = %+v", cookies)
	}
}
