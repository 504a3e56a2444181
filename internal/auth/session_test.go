package auth

import (
	"context"
	"testing"
)

func TestSessionKey(t *testing.T) {
	if got := sessionKey("abc"); got != "teacher_session:abc" {
		t.Fatalf("sessionKey = %q", got)
	}
}

// Empty input is answered without a Redis round trip, so a store with no
// client is enough here.
func TestSessionStoreEmptyInput(t *testing.T) {
	s := NewSessionStore(nil)
	ctx := context.Background()

	if _, err := s.Create(ctx, ""); err == nil {
		t.Fatal("Create accepted an empty user id")
	}
	if uid, err := s.Get(ctx, ""); uid != "" || err != nil {
		t.Fatalf("Get(\"\") = %q, %v", uid, err)
	}
	if err := s.Delete(ctx, ""); err != nil {
		t.Fatalf("Delete(\"\") = %v", err)
	}
}
