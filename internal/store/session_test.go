package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisSessionStore(mr.Addr(), "", time.Hour)

	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("GetUserIDByToken: %v", err)
	}
	if !ok || userID != "u1" {
		t.Fatalf("expected u1, got ok=%v id=%q", ok, userID)
	}

	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	_, ok, err = s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("GetUserIDByToken after delete: %v", err)
	}
	if ok {
		t.Fatal("expected session to be gone after delete")
	}
}

func TestRedisSessionExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisSessionStore(mr.Addr(), "", time.Minute)

	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	_, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("GetUserIDByToken: %v", err)
	}
	if ok {
		t.Fatal("expected session to expire")
	}
}

func TestJWTSessionRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}

	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("GetUserIDByToken: %v", err)
	}
	if !ok || userID != "u1" {
		t.Fatalf("expected u1, got ok=%v id=%q", ok, userID)
	}
}

func TestJWTSessionRejectsTamperedToken(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	other, err := NewJWTSessionStore("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}

	token, err := other.NewSession("u1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
	if _, ok, _ := s.GetUserIDByToken("not-a-jwt"); ok {
		t.Fatal("expected malformed token to be rejected")
	}
}

func TestJWTSessionRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("  ", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestMemorySessionExpiry(t *testing.T) {
	s := NewMemorySessionStore(-time.Second)
	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("expected already-expired session to be rejected")
	}
}
