package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTMintAndParse(t *testing.T) {
	m := NewJWTManager("issuer", "aud", "secret")
	tok, err := m.Mint(Subject{UserID: "u1", Username: "alice", Role: "MANAGER"}, "s1", TokenTypeAccess, 5*time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != "u1" || claims.SessionID != "s1" || claims.Type != TokenTypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Username != "alice" || claims.Role != "MANAGER" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
}

func TestJWTParseRejectsForeignAudience(t *testing.T) {
	minted := NewJWTManager("issuer", "other-aud", "secret")
	tok, err := minted.Mint(Subject{UserID: "u1"}, "s1", TokenTypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	if _, err := NewJWTManager("issuer", "aud", "secret").Parse(tok); err == nil {
		t.Fatalf("expected audience mismatch to fail")
	}
}

func TestJWTParseRejectsExpired(t *testing.T) {
	m := NewJWTManager("issuer", "aud", "secret")
	tok, err := m.Mint(Subject{UserID: "u1"}, "s1", TokenTypeAccess, -time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}
	if _, err := m.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail with ErrInvalidToken, got %v", err)
	}
}

func TestJWTParseRejectsOtherKeyAndMissingSession(t *testing.T) {
	m := NewJWTManager("issuer", "aud", "secret")

	forged, err := NewJWTManager("issuer", "aud", "other-secret").Mint(Subject{UserID: "u1"}, "s1", TokenTypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}
	if _, err := m.Parse(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}

	sessionless, err := m.Mint(Subject{UserID: "u1"}, "", TokenTypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}
	if _, err := m.Parse(sessionless); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected missing session to fail, got %v", err)
	}
}
