package auth

import (
	"testing"
	"time"
)

func TestSessionTokens_RoundTrip(t *testing.T) {
	tokens := NewSessionTokens("test-secret")

	session := Session{SubjectID: "u1", Email: "a@x.com", Name: "Ana"}
	signed, err := tokens.Generate(session)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != session {
		t.Fatalf("Verify = %+v, expected %+v", got, session)
	}
}

func TestSessionTokens_RejectsWrongSecret(t *testing.T) {
	signed, err := NewSessionTokens("secret-a").Generate(Session{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := NewSessionTokens("secret-b").Verify(signed); err == nil {
		t.Fatal("token signed with another secret verified")
	}
}

func TestSessionTokens_RejectsExpired(t *testing.T) {
	tokens := NewSessionTokens("test-secret").WithTTL(-time.Minute)

	signed, err := tokens.Generate(Session{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := tokens.Verify(signed); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestSessionTokens_RequiresSubject(t *testing.T) {
	if _, err := NewSessionTokens("test-secret").Generate(Session{}); err == nil {
		t.Fatal("token generated without subject")
	}
}

func TestSessionTokens_RequiresSecret(t *testing.T) {
	if _, err := NewSessionTokens("").Generate(Session{SubjectID: "u1"}); err == nil {
		t.Fatal("token generated without signing secret")
	}
}
