package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is what the rest of the system consumes from the identity
// provider: a subject identifier plus the email and display name the
// provider asserted for it.
type Session struct {
	SubjectID string
	Email     string
	Name      string
}

// SessionClaims is the JWT payload backing a Session.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokens signs and verifies the session JWTs issued to dashboard
// clients.
type SessionTokens struct {
	secretKey []byte
	ttl       time.Duration
}

// NewSessionTokens builds a token helper using the provided signing secret.
func NewSessionTokens(secretKey string) *SessionTokens {
	return &SessionTokens{
		secretKey: []byte(secretKey),
		ttl:       24 * time.Hour,
	}
}

// WithTTL allows customising the expiration duration.
func (st *SessionTokens) WithTTL(ttl time.Duration) *SessionTokens {
	if ttl > 0 {
		st.ttl = ttl
	}
	return st
}

// Generate issues a signed session token for the subject.
func (st *SessionTokens) Generate(session Session) (string, error) {
	if len(st.secretKey) == 0 {
		return "", errors.New("session signing secret is empty")
	}
	if session.SubjectID == "" {
		return "", errors.New("subject id required")
	}

	now := time.Now()
	claims := SessionClaims{
		Email: session.Email,
		Name:  session.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.SubjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(st.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(st.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and extracts the session it carries.
func (st *SessionTokens) Verify(tokenString string) (Session, error) {
	if len(st.secretKey) == 0 {
		return Session{}, errors.New("session signing secret is empty")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return st.secretKey, nil
		},
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Session{}, errors.New("invalid session token")
	}

	return Session{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}
