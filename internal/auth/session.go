// Package auth consumes the external identity provider: it verifies the access
// tokens it issues and calls its admin API with the service key.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Session is the authenticated actor of one request. It is built once per request
// from the bearer token and passed explicitly to handlers.
type Session struct {
	UserID    string `json:"userId"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Claims mirrors the identity provider's access token payload
type Claims struct {
	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// UserMetadata is the profile data the identity provider embeds in tokens and user records
type UserMetadata struct {
	Name      string `json:"name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName prefers name over full_name
func (m UserMetadata) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.FullName
}

// SessionVerifier validates HS256 access tokens signed with the provider's JWT secret
type SessionVerifier struct {
	secret []byte
}

// NewSessionVerifier creates a verifier for the given signing secret
func NewSessionVerifier(secret string) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret)}
}

// FromAuthorizationHeader extracts and verifies a "Bearer <token>" header value
func (v *SessionVerifier) FromAuthorizationHeader(header string) (*Session, error) {
	if header == "" {
		return nil, ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, ErrInvalidToken
	}
	return v.Verify(strings.TrimSpace(parts[1]))
}

// Verify parses a raw token and returns the session it carries
func (v *SessionVerifier) Verify(tokenString string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.UserMetadata.DisplayName(),
		AvatarURL: claims.UserMetadata.AvatarURL,
	}, nil
}

// Sign issues a token for a session. Used by the seeder and tests; production
// tokens come from the identity provider.
func (v *SessionVerifier) Sign(s Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        s.Email,
		UserMetadata: UserMetadata{Name: s.Name, AvatarURL: s.AvatarURL},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type sessionKey struct{}

// WithSession stores the session in ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx, if any
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
