package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JWTStore issues self-contained HS256 tokens. Nothing is stored server
// side; the email and the expiry travel inside the signed token.
type JWTStore struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTStore creates a new instance of JWTStore.
func NewJWTStore(secret string, ttl time.Duration, opts ...Option) *JWTStore {
	o := buildOptions(opts)
	return &JWTStore{
		secret: []byte(secret),
		ttl:    ttl,
		now:    o.now,
	}
}

// expMillisClaim carries the expiry at millisecond precision; the
// registered exp claim only has whole seconds.
const expMillisClaim = "exp_ms"

// Issue signs a token for email that expires after the store's TTL.
func (s *JWTStore) Issue(_ context.Context, email string) (string, error) {
	jti, err := NewToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":        email,
		"jti":          jti,
		"iat":          now.Unix(),
		"exp":          roundUpToSecond(expiresAt).Unix(),
		expMillisClaim: expiresAt.UnixMilli(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies the signature and expiry of tokenString and returns the
// email it carries.
func (s *JWTStore) Resolve(_ context.Context, tokenString string) (string, error) {
	// Expiry is checked against s.now below rather than jwt.TimeFunc.
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrSessionNotFound
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrSessionNotFound
	}
	expMillis, ok := claims[expMillisClaim].(float64)
	if !ok || s.now().UnixMilli() >= int64(expMillis) {
		return "", ErrSessionNotFound
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", ErrSessionNotFound
	}
	return email, nil
}

func roundUpToSecond(t time.Time) time.Time {
	if truncated := t.Truncate(time.Second); !truncated.Equal(t) {
		return truncated.Add(time.Second)
	}
	return t
}
