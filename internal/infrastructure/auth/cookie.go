// Package auth signs session cookies and issues one-time tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrMissingSession = errors.New("missing session in claims")
	ErrEmptySecret    = errors.New("cookie secret must not be empty")
)

// CookieClaims are the claims of a session cookie. The sid claim holds the
// session token; the cookie expires together with the session.
type CookieClaims struct {
	jwt.RegisteredClaims
	SessionToken string `json:"sid"`
}

// CookieSigner signs and verifies session cookies as HS256 JWTs
type CookieSigner struct {
	secret []byte
	issuer string
}

// NewCookieSigner creates a signer for secret
func NewCookieSigner(secret, issuer string) (*CookieSigner, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &CookieSigner{secret: []byte(secret), issuer: issuer}, nil
}

// Sign wraps a session token in a signed JWT expiring at expiresAt
func (s *CookieSigner) Sign(sessionToken string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := &CookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionToken: sessionToken,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature and expiry of a cookie value and returns
// the session token it carries
func (s *CookieSigner) Verify(value string) (string, error) {
	claims, err := s.Parse(value)
	if err != nil {
		return "", err
	}
	return claims.SessionToken, nil
}

// Parse checks the signature and expiry of a cookie value and returns its claims
func (s *CookieSigner) Parse(value string) (*CookieClaims, error) {
	token, err := jwt.ParseWithClaims(value, &CookieClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CookieClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.SessionToken == "" {
		return nil, ErrMissingSession
	}
	return claims, nil
}
