// Package auth guards the API with a shared secret. Login exchanges the
// secret for a short-lived token so the web client doesn't have to hold the
// password in memory.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "myfeed"

var ErrUnauthorized = errors.New("unauthorized")

// Service validates credentials and issues tokens.
type Service struct {
	password string
	secret   []byte
	tokenTTL time.Duration
}

func NewService(password, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		password: password,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
	}
}

// Login checks the shared secret and returns a signed token on success.
func (s *Service) Login(password string) (string, error) {
	if !s.passwordMatches(password) {
		return "", ErrUnauthorized
	}
	return s.issueToken()
}

func (s *Service) passwordMatches(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
}

func (s *Service) issueToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// ValidateToken checks a previously issued token's signature and expiry.
func (s *Service) ValidateToken(tokenString string) error {
	_, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}
	return nil
}

// Authorized accepts either the shared secret in the x-auth header or a valid
// bearer token.
func (s *Service) Authorized(r *http.Request) bool {
	if h := r.Header.Get("x-auth"); h != "" && s.passwordMatches(h) {
		return true
	}

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return s.ValidateToken(strings.TrimPrefix(h, "Bearer ")) == nil
	}

	return false
}

// Middleware rejects unauthenticated requests with 401.
func (s *Service) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
