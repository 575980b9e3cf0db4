package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	defaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "interview-partner"
	sessionScope    = "session"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or scope checks
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims represents the claims in a session token. The token is a
// handle to one interview session, not a user identity.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenConfig holds configuration for the TokenIssuer
type TokenConfig struct {
	Secret string        // Optional: HMAC secret, random per process when empty
	TTL    time.Duration // Optional: token lifetime
}

// TokenIssuer signs and validates session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenConfigFromEnv reads the token configuration from environment variables
func NewTokenConfigFromEnv() TokenConfig {
	config := TokenConfig{Secret: os.Getenv("SESSION_TOKEN_SECRET")}
	if ttlStr := os.Getenv("SESSION_TOKEN_TTL"); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil {
			config.TTL = ttl
		}
	}
	return config
}

// NewTokenIssuer creates a new TokenIssuer
func NewTokenIssuer(config TokenConfig, logger *zap.Logger) (*TokenIssuer, error) {
	secret := []byte(config.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		logger.Warn("SESSION_TOKEN_SECRET not set, tokens will not survive a restart")
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
		logger.Info("Using default token TTL", zap.Duration("ttl", ttl))
	}

	return &TokenIssuer{secret: secret, ttl: ttl}, nil
}

// GenerateSessionToken generates a token bound to sessionID
func (i *TokenIssuer) GenerateSessionToken(sessionID string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, errors.New("session ID cannot be empty")
	}

	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := &SessionClaims{
		SessionID: sessionID,
		Scope:     sessionScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a session token and returns the claims
func (i *TokenIssuer) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Scope != sessionScope || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
