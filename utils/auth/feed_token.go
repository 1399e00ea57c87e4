package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrMissingSecret = errors.New("feed token secret is not configured")
)

const feedTokenType = "calendar_feed"

// FeedTokenConfig holds calendar feed token configuration
type FeedTokenConfig struct {
	Secret string
	Expiry time.Duration // zero means the token does not expire
	Issuer string
}

// FeedClaims represents the claims of a calendar subscription token
type FeedClaims struct {
	DocumentID uint   `json:"document_id"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// FeedTokenManager signs and verifies calendar subscription tokens
type FeedTokenManager struct {
	config FeedTokenConfig
}

// NewFeedTokenManager creates a new feed token manager
func NewFeedTokenManager(config FeedTokenConfig) *FeedTokenManager {
	if config.Issuer == "" {
		config.Issuer = "lesson-planner"
	}
	return &FeedTokenManager{config: config}
}

// Generate issues a token granting read access to one document's calendar
func (m *FeedTokenManager) Generate(documentID uint) (string, error) {
	if m.config.Secret == "" {
		return "", ErrMissingSecret
	}

	now := time.Now()
	claims := FeedClaims{
		DocumentID: documentID,
		TokenType:  feedTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   m.config.Issuer,
			Subject:  strconv.FormatUint(uint64(documentID), 10),
		},
	}
	if m.config.Expiry != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.config.Expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.Secret))
}

// Validate verifies a feed token and returns the document it grants
func (m *FeedTokenManager) Validate(tokenString string) (uint, error) {
	if m.config.Secret == "" {
		return 0, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &FeedClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithIssuer(m.config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpiredToken
		}
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(*FeedClaims)
	if !ok || !token.Valid || claims.TokenType != feedTokenType || claims.DocumentID == 0 {
		return 0, ErrInvalidClaims
	}
	return claims.DocumentID, nil
}
