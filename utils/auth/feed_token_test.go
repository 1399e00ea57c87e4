package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestFeedTokenRoundTrip(t *testing.T) {
	m := NewFeedTokenManager(FeedTokenConfig{Secret: "s3cret"})

	token, err := m.Generate(42)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	id, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if id != 42 {
		t.Errorf("document id = %d, want 42", id)
	}
}

func TestFeedTokenRejections(t *testing.T) {
	m := NewFeedTokenManager(FeedTokenConfig{Secret: "s3cret"})
	valid, _ := m.Generate(7)

	other, _ := NewFeedTokenManager(FeedTokenConfig{Secret: "other"}).Generate(7)
	expired, _ := NewFeedTokenManager(FeedTokenConfig{Secret: "s3cret", Expiry: -time.Minute}).Generate(7)

	wrongType := jwt.NewWithClaims(jwt.SigningMethodHS256, FeedClaims{
		DocumentID:       7,
		TokenType:        "access",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "lesson-planner"},
	})
	wrongTypeToken, _ := wrongType.SignedString([]byte("s3cret"))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"tampered", valid + "x", ErrInvalidToken},
		{"other secret", other, ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"wrong type", wrongTypeToken, ErrInvalidClaims},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeedTokenRequiresSecret(t *testing.T) {
	m := NewFeedTokenManager(FeedTokenConfig{})
	if _, err := m.Generate(1); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Generate = %v", err)
	}
	if _, err := m.Validate("abc"); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Validate = %v", err)
	}
}
