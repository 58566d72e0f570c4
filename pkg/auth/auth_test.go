package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey: "test-secret",
		Issuer:    "graphexplorer",
		Audience:  []string{"graphexplorer-api"},
	}
}

func TestJWTValidator_ValidToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, "user-1", "explorer")
	require.NoError(t, err)
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"explorer"}, claims.Roles)
}

func TestJWTValidator_Rejects(t *testing.T) {
	cfg := testJWTConfig()
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	wrongSecret := cfg
	wrongSecret.SecretKey = "other"
	forged, err := GenerateToken(wrongSecret, "user-1")
	require.NoError(t, err)

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	foreign, err := GenerateToken(wrongIssuer, "user-1")
	require.NoError(t, err)

	expired := cfg
	expired.Expiry = -time.Minute
	stale, err := GenerateToken(expired, "user-1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"wrong secret", forged, ErrInvalidSignature},
		{"wrong issuer", foreign, ErrInvalidClaims},
		{"expired", stale, ErrExpiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewJWTValidator_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})

	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)

	ctx := WithClaims(context.Background(), &Claims{UserID: "u"})
	claims, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u", claims.UserID)
}

func TestSlidingWindowLimiter(t *testing.T) {
	limiter := NewSlidingWindowLimiter(2, time.Minute)
	current := time.Unix(0, 0)
	limiter.now = func() time.Time { return current }
	ctx := context.Background()

	for _, want := range []bool{true, true, false} {
		allowed, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, want, allowed)
	}

	other, _ := limiter.Allow(ctx, "other")
	assert.True(t, other)

	current = current.Add(61 * time.Second)
	allowed, _ := limiter.Allow(ctx, "k")
	assert.True(t, allowed)

	current = current.Add(2 * time.Minute)
	assert.Equal(t, 2, limiter.Prune())

	require.NoError(t, limiter.Reset(ctx, "k"))
}
