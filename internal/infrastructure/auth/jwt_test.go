package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/facade/internal/infrastructure/auth"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims auth.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() auth.Claims {
	return auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scope: "notes:read notes:write",
	}
}

func TestValidateToken(t *testing.T) {
	v := auth.NewJWTValidator(secret)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noSubject := validClaims()
	noSubject.Subject = ""
	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid with bearer prefix", token: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())},
		{name: "valid bare token", token: sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())},
		{name: "empty", token: "", wantErr: auth.ErrMissingToken},
		{name: "bearer only", token: "Bearer ", wantErr: auth.ErrMissingToken},
		{name: "garbage", token: "Bearer not.a.jwt", wantErr: auth.ErrInvalidToken},
		{name: "wrong secret", token: sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()), wantErr: auth.ErrInvalidSignature},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, []byte(secret), expired), wantErr: auth.ErrTokenExpired},
		{name: "missing subject", token: sign(t, jwt.SigningMethodHS256, []byte(secret), noSubject), wantErr: auth.ErrInvalidClaims},
		{name: "missing expiry", token: sign(t, jwt.SigningMethodHS256, []byte(secret), noExpiry), wantErr: auth.ErrInvalidClaims},
		{name: "other hmac method", token: sign(t, jwt.SigningMethodHS512, []byte(secret), validClaims()), wantErr: auth.ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.UserID())
		})
	}
}

func TestClaims_HasScope(t *testing.T) {
	c := validClaims()

	assert.True(t, c.HasScope("notes:write"))
	assert.True(t, c.HasScope("notes:read"))
	assert.False(t, c.HasScope("notes"))
	assert.False(t, (&auth.Claims{}).HasScope("notes:read"))
}
