package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	t.Run("UserClaims", func(t *testing.T) {
		token := signed(t, jwt.MapClaims{"id": "u1", "name": "Asha", "exp": exp.Unix()})
		s, err := FromToken("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, token, s.Token)
		assert.Equal(t, "u1", s.UserID)
		assert.Equal(t, "Asha", s.Name)
		assert.Equal(t, RoleUser, s.Role)
		assert.True(t, exp.Equal(s.ExpiresAt))
		assert.Equal(t, "/user", s.BasePath())
		assert.Equal(t, "Bearer "+token, s.AuthorizationHeader())
		assert.NoError(t, s.Validate(time.Now()))
	})

	t.Run("VendorRole", func(t *testing.T) {
		s, err := FromToken(signed(t, jwt.MapClaims{"sub": "v9", "role": "Vendor"}))
		require.NoError(t, err)
		assert.Equal(t, "v9", s.UserID)
		assert.Equal(t, RoleVendor, s.Role)
		assert.Equal(t, "/vendor", s.BasePath())
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := FromToken("  ")
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := FromToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		s       *Session
		wantErr error
	}{
		{"nil", nil, ErrNoToken},
		{"no token", &Session{Role: RoleUser}, ErrNoToken},
		{"expired", &Session{Token: "t", Role: RoleUser, ExpiresAt: now.Add(-time.Minute)}, ErrExpired},
		{"no expiry", &Session{Token: "t", Role: RoleAdmin}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate(now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	err := (&Session{Token: "t", Role: "guest"}).Validate(now)
	assert.Error(t, err)
}
