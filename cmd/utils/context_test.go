package utils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, userID uint, ttl time.Duration) string {
	t.Helper()
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	var gotUserID uint
	var called bool
	next := func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUserID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	t.Run("binds the user id into the request context", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", 42, time.Hour))
		rec := httptest.NewRecorder()

		AuthMiddleware(next)(rec, req)

		assert.True(t, called)
		assert.Equal(t, uint(42), gotUserID)
	})

	t.Run("accepts the token query parameter", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, "test-secret", 7, time.Hour), nil)
		rec := httptest.NewRecorder()

		AuthMiddleware(next)(rec, req)

		assert.True(t, called)
		assert.Equal(t, uint(7), gotUserID)
	})

	t.Run("rejects a missing credential", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		rec := httptest.NewRecorder()

		AuthMiddleware(next)(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an expired credential", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", 42, -time.Minute))
		rec := httptest.NewRecorder()

		AuthMiddleware(next)(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a credential signed with another key", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", 42, time.Hour))
		rec := httptest.NewRecorder()

		AuthMiddleware(next)(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetUserIDFromContext(req.Context())
	assert.Error(t, err)
}
