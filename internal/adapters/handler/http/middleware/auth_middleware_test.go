package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

type stubValidator map[string]string

func (s stubValidator) ValidateToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("unknown token")
}

func protectedRouter(validator TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(validator))
	router.GET("/me", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, userID)
	})
	return router
}

func TestAuthMiddleware_HeaderParsing(t *testing.T) {
	router := protectedRouter(stubValidator{"good": "athlete-7", "blank": ""})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"Success: bearer token", "Bearer good", http.StatusOK, "athlete-7"},
		{"Success: scheme is case insensitive", "bearer good", http.StatusOK, "athlete-7"},
		{"Fail: no header", "", http.StatusUnauthorized, "authorization header required"},
		{"Fail: scheme only", "Bearer", http.StatusUnauthorized, "invalid authorization header format"},
		{"Fail: wrong scheme", "Basic good", http.StatusUnauthorized, "invalid authorization header format"},
		{"Fail: extra fields", "Bearer good extra", http.StatusUnauthorized, "invalid authorization header format"},
		{"Fail: unknown token", "Bearer forged", http.StatusUnauthorized, "invalid or expired token"},
		{"Edge Case: empty subject never reaches the handler", "Bearer blank", http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAuthMiddleware_WithTokenService(t *testing.T) {
	tokens := services.NewTokenService("middleware-secret", "kanso", time.Hour)
	router := protectedRouter(tokens)

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success: issued token resolves the user", func(t *testing.T) {
		token, err := tokens.GenerateToken("athlete-9")
		require.NoError(t, err)

		w := call(token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "athlete-9", w.Body.String())
	})

	t.Run("Fail: token signed with another secret", func(t *testing.T) {
		token, err := services.NewTokenService("other-secret", "kanso", time.Hour).GenerateToken("athlete-9")
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, call(token).Code)
	})

	t.Run("Fail: expired token", func(t *testing.T) {
		token, err := services.NewTokenService("middleware-secret", "kanso", -time.Minute).GenerateToken("athlete-9")
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, call(token).Code)
	})
}
