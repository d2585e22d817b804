package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerationAndValidation(t *testing.T) {
	secret := []byte("test_secret_key_32_bytes_long!!!")
	token := GenerateToken("GROK", secret)

	keys := &Keys{grok: secret}
	auth, ok := keys.Validate(token)
	require.True(t, ok)
	assert.Equal(t, "GROK", auth.KeyID)
	assert.Equal(t, "Grok (xAI)", auth.Holder)
}

func TestInvalidTokenRejected(t *testing.T) {
	keys := &Keys{grok: []byte("real_secret")}
	_, ok := keys.Validate("GROK:invalid_signature")
	assert.False(t, ok)
}

func TestValidateRejectsMalformedToken(t *testing.T) {
	keys := &Keys{grok: []byte("real_secret")}
	_, ok := keys.Validate("not_a_valid_token_shape")
	assert.False(t, ok)
}

func TestValidateRejectsUnknownKeyID(t *testing.T) {
	keys := &Keys{grok: []byte("real_secret")}
	token := GenerateToken("MYSTERY", []byte("real_secret"))
	_, ok := keys.Validate(token)
	assert.False(t, ok)
}

func TestValidateRejectsKeyNotConfigured(t *testing.T) {
	keys := &Keys{} // neither key loaded
	token := GenerateToken("CLAUDE", []byte("whatever"))
	_, ok := keys.Validate(token)
	assert.False(t, ok)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireAuth(&Keys{grok: []byte("secret")}))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthAllowsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("secret")
	keys := &Keys{grok: secret}

	r := gin.New()
	r.Use(RequireAuth(keys))
	r.GET("/protected", func(c *gin.Context) {
		auth, ok := authenticatedKey(c)
		require.True(t, ok)
		assert.Equal(t, "GROK", auth.KeyID)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+GenerateToken("GROK", secret))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
