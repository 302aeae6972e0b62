package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func runAuth(t *testing.T, apiKey string, header string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("POST", "/run", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}
	BearerAuth(apiKey)(c)
	return rec
}

func TestBearerAuth_DisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/run", nil)
	BearerAuth("")(c)
	require.False(t, c.IsAborted())
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	rec := runAuth(t, "secret", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_MalformedHeader(t *testing.T) {
	rec := runAuth(t, "secret", "Token abc")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_WrongKey(t *testing.T) {
	rec := runAuth(t, "secret", "Bearer wrong")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBearerAuth_CorrectKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/run", nil)
	c.Request.Header.Set("Authorization", "Bearer secret")
	BearerAuth("secret")(c)
	require.False(t, c.IsAborted())
}
