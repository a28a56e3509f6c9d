package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkclass/internal/domain"
)

const (
	key    = "test-key"
	issuer = "checkclass"
)

var alice = domain.Principal{UserID: "3", Name: "Juan Pérez", Role: domain.RoleStudent}

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue(alice, issuer, key, time.Hour, 24*time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := Parse(pair.AccessToken, key, issuer)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Principal())

	_, err = Parse(pair.AccessToken, "other-key", issuer)
	assert.Error(t, err)
	_, err = Parse(pair.AccessToken, key, "someone-else")
	assert.Error(t, err)
	_, err = Parse(pair.RefreshToken, key, issuer)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue(alice, issuer, key, time.Minute, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = Parse(pair.AccessToken, key, issuer)
	assert.Error(t, err)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	pair, err := Issue(domain.Principal{UserID: "9", Role: "janitor"}, issuer, key, time.Hour, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = Parse(pair.AccessToken, key, issuer)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("estudiante123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "estudiante123"))
	assert.False(t, CheckPassword(h, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "estudiante123"))
}

func router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", Authenticate(key, issuer))
	g.GET("/me", func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, p)
	})
	g.GET("/qr", RequireCapability(domain.CapCreateQR), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	r := router()
	pair, err := Issue(alice, issuer, key, time.Hour, time.Hour, time.Now())
	require.NoError(t, err)

	w := do(r, "/me", pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"3","name":"Juan Pérez","role":"student"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)
}

func TestRequireCapability(t *testing.T) {
	r := router()
	student, err := Issue(alice, issuer, key, time.Hour, time.Hour, time.Now())
	require.NoError(t, err)
	teacher, err := Issue(domain.Principal{UserID: "2", Name: "Prof. García", Role: domain.RoleTeacher}, issuer, key, time.Hour, time.Hour, time.Now())
	require.NoError(t, err)

	w := do(r, "/qr", student.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "message")
	assert.Equal(t, http.StatusNoContent, do(r, "/qr", teacher.AccessToken).Code)
}
