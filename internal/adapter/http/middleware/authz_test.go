package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aq2208/commerce-api/configs"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

func testConfig() configs.Config {
	var cfg configs.Config
	cfg.Security.JWTSecret = testJWTSecret
	cfg.Security.Issuer = "commerce-api"
	cfg.Security.Audience = "storefront"
	return cfg
}

func issueToken(t *testing.T, secret, sub string, perms []string, mutate func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":   "commerce-api",
		"aud":   "storefront",
		"sub":   sub,
		"perms": perms,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func authzRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	a := NewAuthz(testConfig())
	r.GET("/protected", a.Require("cart.read"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserID))
	})
	return r
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireValidToken(t *testing.T) {
	r := authzRouter()
	token := issueToken(t, testJWTSecret, "u1", []string{"cart.read", "cart.write"}, nil)

	rec := get(r, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestRequireMissingToken(t *testing.T) {
	rec := get(authzRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireWrongSecret(t *testing.T) {
	token := issueToken(t, "other-secret", "u1", []string{"cart.read"}, nil)
	rec := get(authzRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireExpiredToken(t *testing.T) {
	token := issueToken(t, testJWTSecret, "u1", []string{"cart.read"}, func(c jwt.MapClaims) {
		c["exp"] = time.Now().Add(-time.Hour).Unix()
	})
	rec := get(authzRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireIssuerMismatch(t *testing.T) {
	token := issueToken(t, testJWTSecret, "u1", []string{"cart.read"}, func(c jwt.MapClaims) {
		c["iss"] = "someone-else"
	})
	rec := get(authzRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireInsufficientPerms(t *testing.T) {
	token := issueToken(t, testJWTSecret, "u1", []string{"orders.read"}, nil)
	rec := get(authzRouter(), token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireMissingSubject(t *testing.T) {
	token := issueToken(t, testJWTSecret, "", []string{"cart.read"}, nil)
	rec := get(authzRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
