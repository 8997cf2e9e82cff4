package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protectedApp(roles ...string) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1")
	g.Use(Identity(testSecret))
	g.Use(RequireRole(roles...))
	g.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id")})
	})
	return e
}

func doAuth(e *echo.Echo, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIdentityRejectsMissingToken(t *testing.T) {
	e := protectedApp("STAFF")
	rec := doAuth(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentityRejectsBadSignature(t *testing.T) {
	e := protectedApp("STAFF")
	rec := doAuth(e, "Bearer "+signToken(t, "wrong-secret", "STAFF"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentityInjectsClaims(t *testing.T) {
	e := protectedApp("STAFF", "ADMIN")
	rec := doAuth(e, "Bearer "+signToken(t, testSecret, "STAFF"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "user-1")
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	e := protectedApp("ADMIN")
	rec := doAuth(e, "Bearer "+signToken(t, testSecret, "STAFF"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
