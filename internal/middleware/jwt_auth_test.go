package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func runMiddleware(t *testing.T, header string) (*models.JwtCustomClaims, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var got *models.JwtCustomClaims
	err := JWTAuthMiddleware(testSecret)(func(c echo.Context) error {
		got, _ = ClaimsFromContext(c)
		return nil
	})(c)
	return got, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return he.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken(testSecret, &models.User{ID: 42, Email: "a@b.co"}, time.Hour)
	require.NoError(t, err)

	claims, err := runMiddleware(t, "Bearer "+token)
	require.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "a@b.co", claims.Email)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	good, err := IssueToken(testSecret, &models.User{ID: 1}, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, &models.User{ID: 1}, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", &models.User{ID: 1}, time.Hour)
	require.NoError(t, err)
	anonymous, err := IssueToken(testSecret, &models.User{}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JwtCustomClaims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic " + good},
		{"extra parts", "Bearer " + good + " x"},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
		{"no user id", "Bearer " + anonymous},
		{"alg none", "Bearer " + none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := runMiddleware(t, tt.header)
			require.Error(t, err)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
			assert.Nil(t, claims)
		})
	}
}
