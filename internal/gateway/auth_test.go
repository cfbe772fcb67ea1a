package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripvera/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestExpiresWithin(t *testing.T) {
	fresh := signToken(t, jwt.MapClaims{"id": float64(7), "exp": time.Now().Add(time.Hour).Unix()})
	assert.False(t, expiresWithin(fresh, 30*time.Second))

	expiring := signToken(t, jwt.MapClaims{"id": float64(7), "exp": time.Now().Add(10 * time.Second).Unix()})
	assert.True(t, expiresWithin(expiring, 30*time.Second))

	// Токен без exp не рефрешим
	noExp := signToken(t, jwt.MapClaims{"id": float64(7)})
	assert.False(t, expiresWithin(noExp, 30*time.Second))

	assert.False(t, expiresWithin("garbage", 30*time.Second))
}

func TestSubjectOf(t *testing.T) {
	withID := signToken(t, jwt.MapClaims{"id": float64(42), "exp": time.Now().Add(time.Hour).Unix()})
	assert.Equal(t, int64(42), subjectOf(withID))

	withSub := signToken(t, jwt.MapClaims{"sub": "77", "exp": time.Now().Add(time.Hour).Unix()})
	assert.Equal(t, int64(77), subjectOf(withSub))

	withBadSub := signToken(t, jwt.MapClaims{"sub": "user-77"})
	assert.Zero(t, subjectOf(withBadSub))

	assert.Zero(t, subjectOf("garbage"))
}

func TestSessionMiddlewareAssignsCookie(t *testing.T) {
	logger := zerolog.Nop()
	auth := NewAuthenticator(config.GatewayConfig{SessionCookie: "sessionId"}, nil, &logger)

	var got string
	handler := auth.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, got)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionId", cookies[0].Name)
	assert.Equal(t, got, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessionMiddlewareKeepsExistingCookie(t *testing.T) {
	logger := zerolog.Nop()
	auth := NewAuthenticator(config.GatewayConfig{SessionCookie: "sessionId"}, nil, &logger)

	var got string
	handler := auth.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionId", Value: "existing"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "existing", got)
	assert.Empty(t, rec.Result().Cookies())
}

func TestTokensMiddlewarePassesGuests(t *testing.T) {
	logger := zerolog.Nop()
	auth := NewAuthenticator(config.GatewayConfig{}, nil, &logger)

	called := false
	handler := auth.Tokens(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, AccessToken(r.Context()))
		assert.Zero(t, UserID(r.Context()))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestTokensMiddlewareExtractsUser(t *testing.T) {
	logger := zerolog.Nop()
	auth := NewAuthenticator(config.GatewayConfig{RefreshLeewaySeconds: 30}, nil, &logger)

	token := signToken(t, jwt.MapClaims{"id": float64(7), "exp": time.Now().Add(time.Hour).Unix()})

	handler := auth.Tokens(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, token, AccessToken(r.Context()))
		assert.Equal(t, int64(7), UserID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: accessCookie, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
}
