package gateway

import (
	"context"
	"net/http"
	"time"

	"tripvera/internal/config"
	"tripvera/internal/models"
	"tripvera/internal/travelapi"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	accessTokenKey
	userIDKey
)

// SessionID returns the visitor's session id from the request context.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// AccessToken returns the upstream bearer token, empty for guests.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}

// UserID returns the authenticated user id, zero for guests.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// Authenticator moves tokens between cookies and upstream bearer headers.
// Browsers never see the tokens in script-readable form: both token cookies
// are HttpOnly and the gateway attaches the Authorization header itself.
type Authenticator struct {
	cfg    config.GatewayConfig
	client *travelapi.Client
	logger *zerolog.Logger
}

func NewAuthenticator(cfg config.GatewayConfig, client *travelapi.Client, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Session assigns every visitor a session cookie. Anonymous visitors get
// one too: selection state and the recently viewed list key off it.
func (a *Authenticator) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(a.cfg.SessionCookie); err == nil && c.Value != "" {
			sessionID = c.Value
		} else {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     a.cfg.SessionCookie,
				Value:    sessionID,
				Path:     "/",
				Domain:   a.cfg.CookieDomain,
				HttpOnly: true,
				Secure:   a.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int((30 * 24 * time.Hour).Seconds()),
			})
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Tokens reads the token cookies, refreshes an expiring access token and
// puts the (possibly new) access token plus the user id on the context.
// Guests pass through untouched.
func (a *Authenticator) Tokens(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := cookieValue(r, accessCookie)
		if access == "" {
			next.ServeHTTP(w, r)
			return
		}

		leeway := time.Duration(a.cfg.RefreshLeewaySeconds) * time.Second
		if expiresWithin(access, leeway) {
			if refresh := cookieValue(r, refreshCookie); refresh != "" {
				pair, err := a.client.RefreshTokens(r.Context(), refresh)
				if err != nil {
					a.logger.Warn().Err(err).Msg("token refresh failed")
				} else {
					access = pair.AccessToken
					a.SetTokenCookies(w, pair)
				}
			}
		}

		ctx := context.WithValue(r.Context(), accessTokenKey, access)
		if userID := subjectOf(access); userID != 0 {
			ctx = context.WithValue(ctx, userIDKey, userID)
		}
		ctx = travelapi.WithToken(ctx, access)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects guests with 401.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if AccessToken(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetTokenCookies installs both token cookies.
func (a *Authenticator) SetTokenCookies(w http.ResponseWriter, pair *models.TokenPair) {
	a.setCookie(w, accessCookie, pair.AccessToken)
	a.setCookie(w, refreshCookie, pair.RefreshToken)
}

// ClearTokenCookies drops both token cookies on logout.
func (a *Authenticator) ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   a.cfg.CookieDomain,
			HttpOnly: true,
			Secure:   a.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

func (a *Authenticator) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// expiresWithin inspects the token's exp claim without verifying the
// signature; the upstream service is the verifier, the gateway only decides
// when to refresh.
func expiresWithin(token string, leeway time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < leeway
}

// subjectOf extracts the numeric user id from the token's claims.
func subjectOf(token string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	if id, ok := claims["id"].(float64); ok {
		return int64(id)
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		var id int64
		for _, ch := range sub {
			if ch < '0' || ch > '9' {
				return 0
			}
			id = id*10 + int64(ch-'0')
		}
		return id
	}
	return 0
}
