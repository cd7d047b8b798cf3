// httpapi/clientkey.go
// --------------------
// Client-key resolution for rate limiting. With an auth secret configured,
// callers presenting a valid HMAC-signed bearer token are keyed by the
// token's subject claim, so one client behind many addresses shares one
// quota. Everyone else is keyed by network address.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cinebridge/cine-bridge/internal/logging"
)

type contextKey string

const clientKeyContextKey contextKey = "cinebridge.clientKey"

// ClientKeyMiddleware resolves a client key for every request and stores it
// on the request context.
func ClientKeyMiddleware(authSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := resolveClientKey(r, authSecret)
			ctx := context.WithValue(r.Context(), clientKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientKeyFrom returns the resolved key, or "unknown" when the middleware
// did not run.
func ClientKeyFrom(ctx context.Context) string {
	if key, ok := ctx.Value(clientKeyContextKey).(string); ok && key != "" {
		return key
	}
	return "unknown"
}

func resolveClientKey(r *http.Request, authSecret string) string {
	if authSecret != "" {
		if sub := subjectFromBearer(r, authSecret); sub != "" {
			return "sub:" + sub
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func subjectFromBearer(r *http.Request, secret string) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, prefix), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		logging.Debugf("client key: bearer token rejected: %v", err)
		return ""
	}
	return claims.Subject
}
