package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kyonru/feather-companion/internal/assets"
)

// APIKeyHeader is the header clients send their key in.
const APIKeyHeader = "x-api-key"

// RequireAPIKey returns a handler that enforces API key authentication on
// every request before calling next.
//
// Behaviour:
//   - If key == "", all requests are allowed (pass-through).
//   - Otherwise the x-api-key header must equal key. Browsers cannot set
//     headers on WebSocket upgrades or <img> loads, so an api_key query
//     parameter is accepted for those requests as well.
//   - A missing, empty or incorrect key returns 401.
func RequireAPIKey(key string, next http.Handler) http.Handler {
	if key == "" {
		return next
	}
	want := []byte(key)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(APIKeyHeader)
		if got == "" && queryKeyAllowed(r) {
			got = r.URL.Query().Get("api_key")
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			jsonErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// queryKeyAllowed reports whether r may carry its key in the query string.
func queryKeyAllowed(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return true
	}
	return r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, assets.Route)
}
