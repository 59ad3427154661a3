package middleware

import (
	"net/http"
	"strings"
)

const (
	// GuestTokenCookie is the client-persisted guest cart identity.
	GuestTokenCookie = "shopkit_cart_token"
	// GuestTokenHeader lets non-browser clients carry the same token.
	GuestTokenHeader = "X-Guest-Token"
)

// GuestToken lifts the guest cart token from the request cookie or header
// into the context. The header wins when both are present.
func GuestToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(GuestTokenHeader))
			if token == "" {
				if cookie, err := r.Cookie(GuestTokenCookie); err == nil {
					token = strings.TrimSpace(cookie.Value)
				}
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithGuestToken(r.Context(), token)))
		})
	}
}
