package middleware

import (
	"net/http"
	"strings"
)

// NavigationHeader is sent by the docs theme when it swaps page content without a full reload.
const NavigationHeader = "X-Instant-Navigation"

// Navigation marks instant-navigation requests so handlers can publish the right lifecycle event
func Navigation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is := strings.EqualFold(r.Header.Get(NavigationHeader), "true")
		ctx := WithNavigation(r.Context(), is)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
