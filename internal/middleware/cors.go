package middleware

import (
	"net/http"
	"strings"

	gorillahandlers "github.com/gorilla/handlers"
)

// CORS answers preflight requests and sets the allow headers for the
// configured origins. "*" allows any origin and an empty list allows none.
// Requests without an Origin
// header are not cross-origin and go straight to next, so a plain OPTIONS
// still reaches the router.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins = append(origins, strings.TrimRight(o, "/"))
	}

	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		gorillahandlers.OptionStatusCode(http.StatusNoContent),
	)

	return func(next http.Handler) http.Handler {
		withCORS := cors(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") == "" {
				next.ServeHTTP(w, r)
				return
			}
			withCORS.ServeHTTP(w, r)
		})
	}
}
