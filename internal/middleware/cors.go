package middleware

import (
	"net/http"
)

// EnableCORS answers cross-origin requests from the allowed origins. An
// entry of "*" allows any origin, without credentials. Requests from other
// origins get no CORS headers and the browser blocks them.
func EnableCORS(next http.Handler, allowed []string) http.Handler {
	origins := make(map[string]bool, len(allowed))
	anyOrigin := false
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
			continue
		}
		origins[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Add("Vary", "Origin")
			switch {
			case origins[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			case anyOrigin:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
