package middleware

import "net/http"

// corsExemptPaths are called server-to-server and never carry a browser Origin
// worth checking.
var corsExemptPaths = map[string]struct{}{
	"/plaid-webhook": {},
	"/health":        {},
}

// CORS applies Cross-Origin Resource Sharing headers and preflight handling.
// With no allowed hosts every origin gets "*". Otherwise a matching Origin
// is echoed back and any other Origin is rejected with 403.
func CORS(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, exempt := corsExemptPaths[r.URL.Path]; exempt || len(allowedHosts) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				if !isOriginAllowed(origin, allowedHosts) {
					http.Error(w, `{"error":"Origin not allowed","kind":"caller"}`, http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
