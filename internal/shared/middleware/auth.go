package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ContextKey string

const (
	UserIDKey    ContextKey = "user_id"
	RequestIDKey ContextKey = "request_id"
)

// IDTokenVerifier checks a bearer ID token and returns the caller's UID.
// Implemented by the Firebase Auth verifier.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// Auth requires "Authorization: Bearer <ID token>" and stores the verified
// UID in the request context.
func Auth(verifier IDTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Authentication required")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				unauthorized(w, "Invalid authorization header format")
				return
			}

			uid, err := verifier.VerifyIDToken(r.Context(), parts[1])
			if err != nil || uid == "" {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated UID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `","kind":"caller"}`))
}
