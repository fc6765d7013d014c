package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeaderMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		mw     func(http.Handler) http.Handler
		header string
		want   string
	}{
		{"JSON", JSON, "Content-Type", "application/json"},
		{"NoStore cache", NoStore, "Cache-Control", "no-store"},
		{"NoStore sniff", NoStore, "X-Content-Type-Options", "nosniff"},
		{"HSTS", HSTS, "Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := tt.mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = w.Header().Get(tt.header)
				w.WriteHeader(http.StatusTeapot)
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/balance", nil))

			if seen != tt.want {
				t.Errorf("%s seen by handler = %q, want %q", tt.header, seen, tt.want)
			}
			if rr.Code != http.StatusTeapot {
				t.Errorf("status = %d, handler status not preserved", rr.Code)
			}
		})
	}
}
