package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	if rec.code() != http.StatusOK {
		t.Errorf("code() before write = %d, want 200", rec.code())
	}

	rec.WriteHeader(http.StatusGatewayTimeout)
	rec.WriteHeader(http.StatusOK)

	if rec.code() != http.StatusGatewayTimeout {
		t.Errorf("code() = %d, want first status 504", rec.code())
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "req-abc", wantSame: true},
		{name: "oversized replaced", incoming: strings.Repeat("x", maxRequestIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			got := rr.Header().Get("X-Request-ID")
			if got != ctxID {
				t.Errorf("header %q != context %q", got, ctxID)
			}
			if tt.wantSame {
				if got != tt.incoming {
					t.Errorf("X-Request-ID = %q, want %q", got, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("X-Request-ID %q is not a UUID: %v", got, err)
			}
		})
	}
}

func TestLogging_OmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	handler := RequestID(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})))

	req := httptest.NewRequest(http.MethodGet, "/transactions?userId=secret-user", nil)
	req.Header.Set("X-Request-ID", "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	if !strings.Contains(line, "GET /transactions 400") {
		t.Errorf("log line %q missing method, path or status", line)
	}
	if !strings.Contains(line, "req-42") {
		t.Errorf("log line %q missing request ID", line)
	}
	if strings.Contains(line, "secret-user") {
		t.Errorf("log line %q leaked the query string", line)
	}
}
