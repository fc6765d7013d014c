package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"budgetrelay/internal/domain/item"
	"budgetrelay/internal/domain/notification"
	"budgetrelay/internal/domain/transaction"
	"budgetrelay/internal/infrastructure/plaid"
	"budgetrelay/internal/shared/middleware"
)

// Error kinds reported to clients.
const (
	KindCaller      = "caller"
	KindGateway     = "gateway"
	KindPersistence = "persistence"
)

const msgNoAccessToken = "No access token found for user"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Kind    string       `json:"kind"`
	Details *plaid.Error `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeCallerError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: KindCaller})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeCallerError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// writeError maps a service error onto a status code and error kind.
// fallback is the message used for upstream and storage failures.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	// item.ErrVault and anything unclassified are reported as persistence.
	resp := ErrorResponse{Error: fallback, Kind: KindPersistence}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, item.ErrNoAccessToken):
		status, resp.Kind, resp.Error = http.StatusBadRequest, KindCaller, msgNoAccessToken
	case errors.Is(err, item.ErrInvalidInput),
		errors.Is(err, notification.ErrInvalidUser),
		errors.Is(err, notification.ErrInvalidToken),
		errors.Is(err, notification.ErrInvalidPlatform):
		status, resp.Kind, resp.Error = http.StatusBadRequest, KindCaller, err.Error()
	case errors.Is(err, transaction.ErrSyncPageLimit),
		errors.Is(err, transaction.ErrSyncTimeout),
		errors.Is(err, transaction.ErrSyncNoProgress):
		status, resp.Kind = http.StatusGatewayTimeout, KindGateway
	case errors.Is(err, plaid.ErrGateway):
		resp.Kind = KindGateway
		var perr *plaid.Error
		if errors.As(err, &perr) {
			resp.Details = perr
		}
	}

	log.Printf("%s %s failed [%s]: %v", r.Method, r.URL.Path, middleware.RequestIDFromContext(r.Context()), err)
	writeJSON(w, status, resp)
}

// resolveUserID reconciles the requested user with the authenticated one.
// Without auth the requested ID is used as is.
func resolveUserID(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return requested, true
	}
	if requested != "" && requested != uid {
		writeCallerError(w, http.StatusForbidden, "Forbidden")
		return "", false
	}
	return uid, true
}
