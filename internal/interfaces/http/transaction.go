package http

import (
	"context"
	"net/http"

	"budgetrelay/internal/domain/transaction"
)

// TransactionSyncer runs the full delta sync for a user.
type TransactionSyncer interface {
	SyncUserTransactions(ctx context.Context, userID string) (*transaction.Delta, error)
}

type TransactionHandler struct {
	syncer TransactionSyncer
}

func NewTransactionHandler(syncer TransactionSyncer) *TransactionHandler {
	return &TransactionHandler{syncer: syncer}
}

// HandleGetTransactions handles GET /transactions?userId=. The request
// context bounds the sync, so a client disconnect stops paging.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := resolveUserID(w, r, r.URL.Query().Get("userId"))
	if !ok {
		return
	}
	if userID == "" {
		writeCallerError(w, http.StatusBadRequest, "userId is required")
		return
	}

	delta, err := h.syncer.SyncUserTransactions(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch transactions")
		return
	}

	writeJSON(w, http.StatusOK, delta)
}
