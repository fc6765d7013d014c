package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"budgetrelay/internal/domain/link"
	"budgetrelay/internal/infrastructure/plaid"
)

// LinkService is the part of link.Service the handlers call.
type LinkService interface {
	CreateLinkToken(ctx context.Context, userID string) (*plaid.LinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken, userID string) error
	GetBalances(ctx context.Context, userID string) ([]link.AccountBalance, error)
	GetLinkStatus(ctx context.Context, userID string) (*link.Status, error)
}

type LinkHandler struct {
	service LinkService
}

func NewLinkHandler(service LinkService) *LinkHandler {
	return &LinkHandler{service: service}
}

type CreateLinkTokenRequest struct {
	UserID string `json:"userId"`
}

type ExchangePublicTokenRequest struct {
	PublicToken string `json:"public_token"`
	UserID      string `json:"userId"`
}

type ExchangePublicTokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleCreateLinkToken handles POST /create_link_token. The body is optional.
func (h *LinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req CreateLinkTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeCallerError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, ok := resolveUserID(w, r, req.UserID)
	if !ok {
		return
	}

	resp, err := h.service.CreateLinkToken(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Failed to create link token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleExchangePublicToken handles POST /exchange_public_token.
func (h *LinkHandler) HandleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req ExchangePublicTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCallerError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, ok := resolveUserID(w, r, req.UserID)
	if !ok {
		return
	}

	if err := h.service.ExchangePublicToken(r.Context(), req.PublicToken, userID); err != nil {
		writeError(w, r, err, "Failed to exchange token")
		return
	}

	writeJSON(w, http.StatusOK, ExchangePublicTokenResponse{
		Success: true,
		Message: "Access token stored securely",
	})
}

// HandleBalance handles GET /balance?userId=.
func (h *LinkHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := resolveUserID(w, r, r.URL.Query().Get("userId"))
	if !ok {
		return
	}

	balances, err := h.service.GetBalances(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch balances")
		return
	}

	writeJSON(w, http.StatusOK, balances)
}

// HandleLinkStatus handles GET /link_status?userId=.
func (h *LinkHandler) HandleLinkStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := resolveUserID(w, r, r.URL.Query().Get("userId"))
	if !ok {
		return
	}

	status, err := h.service.GetLinkStatus(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch link status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
