package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"budgetrelay/internal/domain/link"
)

const maxWebhookBody = 1 << 20

// WebhookProcessor applies a decoded Plaid webhook.
type WebhookProcessor interface {
	HandleEvent(ctx context.Context, ev link.Event) (link.Outcome, error)
}

// WebhookVerifier checks the Plaid-Verification header against the raw body.
type WebhookVerifier interface {
	Verify(ctx context.Context, token string, body []byte) error
}

type WebhookHandler struct {
	processor WebhookProcessor
	verifier  WebhookVerifier
}

// NewWebhookHandler creates the webhook receiver. A nil verifier accepts
// unsigned webhooks.
func NewWebhookHandler(processor WebhookProcessor, verifier WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{processor: processor, verifier: verifier}
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook handles POST /plaid-webhook. Plaid always gets a 200; every
// failure past the method check is logged and the event dropped.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	h.process(r)
	writeJSON(w, http.StatusOK, WebhookResponse{Received: true})
}

func (h *WebhookHandler) process(r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	if h.verifier != nil {
		if err := h.verifier.Verify(ctx, r.Header.Get("Plaid-Verification"), body); err != nil {
			log.Printf("Rejected unverified webhook: %v", err)
			return
		}
	}

	var ev link.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Printf("Error decoding webhook: %v", err)
		return
	}

	outcome, err := h.processor.HandleEvent(ctx, ev)
	if err != nil {
		log.Printf("Error handling webhook %s/%s for item %s: %v", ev.WebhookType, ev.WebhookCode, ev.ItemID, err)
		return
	}
	log.Printf("Webhook %s/%s for item %s: %s", ev.WebhookType, ev.WebhookCode, ev.ItemID, outcome)
}
