package link

import (
	"context"
	"errors"
	"fmt"
	"log"

	"budgetrelay/internal/domain/item"
	"budgetrelay/internal/infrastructure/plaid"
)

// Webhook types and codes the relay acts on.
const (
	WebhookTypeTransactions = "TRANSACTIONS"
	WebhookTypeItem         = "ITEM"

	CodeSyncUpdatesAvailable  = "SYNC_UPDATES_AVAILABLE"
	CodeInitialUpdate         = "INITIAL_UPDATE"
	CodeHistoricalUpdate      = "HISTORICAL_UPDATE"
	CodeDefaultUpdate         = "DEFAULT_UPDATE"
	CodeItemError             = "ERROR"
	CodePendingExpiration     = "PENDING_EXPIRATION"
	CodePendingDisconnect     = "PENDING_DISCONNECT"
	CodeUserPermissionRevoked = "USER_PERMISSION_REVOKED"
	CodeLoginRepaired         = "LOGIN_REPAIRED"
)

// Event is the subset of a Plaid webhook body the relay reads.
type Event struct {
	WebhookType     string       `json:"webhook_type"`
	WebhookCode     string       `json:"webhook_code"`
	ItemID          string       `json:"item_id"`
	Error           *plaid.Error `json:"error,omitempty"`
	NewTransactions int          `json:"new_transactions,omitempty"`
	Environment     string       `json:"environment,omitempty"`
}

// Outcome records what HandleEvent did with an event.
type Outcome string

const (
	OutcomeSyncScheduled  Outcome = "sync_scheduled"
	OutcomeRelinkRequired Outcome = "relink_required"
	OutcomeRepaired       Outcome = "repaired"
	OutcomeUnknownItem    Outcome = "unknown_item"
	OutcomeIgnored        Outcome = "ignored"
)

// SyncScheduler queues a background transaction sync for a user.
type SyncScheduler interface {
	ScheduleSync(userID, itemID string) error
}

// RelinkNotifier tells a user their item needs Link update mode.
type RelinkNotifier interface {
	NotifyRelinkRequired(ctx context.Context, userID, reason string) error
}

// WebhookService routes Plaid webhooks to syncs and status changes.
type WebhookService struct {
	items     item.Repository
	scheduler SyncScheduler
	notifier  RelinkNotifier
}

// NewWebhookService creates a webhook service. scheduler and notifier may
// be nil, in which case the matching events are only logged.
func NewWebhookService(items item.Repository, scheduler SyncScheduler, notifier RelinkNotifier) *WebhookService {
	return &WebhookService{items: items, scheduler: scheduler, notifier: notifier}
}

// HandleEvent processes one webhook. It never blocks on a sync: sync work
// is handed to the scheduler.
func (s *WebhookService) HandleEvent(ctx context.Context, ev Event) (Outcome, error) {
	switch {
	case ev.WebhookType == WebhookTypeTransactions && isSyncCode(ev.WebhookCode):
		return s.scheduleSync(ctx, ev)
	case ev.WebhookType == WebhookTypeItem && isRelinkCode(ev.WebhookCode):
		return s.requireRelink(ctx, ev)
	case ev.WebhookType == WebhookTypeItem && ev.WebhookCode == CodeLoginRepaired:
		return s.setStatus(ctx, ev, item.StatusLinked, OutcomeRepaired)
	default:
		log.Printf("Ignoring webhook %s/%s for item %s", ev.WebhookType, ev.WebhookCode, ev.ItemID)
		return OutcomeIgnored, nil
	}
}

func (s *WebhookService) scheduleSync(ctx context.Context, ev Event) (Outcome, error) {
	rec, err := s.lookup(ctx, ev.ItemID)
	if err != nil || rec == nil {
		return OutcomeUnknownItem, err
	}
	if s.scheduler == nil {
		log.Printf("No sync scheduler configured, dropping %s for item %s", ev.WebhookCode, ev.ItemID)
		return OutcomeIgnored, nil
	}
	if err := s.scheduler.ScheduleSync(rec.UserID, rec.ItemID); err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to schedule sync for user %s: %w", rec.UserID, err)
	}
	return OutcomeSyncScheduled, nil
}

func (s *WebhookService) requireRelink(ctx context.Context, ev Event) (Outcome, error) {
	rec, err := s.lookup(ctx, ev.ItemID)
	if err != nil || rec == nil {
		return OutcomeUnknownItem, err
	}

	if err := s.items.SetStatus(ctx, rec.UserID, item.StatusNeedsRelink); err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to mark item %s for relink: %w", ev.ItemID, err)
	}

	reason := ev.WebhookCode
	if ev.Error != nil && ev.Error.ErrorCode != "" {
		reason = ev.Error.ErrorCode
	}
	log.Printf("Item %s for user %s needs relink: %s", ev.ItemID, rec.UserID, reason)

	if s.notifier != nil {
		if err := s.notifier.NotifyRelinkRequired(ctx, rec.UserID, reason); err != nil {
			log.Printf("Warning: failed to notify user %s of relink: %v", rec.UserID, err)
		}
	}
	return OutcomeRelinkRequired, nil
}

func (s *WebhookService) setStatus(ctx context.Context, ev Event, status item.LinkStatus, outcome Outcome) (Outcome, error) {
	rec, err := s.lookup(ctx, ev.ItemID)
	if err != nil || rec == nil {
		return OutcomeUnknownItem, err
	}
	if err := s.items.SetStatus(ctx, rec.UserID, status); err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to set status for item %s: %w", ev.ItemID, err)
	}
	return outcome, nil
}

// lookup returns nil, nil for an item the vault does not know.
func (s *WebhookService) lookup(ctx context.Context, itemID string) (*item.AccessTokenRecord, error) {
	if itemID == "" {
		log.Println("Webhook without item_id, ignoring")
		return nil, nil
	}
	rec, err := s.items.FindByItemID(ctx, itemID)
	if errors.Is(err, item.ErrItemNotFound) {
		log.Printf("Webhook for unknown item %s, ignoring", itemID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up item %s: %w", itemID, err)
	}
	return rec, nil
}

func isSyncCode(code string) bool {
	switch code {
	case CodeSyncUpdatesAvailable, CodeInitialUpdate, CodeHistoricalUpdate, CodeDefaultUpdate:
		return true
	}
	return false
}

func isRelinkCode(code string) bool {
	switch code {
	case CodeItemError, CodePendingExpiration, CodePendingDisconnect, CodeUserPermissionRevoked:
		return true
	}
	return false
}
