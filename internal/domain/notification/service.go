package notification

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"budgetrelay/internal/shared/messages"
)

// Service contains the business logic for notification operations
type Service struct {
	repo      Repository
	messenger Messenger
}

// NewService creates a new notification service.
// A nil messenger disables delivery; registration still works.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

// RegisterDevice stores an FCM token for a user.
func (s *Service) RegisterDevice(ctx context.Context, params RegisterParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, params)
}

// NotifyTransactionsUpdated sends a silent push telling the client to
// re-fetch /transactions.
// The title and body ride in the data payload so the client may show a
// local notification.
func (s *Service) NotifyTransactionsUpdated(ctx context.Context, userID string, added, modified, removed int) error {
	msg := messages.Get().TransactionsUpdated
	data := map[string]string{
		"type":     TypeTransactionsUpdated,
		"title":    msg.Title,
		"body":     msg.Body,
		"added":    strconv.Itoa(added),
		"modified": strconv.Itoa(modified),
		"removed":  strconv.Itoa(removed),
	}
	return s.send(ctx, userID, func(tokens []string) error {
		return s.messenger.SendDataOnly(ctx, tokens, data)
	})
}

// NotifyRelinkRequired sends a visible push asking the user to reconnect
// their bank through Link update mode.
func (s *Service) NotifyRelinkRequired(ctx context.Context, userID, reason string) error {
	msg := messages.Get().RelinkRequired
	data := map[string]string{
		"type":   TypeItemNeedsRelink,
		"reason": reason,
	}
	return s.send(ctx, userID, func(tokens []string) error {
		return s.messenger.SendMulticast(ctx, tokens, msg.Title, msg.Body, data)
	})
}

func (s *Service) send(ctx context.Context, userID string, deliver func(tokens []string) error) error {
	if s.messenger == nil {
		return nil
	}

	tokens, err := s.repo.ListTokensByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list device tokens: %w", err)
	}
	if len(tokens) == 0 {
		log.Printf("No device tokens for user %s", userID)
		return nil
	}

	if err := deliver(tokens); err != nil {
		return fmt.Errorf("failed to send notification to user %s: %w", userID, err)
	}
	return nil
}
