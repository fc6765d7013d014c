package firebase

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/v4/messaging"
)

const fcmBatchLimit = 500

// TokenRemover is called to drop an FCM token that can no longer receive
// messages. Provided by the caller to avoid coupling to the repository.
type TokenRemover func(ctx context.Context, token string) error

// Messenger implements notification.Messenger using Firebase Cloud Messaging
type Messenger struct {
	msgClient *messaging.Client
	remover   TokenRemover
}

// SendMulticast sends a visible push notification to multiple device tokens.
// Automatically batches into chunks of 500 (Firebase API limit).
func (m *Messenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	return m.send(ctx, "multicast", tokens, func(batch []string) *messaging.MulticastMessage {
		return &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}
	})
}

// SendDataOnly sends a silent data message that wakes the app so it can
// re-fetch. No OS notification is shown.
func (m *Messenger) SendDataOnly(ctx context.Context, tokens []string, data map[string]string) error {
	return m.send(ctx, "data-only multicast", tokens, func(batch []string) *messaging.MulticastMessage {
		return &messaging.MulticastMessage{
			Tokens:  batch,
			Data:    data,
			Android: &messaging.AndroidConfig{Priority: "high"},
			APNS: &messaging.APNSConfig{
				Headers: map[string]string{"apns-priority": "5", "apns-push-type": "background"},
				Payload: &messaging.APNSPayload{Aps: &messaging.Aps{ContentAvailable: true}},
			},
		}
	})
}

func (m *Messenger) send(ctx context.Context, kind string, tokens []string, build func(batch []string) *messaging.MulticastMessage) error {
	if len(tokens) == 0 {
		return nil
	}

	var totalSuccess, totalFailure int
	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		resp, err := m.msgClient.SendEachForMulticast(ctx, build(batch))
		if err != nil {
			return fmt.Errorf("failed to send FCM %s: %w", kind, err)
		}

		totalSuccess += resp.SuccessCount
		totalFailure += resp.FailureCount
		if resp.FailureCount > 0 {
			m.handleMulticastFailures(ctx, batch, resp)
		}
	}

	log.Printf("FCM %s: %d success, %d failure", kind, totalSuccess, totalFailure)
	return nil
}

func (m *Messenger) handleMulticastFailures(ctx context.Context, tokens []string, resp *messaging.BatchResponse) {
	for i, sendResp := range resp.Responses {
		if sendResp.Error == nil {
			continue
		}
		if messaging.IsUnregistered(sendResp.Error) || messaging.IsInvalidArgument(sendResp.Error) {
			log.Printf("Invalid FCM token at index %d, removing: %v", i, sendResp.Error)
			m.removeToken(ctx, tokens[i])
		} else {
			log.Printf("FCM send error at index %d: %v", i, sendResp.Error)
		}
	}
}

func (m *Messenger) removeToken(ctx context.Context, token string) {
	if m.remover == nil {
		return
	}
	if err := m.remover(ctx, token); err != nil {
		log.Printf("Failed to remove FCM token: %v", err)
	}
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := min(i+size, len(tokens))
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
