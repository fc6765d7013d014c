package notification

import (
	"context"
	"errors"
	"testing"
)

type MockRepository struct {
	UpsertFunc             func(ctx context.Context, params RegisterParams) (*DeviceToken, error)
	ListTokensByUserIDFunc func(ctx context.Context, userID string) ([]string, error)
	DeleteTokenFunc        func(ctx context.Context, token string) error
}

func (m *MockRepository) Upsert(ctx context.Context, params RegisterParams) (*DeviceToken, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return &DeviceToken{UserID: params.UserID, Token: params.Token, Platform: params.Platform}, nil
}

func (m *MockRepository) ListTokensByUserID(ctx context.Context, userID string) ([]string, error) {
	if m.ListTokensByUserIDFunc != nil {
		return m.ListTokensByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockRepository) DeleteToken(ctx context.Context, token string) error {
	if m.DeleteTokenFunc != nil {
		return m.DeleteTokenFunc(ctx, token)
	}
	return nil
}

type MockMessenger struct {
	SendMulticastFunc func(ctx context.Context, tokens []string, title, body string, data map[string]string) error
	SendDataOnlyFunc  func(ctx context.Context, tokens []string, data map[string]string) error
}

func (m *MockMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if m.SendMulticastFunc != nil {
		return m.SendMulticastFunc(ctx, tokens, title, body, data)
	}
	return nil
}

func (m *MockMessenger) SendDataOnly(ctx context.Context, tokens []string, data map[string]string) error {
	if m.SendDataOnlyFunc != nil {
		return m.SendDataOnlyFunc(ctx, tokens, data)
	}
	return nil
}

func TestRegisterDevice(t *testing.T) {
	tests := []struct {
		name    string
		params  RegisterParams
		wantErr error
	}{
		{name: "valid", params: RegisterParams{UserID: "u1", Token: "fcm-1", Platform: "ios"}},
		{name: "missing user", params: RegisterParams{Token: "fcm-1", Platform: "ios"}, wantErr: ErrInvalidUser},
		{name: "missing token", params: RegisterParams{UserID: "u1", Platform: "android"}, wantErr: ErrInvalidToken},
		{name: "bad platform", params: RegisterParams{UserID: "u1", Token: "fcm-1", Platform: "symbian"}, wantErr: ErrInvalidPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&MockRepository{}, nil)
			dt, err := svc.RegisterDevice(context.Background(), tt.params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RegisterDevice() failed: %v", err)
			}
			if dt.Token != tt.params.Token {
				t.Errorf("Token = %q, want %q", dt.Token, tt.params.Token)
			}
		})
	}
}

func TestNotifyTransactionsUpdated(t *testing.T) {
	var gotTokens []string
	var gotData map[string]string
	repo := &MockRepository{
		ListTokensByUserIDFunc: func(ctx context.Context, userID string) ([]string, error) {
			if userID != "u1" {
				t.Errorf("userID = %q, want u1", userID)
			}
			return []string{"fcm-1", "fcm-2"}, nil
		},
	}
	messenger := &MockMessenger{
		SendDataOnlyFunc: func(ctx context.Context, tokens []string, data map[string]string) error {
			gotTokens = tokens
			gotData = data
			return nil
		},
	}

	svc := NewService(repo, messenger)
	if err := svc.NotifyTransactionsUpdated(context.Background(), "u1", 3, 1, 0); err != nil {
		t.Fatalf("NotifyTransactionsUpdated() failed: %v", err)
	}

	if len(gotTokens) != 2 {
		t.Errorf("tokens = %v, want 2", gotTokens)
	}
	if gotData["type"] != TypeTransactionsUpdated {
		t.Errorf("type = %q", gotData["type"])
	}
	if gotData["added"] != "3" || gotData["modified"] != "1" || gotData["removed"] != "0" {
		t.Errorf("counts = %v", gotData)
	}
}

func TestNotifyRelinkRequired(t *testing.T) {
	var title string
	var data map[string]string
	repo := &MockRepository{
		ListTokensByUserIDFunc: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"fcm-1"}, nil
		},
	}
	messenger := &MockMessenger{
		SendMulticastFunc: func(ctx context.Context, tokens []string, ttl, body string, d map[string]string) error {
			title = ttl
			data = d
			return nil
		},
	}

	svc := NewService(repo, messenger)
	if err := svc.NotifyRelinkRequired(context.Background(), "u1", "ITEM_LOGIN_REQUIRED"); err != nil {
		t.Fatalf("NotifyRelinkRequired() failed: %v", err)
	}
	if title == "" {
		t.Error("title should come from messages")
	}
	if data["type"] != TypeItemNeedsRelink || data["reason"] != "ITEM_LOGIN_REQUIRED" {
		t.Errorf("data = %v", data)
	}
}

func TestNotify_NoTokensOrMessenger(t *testing.T) {
	called := false
	messenger := &MockMessenger{
		SendDataOnlyFunc: func(ctx context.Context, tokens []string, data map[string]string) error {
			called = true
			return nil
		},
	}

	svc := NewService(&MockRepository{}, messenger)
	if err := svc.NotifyTransactionsUpdated(context.Background(), "u1", 1, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("messenger called with no tokens")
	}

	svc = NewService(&MockRepository{
		ListTokensByUserIDFunc: func(ctx context.Context, userID string) ([]string, error) {
			t.Error("repository should not be queried without a messenger")
			return nil, nil
		},
	}, nil)
	if err := svc.NotifyTransactionsUpdated(context.Background(), "u1", 1, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNotify_SendError(t *testing.T) {
	repo := &MockRepository{
		ListTokensByUserIDFunc: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"fcm-1"}, nil
		},
	}
	sendErr := errors.New("fcm down")
	messenger := &MockMessenger{
		SendMulticastFunc: func(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
			return sendErr
		},
	}

	svc := NewService(repo, messenger)
	err := svc.NotifyRelinkRequired(context.Background(), "u1", "ERROR")
	if !errors.Is(err, sendErr) {
		t.Errorf("error = %v, want wrapped send error", err)
	}
}
