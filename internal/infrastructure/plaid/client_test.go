package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer returns a client wired to a handler that records the last request body.
func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body map[string]any)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("PLAID-CLIENT-ID"); got != "client-id" {
			t.Errorf("PLAID-CLIENT-ID = %q, want client-id", got)
		}
		if got := r.Header.Get("PLAID-SECRET"); got != "secret" {
			t.Errorf("PLAID-SECRET = %q, want secret", got)
		}
		raw, _ := io.ReadAll(r.Body)
		body := map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("invalid request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r, body)
	}))
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL("client-id", "secret", srv.URL)
}

func TestNewClient_UnknownEnvironment(t *testing.T) {
	if _, err := NewClient("id", "secret", "staging"); err == nil {
		t.Error("NewClient() expected error for unknown environment, got nil")
	}
	c, err := NewClient("id", "secret", "sandbox")
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	if c.baseURL != "https://sandbox.plaid.com" {
		t.Errorf("baseURL = %q, want sandbox URL", c.baseURL)
	}
}

func TestCreateLinkToken(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if r.URL.Path != linkTokenCreatePath {
			t.Errorf("path = %s, want %s", r.URL.Path, linkTokenCreatePath)
		}
		user, _ := body["user"].(map[string]any)
		if user["client_user_id"] != "u1" {
			t.Errorf("client_user_id = %v, want u1", user["client_user_id"])
		}
		if body["webhook"] != "https://relay.example.com/plaid-webhook" {
			t.Errorf("webhook = %v", body["webhook"])
		}
		w.Write([]byte(`{"link_token":"link-sandbox-abc","expiration":"2026-10-19T12:00:00Z","request_id":"req-1"}`))
	})

	resp, err := client.CreateLinkToken(context.Background(), LinkTokenRequest{
		ClientUserID: "u1",
		ClientName:   "Budget App",
		Products:     []string{"transactions"},
		CountryCodes: []string{"US"},
		Language:     "en",
		WebhookURL:   "https://relay.example.com/plaid-webhook",
	})
	if err != nil {
		t.Fatalf("CreateLinkToken() failed: %v", err)
	}
	if resp.LinkToken != "link-sandbox-abc" {
		t.Errorf("LinkToken = %q, want link-sandbox-abc", resp.LinkToken)
	}
	if resp.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", resp.RequestID)
	}
}

func TestExchangePublicToken(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if body["public_token"] != "public-1" {
			t.Errorf("public_token = %v, want public-1", body["public_token"])
		}
		w.Write([]byte(`{"access_token":"access-xyz","item_id":"item-1","request_id":"req-2"}`))
	})

	resp, err := client.ExchangePublicToken(context.Background(), "public-1")
	if err != nil {
		t.Fatalf("ExchangePublicToken() failed: %v", err)
	}
	if resp.AccessToken != "access-xyz" || resp.ItemID != "item-1" {
		t.Errorf("got %+v, want access-xyz/item-1", resp)
	}
}

func TestExchangePublicToken_MissingFields(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.Write([]byte(`{"item_id":"item-1"}`))
	})

	_, err := client.ExchangePublicToken(context.Background(), "public-1")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
	if !errors.Is(err, ErrGateway) {
		t.Errorf("error = %v, want ErrGateway", err)
	}
}

func TestPlaidErrorResponse(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_type":"INVALID_INPUT","error_code":"INVALID_PUBLIC_TOKEN","error_message":"provided public token is in an invalid format","display_message":null,"request_id":"req-3"}`))
	})

	_, err := client.ExchangePublicToken(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error %v is not *Error", err)
	}
	if perr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", perr.StatusCode)
	}
	if perr.ErrorCode != "INVALID_PUBLIC_TOKEN" {
		t.Errorf("ErrorCode = %q, want INVALID_PUBLIC_TOKEN", perr.ErrorCode)
	}
	if !errors.Is(err, ErrGateway) {
		t.Error("Plaid API error should match ErrGateway")
	}
	if !IsErrorCode(err, "INVALID_PUBLIC_TOKEN") {
		t.Error("IsErrorCode() = false, want true")
	}
}

func TestNonJSONErrorResponse(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream unavailable`))
	})

	_, err := client.GetBalances(context.Background(), "access-xyz")
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error %v is not *Error", err)
	}
	if perr.ErrorCode != "UNEXPECTED_RESPONSE" {
		t.Errorf("ErrorCode = %q, want UNEXPECTED_RESPONSE", perr.ErrorCode)
	}
	if perr.ErrorMessage != "upstream unavailable" {
		t.Errorf("ErrorMessage = %q", perr.ErrorMessage)
	}
}

func TestSyncTransactions_CursorAndCount(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if body["access_token"] != "access-xyz" {
			t.Errorf("access_token = %v", body["access_token"])
		}
		if _, ok := body["cursor"]; ok {
			t.Errorf("empty cursor should be omitted, got %v", body["cursor"])
		}
		if body["count"] != float64(100) {
			t.Errorf("count = %v, want 100", body["count"])
		}
		w.Write([]byte(`{
			"added":[{"transaction_id":"tx-1","account_id":"acc-1","amount":12.5,"date":"2026-10-01","name":"Coffee","pending":false}],
			"modified":[],
			"removed":[{"transaction_id":"tx-0"}],
			"next_cursor":"cursor-1",
			"has_more":true
		}`))
	})

	page, err := client.SyncTransactions(context.Background(), "access-xyz", "", 100)
	if err != nil {
		t.Fatalf("SyncTransactions() failed: %v", err)
	}
	if len(page.Added) != 1 || page.Added[0].TransactionID != "tx-1" {
		t.Errorf("Added = %+v", page.Added)
	}
	if page.Added[0].Amount != 12.5 {
		t.Errorf("Amount = %v, want 12.5", page.Added[0].Amount)
	}
	if len(page.Removed) != 1 {
		t.Errorf("Removed = %+v", page.Removed)
	}
	if !page.HasMore || page.NextCursor != "cursor-1" {
		t.Errorf("HasMore/NextCursor = %v/%q", page.HasMore, page.NextCursor)
	}
}

func TestSyncTransactions_MalformedPage(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.Write([]byte(`{"added":[{"amount":1}],"modified":[],"removed":[],"next_cursor":"c","has_more":false}`))
	})

	_, err := client.SyncTransactions(context.Background(), "access-xyz", "c0", 100)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestGetBalances_NullableAmounts(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.Write([]byte(`{"accounts":[
			{"account_id":"acc-1","name":"Checking","type":"depository","balances":{"available":100.25,"current":110}},
			{"account_id":"acc-2","name":"Card","type":"credit","balances":{"available":null,"current":42}}
		]}`))
	})

	resp, err := client.GetBalances(context.Background(), "access-xyz")
	if err != nil {
		t.Fatalf("GetBalances() failed: %v", err)
	}
	if len(resp.Accounts) != 2 {
		t.Fatalf("len(Accounts) = %d, want 2", len(resp.Accounts))
	}
	if resp.Accounts[0].Balances.Available == nil || *resp.Accounts[0].Balances.Available != 100.25 {
		t.Errorf("Available = %v, want 100.25", resp.Accounts[0].Balances.Available)
	}
	if resp.Accounts[1].Balances.Available != nil {
		t.Errorf("Available = %v, want nil", *resp.Accounts[1].Balances.Available)
	}
}

func TestTransactionGetDate(t *testing.T) {
	tx := Transaction{Date: "2026-10-01"}
	d, err := tx.GetDate()
	if err != nil {
		t.Fatalf("GetDate() failed: %v", err)
	}
	if d.Day() != 1 || d.Month() != 10 {
		t.Errorf("GetDate() = %v", d)
	}

	empty := Transaction{}
	if d, err := empty.GetDate(); d != nil || err != nil {
		t.Errorf("GetDate() on empty = %v, %v; want nil, nil", d, err)
	}

	bad := Transaction{Date: "10/01/2026"}
	if _, err := bad.GetDate(); err == nil {
		t.Error("GetDate() expected error for bad format")
	}
}
