package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("PLAID_CLIENT_ID", "test-client-id")
	t.Setenv("PLAID_SECRET", "test-secret")
	t.Setenv("FIREBASE_CREDENTIALS_FILE", "/tmp/service-account.json")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Plaid.ClientID != "test-client-id" {
		t.Errorf("Plaid.ClientID = %q, want %q", cfg.Plaid.ClientID, "test-client-id")
	}
	if cfg.Server.Port != "5000" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "5000")
	}
	if cfg.Plaid.Environment != "sandbox" {
		t.Errorf("Plaid.Environment = %q, want sandbox", cfg.Plaid.Environment)
	}
	if len(cfg.Plaid.Products) != 1 || cfg.Plaid.Products[0] != "transactions" {
		t.Errorf("Plaid.Products = %v, want [transactions]", cfg.Plaid.Products)
	}
	if cfg.Vault.TokenCollection != "plaid_tokens" {
		t.Errorf("Vault.TokenCollection = %q, want plaid_tokens", cfg.Vault.TokenCollection)
	}
	if cfg.Sync.MaxPages != 1000 {
		t.Errorf("Sync.MaxPages = %d, want 1000", cfg.Sync.MaxPages)
	}
	if cfg.Sync.Timeout != 60*time.Second {
		t.Errorf("Sync.Timeout = %v, want 60s", cfg.Sync.Timeout)
	}
}

func TestLoad_MissingPlaidClientID(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_CLIENT_ID", "")
	os.Unsetenv("PLAID_CLIENT_ID")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing PLAID_CLIENT_ID, got nil")
	}
}

func TestLoad_MissingPlaidSecret(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_SECRET", "")
	os.Unsetenv("PLAID_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing PLAID_SECRET, got nil")
	}
}

func TestLoad_InvalidPlaidEnv(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_ENV", "staging")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for unknown PLAID_ENV, got nil")
	}
}

func TestLoad_FirestoreNeedsCredentials(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("FIREBASE_CREDENTIALS_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for firestore backend without credentials, got nil")
	}
}

func TestLoad_PostgresBackendWithoutCredentials(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("FIREBASE_CREDENTIALS_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("VAULT_BACKEND", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Vault.Backend != VaultBackendPostgres {
		t.Errorf("Vault.Backend = %q, want %q", cfg.Vault.Backend, VaultBackendPostgres)
	}
	if cfg.PushAvailable() {
		t.Error("PushAvailable() = true without credentials, want false")
	}
}

func TestLoad_InvalidEncryptionKeyLength(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid ENCRYPTION_KEY length, got nil")
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_SyncLimits(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_SYNC_MAX_PAGES", "25")
	t.Setenv("PLAID_SYNC_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sync.MaxPages != 25 {
		t.Errorf("Sync.MaxPages = %d, want 25", cfg.Sync.MaxPages)
	}
	if cfg.Sync.Timeout != 5*time.Second {
		t.Errorf("Sync.Timeout = %v, want 5s", cfg.Sync.Timeout)
	}

	t.Setenv("PLAID_SYNC_PAGE_SIZE", "501")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for page size above 500, got nil")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS without cert path, got nil")
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"false", true, false},
		{"no", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL_ENV", tt.value)
			if got := getBoolEnv("TEST_BOOL_ENV", tt.defaultValue); got != tt.want {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" US, CA ,, GB")
	want := []string{"US", "CA", "GB"}
	if len(got) != len(want) {
		t.Fatalf("splitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
