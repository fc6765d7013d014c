package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	VaultBackendFirestore = "firestore"
	VaultBackendPostgres  = "postgres"
)

type Config struct {
	Server     ServerConfig
	Plaid      PlaidConfig
	Firebase   FirebaseConfig
	Vault      VaultConfig
	Database   DatabaseConfig
	Sync       SyncConfig
	Encryption EncryptionConfig
	TLS        TLSConfig
	Telemetry  TelemetryConfig
	Messages   MessagesConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type PlaidConfig struct {
	ClientID      string
	Secret        string
	Environment   string
	ClientName    string
	Products      []string
	CountryCodes  []string
	Language      string
	WebhookURL    string
	DefaultUserID string
	VerifyWebhook bool
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
	AuthEnabled     bool
	PushEnabled     bool
}

type VaultConfig struct {
	Backend          string
	TokenCollection  string
	DeviceCollection string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SyncConfig struct {
	MaxPages    int
	PageSize    int
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
	JobDelay    time.Duration
	JobTimeout  time.Duration
}

type EncryptionConfig struct {
	Key string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

type MessagesConfig struct {
	Path string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to read .env file: %v", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxPages, err := getIntEnv("PLAID_SYNC_MAX_PAGES", 1000)
	if err != nil {
		return nil, err
	}
	pageSize, err := getIntEnv("PLAID_SYNC_PAGE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	syncTimeout, err := time.ParseDuration(getEnv("PLAID_SYNC_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLAID_SYNC_TIMEOUT: %w", err)
	}
	workerCount, err := getIntEnv("SYNC_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	queueSize, err := getIntEnv("SYNC_QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	jobDelay, err := time.ParseDuration(getEnv("SYNC_JOB_DELAY", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_JOB_DELAY: %w", err)
	}
	jobTimeout, err := time.ParseDuration(getEnv("SYNC_JOB_TIMEOUT", "120s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_JOB_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: splitList(getEnv("ALLOWED_HOSTS", "")),
		},
		Plaid: PlaidConfig{
			ClientID:      getEnv("PLAID_CLIENT_ID", ""),
			Secret:        getEnv("PLAID_SECRET", ""),
			Environment:   strings.ToLower(getEnv("PLAID_ENV", "sandbox")),
			ClientName:    getEnv("PLAID_CLIENT_NAME", "Budget App"),
			Products:      splitList(getEnv("PLAID_PRODUCTS", "transactions")),
			CountryCodes:  splitList(getEnv("PLAID_COUNTRY_CODES", "US")),
			Language:      getEnv("PLAID_LANGUAGE", "en"),
			WebhookURL:    getEnv("PLAID_WEBHOOK_URL", ""),
			DefaultUserID: getEnv("PLAID_DEFAULT_USER_ID", "unique-user-id"),
			VerifyWebhook: getBoolEnv("PLAID_WEBHOOK_VERIFY", false),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			AuthEnabled:     getBoolEnv("FIREBASE_AUTH_ENABLED", false),
			PushEnabled:     getBoolEnv("FIREBASE_PUSH_ENABLED", true),
		},
		Vault: VaultConfig{
			Backend:          strings.ToLower(getEnv("VAULT_BACKEND", VaultBackendFirestore)),
			TokenCollection:  getEnv("VAULT_TOKEN_COLLECTION", "plaid_tokens"),
			DeviceCollection: getEnv("VAULT_DEVICE_COLLECTION", "device_tokens"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "budgetrelay"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Sync: SyncConfig{
			MaxPages:    maxPages,
			PageSize:    pageSize,
			Timeout:     syncTimeout,
			WorkerCount: workerCount,
			QueueSize:   queueSize,
			JobDelay:    jobDelay,
			JobTimeout:  jobTimeout,
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "budgetrelay"),
			Environment:  getEnv("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9464"),
		},
		Messages: MessagesConfig{
			Path: getEnv("MESSAGES_FILE", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Plaid.ClientID == "" {
		return fmt.Errorf("PLAID_CLIENT_ID is required")
	}
	if c.Plaid.Secret == "" {
		return fmt.Errorf("PLAID_SECRET is required")
	}
	switch c.Plaid.Environment {
	case "sandbox", "development", "production":
	default:
		return fmt.Errorf("PLAID_ENV must be sandbox, development or production, got %q", c.Plaid.Environment)
	}

	switch c.Vault.Backend {
	case VaultBackendFirestore:
		if c.Firebase.CredentialsFile == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_FILE is required when VAULT_BACKEND=firestore")
		}
	case VaultBackendPostgres:
	default:
		return fmt.Errorf("VAULT_BACKEND must be %q or %q, got %q", VaultBackendFirestore, VaultBackendPostgres, c.Vault.Backend)
	}

	if c.Firebase.AuthEnabled && c.Firebase.CredentialsFile == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_FILE is required when FIREBASE_AUTH_ENABLED=true")
	}

	if c.Encryption.Key != "" && len(c.Encryption.Key) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	if c.Sync.MaxPages <= 0 {
		return fmt.Errorf("PLAID_SYNC_MAX_PAGES must be positive")
	}
	if c.Sync.PageSize <= 0 || c.Sync.PageSize > 500 {
		return fmt.Errorf("PLAID_SYNC_PAGE_SIZE must be between 1 and 500")
	}
	if c.Sync.WorkerCount <= 0 {
		return fmt.Errorf("SYNC_WORKERS must be positive")
	}

	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return nil
}

// PushAvailable reports whether a Firebase app can be created for FCM.
func (c *Config) PushAvailable() bool {
	return c.Firebase.PushEnabled && c.Firebase.CredentialsFile != ""
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
