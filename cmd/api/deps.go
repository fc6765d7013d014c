package main

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"

	"budgetrelay/internal/domain/item"
	"budgetrelay/internal/domain/link"
	"budgetrelay/internal/domain/notification"
	"budgetrelay/internal/domain/transaction"
	"budgetrelay/internal/infrastructure/crypto"
	"budgetrelay/internal/infrastructure/firebase"
	"budgetrelay/internal/infrastructure/plaid"
	"budgetrelay/internal/infrastructure/postgres"
	httphandlers "budgetrelay/internal/interfaces/http"
	"budgetrelay/internal/interfaces/scheduler"
	"budgetrelay/internal/shared/config"
	"budgetrelay/internal/shared/middleware"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB        *postgres.DB
	Firestore *firestore.Client

	// Handlers
	LinkHandler        *httphandlers.LinkHandler
	TransactionHandler *httphandlers.TransactionHandler
	WebhookHandler     *httphandlers.WebhookHandler
	DeviceHandler      *httphandlers.DeviceHandler

	// Auth, nil when Firebase auth is disabled
	Verifier middleware.IDTokenVerifier

	// Background syncs triggered by webhooks
	WorkerPool *scheduler.WorkerPool
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	plaidClient, err := plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Environment)
	if err != nil {
		return nil, err
	}
	log.Printf("Plaid client configured for %s", cfg.Plaid.Environment)

	var app *firebase.App
	if cfg.Vault.Backend == config.VaultBackendFirestore || cfg.Firebase.AuthEnabled || cfg.PushAvailable() {
		app, err = firebase.NewApp(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.ProjectID)
		if err != nil {
			return nil, err
		}
	}

	// Token vault and device store
	var items item.Repository
	var devices notification.Repository
	switch cfg.Vault.Backend {
	case config.VaultBackendPostgres:
		db, err := postgres.New(ctx, cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		deps.DB = db
		log.Println("Connected to database")

		if err := db.EnsureSchema(ctx); err != nil {
			deps.Close()
			return nil, err
		}
		items = postgres.NewItemRepository(db)
		devices = postgres.NewDeviceRepository(db)
	default:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		deps.Firestore = client
		log.Println("Connected to Firestore")

		items = firebase.NewItemRepository(client, cfg.Vault.TokenCollection)
		devices = firebase.NewDeviceRepository(client, cfg.Vault.DeviceCollection)
	}

	if cfg.Encryption.Key != "" {
		encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
		}
		items = item.NewSealedRepository(items, encryptor)
		log.Println("Access token encryption enabled")
	}

	// Push notifications
	var messenger notification.Messenger
	if cfg.PushAvailable() {
		m, err := app.Messenger(ctx, devices.DeleteToken)
		if err != nil {
			deps.Close()
			return nil, err
		}
		messenger = m
		log.Println("Push notifications enabled")
	} else {
		log.Println("Push notifications disabled")
	}

	if cfg.Firebase.AuthEnabled {
		verifier, err := app.Verifier(ctx)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Verifier = verifier
		log.Println("Firebase authentication enabled")
	}

	// Domain services
	linkService := link.NewService(plaidClient, items, link.Config{
		ClientName:    cfg.Plaid.ClientName,
		Products:      cfg.Plaid.Products,
		CountryCodes:  cfg.Plaid.CountryCodes,
		Language:      cfg.Plaid.Language,
		WebhookURL:    cfg.Plaid.WebhookURL,
		DefaultUserID: cfg.Plaid.DefaultUserID,
	})
	syncService := transaction.NewSyncService(plaidClient, items, transaction.SyncConfig{
		MaxPages: cfg.Sync.MaxPages,
		PageSize: cfg.Sync.PageSize,
		Timeout:  cfg.Sync.Timeout,
	})
	notificationService := notification.NewService(devices, messenger)

	// Worker pool for webhook-triggered syncs
	deps.WorkerPool = scheduler.NewWorkerPool(scheduler.PoolConfig{
		Workers:    cfg.Sync.WorkerCount,
		QueueSize:  cfg.Sync.QueueSize,
		JobDelay:   cfg.Sync.JobDelay,
		JobTimeout: cfg.Sync.JobTimeout,
	})
	deps.WorkerPool.Start()
	dispatcher := scheduler.NewDispatcher(deps.WorkerPool, syncService, notificationService)
	webhookService := link.NewWebhookService(items, dispatcher, notificationService)

	var webhookVerifier httphandlers.WebhookVerifier
	if cfg.Plaid.VerifyWebhook {
		webhookVerifier = plaid.NewWebhookVerifier(plaidClient)
		log.Println("Plaid webhook verification enabled")
	}

	// Handlers
	deps.LinkHandler = httphandlers.NewLinkHandler(linkService)
	deps.TransactionHandler = httphandlers.NewTransactionHandler(syncService)
	deps.WebhookHandler = httphandlers.NewWebhookHandler(webhookService, webhookVerifier)
	deps.DeviceHandler = httphandlers.NewDeviceHandler(notificationService)

	return deps, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Firestore != nil {
		d.Firestore.Close()
	}
}
