package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"budgetrelay/internal/domain/item"
	"budgetrelay/internal/domain/link"
	"budgetrelay/internal/domain/transaction"
	"budgetrelay/internal/infrastructure/crypto"
	"budgetrelay/internal/infrastructure/firebase"
	"budgetrelay/internal/infrastructure/plaid"
	"budgetrelay/internal/infrastructure/postgres"
	"budgetrelay/internal/shared/config"
)

const usage = `Budget Relay Admin CLI - Management commands for linked Plaid items

Usage:
  admin <command> [options]

Commands:
  status     Show the link status of one or more users
  sync       Run a full transaction sync for a user and print the counts
  unlink     Remove a user's item at Plaid and delete the stored access token

Examples:
  # Show link status for several users
  admin status --user-id=u1,u2

  # Sync a user with a longer timeout
  admin sync --user-id=u1 --timeout=5m

  # Unlink a user
  admin unlink --user-id=u1
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "status":
		runStatus(os.Args[2:])
	case "sync":
		runSync(os.Args[2:])
	case "unlink":
		runUnlink(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage + "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

// env bundles what every command needs.
type env struct {
	cfg   *config.Config
	plaid *plaid.Client
	items item.Repository
	close func()
}

func openEnv(ctx context.Context) *env {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	plaidClient, err := plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Environment)
	if err != nil {
		log.Fatalf("Failed to create Plaid client: %v", err)
	}

	e := &env{cfg: cfg, plaid: plaidClient}

	switch cfg.Vault.Backend {
	case config.VaultBackendPostgres:
		db, err := postgres.New(ctx, cfg.Database.ConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		log.Println("Connected to database")
		e.items = postgres.NewItemRepository(db)
		e.close = func() { db.Close() }
	default:
		app, err := firebase.NewApp(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			log.Fatalf("Failed to connect to Firestore: %v", err)
		}
		log.Println("Connected to Firestore")
		e.items = firebase.NewItemRepository(client, cfg.Vault.TokenCollection)
		e.close = func() { client.Close() }
	}

	if cfg.Encryption.Key != "" {
		encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
		if err != nil {
			log.Fatalf("Failed to create encryptor: %v", err)
		}
		e.items = item.NewSealedRepository(e.items, encryptor)
	}

	return e
}

func (e *env) linkService() *link.Service {
	return link.NewService(e.plaid, e.items, link.Config{
		ClientName:    e.cfg.Plaid.ClientName,
		Products:      e.cfg.Plaid.Products,
		CountryCodes:  e.cfg.Plaid.CountryCodes,
		Language:      e.cfg.Plaid.Language,
		WebhookURL:    e.cfg.Plaid.WebhookURL,
		DefaultUserID: e.cfg.Plaid.DefaultUserID,
	})
}

// parseCommand parses the shared --user-id and --timeout flags.
func parseCommand(name string, args []string) ([]string, time.Duration) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)

	userIDStr := fs.String("user-id", "", "User ID(s) (comma-separated for multiple)")
	timeoutStr := fs.String("timeout", "2m", "Timeout for the operation (e.g., 30s, 5m)")

	fs.Usage = func() {
		fmt.Printf("Usage: admin %s [options]\n", name)
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	userIDs := splitUserIDs(*userIDStr)
	if len(userIDs) == 0 {
		fmt.Println("Error: must specify --user-id")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	return userIDs, timeout
}

func splitUserIDs(s string) []string {
	var ids []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func runStatus(args []string) {
	userIDs, timeout := parseCommand("status", args)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	e := openEnv(ctx)
	defer e.close()
	service := e.linkService()

	for _, userID := range userIDs {
		st, err := service.GetLinkStatus(ctx, userID)
		if err != nil {
			log.Printf("Failed to get status for user %s: %v", userID, err)
			continue
		}
		printStatus(st)
	}
}

func printStatus(st *link.Status) {
	fmt.Printf("\n=== User %s ===\n", st.UserID)
	fmt.Printf("  Status:         %s\n", st.Status)
	if st.ItemID != "" {
		fmt.Printf("  Item:           %s\n", st.ItemID)
	}
	if st.CreatedAt != nil {
		fmt.Printf("  Linked at:      %s\n", st.CreatedAt.Format(time.RFC3339))
	}
	if st.LastSyncedAt != nil {
		fmt.Printf("  Last synced at: %s\n", st.LastSyncedAt.Format(time.RFC3339))
	}
	fmt.Printf("  Sync count:     %d\n", st.SyncCount)
}

func runSync(args []string) {
	userIDs, timeout := parseCommand("sync", args)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	e := openEnv(ctx)
	defer e.close()
	service := transaction.NewSyncService(e.plaid, e.items, transaction.SyncConfig{
		MaxPages: e.cfg.Sync.MaxPages,
		PageSize: e.cfg.Sync.PageSize,
		Timeout:  e.cfg.Sync.Timeout,
	})

	for _, userID := range userIDs {
		start := time.Now()
		delta, err := service.SyncUserTransactions(ctx, userID)
		if err != nil {
			log.Printf("Sync failed for user %s: %v", userID, err)
			continue
		}
		added, modified, removed := delta.Counts()
		fmt.Printf("\n=== User %s ===\n", userID)
		fmt.Printf("  Pages:    %d (restarts: %d)\n", delta.Pages, delta.Restarts)
		fmt.Printf("  Added:    %d\n", added)
		fmt.Printf("  Modified: %d\n", modified)
		fmt.Printf("  Removed:  %d\n", removed)
		fmt.Printf("  Took:     %v\n", time.Since(start))
	}
}

func runUnlink(args []string) {
	userIDs, timeout := parseCommand("unlink", args)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	e := openEnv(ctx)
	defer e.close()
	service := e.linkService()

	failed := 0
	for _, userID := range userIDs {
		if err := service.UnlinkItem(ctx, userID); err != nil {
			log.Printf("Failed to unlink user %s: %v", userID, err)
			failed++
			continue
		}
		fmt.Printf("Unlinked user %s\n", userID)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
