package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"budgetrelay/internal/domain/item"
	"budgetrelay/internal/infrastructure/plaid"
)

var (
	syncTracer      = otel.Tracer("budgetrelay/transaction")
	syncMeter       = otel.Meter("budgetrelay/transaction")
	syncPages, _    = syncMeter.Int64Counter("transaction.sync.pages", metric.WithDescription("Sync feed pages fetched"))
	syncRestarts, _ = syncMeter.Int64Counter("transaction.sync.restarts", metric.WithDescription("Pagination restarts caused by upstream mutation"))
	syncDuration, _ = syncMeter.Float64Histogram("transaction.sync.duration", metric.WithDescription("Full sync duration in seconds"), metric.WithUnit("s"))
)

// Gateway is the slice of the Plaid client the sync loop needs.
type Gateway interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*plaid.SyncPage, error)
}

// SyncConfig bounds a single sync run.
type SyncConfig struct {
	MaxPages int
	PageSize int
	Timeout  time.Duration
}

// SyncService walks the Plaid transactions feed for a user.
type SyncService struct {
	gateway Gateway
	items   item.Repository
	cfg     SyncConfig
	now     func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(gateway Gateway, items item.Repository, cfg SyncConfig) *SyncService {
	return &SyncService{
		gateway: gateway,
		items:   items,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SyncUserTransactions looks up the user's access token and collects the full
// delta from the start of the feed. Returns item.ErrNoAccessToken when the
// user has never linked an item.
func (s *SyncService) SyncUserTransactions(ctx context.Context, userID string) (*Delta, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", item.ErrInvalidInput)
	}

	rec, err := s.items.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	delta, err := s.Collect(ctx, rec.AccessToken, "")
	if err != nil {
		return nil, err
	}

	added, modified, removed := delta.Counts()
	log.Printf("Transaction sync for user %s: pages=%d restarts=%d added=%d modified=%d removed=%d",
		userID, delta.Pages, delta.Restarts, added, modified, removed)

	if err := s.items.MarkSynced(ctx, userID, s.now()); err != nil {
		log.Printf("Warning: failed to mark item synced for user %s: %v", userID, err)
	}

	return delta, nil
}

// Collect fetches pages starting at startCursor until has_more is false.
// The loop stops with an error when the page cap or timeout is reached, or
// when the cursor stops advancing while more pages are reported.
// A mutation-during-pagination error discards what was gathered and restarts
// from startCursor; restarted pages still count against the cap.
func (s *SyncService) Collect(ctx context.Context, accessToken, startCursor string) (*Delta, error) {
	ctx, span := syncTracer.Start(ctx, "transaction.sync",
		trace.WithAttributes(attribute.Int("sync.max_pages", s.cfg.MaxPages)),
	)
	defer span.End()

	start := time.Now()
	delta, err := s.collect(ctx, accessToken, startCursor)
	syncDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sync.pages", delta.Pages),
		attribute.Int("sync.restarts", delta.Restarts),
	)
	return delta, nil
}

func (s *SyncService) collect(parent context.Context, accessToken, startCursor string) (*Delta, error) {
	ctx := parent
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.cfg.Timeout)
		defer cancel()
	}

	delta := newDelta()
	cursor := startCursor

	for {
		if delta.Pages >= s.cfg.MaxPages {
			return nil, fmt.Errorf("%w: stopped after %d pages", ErrSyncPageLimit, delta.Pages)
		}
		if err := ctx.Err(); err != nil {
			return nil, s.stopped(parent, delta, err)
		}

		page, err := s.gateway.SyncTransactions(ctx, accessToken, cursor, s.cfg.PageSize)
		delta.Pages++
		syncPages.Add(ctx, 1)
		if err != nil {
			if plaid.IsErrorCode(err, plaid.ErrCodeMutationDuringPagination) {
				log.Printf("Transaction feed changed during pagination, restarting after %d pages", delta.Pages)
				syncRestarts.Add(ctx, 1)
				delta.discard()
				delta.Restarts++
				cursor = startCursor
				continue
			}
			if ctx.Err() != nil {
				return nil, s.stopped(parent, delta, ctx.Err())
			}
			return nil, fmt.Errorf("failed to fetch sync page %d: %w", delta.Pages, err)
		}

		delta.append(page)

		if !page.HasMore {
			delta.NextCursor = page.NextCursor
			return delta, nil
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			return nil, fmt.Errorf("%w: has_more set with cursor %q after page %d", ErrSyncNoProgress, page.NextCursor, delta.Pages)
		}
		cursor = page.NextCursor
	}
}

// stopped maps a context error to ErrSyncTimeout when our own deadline fired,
// and passes caller cancellation through untouched.
func (s *SyncService) stopped(parent context.Context, delta *Delta, err error) error {
	if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: after %s and %d pages", ErrSyncTimeout, s.cfg.Timeout, delta.Pages)
	}
	return fmt.Errorf("transaction sync cancelled after %d pages: %w", delta.Pages, err)
}
