package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"budgetrelay/internal/domain/transaction"
)

// TransactionSyncer runs a full delta sync for one user.
type TransactionSyncer interface {
	SyncUserTransactions(ctx context.Context, userID string) (*transaction.Delta, error)
}

// UpdateNotifier tells a user's devices that new transactions are available.
type UpdateNotifier interface {
	NotifyTransactionsUpdated(ctx context.Context, userID string, added, modified, removed int) error
}

// TransactionSyncJob implements the Job interface for a webhook-triggered sync
type TransactionSyncJob struct {
	id       string
	userID   string
	itemID   string
	syncer   TransactionSyncer
	notifier UpdateNotifier
	done     func(ran bool)
}

// NewTransactionSyncJob creates a new transaction sync job for a user.
// notifier may be nil.
func NewTransactionSyncJob(userID, itemID string, syncer TransactionSyncer, notifier UpdateNotifier) *TransactionSyncJob {
	return &TransactionSyncJob{
		id:       uuid.NewString(),
		userID:   userID,
		itemID:   itemID,
		syncer:   syncer,
		notifier: notifier,
	}
}

// Execute runs the sync and, on success, pushes an update notification.
// A failed push does not fail the job.
func (j *TransactionSyncJob) Execute(ctx context.Context) error {
	if j.done != nil {
		defer j.done(true)
	}

	delta, err := j.syncer.SyncUserTransactions(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	added, modified, removed := delta.Counts()
	if added+modified+removed == 0 {
		return nil
	}

	if j.notifier != nil {
		if err := j.notifier.NotifyTransactionsUpdated(ctx, j.userID, added, modified, removed); err != nil {
			log.Printf("Warning: failed to push transaction update for user %s: %v", j.userID, err)
		}
	}
	return nil
}

// Discard is called by the pool instead of Execute when the job is dropped.
func (j *TransactionSyncJob) Discard() {
	if j.done != nil {
		j.done(false)
	}
}

// UserID returns the user ID associated with this job
func (j *TransactionSyncJob) UserID() string {
	return j.userID
}

// Description returns a human-readable description of the job
func (j *TransactionSyncJob) Description() string {
	return fmt.Sprintf("Transaction sync %s for item %s", j.id, j.itemID)
}

// Dispatcher turns webhook sync requests into pool jobs. Each user has at
// most one job queued or running. Requests arriving while it is in flight
// collapse into a single follow-up run once it finishes.
type Dispatcher struct {
	pool     *WorkerPool
	syncer   TransactionSyncer
	notifier UpdateNotifier

	mu      sync.Mutex
	pending map[string]*pendingSync
}

type pendingSync struct {
	itemID string
	rerun  bool
}

// NewDispatcher creates a dispatcher submitting to pool.
func NewDispatcher(pool *WorkerPool, syncer TransactionSyncer, notifier UpdateNotifier) *Dispatcher {
	return &Dispatcher{
		pool:     pool,
		syncer:   syncer,
		notifier: notifier,
		pending:  make(map[string]*pendingSync),
	}
}

// ScheduleSync queues a sync for userID. It never blocks.
func (d *Dispatcher) ScheduleSync(userID, itemID string) error {
	d.mu.Lock()
	if p, ok := d.pending[userID]; ok {
		p.itemID = itemID
		p.rerun = true
		d.mu.Unlock()
		log.Printf("Sync in flight for user %s, follow-up run requested", userID)
		return nil
	}
	d.pending[userID] = &pendingSync{itemID: itemID}
	d.mu.Unlock()

	if err := d.pool.Submit(d.newJob(userID, itemID)); err != nil {
		d.release(userID)
		return err
	}
	return nil
}

func (d *Dispatcher) newJob(userID, itemID string) *TransactionSyncJob {
	job := NewTransactionSyncJob(userID, itemID, d.syncer, d.notifier)
	job.done = func(ran bool) { d.finish(userID, ran) }
	return job
}

// finish runs when a user's job completes or is dropped. A completed job
// with a follow-up requested is replaced by a fresh one.
func (d *Dispatcher) finish(userID string, ran bool) {
	d.mu.Lock()
	p, ok := d.pending[userID]
	if !ok || !ran || !p.rerun {
		delete(d.pending, userID)
		d.mu.Unlock()
		return
	}
	p.rerun = false
	itemID := p.itemID
	d.mu.Unlock()

	if err := d.pool.Submit(d.newJob(userID, itemID)); err != nil {
		log.Printf("Follow-up sync for user %s not queued: %v", userID, err)
		d.release(userID)
	}
}

func (d *Dispatcher) release(userID string) {
	d.mu.Lock()
	delete(d.pending, userID)
	d.mu.Unlock()
}
