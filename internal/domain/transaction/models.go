package transaction

import (
	"errors"

	"budgetrelay/internal/infrastructure/plaid"
)

// Sync errors
var (
	ErrSyncPageLimit  = errors.New("transaction sync exceeded page limit")
	ErrSyncNoProgress = errors.New("transaction sync cursor did not advance")
	ErrSyncTimeout    = errors.New("transaction sync timed out")
)

// Delta is the accumulated result of walking the sync feed to its end.
// Arrays are never nil so they always serialize as JSON arrays.
type Delta struct {
	Added    []plaid.Transaction        `json:"added"`
	Modified []plaid.Transaction        `json:"modified"`
	Removed  []plaid.RemovedTransaction `json:"removed"`

	// NextCursor is the cursor returned by the final page.
	NextCursor string `json:"-"`
	// Pages counts every page fetched, including pages discarded by a restart.
	Pages    int `json:"-"`
	Restarts int `json:"-"`
}

func newDelta() *Delta {
	return &Delta{
		Added:    []plaid.Transaction{},
		Modified: []plaid.Transaction{},
		Removed:  []plaid.RemovedTransaction{},
	}
}

func (d *Delta) append(page *plaid.SyncPage) {
	d.Added = append(d.Added, page.Added...)
	d.Modified = append(d.Modified, page.Modified...)
	d.Removed = append(d.Removed, page.Removed...)
}

// discard drops accumulated entries but keeps the page and restart counters.
func (d *Delta) discard() {
	d.Added = d.Added[:0]
	d.Modified = d.Modified[:0]
	d.Removed = d.Removed[:0]
}

// Counts returns the number of added, modified and removed entries.
func (d *Delta) Counts() (added, modified, removed int) {
	return len(d.Added), len(d.Modified), len(d.Removed)
}
