// Package ledger defines the durable per-user engagement state and the
// storage contract the accrual engine and aggregator operate against.
package ledger

import (
	"context"

	"github.com/dulgistudio/dulgi/internal/entity"
)

// UpdateFunc mutates a private copy of a user's record. Returning changed =
// false discards the copy without a write (policy rejections). Returning an
// error aborts the update; the stored state is left untouched either way
// unless the write commits.
type UpdateFunc func(rec *entity.UserRecord) (changed bool, err error)

// Store is the ledger storage contract. Implementations must serialize
// Update calls per user id, persist the whole user record as one durable
// write, and give read queries read-committed visibility (no torn reads of
// a day's total versus its by-channel map).
type Store interface {
	// Update runs fn against the user's current record (an empty record for
	// first-time users) under per-user mutual exclusion and durably persists
	// the result before returning.
	Update(ctx context.Context, uid string, fn UpdateFunc) error

	// Get returns a read-only copy of a user's record. Unknown users yield
	// an empty record, mirroring lazy creation.
	Get(ctx context.Context, uid string) (*entity.UserRecord, error)

	// UserIDs lists every known user.
	UserIDs(ctx context.Context) ([]string, error)

	// TotalsBetween sums daily totals per user over an inclusive logical-date
	// range. Logical-date strings sort chronologically, so the same query
	// serves week windows and whole months.
	TotalsBetween(ctx context.Context, start, end string) (map[string]int, error)

	// Dump returns a consistent copy of every user record for snapshotting.
	Dump(ctx context.Context) (map[string]*entity.UserRecord, error)

	// Replace installs restored user records. Each record is applied
	// all-or-nothing; users absent from the input are wiped only when
	// wipe is set.
	Replace(ctx context.Context, users map[string]*entity.UserRecord, wipe bool) error
}
