package ledger

import "errors"

// ErrStorage marks a durable write that did not complete. Callers must treat
// the wrapped operation as not having happened; it is retryable, unlike a
// policy rejection.
var ErrStorage = errors.New("ledger storage failure")
