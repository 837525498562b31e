package ledger

import "errors"

// ErrNotFound is returned by lookups for missing migration records.
var ErrNotFound = errors.New("ledger: migration record not found")
