// Package scanner talks to the external long-running scan process that
// produces the raw epoch snapshot.
package scanner

import (
	"context"
	"encoding/json"
)

// SnapshotFetcher retrieves the latest raw snapshot body. A failed fetch is
// an upstream failure: the caller surfaces it as a retryable state and keeps
// the previously derived view.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (json.RawMessage, error)
}
