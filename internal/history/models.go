// # internal/history/models.go

// Package history persists per-run build snapshots in a local sqlite file,
// so trend queries and the TUI's session panel survive restarts.
package history

import "time"

const SchemaVersion = 1

// Snapshot is one compile run: a full batch build or one watch-mode rebuild.
type Snapshot struct {
	SessionID     string // uuid, shared by every rebuild of one process run
	ProjectKey    string
	SchemaVersion int
	Timestamp     time.Time

	FileCount    int
	PageCount    int
	ErrorCount   int // fatal parse errors
	IssueCount   int // recoverable diagnostics
	DurationMS   int64
}
