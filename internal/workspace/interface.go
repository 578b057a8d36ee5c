package workspace

import (
	"context"
	"time"
)

// Workspace describes one staged per-student directory inside the output
// container (for example opened-solution/ad-01234567).
type Workspace struct {
	ID      string
	Dir     string
	ModTime time.Time
}

// CleanupReport summarizes a cleanup run.
type CleanupReport struct {
	DeletedDirs int
	Dirs        []string
}

// Manager governs the lifecycle of staged workspaces. It never populates a
// workspace; that is the staging engine's job.
type Manager interface {
	// Path returns the deterministic directory for id without touching disk.
	Path(id string) (string, error)

	// IsPopulated reports whether the workspace for id exists and has at least
	// one entry.
	IsPopulated(ctx context.Context, id string) (bool, error)

	// Create ensures the workspace directory for id exists.
	Create(ctx context.Context, id string) (Workspace, error)

	// Remove recursively deletes the workspace for id.
	Remove(ctx context.Context, id string) error

	// Open resolves an existing workspace for id.
	Open(ctx context.Context, id string) (Workspace, error)

	// List returns all workspaces in the container, sorted by ID.
	List(ctx context.Context) ([]Workspace, error)

	// Cleanup removes workspaces older than olderThan. With dryRun set nothing
	// is deleted but the report lists what would be.
	Cleanup(ctx context.Context, olderThan time.Duration, dryRun bool) (CleanupReport, error)
}
