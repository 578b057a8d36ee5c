package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/solution-opener/internal/student"
)

// fsWorkspaceManager manages per-student workspace directories on local disk.
type fsWorkspaceManager struct {
	baseDir string
	prefix  string
	now     func() time.Time
}

var _ Manager = (*fsWorkspaceManager)(nil)

// NewFSManager creates a filesystem-backed workspace manager rooted at baseDir.
// Workspace directories are named prefix+identifier.
func NewFSManager(baseDir, prefix string) (*fsWorkspaceManager, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("workspace base directory is empty")
	}
	if strings.ContainsAny(prefix, `/\`) {
		return nil, fmt.Errorf("workspace prefix %q must not contain path separators", prefix)
	}

	return &fsWorkspaceManager{
		baseDir: filepath.Clean(trimmed),
		prefix:  prefix,
		now:     time.Now,
	}, nil
}

// Path returns the workspace directory for id.
func (m *fsWorkspaceManager) Path(id string) (string, error) {
	if !student.IsValidIdentifier(id) {
		return "", fmt.Errorf("identifier %q is invalid", id)
	}
	return filepath.Join(m.baseDir, m.prefix+id), nil
}

// IsPopulated reports whether the workspace exists and contains any entry.
func (m *fsWorkspaceManager) IsPopulated(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path, err := m.Path(id)
	if err != nil {
		return false, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open workspace for %q: %w", id, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat workspace for %q: %w", id, err)
	}
	if !info.IsDir() {
		return true, nil
	}

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read workspace for %q: %w", id, err)
	}
	return true, nil
}

// Create ensures the workspace directory for id exists, creating the container
// and any missing parents.
func (m *fsWorkspaceManager) Create(ctx context.Context, id string) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return Workspace{}, err
	}

	path, err := m.Path(id)
	if err != nil {
		return Workspace{}, err
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("create workspace for %q: %w", id, err)
	}

	return Workspace{ID: id, Dir: path}, nil
}

// Remove deletes the workspace for id and everything below it.
func (m *fsWorkspaceManager) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := m.Path(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove workspace for %q: %w", id, err)
	}
	return nil
}

// Open returns metadata for an existing workspace directory.
func (m *fsWorkspaceManager) Open(ctx context.Context, id string) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return Workspace{}, err
	}

	path, err := m.Path(id)
	if err != nil {
		return Workspace{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Workspace{}, fmt.Errorf("open workspace for %q: %w", id, err)
	}
	if !info.IsDir() {
		return Workspace{}, fmt.Errorf("workspace path for %q is not a directory", id)
	}

	return Workspace{ID: id, Dir: path, ModTime: info.ModTime()}, nil
}

// List returns every workspace directory in the container whose name carries
// the prefix followed by a valid identifier.
func (m *fsWorkspaceManager) List(ctx context.Context) ([]Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(m.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace base directory: %w", err)
	}

	var out []Workspace
	for _, entry := range entries {
		id, ok := m.identifierOf(entry.Name())
		if !ok || !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("read workspace entry info %q: %w", entry.Name(), err)
		}
		out = append(out, Workspace{
			ID:      id,
			Dir:     filepath.Join(m.baseDir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Cleanup removes workspace directories older than olderThan based on directory
// modification time. Entries that are not workspaces are left alone.
func (m *fsWorkspaceManager) Cleanup(ctx context.Context, olderThan time.Duration, dryRun bool) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, err
	}
	if olderThan <= 0 {
		return CleanupReport{}, fmt.Errorf("olderThan must be positive")
	}

	workspaces, err := m.List(ctx)
	if err != nil {
		return CleanupReport{}, err
	}

	cutoff := m.now().Add(-olderThan)
	report := CleanupReport{}

	for _, ws := range workspaces {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if ws.ModTime.After(cutoff) {
			continue
		}

		if !dryRun {
			if err := os.RemoveAll(ws.Dir); err != nil {
				return report, fmt.Errorf("remove workspace %q: %w", ws.ID, err)
			}
		}
		report.DeletedDirs++
		report.Dirs = append(report.Dirs, ws.Dir)
	}

	return report, nil
}

func (m *fsWorkspaceManager) identifierOf(name string) (string, bool) {
	if !strings.HasPrefix(name, m.prefix) {
		return "", false
	}
	id := strings.TrimPrefix(name, m.prefix)
	return id, student.IsValidIdentifier(id)
}
