package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mattjoyce/solution-opener/internal/log"
	"github.com/mattjoyce/solution-opener/internal/student"
	"github.com/mattjoyce/solution-opener/internal/workspace"
)

// Engine stages one student's submissions into a workspace. It holds no
// locks; callers staging against a shared root must serialize Stage calls.
type Engine struct {
	layout     Layout
	workspaces workspace.Manager
	logger     *slog.Logger

	copyEntry func(src, dst string) error
	newRunID  func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWorkspaceManager replaces the filesystem workspace manager.
func WithWorkspaceManager(m workspace.Manager) Option {
	return func(e *Engine) {
		if m != nil {
			e.workspaces = m
		}
	}
}

// New builds an Engine for layout.
func New(layout Layout, opts ...Option) (*Engine, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	e := &Engine{
		layout:    layout,
		logger:    log.WithComponent("staging"),
		copyEntry: copyEntry,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.workspaces == nil {
		mgr, err := workspace.NewFSManager(layout.OutputPath(), layout.WorkspacePrefix)
		if err != nil {
			return nil, err
		}
		e.workspaces = mgr
	}
	return e, nil
}

// Layout returns the layout the engine was built with.
func (e *Engine) Layout() Layout { return e.layout }

// Workspaces returns the workspace manager.
func (e *Engine) Workspaces() workspace.Manager { return e.workspaces }

// Stage resolves any conflict with an existing workspace, recreates it, and
// populates it with the marker file, framework scaffolding, the report and
// per-exercise code, in that order.
//
// A Cancel decision yields a Result with OutcomeCancelled and a nil error.
// Missing or ambiguous submissions are recorded in the Result. Any filesystem
// failure aborts the call with a *Error of KindIO.
func (e *Engine) Stage(ctx context.Context, id string, resolver ConflictResolver) (*Result, error) {
	if !student.IsValidIdentifier(id) {
		return nil, &Error{Kind: KindInvalidInput, Op: "validate", Path: id, Err: ErrInvalidIdentifier}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := e.newRunID()
	logger := e.logger.With(slog.String("run_id", runID), slog.String("student", id))

	wsPath, err := e.workspaces.Path(id)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Op: "validate", Path: id, Err: err}
	}

	result := &Result{
		RunID:      runID,
		Identifier: id,
		Workspace:  wsPath,
	}

	proceed, err := e.resolveConflict(ctx, id, wsPath, resolver, logger)
	if err != nil {
		return nil, err
	}
	if !proceed {
		result.Outcome = OutcomeCancelled
		return result, nil
	}

	if _, err := e.workspaces.Create(ctx, id); err != nil {
		return nil, ioError("create", wsPath, err)
	}
	logger.Info("workspace created", "path", wsPath)

	markerPath := filepath.Join(wsPath, e.layout.MarkerFile)
	if err := os.WriteFile(markerPath, []byte(e.layout.MarkerContent), 0o644); err != nil {
		return nil, ioError("write", markerPath, err)
	}

	frameworks, err := e.listFrameworks()
	if err != nil {
		return nil, err
	}
	result.Frameworks = frameworks

	if err := e.copyFrameworks(frameworks, wsPath); err != nil {
		return nil, err
	}
	logger.Debug("frameworks copied", "count", len(frameworks))

	report, err := e.copyReport(id, wsPath)
	if err != nil {
		return nil, err
	}
	result.Report = report
	switch report.Status {
	case MatchFound:
		logger.Info("report copied", "source", report.Source)
	case MatchAmbiguous:
		logger.Warn("report is ambiguous, not copied", "candidates", report.Candidates)
	default:
		logger.Warn("report not found")
	}

	exercises, err := e.copyExercises(id, wsPath, frameworks, logger)
	if err != nil {
		return nil, err
	}
	result.Exercises = exercises
	result.Outcome = OutcomeStaged

	logger.Info("staging complete",
		"populated", len(result.Populated()),
		"missing", len(result.Missing()),
		"report", string(report.Status),
	)
	return result, nil
}

func (e *Engine) resolveConflict(ctx context.Context, id, wsPath string, resolver ConflictResolver, logger *slog.Logger) (bool, error) {
	populated, err := e.workspaces.IsPopulated(ctx, id)
	if err != nil {
		return false, ioError("inspect", wsPath, err)
	}
	if !populated {
		return true, nil
	}

	decision := DecisionCancel
	if resolver != nil {
		decision, err = resolver.Resolve(ctx, wsPath)
		if err != nil {
			return false, fmt.Errorf("resolve existing workspace %q: %w", wsPath, err)
		}
	}

	switch decision {
	case DecisionOverwrite:
		logger.Info("overwriting existing workspace", "path", wsPath)
		if err := e.workspaces.Remove(ctx, id); err != nil {
			return false, ioError("delete", wsPath, err)
		}
		return true, nil
	default:
		logger.Info("staging cancelled, workspace left untouched", "path", wsPath)
		return false, nil
	}
}

// listFrameworks returns the names of all template directories, sorted.
func (e *Engine) listFrameworks() ([]string, error) {
	dir := e.layout.FrameworksPath()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ioError("read", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// copyFrameworks copies every template or none: on failure the entries copied
// so far are removed and only the marker file is left behind.
func (e *Engine) copyFrameworks(frameworks []string, wsPath string) error {
	var copied []string
	for _, name := range frameworks {
		src := filepath.Join(e.layout.FrameworksPath(), name)
		dst := filepath.Join(wsPath, name)
		if err := e.copyEntry(src, dst); err != nil {
			copied = append(copied, dst)
			for _, path := range copied {
				_ = os.RemoveAll(path)
			}
			return ioError("copy framework", name, err)
		}
		copied = append(copied, dst)
	}
	return nil
}

func (e *Engine) copyReport(id, wsPath string) (ReportResult, error) {
	dir := e.layout.ReportsPath()
	m, err := findSubmission(dir, id)
	if errors.Is(err, os.ErrNotExist) {
		return ReportResult{Status: MatchNotFound}, nil
	}
	if err != nil {
		return ReportResult{}, ioError("read", dir, err)
	}
	if m.status != MatchFound {
		return ReportResult{Status: m.status, Candidates: m.candidates}, nil
	}

	name := m.name
	if !utf8.ValidString(name) {
		name = e.layout.ReportFallback
	}
	src := filepath.Join(dir, m.name)
	dst := filepath.Join(wsPath, name)
	if err := copyFile(src, dst, 0o644); err != nil {
		return ReportResult{}, ioError("copy report", src, err)
	}

	return ReportResult{Status: MatchFound, Source: src, Path: dst, Candidates: m.candidates}, nil
}

func (e *Engine) copyExercises(id, wsPath string, frameworks []string, logger *slog.Logger) ([]ExerciseResult, error) {
	known := make(map[string]struct{}, len(frameworks))
	for _, name := range frameworks {
		known[name] = struct{}{}
	}

	root := e.layout.SubmissionsPath()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, ioError("read", root, err)
	}

	var out []ExerciseResult
	for _, entry := range entries {
		name := entry.Name()
		if _, ok := known[name]; !ok || !entry.IsDir() {
			continue
		}

		res, err := e.stageExercise(id, wsPath, name)
		if err != nil {
			return nil, err
		}
		if res.Populated() {
			logger.Info("code copied", "exercise", name, "source", res.Source)
		} else {
			logger.Warn("code not copied, exercise flagged", "exercise", name, "status", string(res.Status), "dir", res.Dir)
		}
		out = append(out, res)
	}
	return out, nil
}

func (e *Engine) stageExercise(id, wsPath, exercise string) (ExerciseResult, error) {
	srcDir := filepath.Join(e.layout.SubmissionsPath(), exercise)
	exerciseDir := filepath.Join(wsPath, exercise)

	m, err := findSubmission(srcDir, id)
	if err != nil {
		return ExerciseResult{}, ioError("read", srcDir, err)
	}

	if m.status != MatchFound {
		flagged := exerciseDir + e.layout.EmptySuffix
		if err := os.Rename(exerciseDir, flagged); err != nil {
			return ExerciseResult{}, ioError("rename", exerciseDir, err)
		}
		return ExerciseResult{
			Name:       exercise,
			Status:     m.status,
			Dir:        flagged,
			Candidates: m.candidates,
		}, nil
	}

	src := filepath.Join(srcDir, m.name)
	solution := filepath.Join(exerciseDir, e.layout.SolutionTarget())
	if err := os.MkdirAll(filepath.Dir(solution), 0o755); err != nil {
		return ExerciseResult{}, ioError("create", filepath.Dir(solution), err)
	}
	if err := copyFile(src, solution, 0o644); err != nil {
		return ExerciseResult{}, ioError("copy code", src, err)
	}

	quick := filepath.Join(wsPath, e.layout.QuickAccessName(exercise))
	if err := copyFile(src, quick, 0o644); err != nil {
		return ExerciseResult{}, ioError("copy code", src, err)
	}

	return ExerciseResult{
		Name:       exercise,
		Status:     MatchFound,
		Dir:        exerciseDir,
		Source:     src,
		Solution:   solution,
		QuickCopy:  quick,
		Candidates: m.candidates,
	}, nil
}
