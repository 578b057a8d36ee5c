// Package staging assembles a disposable per-student workspace from framework
// templates, a submitted report, and per-exercise code submissions.
package staging

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout names every directory and file the engine reads or writes. All fields
// except RootDir are single path elements (or, for SolutionPath, a relative
// slash-separated path) resolved against RootDir.
type Layout struct {
	RootDir string

	FrameworksDir  string
	SubmissionsDir string
	// ReportsDir lives inside SubmissionsDir.
	ReportsDir string
	OutputDir  string

	WorkspacePrefix string
	SolutionPath    string
	SolutionFile    string
	EmptySuffix     string
	MarkerFile      string
	MarkerContent   string
	ReportFallback  string
}

// DefaultLayout returns the standard course layout rooted at rootDir.
func DefaultLayout(rootDir string) Layout {
	return Layout{
		RootDir:         rootDir,
		FrameworksDir:   "frameworks",
		SubmissionsDir:  "abgaben",
		ReportsDir:      "Berichte",
		OutputDir:       "opened-solution",
		WorkspacePrefix: "ad-",
		SolutionPath:    "src/main/java/exercise",
		SolutionFile:    "StudentSolutionImplementation.java",
		EmptySuffix:     "-empty",
		MarkerFile:      ".gitignore",
		MarkerContent:   "/*",
		ReportFallback:  "abgabe.pdf",
	}
}

// Validate checks that every name is set and that single-element names carry
// no path separators.
func (l Layout) Validate() error {
	if strings.TrimSpace(l.RootDir) == "" {
		return fmt.Errorf("root directory is empty")
	}

	elements := []struct {
		field, value string
	}{
		{"frameworks_dir", l.FrameworksDir},
		{"submissions_dir", l.SubmissionsDir},
		{"reports_dir", l.ReportsDir},
		{"output_dir", l.OutputDir},
		{"solution_file", l.SolutionFile},
		{"empty_suffix", l.EmptySuffix},
		{"marker_file", l.MarkerFile},
		{"report_fallback", l.ReportFallback},
	}
	for _, e := range elements {
		if strings.TrimSpace(e.value) == "" {
			return fmt.Errorf("layout.%s is empty", e.field)
		}
		if strings.ContainsAny(e.value, `/\`) || e.value == "." || e.value == ".." {
			return fmt.Errorf("layout.%s %q must be a single path element", e.field, e.value)
		}
	}
	if strings.ContainsAny(l.WorkspacePrefix, `/\`) {
		return fmt.Errorf("layout.workspace_prefix %q must not contain path separators", l.WorkspacePrefix)
	}

	if l.SolutionPath != "" {
		clean := filepath.Clean(filepath.FromSlash(l.SolutionPath))
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return fmt.Errorf("layout.solution_path %q must stay inside the exercise directory", l.SolutionPath)
		}
	}
	return nil
}

// FrameworksPath is the directory holding one template per exercise.
func (l Layout) FrameworksPath() string {
	return filepath.Join(l.RootDir, l.FrameworksDir)
}

// SubmissionsPath is the directory holding one folder per exercise plus the
// reports folder.
func (l Layout) SubmissionsPath() string {
	return filepath.Join(l.RootDir, l.SubmissionsDir)
}

// ReportsPath is the flat folder of per-student reports.
func (l Layout) ReportsPath() string {
	return filepath.Join(l.SubmissionsPath(), l.ReportsDir)
}

// OutputPath is the container for all staged workspaces.
func (l Layout) OutputPath() string {
	return filepath.Join(l.RootDir, l.OutputDir)
}

// SolutionTarget is the injected code path relative to an exercise directory.
func (l Layout) SolutionTarget() string {
	return filepath.Join(filepath.FromSlash(l.SolutionPath), l.SolutionFile)
}

// QuickAccessName is the workspace-root copy name for an exercise.
func (l Layout) QuickAccessName(exercise string) string {
	return exercise + "-" + l.SolutionFile
}
