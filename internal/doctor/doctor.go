// Package doctor validates solution-opener configuration against the course
// directory layout on disk.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattjoyce/solution-opener/internal/config"
	"github.com/mattjoyce/solution-opener/internal/fscheck"
	"github.com/mattjoyce/solution-opener/internal/staging"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration against the course tree.
type Doctor struct {
	cfg    *config.Config
	layout staging.Layout

	networkFS func(path string) (string, error)
	lookPath  func(file string) (string, error)
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{
		cfg:       cfg,
		layout:    cfg.StagingLayout(),
		networkFS: fscheck.NetworkFilesystem,
		lookPath:  exec.LookPath,
	}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	if d.validateRoot(r) {
		frameworks := d.validateFrameworks(r)
		submissions := d.validateSubmissions(r)
		d.validateReports(r)
		d.warnUnmatchedFolders(r, frameworks, submissions)
		d.warnMissingSolutionPath(r, frameworks)
		d.validateOutput(r)
		d.warnNetworkFilesystem(r)
	}
	d.warnEditor(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateRoot checks the course root. Later checks are skipped without it.
func (d *Doctor) validateRoot(r *Result) bool {
	info, err := os.Stat(d.layout.RootDir)
	if err != nil {
		d.addError(r, "layout", "root_dir", fmt.Sprintf("root directory %q is not accessible: %v", d.layout.RootDir, err))
		return false
	}
	if !info.IsDir() {
		d.addError(r, "layout", "root_dir", fmt.Sprintf("root directory %q is not a directory", d.layout.RootDir))
		return false
	}
	return true
}

func (d *Doctor) validateFrameworks(r *Result) []string {
	names, err := subdirs(d.layout.FrameworksPath())
	if err != nil {
		d.addError(r, "layout", "layout.frameworks_dir", fmt.Sprintf("frameworks directory unreadable: %v", err))
		return nil
	}
	if len(names) == 0 {
		d.addError(r, "layout", "layout.frameworks_dir",
			fmt.Sprintf("frameworks directory %q has no exercise templates", d.layout.FrameworksPath()))
	}
	return names
}

func (d *Doctor) validateSubmissions(r *Result) []string {
	names, err := subdirs(d.layout.SubmissionsPath())
	if err != nil {
		d.addError(r, "layout", "layout.submissions_dir", fmt.Sprintf("submissions directory unreadable: %v", err))
		return nil
	}
	return names
}

func (d *Doctor) validateReports(r *Result) {
	info, err := os.Stat(d.layout.ReportsPath())
	if err != nil {
		d.addWarning(r, "layout", "layout.reports_dir",
			fmt.Sprintf("reports directory %q not found; reports will never be copied", d.layout.ReportsPath()))
		return
	}
	if !info.IsDir() {
		d.addError(r, "layout", "layout.reports_dir",
			fmt.Sprintf("reports path %q is not a directory", d.layout.ReportsPath()))
	}
}

// warnUnmatchedFolders flags exercise folders that staging will ignore or
// leave without a submission source.
func (d *Doctor) warnUnmatchedFolders(r *Result, frameworks, submissions []string) {
	fw := toSet(frameworks)
	sub := toSet(submissions)

	for _, name := range submissions {
		if name == d.layout.ReportsDir || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := fw[name]; !ok {
			d.addWarning(r, "exercises", "layout.submissions_dir",
				fmt.Sprintf("submission folder %q has no framework and will be ignored", name))
		}
	}
	for _, name := range frameworks {
		if _, ok := sub[name]; !ok {
			d.addWarning(r, "exercises", "layout.frameworks_dir",
				fmt.Sprintf("framework %q has no submission folder; it is copied as plain scaffolding", name))
		}
	}
}

func (d *Doctor) warnMissingSolutionPath(r *Result, frameworks []string) {
	if d.layout.SolutionPath == "" {
		return
	}
	for _, name := range frameworks {
		dir := filepath.Join(d.layout.FrameworksPath(), name, filepath.FromSlash(d.layout.SolutionPath))
		if _, err := os.Stat(dir); err != nil {
			d.addWarning(r, "exercises", "layout.solution_path",
				fmt.Sprintf("framework %q has no %s directory; it will be created on injection", name, d.layout.SolutionPath))
		}
	}
}

func (d *Doctor) validateOutput(r *Result) {
	info, err := os.Stat(d.layout.OutputPath())
	if err != nil {
		return
	}
	if !info.IsDir() {
		d.addError(r, "layout", "layout.output_dir",
			fmt.Sprintf("output path %q exists and is not a directory", d.layout.OutputPath()))
	}
}

func (d *Doctor) warnNetworkFilesystem(r *Result) {
	fsType, err := d.networkFS(d.layout.RootDir)
	if err != nil {
		return
	}
	if fsType != "" {
		d.addWarning(r, "filesystem", "root_dir",
			fmt.Sprintf("root directory is on network filesystem %q; staging lock may not be honoured and copies will be slow", fsType))
	}
}

func (d *Doctor) warnEditor(r *Result) {
	fields := strings.Fields(d.cfg.Editor)
	if len(fields) == 0 {
		d.addWarning(r, "editor", "editor", "no editor configured; exercise code cannot be opened from the menu")
		return
	}
	if _, err := d.lookPath(fields[0]); err != nil {
		d.addWarning(r, "editor", "editor", fmt.Sprintf("editor %q not found on PATH", fields[0]))
	}
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// FormatHuman renders the result for a terminal.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Course layout valid.\n")
		return b.String()
	case r.Valid:
		fmt.Fprintf(&b, "Course layout valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Course layout invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}
	return b.String()
}

func writeIssue(b *strings.Builder, label string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
