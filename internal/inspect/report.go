package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/solution-opener/internal/staging"
	"github.com/mattjoyce/solution-opener/internal/workspace"
)

// BuildReport renders a terminal-friendly summary of a staging run.
func BuildReport(r *staging.Result) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Staging Report\n")
	fmt.Fprintf(&out, "Student     : %s\n", r.Identifier)
	fmt.Fprintf(&out, "Outcome     : %s\n", r.Outcome)
	fmt.Fprintf(&out, "Run ID      : %s\n", renderUnset(r.RunID, "<none>"))
	fmt.Fprintf(&out, "Workspace   : %s\n", r.Workspace)

	if r.Outcome == staging.OutcomeCancelled {
		fmt.Fprintf(&out, "\nExisting workspace left untouched.\n")
		return out.String()
	}

	fmt.Fprintf(&out, "Frameworks  : %d\n", len(r.Frameworks))
	fmt.Fprintf(&out, "\n")

	switch r.Report.Status {
	case staging.MatchFound:
		fmt.Fprintf(&out, "Report      : %s\n", r.Report.Path)
	case staging.MatchAmbiguous:
		fmt.Fprintf(&out, "Report      : <ambiguous, not copied>\n")
		writeCandidates(&out, r.Report.Candidates)
	default:
		fmt.Fprintf(&out, "Report      : <not found>\n")
		writeCandidates(&out, r.Report.Candidates)
	}
	fmt.Fprintf(&out, "\n")

	for _, ex := range r.Exercises {
		if ex.Populated() {
			fmt.Fprintf(&out, "[ok]   %s\n", ex.Name)
			fmt.Fprintf(&out, "    source     : %s\n", ex.Source)
			fmt.Fprintf(&out, "    solution   : %s\n", ex.Solution)
			continue
		}
		fmt.Fprintf(&out, "[%s] %s\n", statusTag(ex.Status), ex.Name)
		fmt.Fprintf(&out, "    flagged as : %s\n", filepath.Base(ex.Dir))
		writeCandidates(&out, ex.Candidates)
	}

	fmt.Fprintf(&out, "\n%d populated, %d missing\n", len(r.Populated()), len(r.Missing()))
	return out.String()
}

// BuildJSONReport returns the machine-readable staging result.
func BuildJSONReport(r *staging.Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

// Snapshot is the state of an existing workspace on disk.
type Snapshot struct {
	Identifier  string             `json:"identifier"`
	Dir         string             `json:"dir"`
	ModTime     time.Time          `json:"mod_time"`
	Fingerprint string             `json:"fingerprint"`
	Reports     []string           `json:"reports"`
	Exercises   []SnapshotExercise `json:"exercises"`
	Files       []string           `json:"files"`
}

// SnapshotExercise is one exercise directory found in a workspace.
type SnapshotExercise struct {
	Name      string `json:"name"`
	Dir       string `json:"dir"`
	Populated bool   `json:"populated"`
	Flagged   bool   `json:"flagged"`
}

// Inspect gathers a Snapshot of the workspace staged for id.
func Inspect(ctx context.Context, mgr workspace.Manager, layout staging.Layout, id string) (*Snapshot, error) {
	ws, err := mgr.Open(ctx, id)
	if err != nil {
		return nil, err
	}

	fingerprint, err := workspace.Fingerprint(ws.Dir)
	if err != nil {
		return nil, fmt.Errorf("fingerprint workspace: %w", err)
	}

	snap := &Snapshot{
		Identifier:  id,
		Dir:         ws.Dir,
		ModTime:     ws.ModTime,
		Fingerprint: fingerprint,
		Reports:     make([]string, 0),
		Exercises:   make([]SnapshotExercise, 0),
	}

	entries, err := os.ReadDir(ws.Dir)
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	quickSuffix := "-" + layout.SolutionFile
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			snap.Exercises = append(snap.Exercises, exerciseOf(layout, ws.Dir, name))
		case name == layout.MarkerFile, strings.HasSuffix(name, quickSuffix):
		default:
			snap.Reports = append(snap.Reports, name)
		}
	}

	files, err := listFiles(ws.Dir)
	if err != nil {
		return nil, fmt.Errorf("list workspace files: %w", err)
	}
	snap.Files = files
	return snap, nil
}

func exerciseOf(layout staging.Layout, wsDir, name string) SnapshotExercise {
	dir := filepath.Join(wsDir, name)
	if base, ok := strings.CutSuffix(name, layout.EmptySuffix); ok && layout.EmptySuffix != "" {
		return SnapshotExercise{Name: base, Dir: dir, Flagged: true}
	}
	_, err := os.Stat(filepath.Join(dir, layout.SolutionTarget()))
	return SnapshotExercise{Name: name, Dir: dir, Populated: err == nil}
}

// BuildSnapshotReport renders a Snapshot for the terminal.
func BuildSnapshotReport(s *Snapshot) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Workspace Report\n")
	fmt.Fprintf(&out, "Student     : %s\n", s.Identifier)
	fmt.Fprintf(&out, "Directory   : %s\n", s.Dir)
	fmt.Fprintf(&out, "Modified    : %s\n", s.ModTime.Format(time.RFC3339))
	fmt.Fprintf(&out, "Fingerprint : %s\n", s.Fingerprint)
	if len(s.Reports) == 0 {
		fmt.Fprintf(&out, "Report      : <none>\n")
	} else {
		fmt.Fprintf(&out, "Report      : %s\n", strings.Join(s.Reports, ", "))
	}
	fmt.Fprintf(&out, "\n")

	for _, ex := range s.Exercises {
		switch {
		case ex.Flagged:
			fmt.Fprintf(&out, "[empty] %s\n", ex.Name)
		case ex.Populated:
			fmt.Fprintf(&out, "[ok]    %s\n", ex.Name)
		default:
			fmt.Fprintf(&out, "[tmpl]  %s\n", ex.Name)
		}
	}
	fmt.Fprintf(&out, "\n%d files\n", len(s.Files))
	return out.String()
}

// BuildSnapshotJSON returns the machine-readable Snapshot.
func BuildSnapshotJSON(s *Snapshot) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json snapshot: %w", err)
	}
	return string(data), nil
}

func listFiles(dir string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == dir || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func writeCandidates(out *strings.Builder, candidates []string) {
	if len(candidates) == 0 {
		return
	}
	fmt.Fprintf(out, "    candidates :\n")
	for _, c := range candidates {
		fmt.Fprintf(out, "      - %s\n", c)
	}
}

func statusTag(s staging.MatchStatus) string {
	if s == staging.MatchAmbiguous {
		return "ambig"
	}
	return "empty"
}

func renderUnset(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
