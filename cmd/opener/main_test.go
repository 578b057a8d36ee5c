package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/solution-opener/internal/launch"
	"github.com/mattjoyce/solution-opener/internal/lock"
	"github.com/mattjoyce/solution-opener/internal/staging"
	"github.com/mattjoyce/solution-opener/internal/student"
	"github.com/mattjoyce/solution-opener/internal/tui/prompt"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func runCaptured(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	return captureOutputWithExitCode(t, func() int { return runCLI(args) })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeCourse lays out a course with two exercises and returns the path of
// its config file.
func writeCourse(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, ex := range []string{"P1", "P2"} {
		writeFile(t, filepath.Join(root, "frameworks", ex, "pom.xml"), "<project/>")
		writeFile(t, filepath.Join(root, "frameworks", ex, "src/main/java/exercise/StudentSolutionImplementation.java"), "// template")
	}
	writeFile(t, filepath.Join(root, "abgaben", "P1", "muster-max-12345678.java"), "class Max {}")
	writeFile(t, filepath.Join(root, "abgaben", "P2", "doe-jane-87654321.java"), "class Jane {}")
	writeFile(t, filepath.Join(root, "abgaben", "Berichte", "muster-max-12345678.pdf"), "%PDF")

	cfgPath := filepath.Join(root, "config.yaml")
	writeFile(t, cfgPath, "root_dir: .\nlog:\n  level: error\n  format: text\n")
	return cfgPath
}

type recordingLauncher struct {
	opened []string
	with   []string
}

func (r *recordingLauncher) Open(path string) error {
	r.opened = append(r.opened, path)
	return nil
}

func (r *recordingLauncher) OpenWith(path, tool string) error {
	r.with = append(r.with, tool+" "+path)
	return nil
}

var _ launch.Launcher = (*recordingLauncher)(nil)

type fakePrompter struct {
	confirm    bool
	identifier string
	decision   staging.Decision
	// picks are option labels chosen by successive Select calls; the menu is
	// aborted once they run out.
	picks []string

	confirmed []string
	students  []student.Student
	resolved  int
}

func (f *fakePrompter) Resolve(context.Context, string) (staging.Decision, error) {
	f.resolved++
	return f.decision, nil
}

func (f *fakePrompter) Identifier(_ context.Context, students []student.Student) (string, bool, error) {
	f.students = students
	return f.identifier, f.identifier != "", nil
}

func (f *fakePrompter) Confirm(_ context.Context, question string) (bool, error) {
	f.confirmed = append(f.confirmed, question)
	return f.confirm, nil
}

func (f *fakePrompter) Select(_ context.Context, _ string, options []prompt.Option) (prompt.Option, bool, error) {
	if len(f.picks) == 0 {
		return prompt.Option{}, false, nil
	}
	label := f.picks[0]
	f.picks = f.picks[1:]
	for _, o := range options {
		if o.Label == label {
			return o, true, nil
		}
	}
	return prompt.Option{}, false, errors.New("no option " + label)
}

// stubTerminal swaps the interactive collaborators for the duration of a test.
func stubTerminal(t *testing.T, interactive bool, p *fakePrompter, clip string) *recordingLauncher {
	t.Helper()
	l := &recordingLauncher{}

	oldInteractive, oldPrompter, oldLauncher, oldClipboard := isInteractive, newPrompter, newLauncher, clipboardReadAll
	t.Cleanup(func() {
		isInteractive, newPrompter, newLauncher, clipboardReadAll = oldInteractive, oldPrompter, oldLauncher, oldClipboard
	})

	isInteractive = func() bool { return interactive }
	newPrompter = func() prompter { return p }
	newLauncher = func() launch.Launcher { return l }
	clipboardReadAll = func() (string, error) {
		if clip == "" {
			return "", errors.New("clipboard empty")
		}
		return clip, nil
	}
	return l
}

func workspaceOf(cfgPath, id string) string {
	return filepath.Join(filepath.Dir(cfgPath), "opened-solution", "ad-"+id)
}

func TestRunStageWithIdentifierArgument(t *testing.T) {
	cfgPath := writeCourse(t)
	l := stubTerminal(t, false, nil, "")

	code, stdout, stderr := runCaptured(t, "--config", cfgPath, "12345678")
	require.Equal(t, 0, code, stderr)

	ws := workspaceOf(cfgPath, "12345678")
	assert.Contains(t, stdout, "Staging Report")
	assert.Contains(t, stdout, "1 populated, 1 missing")
	assert.FileExists(t, filepath.Join(ws, ".gitignore"))
	assert.FileExists(t, filepath.Join(ws, "muster-max-12345678.pdf"))
	assert.FileExists(t, filepath.Join(ws, "P1-StudentSolutionImplementation.java"))
	assert.DirExists(t, filepath.Join(ws, "P2-empty"))
	assert.Equal(t, []string{ws}, l.opened)
}

func TestRunStageFlagsAfterIdentifier(t *testing.T) {
	cfgPath := writeCourse(t)
	l := stubTerminal(t, false, nil, "")

	code, stdout, stderr := runCaptured(t, "stage", "87654321", "--config", cfgPath, "--json", "--no-open")
	require.Equal(t, 0, code, stderr)

	var result staging.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, staging.OutcomeStaged, result.Outcome)
	assert.Equal(t, "87654321", result.Identifier)
	assert.Equal(t, staging.MatchNotFound, result.Report.Status)
	require.Len(t, result.Exercises, 2)
	assert.Equal(t, staging.MatchNotFound, result.Exercises[0].Status)
	assert.Equal(t, staging.MatchFound, result.Exercises[1].Status)
	assert.Empty(t, l.opened)
}

func TestRunStageInvalidIdentifier(t *testing.T) {
	cfgPath := writeCourse(t)
	stubTerminal(t, false, nil, "")

	code, _, stderr := runCaptured(t, "--config", cfgPath, "1234567a")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `Invalid identifier "1234567a"`)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(cfgPath), "opened-solution"))
}

func TestRunStageExistingWorkspaceNonInteractive(t *testing.T) {
	cfgPath := writeCourse(t)
	stubTerminal(t, false, nil, "")
	ws := workspaceOf(cfgPath, "12345678")
	writeFile(t, filepath.Join(ws, "notes.txt"), "keep me")

	code, stdout, stderr := runCaptured(t, "--config", cfgPath, "12345678")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "left untouched")
	assert.FileExists(t, filepath.Join(ws, "notes.txt"))

	code, _, stderr = runCaptured(t, "--config", cfgPath, "--overwrite", "--no-open", "12345678")
	require.Equal(t, 0, code, stderr)
	assert.NoFileExists(t, filepath.Join(ws, "notes.txt"))
	assert.FileExists(t, filepath.Join(ws, "P1-StudentSolutionImplementation.java"))
}

func TestRunStageConflictingDecisionFlags(t *testing.T) {
	cfgPath := writeCourse(t)
	stubTerminal(t, false, nil, "")

	code, _, stderr := runCaptured(t, "--config", cfgPath, "--overwrite", "--cancel", "12345678")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "mutually exclusive")
}

func TestRunStageRequiresIdentifierWithoutTerminal(t *testing.T) {
	cfgPath := writeCourse(t)
	stubTerminal(t, false, nil, "")

	code, _, stderr := runCaptured(t, "--config", cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "identifier is required")
}

func TestRunStageLockHeld(t *testing.T) {
	cfgPath := writeCourse(t)
	stubTerminal(t, false, nil, "")

	held, err := lock.AcquirePIDLock(lock.PathFor(filepath.Join(filepath.Dir(cfgPath), "opened-solution")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = held.Release() })

	code, _, stderr := runCaptured(t, "--config", cfgPath, "12345678")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already staging")
	assert.NoDirExists(t, workspaceOf(cfgPath, "12345678"))
}

func TestRunStageInteractiveClipboardAndOpenMenu(t *testing.T) {
	cfgPath := writeCourse(t)
	p := &fakePrompter{confirm: true, picks: []string{"Student report", "P1 code"}}
	l := stubTerminal(t, true, p, " 12345678\n")

	code, _, stderr := runCaptured(t, "--config", cfgPath)
	require.Equal(t, 0, code, stderr)

	ws := workspaceOf(cfgPath, "12345678")
	assert.Equal(t, []string{"Select student: 12345678"}, p.confirmed)
	assert.Nil(t, p.students, "prompt must not run when the clipboard candidate is confirmed")
	assert.Equal(t, []string{ws, filepath.Join(ws, "muster-max-12345678.pdf"), filepath.Join(ws, "P1")}, l.opened,
		"without an editor configured code opens with the default application")
}

func TestRunStageInteractivePromptAndEditor(t *testing.T) {
	cfgPath := writeCourse(t)
	writeFile(t, cfgPath, "root_dir: .\neditor: idea\nlog:\n  level: error\n")
	p := &fakePrompter{confirm: false, identifier: "87654321", picks: []string{"P2 code", "Quit"}}
	l := stubTerminal(t, true, p, "12345678")

	code, _, stderr := runCaptured(t, "--config", cfgPath)
	require.Equal(t, 0, code, stderr)

	ws := workspaceOf(cfgPath, "87654321")
	assert.Len(t, p.confirmed, 1)
	require.Len(t, p.students, 2)
	assert.Equal(t, "12345678", p.students[0].ID)
	assert.Equal(t, []string{ws}, l.opened)
	assert.Equal(t, []string{"idea " + filepath.Join(ws, "P2")}, l.with)
}

func TestRunStageInteractiveOverwritePrompt(t *testing.T) {
	cfgPath := writeCourse(t)
	ws := workspaceOf(cfgPath, "12345678")
	writeFile(t, filepath.Join(ws, "stale.txt"), "old")

	p := &fakePrompter{decision: staging.DecisionOverwrite}
	stubTerminal(t, true, p, "")

	code, _, stderr := runCaptured(t, "--config", cfgPath, "--no-open", "12345678")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, 1, p.resolved)
	assert.NoFileExists(t, filepath.Join(ws, "stale.txt"))
}

func TestRunStudents(t *testing.T) {
	cfgPath := writeCourse(t)

	code, stdout, stderr := runCaptured(t, "students", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "12345678 - max muster\n87654321 - jane doe\n", stdout)

	code, stdout, stderr = runCaptured(t, "students", "jane", "--config", cfgPath, "--json")
	require.Equal(t, 0, code, stderr)
	var got []student.Student
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "87654321", got[0].ID)
}

func TestRunCheck(t *testing.T) {
	cfgPath := writeCourse(t)

	code, stdout, stderr := runCaptured(t, "check", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Course layout valid")
	assert.Contains(t, stdout, "no editor configured")

	code, _, _ = runCaptured(t, "check", "--config", cfgPath, "--strict")
	assert.Equal(t, 2, code)

	require.NoError(t, os.RemoveAll(filepath.Join(filepath.Dir(cfgPath), "frameworks")))
	code, stdout, _ = runCaptured(t, "check", "--config", cfgPath, "--json")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, `"valid": false`)
}

func TestRunInspect(t *testing.T) {
	cfgPath := writeCourse(t)
	stubTerminal(t, false, nil, "")

	code, _, stderr := runCaptured(t, "--config", cfgPath, "--no-open", "12345678")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCaptured(t, "inspect", "12345678", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Workspace Report")
	assert.Contains(t, stdout, "[ok]    P1")
	assert.Contains(t, stdout, "[empty] P2")

	code, _, stderr = runCaptured(t, "inspect", "87654321", "--config", cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Inspect failed")

	code, _, stderr = runCaptured(t, "inspect", "--config", cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage: opener inspect")
}

func TestRunClean(t *testing.T) {
	cfgPath := writeCourse(t)
	out := filepath.Join(filepath.Dir(cfgPath), "opened-solution")
	old := filepath.Join(out, "ad-12345678")
	fresh := filepath.Join(out, "ad-87654321")
	writeFile(t, filepath.Join(old, ".gitignore"), "/*")
	writeFile(t, filepath.Join(fresh, ".gitignore"), "/*")
	stale := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	code, stdout, stderr := runCaptured(t, "clean", "--config", cfgPath, "--dry-run")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Would remove "+old)
	assert.DirExists(t, old)

	code, stdout, stderr = runCaptured(t, "clean", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Removed 1 workspace(s)")
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
}

func TestRunConfigInit(t *testing.T) {
	dir := t.TempDir()

	code, stdout, stderr := runCaptured(t, "config", "init", dir)
	require.Equal(t, 0, code, stderr)
	path := filepath.Join(dir, "config.yaml")
	assert.Contains(t, stdout, path)
	assert.FileExists(t, path)

	code, _, stderr = runCaptured(t, "config", "init", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")
}

func TestRunConfigGetSet(t *testing.T) {
	cfgPath := writeCourse(t)

	code, stdout, stderr := runCaptured(t, "config", "get", "log.level", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "error\n", stdout)

	code, _, stderr = runCaptured(t, "config", "set", "editor=code --wait", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr = runCaptured(t, "config", "get", "editor", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "code --wait\n", stdout)

	code, _, stderr = runCaptured(t, "config", "set", "log.format=xml", "--config", cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "validation failed")
}

func TestRunVersionJSON(t *testing.T) {
	code, stdout, stderr := runCaptured(t, "version", "--json")
	require.Equal(t, 0, code, stderr)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, "0.1.0-dev", info.Version)
}

func TestRunCLIUnknownCommand(t *testing.T) {
	code, stdout, stderr := runCaptured(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")
	assert.True(t, strings.Contains(stdout, "Usage:"))
}

func TestIsDevBuild(t *testing.T) {
	assert.True(t, isDevBuild(versionInfo{Version: "0.1.0-dev", Commit: "unknown"}))
	assert.False(t, isDevBuild(versionInfo{Version: "1.0.0", Commit: "unknown"}))
	assert.False(t, isDevBuild(versionInfo{Version: "0.1.0-dev", Commit: "abc123"}))
}

func TestSplitPositional(t *testing.T) {
	pos, rest := splitPositional([]string{"--config", "cfg", "12345678", "--json"}, "config")
	assert.Equal(t, "12345678", pos)
	assert.Equal(t, []string{"--config", "cfg", "--json"}, rest)
}
