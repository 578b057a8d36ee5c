package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"

	"github.com/mattjoyce/solution-opener/internal/config"
	"github.com/mattjoyce/solution-opener/internal/inspect"
	"github.com/mattjoyce/solution-opener/internal/launch"
	"github.com/mattjoyce/solution-opener/internal/lock"
	"github.com/mattjoyce/solution-opener/internal/log"
	"github.com/mattjoyce/solution-opener/internal/staging"
	"github.com/mattjoyce/solution-opener/internal/student"
	"github.com/mattjoyce/solution-opener/internal/tui/prompt"
)

// prompter is the interactive surface used by stage.
type prompter interface {
	staging.ConflictResolver
	Identifier(ctx context.Context, students []student.Student) (string, bool, error)
	Confirm(ctx context.Context, question string) (bool, error)
	Select(ctx context.Context, title string, options []prompt.Option) (prompt.Option, bool, error)
}

var (
	clipboardReadAll = clipboard.ReadAll
	newPrompter      = func() prompter { return prompt.New(os.Stdin, os.Stderr) }
	newLauncher      = func() launch.Launcher { return launch.NewSystem() }
	isInteractive    = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}
)

type stageOptions struct {
	configPath string
	overwrite  bool
	cancel     bool
	noOpen     bool
	jsonOut    bool
	identifier string
}

func parseStageArgs(args []string) (stageOptions, error) {
	var opts stageOptions
	fs := flag.NewFlagSet("stage", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file or directory")
	fs.BoolVar(&opts.overwrite, "overwrite", false, "Overwrite an existing workspace without asking")
	fs.BoolVar(&opts.cancel, "cancel", false, "Keep an existing workspace without asking")
	fs.BoolVar(&opts.noOpen, "no-open", false, "Do not open the workspace after staging")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the staging result as JSON")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	// Flags may follow the identifier.
	if fs.NArg() > 0 {
		opts.identifier = fs.Arg(0)
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return opts, err
		}
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.overwrite && opts.cancel {
		return opts, errors.New("--overwrite and --cancel are mutually exclusive")
	}
	return opts, nil
}

func runStage(args []string) int {
	opts, err := parseStageArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		printStageHelp()
		return 1
	}

	cfg, ok := setup(opts.configPath)
	if !ok {
		return 1
	}
	logger := log.WithComponent("main")
	if info := currentVersionInfo(); isDevBuild(info) {
		logger.Warn("running a development build without version metadata", "version", info.Version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := cfg.StagingLayout()
	engine, err := staging.New(layout, staging.WithLogger(log.WithComponent("staging")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid layout: %v\n", err)
		return 1
	}

	interactive := isInteractive()
	var p prompter
	if interactive {
		p = newPrompter()
	}

	id := opts.identifier
	if id == "" {
		if !interactive {
			fmt.Fprintln(os.Stderr, "An identifier is required when stdin is not a terminal.")
			printStageHelp()
			return 1
		}
		var picked bool
		id, picked, err = askIdentifier(ctx, p, layout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Prompt failed: %v\n", err)
			return 1
		}
		if !picked {
			fmt.Println("No student selected.")
			return 0
		}
	}

	if !student.IsValidIdentifier(id) {
		return reportStageError(id, staging.ErrInvalidIdentifier)
	}

	var resolver staging.ConflictResolver
	switch {
	case opts.overwrite:
		resolver = staging.Always(staging.DecisionOverwrite)
	case opts.cancel:
		resolver = staging.Always(staging.DecisionCancel)
	case interactive:
		resolver = p
	}

	lockPath := lock.PathFor(layout.OutputPath())
	pidLock, err := lock.AcquirePIDLock(lockPath)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			fmt.Fprintf(os.Stderr, "Another opener is already staging in %s: %v\n", layout.OutputPath(), err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to acquire staging lock: %v\n", err)
		return 1
	}
	defer func() { _ = pidLock.Release() }()
	log.WithStudent(id).Debug("acquired staging lock", "path", lockPath)

	result, err := engine.Stage(ctx, id, resolver)
	if err != nil {
		return reportStageError(id, err)
	}
	log.WithRun(result.RunID).Debug("stage finished", "outcome", string(result.Outcome))

	if opts.jsonOut {
		out, err := inspect.BuildJSONReport(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render result: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(inspect.BuildReport(result))
	}

	if result.Outcome == staging.OutcomeCancelled || opts.noOpen || opts.jsonOut {
		return 0
	}

	launcher := newLauncher()
	if err := launcher.Open(result.Workspace); err != nil {
		logger.Warn("failed to open workspace", "path", result.Workspace, "error", err)
	}
	if interactive {
		if err := openMenu(ctx, p, launcher, cfg, result); err != nil {
			fmt.Fprintf(os.Stderr, "Open menu failed: %v\n", err)
			return 1
		}
	}
	return 0
}

func reportStageError(id string, err error) int {
	var stageErr *staging.Error
	switch {
	case errors.Is(err, staging.ErrInvalidIdentifier):
		fmt.Fprintf(os.Stderr, "Invalid identifier %q: expected %d digits\n", id, student.IdentifierLength)
	case errors.As(err, &stageErr) && stageErr.Kind == staging.KindIO:
		fmt.Fprintf(os.Stderr, "Staging failed during %s of %s: %v\n", stageErr.Op, stageErr.Path, stageErr.Err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Interrupted.")
	default:
		fmt.Fprintf(os.Stderr, "Staging failed: %v\n", err)
	}
	return 1
}

// askIdentifier offers a valid identifier found on the clipboard first and
// falls back to the suggestion prompt.
func askIdentifier(ctx context.Context, p prompter, layout staging.Layout) (string, bool, error) {
	if text, err := clipboardReadAll(); err == nil {
		candidate := strings.TrimSpace(text)
		if student.IsValidIdentifier(candidate) {
			ok, err := p.Confirm(ctx, fmt.Sprintf("Select student: %s", candidate))
			if err != nil {
				return "", false, err
			}
			if ok {
				return candidate, true, nil
			}
		}
	} else {
		log.Debug("clipboard unavailable", "error", err)
	}

	students, err := student.KnownStudents(layout.SubmissionsPath())
	if err != nil {
		log.Warn("could not list students for suggestions", "error", err)
	}
	return p.Identifier(ctx, students)
}

const (
	openKindReport = "report:"
	openKindCode   = "code:"
	openQuit       = "quit"
)

// openOptions lists what can be opened after staging: the report with the
// default application and every populated exercise with the editor.
func openOptions(result *staging.Result) []prompt.Option {
	var opts []prompt.Option
	if result.ReportFound() {
		opts = append(opts, prompt.Option{
			Label: "Student report",
			Desc:  result.Report.Path,
			Value: openKindReport + result.Report.Path,
		})
	}
	for _, ex := range result.Populated() {
		opts = append(opts, prompt.Option{
			Label: ex.Name + " code",
			Desc:  ex.Dir,
			Value: openKindCode + ex.Dir,
		})
	}
	return append(opts, prompt.Option{Label: "Quit", Value: openQuit})
}

func openMenu(ctx context.Context, p prompter, l launch.Launcher, cfg *config.Config, result *staging.Result) error {
	opts := openOptions(result)
	for {
		chosen, ok, err := p.Select(ctx, "Open", opts)
		if err != nil {
			return err
		}
		if !ok || chosen.Value == openQuit {
			fmt.Println("Quitting.")
			return nil
		}

		switch {
		case strings.HasPrefix(chosen.Value, openKindReport):
			err = l.Open(strings.TrimPrefix(chosen.Value, openKindReport))
		case strings.HasPrefix(chosen.Value, openKindCode):
			dir := strings.TrimPrefix(chosen.Value, openKindCode)
			if strings.TrimSpace(cfg.Editor) == "" {
				err = l.Open(dir)
			} else {
				err = l.OpenWith(dir, cfg.Editor)
			}
		}
		if err != nil {
			log.Warn("failed to open", "target", chosen.Label, "error", err)
		}
	}
}
