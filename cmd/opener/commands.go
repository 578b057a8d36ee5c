package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/solution-opener/internal/config"
	"github.com/mattjoyce/solution-opener/internal/doctor"
	"github.com/mattjoyce/solution-opener/internal/inspect"
	"github.com/mattjoyce/solution-opener/internal/lock"
	"github.com/mattjoyce/solution-opener/internal/log"
	"github.com/mattjoyce/solution-opener/internal/staging"
	"github.com/mattjoyce/solution-opener/internal/student"
	"gopkg.in/yaml.v3"
)

// splitPositional separates the first bare argument from flags so that flags
// may follow it, as in 'opener inspect 12345678 --json'.
func splitPositional(args []string, valueFlags ...string) (string, []string) {
	takesValue := make(map[string]bool, len(valueFlags))
	for _, f := range valueFlags {
		takesValue["-"+f] = true
		takesValue["--"+f] = true
	}

	var positional string
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case takesValue[arg] && i+1 < len(args):
			rest = append(rest, arg, args[i+1])
			i++
		case !strings.HasPrefix(arg, "-") && positional == "":
			positional = arg
		default:
			rest = append(rest, arg)
		}
	}
	return positional, rest
}

func runStudents(args []string) int {
	query, rest := splitPositional(args, "config")

	var configPath string
	var jsonOut bool
	fs := flag.NewFlagSet("students", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&jsonOut, "json", false, "Output students as JSON")
	if err := fs.Parse(rest); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, ok := setup(configPath)
	if !ok {
		return 1
	}

	students, err := student.KnownStudents(cfg.StagingLayout().SubmissionsPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list students: %v\n", err)
		return 1
	}

	lines := make([]string, 0, len(students))
	if query != "" {
		lines = student.Suggest(students, query)
	} else {
		for _, s := range students {
			lines = append(lines, s.Suggestion())
		}
	}

	if jsonOut {
		selected := make([]student.Student, 0, len(lines))
		byID := make(map[string]student.Student, len(students))
		for _, s := range students {
			byID[s.ID] = s
		}
		for _, line := range lines {
			selected = append(selected, byID[student.IdentifierFromSuggestion(line)])
		}
		data, err := json.MarshalIndent(selected, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render students: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if len(lines) == 0 {
		fmt.Fprintln(os.Stderr, "No matching students.")
		return 0
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return 0
}

func runCheck(args []string) int {
	var configPath string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, ok := setup(configPath)
	if !ok {
		return 1
	}

	result := doctor.New(cfg).Validate()
	if jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runInspect(args []string) int {
	id, rest := splitPositional(args, "config")

	var configPath string
	var jsonOut bool
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&jsonOut, "json", false, "Output report in JSON")
	if err := fs.Parse(rest); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "Usage: opener inspect <identifier> [--config PATH] [--json]")
		return 1
	}
	if !student.IsValidIdentifier(id) {
		fmt.Fprintf(os.Stderr, "Invalid identifier %q: expected %d digits\n", id, student.IdentifierLength)
		return 1
	}

	cfg, ok := setup(configPath)
	if !ok {
		return 1
	}
	engine, err := staging.New(cfg.StagingLayout())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid layout: %v\n", err)
		return 1
	}
	layout, mgr := engine.Layout(), engine.Workspaces()

	snap, err := inspect.Inspect(context.Background(), mgr, layout, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inspect failed: %v\n", err)
		return 1
	}

	if jsonOut {
		out, err := inspect.BuildSnapshotJSON(snap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Inspect failed: %v\n", err)
			return 1
		}
		fmt.Println(out)
		return 0
	}
	fmt.Print(inspect.BuildSnapshotReport(snap))
	return 0
}

func runClean(args []string) int {
	var configPath string
	var olderThan time.Duration
	var dryRun bool

	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.DurationVar(&olderThan, "older-than", 0, "Remove workspaces not modified for this long (default from config)")
	fs.BoolVar(&dryRun, "dry-run", false, "List what would be removed without deleting")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, ok := setup(configPath)
	if !ok {
		return 1
	}
	if olderThan <= 0 {
		olderThan = cfg.Cleanup.OlderThan
	}

	engine, err := staging.New(cfg.StagingLayout())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid layout: %v\n", err)
		return 1
	}
	layout, mgr := engine.Layout(), engine.Workspaces()

	lockPath := lock.PathFor(layout.OutputPath())
	pidLock, err := lock.AcquirePIDLock(lockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to acquire staging lock: %v\n", err)
		return 1
	}
	defer func() { _ = pidLock.Release() }()

	report, err := mgr.Cleanup(context.Background(), olderThan, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		return 1
	}
	log.WithComponent("clean").Info("cleanup finished",
		"older_than", olderThan.String(),
		"dry_run", dryRun,
		"count", len(report.Dirs),
	)

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	for _, dir := range report.Dirs {
		fmt.Printf("%s %s\n", verb, dir)
	}
	fmt.Printf("%s %d workspace(s) older than %s\n", verb, len(report.Dirs), olderThan)
	return 0
}

const configUsage = `Usage:
  opener config init [PATH]                 Write a default config file
  opener config get <path> [--config PATH]  Print a value, e.g. log.level
  opener config set <path>=<value> [--config PATH]`

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, configUsage)
		return 1
	}
	if isHelpToken(args[0]) {
		fmt.Println(configUsage)
		return 0
	}

	switch args[0] {
	case "init":
		return runConfigInit(args[1:])
	case "get":
		return runConfigGet(args[1:])
	case "set":
		return runConfigSet(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func runConfigInit(args []string) int {
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "Usage: opener config init [PATH]")
		return 1
	}

	var path string
	if len(args) == 1 {
		path = args[0]
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, "config.yaml")
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot resolve home directory: %v\n", err)
			return 1
		}
		path = filepath.Join(home, ".config", "solution-opener", "config.yaml")
	}

	if err := config.WriteDefault(path); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", path)
	return 0
}

func runConfigGet(args []string) int {
	path, rest := splitPositional(args, "config")

	var configPath string
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	if err := fs.Parse(rest); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, configUsage)
		return 1
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	val, err := cfg.GetPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch v := val.(type) {
	case map[string]any, []any:
		data, err := yaml.Marshal(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render value: %v\n", err)
			return 1
		}
		fmt.Print(string(data))
	default:
		fmt.Println(v)
	}
	return 0
}

func runConfigSet(args []string) int {
	assignment, rest := splitPositional(args, "config")

	var configPath string
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	if err := fs.Parse(rest); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path, value, ok := strings.Cut(assignment, "=")
	if !ok || path == "" {
		fmt.Fprintln(os.Stderr, configUsage)
		return 1
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.SetPath(path, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Set %s = %s in %s\n", path, value, cfg.SourceFile)
	return 0
}
