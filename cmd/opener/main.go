package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mattjoyce/solution-opener/internal/config"
	"github.com/mattjoyce/solution-opener/internal/log"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) == 0 {
		return runStage(nil)
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "stage":
		if hasHelpFlag(args) {
			printStageHelp()
			return 0
		}
		return runStage(args)
	case "students":
		return runStudents(args)
	case "check", "doctor":
		return runCheck(args)
	case "inspect":
		return runInspect(args)
	case "clean":
		return runClean(args)
	case "config":
		return runConfigNoun(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	}

	// Anything else is the default stage command: an identifier or stage flags.
	if strings.HasPrefix(cmd, "-") || !isCommandLike(cmd) {
		return runStage(cliArgs)
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
	printUsage()
	return 1
}

// isCommandLike reports whether a bare word looks like a mistyped command
// rather than an identifier handed to the default stage command.
func isCommandLike(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: opener version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("opener %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

// isDevBuild reports a binary built without release metadata.
func isDevBuild(info versionInfo) bool {
	return strings.HasSuffix(info.Version, "-dev") && info.Commit == "unknown"
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// loadConfig loads configPath, or the discovered config when it is empty.
// Without any config file the defaults apply to the working directory.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		discovered, err := config.Discover()
		switch {
		case errors.Is(err, config.ErrNoConfig):
			cfg := config.Defaults()
			root, err := filepath.Abs(cfg.RootDir)
			if err != nil {
				return nil, fmt.Errorf("resolve working directory: %w", err)
			}
			cfg.RootDir = root
			return cfg, nil
		case err != nil:
			return nil, err
		}
		configPath = discovered
	}
	return config.Load(configPath)
}

// setup loads config and configures logging for a command.
func setup(configPath string) (*config.Config, bool) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, false
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, true
}

func printUsage() {
	fmt.Print(`opener - stage a student's submission into a local workspace

Usage:
  opener [stage] [flags] [identifier]

Commands:
  stage             Stage frameworks, report and code for one student (default)
  students [query]  List known students or suggestions for a query
  check             Validate config against the course directory layout
  inspect <id>      Show an existing workspace with its fingerprint
  clean             Remove workspaces older than a cutoff
  config init       Write a default config file
  version           Show version information
  help              Show this help message

Config discovery:
  --config PATH, $OPENER_CONFIG, ~/.config/solution-opener/config.yaml,
  ./settings.yaml, ./config.yaml

Use 'opener <command> --help' for command flags.
`)
}

func printStageHelp() {
	fmt.Println("Usage: opener [stage] [--config PATH] [--overwrite|--cancel] [--no-open] [--json] [identifier]")
	fmt.Println("Without an identifier the clipboard is offered first, then a prompt with suggestions.")
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}
