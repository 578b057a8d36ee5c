package config

import (
	"time"

	"github.com/mattjoyce/solution-opener/internal/staging"
)

// Config represents the complete solution-opener configuration.
type Config struct {
	// RootDir holds frameworks/ and abgaben/. Relative paths resolve against
	// the directory of the config file.
	RootDir string `yaml:"root_dir"`
	// Editor is the command used to open exercise code, e.g. "idea" or a full
	// path to the IDE launcher.
	Editor  string        `yaml:"editor"`
	Log     LogConfig     `yaml:"log"`
	Layout  LayoutConfig  `yaml:"layout,omitempty"`
	Cleanup CleanupConfig `yaml:"cleanup,omitempty"`

	// SourceFile is the file the config was loaded from, empty for defaults.
	SourceFile string `yaml:"-"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LayoutConfig overrides directory and file names of the course layout. Empty
// fields keep the defaults.
type LayoutConfig struct {
	FrameworksDir   string `yaml:"frameworks_dir,omitempty"`
	SubmissionsDir  string `yaml:"submissions_dir,omitempty"`
	ReportsDir      string `yaml:"reports_dir,omitempty"`
	OutputDir       string `yaml:"output_dir,omitempty"`
	WorkspacePrefix string `yaml:"workspace_prefix,omitempty"`
	SolutionPath    string `yaml:"solution_path,omitempty"`
	SolutionFile    string `yaml:"solution_file,omitempty"`
	EmptySuffix     string `yaml:"empty_suffix,omitempty"`
	MarkerFile      string `yaml:"marker_file,omitempty"`
	MarkerContent   string `yaml:"marker_content,omitempty"`
	ReportFallback  string `yaml:"report_fallback,omitempty"`
}

// CleanupConfig defines how old a staged workspace must be before
// `opener clean` removes it.
type CleanupConfig struct {
	OlderThan time.Duration `yaml:"older_than,omitempty"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		RootDir: ".",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cleanup: CleanupConfig{
			OlderThan: 14 * 24 * time.Hour,
		},
	}
}

// StagingLayout builds the layout passed to the staging engine.
func (c *Config) StagingLayout() staging.Layout {
	l := staging.DefaultLayout(c.RootDir)
	o := c.Layout

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&l.FrameworksDir, o.FrameworksDir)
	override(&l.SubmissionsDir, o.SubmissionsDir)
	override(&l.ReportsDir, o.ReportsDir)
	override(&l.OutputDir, o.OutputDir)
	override(&l.WorkspacePrefix, o.WorkspacePrefix)
	override(&l.SolutionPath, o.SolutionPath)
	override(&l.SolutionFile, o.SolutionFile)
	override(&l.EmptySuffix, o.EmptySuffix)
	override(&l.MarkerFile, o.MarkerFile)
	override(&l.MarkerContent, o.MarkerContent)
	override(&l.ReportFallback, o.ReportFallback)
	return l
}
