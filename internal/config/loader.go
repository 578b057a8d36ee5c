package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ErrNoConfig is returned by Discover when no configuration file exists in any
// of the standard locations.
var ErrNoConfig = errors.New("no config found")

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "OPENER_CONFIG"

// Load reads and parses configuration from a file. A directory argument is
// resolved to config.yaml inside it.
func Load(configPath string) (*Config, error) {
	// Resolve to absolute path for consistent relative path resolution
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg.SourceFile = absPath

	cfg = applyConfigDefaults(cfg)

	// Relative root_dir is anchored at the config file, not the working directory.
	if !filepath.IsAbs(cfg.RootDir) {
		cfg.RootDir = filepath.Join(filepath.Dir(absPath), cfg.RootDir)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Discover finds the config file by checking standard locations.
// Priority order: $OPENER_CONFIG, ~/.config/solution-opener/config.yaml,
// ./settings.yaml, ./config.yaml.
func Discover() (string, error) {
	// 1. Check environment variable
	if path := os.Getenv(EnvConfigPath); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("$%s points at %q which does not exist", EnvConfigPath, path)
	}

	// 2. Check user config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "solution-opener", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}

	// 3. Files next to the working directory
	for _, local := range []string{"./settings.yaml", "./config.yaml"} {
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	return "", fmt.Errorf("%w (checked: $%s, ~/.config/solution-opener/config.yaml, ./settings.yaml, ./config.yaml)", ErrNoConfig, EnvConfigPath)
}

// WriteDefault writes a commented default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	body, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	header := "# solution-opener configuration\n" +
		"# root_dir holds frameworks/ and abgaben/; relative to this file.\n" +
		"# editor is the command used to open exercise code.\n"
	if err := os.WriteFile(path, append([]byte(header), body...), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Apply environment variable interpolation
	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}

	return &cfg, nil
}

func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if strings.TrimSpace(cfg.RootDir) == "" {
		cfg.RootDir = defaults.RootDir
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Cleanup.OlderThan == 0 {
		cfg.Cleanup.OlderThan = defaults.Cleanup.OlderThan
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", cfg.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("log.format must be one of: text, json (got %q)", cfg.Log.Format)
	}

	if envVarPattern.MatchString(cfg.RootDir) {
		matches := envVarPattern.FindStringSubmatch(cfg.RootDir)
		return fmt.Errorf("root_dir references undefined environment variable ${%s}", matches[1])
	}
	if envVarPattern.MatchString(cfg.Editor) {
		matches := envVarPattern.FindStringSubmatch(cfg.Editor)
		return fmt.Errorf("editor references undefined environment variable ${%s}", matches[1])
	}

	if cfg.Cleanup.OlderThan < 0 {
		return fmt.Errorf("cleanup.older_than must not be negative")
	}

	if err := cfg.StagingLayout().Validate(); err != nil {
		return err
	}
	return nil
}
