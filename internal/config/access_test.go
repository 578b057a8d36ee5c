package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPath(t *testing.T) {
	cfg := Defaults()
	cfg.RootDir = "/course"
	cfg.Editor = "idea"
	cfg.Layout.FrameworksDir = "templates"

	tests := []struct {
		name    string
		path    string
		want    any
		wantErr bool
	}{
		{name: "root field", path: "editor", want: "idea"},
		{name: "nested field", path: "log.level", want: "info"},
		{name: "layout override", path: "layout.frameworks_dir", want: "templates"},
		{name: "duration", path: "cleanup.older_than", want: (14 * 24 * time.Hour).String()},
		{name: "unset layout field", path: "layout.reports_dir", wantErr: true},
		{name: "through scalar", path: "editor.name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.GetPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeConfig(t *testing.T, body string) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}

func TestSetPathPersists(t *testing.T) {
	cfg := writeConfig(t, "# course\nroot_dir: .\nlog:\n  level: info\n")

	require.NoError(t, cfg.SetPath("log.level", "debug"))
	require.NoError(t, cfg.SetPath("layout.reports_dir", "Reports"))
	require.NoError(t, cfg.SetPath("editor", "true"))

	reloaded, err := Load(cfg.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, "debug", reloaded.Log.Level)
	assert.Equal(t, "Reports", reloaded.Layout.ReportsDir)
	assert.Equal(t, "true", reloaded.Editor)

	info, err := os.Stat(cfg.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetPathRollsBackInvalidValue(t *testing.T) {
	body := "root_dir: .\nlog:\n  level: info\n"
	cfg := writeConfig(t, body)

	err := cfg.SetPath("log.level", "verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	data, err := os.ReadFile(cfg.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestSetPathRejectsUnknownKey(t *testing.T) {
	body := "root_dir: .\n"
	cfg := writeConfig(t, body)

	err := cfg.SetPath("layout.framework_dir", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config path")

	data, err := os.ReadFile(cfg.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestSetPathWithoutSourceFile(t *testing.T) {
	assert.Error(t, Defaults().SetPath("editor", "idea"))
}
