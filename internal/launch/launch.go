// Package launch opens staged files with the desktop default application or
// a configured editor.
package launch

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher opens paths outside the terminal.
type Launcher interface {
	Open(path string) error
	OpenWith(path, tool string) error
}

// System launches processes via os/exec without waiting for them to exit.
type System struct {
	goos  string
	start func(cmd *exec.Cmd) error
}

var _ Launcher = (*System)(nil)

// NewSystem returns a launcher for the running platform.
func NewSystem() *System {
	return &System{
		goos:  runtime.GOOS,
		start: func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

// Open opens path with the platform default application.
func (s *System) Open(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	name, args := openCommand(s.goos, path)
	if err := s.start(exec.Command(name, args...)); err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	return nil
}

// OpenWith opens path with tool. tool may carry extra arguments separated by
// spaces, e.g. "code --new-window"; the path is appended last. On macOS a tool
// that is not a path is treated as an application name for `open -a`.
func (s *System) OpenWith(path, tool string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	fields := strings.Fields(tool)
	if len(fields) == 0 {
		return fmt.Errorf("no editor configured; set editor in the config file")
	}

	var cmd *exec.Cmd
	switch {
	case s.goos == "darwin" && len(fields) == 1 && !strings.Contains(fields[0], "/"):
		cmd = exec.Command("open", "-a", fields[0], path)
	default:
		args := append(fields[1:], path)
		cmd = exec.Command(fields[0], args...)
	}

	if err := s.start(cmd); err != nil {
		return fmt.Errorf("open %q with %q: %w", path, tool, err)
	}
	return nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	case "darwin":
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}
