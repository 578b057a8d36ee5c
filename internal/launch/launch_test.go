package launch

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSystem(goos string) (*System, *[]*exec.Cmd) {
	var started []*exec.Cmd
	return &System{
		goos: goos,
		start: func(cmd *exec.Cmd) error {
			started = append(started, cmd)
			return nil
		},
	}, &started
}

func TestOpenUsesPlatformOpener(t *testing.T) {
	cases := map[string][]string{
		"linux":   {"xdg-open", "/ws/report.pdf"},
		"darwin":  {"open", "/ws/report.pdf"},
		"windows": {"cmd", "/c", "start", "", "/ws/report.pdf"},
	}

	for goos, want := range cases {
		t.Run(goos, func(t *testing.T) {
			s, started := recordingSystem(goos)
			require.NoError(t, s.Open("/ws/report.pdf"))
			require.Len(t, *started, 1)
			assert.Equal(t, want, (*started)[0].Args)
		})
	}
}

func TestOpenWithEditor(t *testing.T) {
	s, started := recordingSystem("linux")
	require.NoError(t, s.OpenWith("/ws/P1", "code --new-window"))
	require.Len(t, *started, 1)
	assert.Equal(t, []string{"code", "--new-window", "/ws/P1"}, (*started)[0].Args)
}

func TestOpenWithMacApplicationName(t *testing.T) {
	s, started := recordingSystem("darwin")
	require.NoError(t, s.OpenWith("/ws/P1", "idea"))
	require.NoError(t, s.OpenWith("/ws/P2", "/Applications/IDEA.app/Contents/MacOS/idea"))
	require.Len(t, *started, 2)
	assert.Equal(t, []string{"open", "-a", "idea", "/ws/P1"}, (*started)[0].Args)
	assert.Equal(t, []string{"/Applications/IDEA.app/Contents/MacOS/idea", "/ws/P2"}, (*started)[1].Args)
}

func TestOpenWithoutEditorFails(t *testing.T) {
	s, started := recordingSystem("linux")
	err := s.OpenWith("/ws/P1", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no editor configured")
	assert.Empty(t, *started)
}

func TestOpenPropagatesStartError(t *testing.T) {
	s := &System{goos: "linux", start: func(*exec.Cmd) error { return errors.New("exec: not found") }}
	err := s.Open("/ws")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
