package staging

import (
	"path/filepath"
	"testing"
)

func TestDefaultLayoutPaths(t *testing.T) {
	l := DefaultLayout("/course/ag1")

	if err := l.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	checks := map[string]string{
		l.FrameworksPath():      filepath.Join("/course/ag1", "frameworks"),
		l.SubmissionsPath():     filepath.Join("/course/ag1", "abgaben"),
		l.ReportsPath():         filepath.Join("/course/ag1", "abgaben", "Berichte"),
		l.OutputPath():          filepath.Join("/course/ag1", "opened-solution"),
		l.SolutionTarget():      filepath.Join("src", "main", "java", "exercise", "StudentSolutionImplementation.java"),
		l.QuickAccessName("P1"): "P1-StudentSolutionImplementation.java",
	}
	for got, want := range checks {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layout)
	}{
		{name: "empty root", mutate: func(l *Layout) { l.RootDir = " " }},
		{name: "empty frameworks", mutate: func(l *Layout) { l.FrameworksDir = "" }},
		{name: "separator in reports", mutate: func(l *Layout) { l.ReportsDir = "a/b" }},
		{name: "dotdot output", mutate: func(l *Layout) { l.OutputDir = ".." }},
		{name: "separator in prefix", mutate: func(l *Layout) { l.WorkspacePrefix = "x/" }},
		{name: "escaping solution path", mutate: func(l *Layout) { l.SolutionPath = "../../etc" }},
		{name: "absolute solution path", mutate: func(l *Layout) { l.SolutionPath = "/etc" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := DefaultLayout("/root")
			tc.mutate(&l)
			if err := l.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
