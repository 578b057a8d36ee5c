package prompt

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/solution-opener/internal/staging"
	"github.com/mattjoyce/solution-opener/internal/student"
)

// Runner drives a model until it quits and returns the final model.
type Runner func(ctx context.Context, m tea.Model) (tea.Model, error)

// Prompter runs prompts against a terminal.
type Prompter struct {
	run Runner
}

var _ staging.ConflictResolver = (*Prompter)(nil)

// New returns a Prompter reading keys from in and drawing to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{run: func(ctx context.Context, m tea.Model) (tea.Model, error) {
		return tea.NewProgram(m,
			tea.WithContext(ctx),
			tea.WithInput(in),
			tea.WithOutput(out),
		).Run()
	}}
}

// NewWithRunner returns a Prompter that drives models with run.
func NewWithRunner(run Runner) *Prompter {
	return &Prompter{run: run}
}

// Select asks the user to pick one of options. ok is false when the prompt
// was aborted.
func (p *Prompter) Select(ctx context.Context, title string, options []Option) (Option, bool, error) {
	final, err := p.run(ctx, NewSelect(title, options))
	if err != nil {
		return Option{}, false, fmt.Errorf("select prompt: %w", err)
	}
	m, ok := final.(SelectModel)
	if !ok {
		return Option{}, false, fmt.Errorf("select prompt: unexpected model %T", final)
	}
	chosen, picked := m.Chosen()
	return chosen, picked, nil
}

// Identifier asks for a student identifier, suggesting from students.
func (p *Prompter) Identifier(ctx context.Context, students []student.Student) (string, bool, error) {
	final, err := p.run(ctx, NewIdentifier(students))
	if err != nil {
		return "", false, fmt.Errorf("identifier prompt: %w", err)
	}
	m, ok := final.(IdentifierModel)
	if !ok {
		return "", false, fmt.Errorf("identifier prompt: unexpected model %T", final)
	}
	id, accepted := m.Value()
	return id, accepted, nil
}

// Confirm shows an Ok / Cancel choice and reports whether Ok was picked.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	chosen, ok, err := p.Select(ctx, question, []Option{
		{Label: "Ok", Value: "ok"},
		{Label: "Cancel", Value: "cancel"},
	})
	if err != nil || !ok {
		return false, err
	}
	return chosen.Value == "ok", nil
}

// Resolve asks whether an existing workspace may be overwritten. Aborting
// the prompt counts as Cancel.
func (p *Prompter) Resolve(ctx context.Context, existing string) (staging.Decision, error) {
	chosen, ok, err := p.Select(ctx, fmt.Sprintf("%s already has content", existing), []Option{
		{Label: staging.DecisionOverwrite.String(), Desc: "Delete it and stage again", Value: "overwrite"},
		{Label: staging.DecisionCancel.String(), Desc: "Leave it untouched", Value: "cancel"},
	})
	if err != nil {
		return staging.DecisionCancel, err
	}
	if ok && chosen.Value == "overwrite" {
		return staging.DecisionOverwrite, nil
	}
	return staging.DecisionCancel, nil
}
