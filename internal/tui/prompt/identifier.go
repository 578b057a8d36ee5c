package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/solution-opener/internal/student"
)

// maxShownSuggestions caps the suggestion list under the input line.
const maxShownSuggestions = 8

// IdentifierModel asks for a student identifier. Typing an identifier prefix
// or part of a name lists matching students; up and down pick one. Entries are
// trimmed and cut to their first eight characters, and the prompt re-asks
// until the result is a valid identifier.
type IdentifierModel struct {
	input    textinput.Model
	students []student.Student

	matches []string
	cursor  int

	value     string
	errMsg    string
	done      bool
	cancelled bool
}

// NewIdentifier builds the prompt over the known students.
func NewIdentifier(students []student.Student) IdentifierModel {
	ti := textinput.New()
	ti.Placeholder = "identifier or name"
	ti.Prompt = "> "
	ti.Width = selectWidth
	ti.ShowSuggestions = true
	ti.Focus()

	return IdentifierModel{input: ti, students: students, cursor: -1}
}

func (m IdentifierModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m IdentifierModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "up":
			if m.cursor >= 0 {
				m.cursor--
			}
			return m, nil

		case "down":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil

		case "enter":
			return m.submit()
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refresh()
	}
	return m, cmd
}

func (m IdentifierModel) submit() (tea.Model, tea.Cmd) {
	entry := m.input.Value()
	if m.cursor >= 0 && m.cursor < len(m.matches) {
		entry = m.matches[m.cursor]
	}

	id := student.IdentifierFromSuggestion(entry)
	if !student.IsValidIdentifier(id) {
		m.errMsg = fmt.Sprintf("%q is not an %d-digit identifier, try again", id, student.IdentifierLength)
		m.input.SetValue("")
		m.refresh()
		return m, nil
	}

	m.value = id
	m.done = true
	return m, tea.Quit
}

func (m *IdentifierModel) refresh() {
	m.cursor = -1
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.matches = nil
		m.input.SetSuggestions(nil)
		return
	}
	all := student.Suggest(m.students, query)
	m.input.SetSuggestions(all)
	if len(all) > maxShownSuggestions {
		all = all[:maxShownSuggestions]
	}
	m.matches = all
}

func (m IdentifierModel) View() string {
	if m.cancelled {
		return quitTextStyle.Render("Cancelled.")
	}
	if m.done {
		return quitTextStyle.Render("Identifier: " + selectedItemStyle.Render(m.value))
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Student identifier"))
	b.WriteString("\n\n  ")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	for i, line := range m.matches {
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n  ")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString("\n  ")
	b.WriteString(dimStyle.Render("tab complete • ↑/↓ pick • enter confirm • esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// Value returns the accepted identifier and whether one was accepted.
func (m IdentifierModel) Value() (string, bool) {
	return m.value, m.done && !m.cancelled
}

// Suggestions returns the lines currently listed under the input.
func (m IdentifierModel) Suggestions() []string {
	return m.matches
}
