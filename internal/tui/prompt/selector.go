package prompt

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Option is one entry of a Select prompt.
type Option struct {
	Label string
	Desc  string
	Value string
}

func (o Option) Title() string       { return o.Label }
func (o Option) Description() string { return o.Desc }
func (o Option) FilterValue() string { return o.Label }

const (
	selectWidth     = 64
	selectMinHeight = 10
)

// SelectModel is a single-choice list. Enter picks the highlighted option;
// q, esc and ctrl+c abort.
type SelectModel struct {
	list      list.Model
	chosen    Option
	done      bool
	cancelled bool
}

// NewSelect builds a selector over options, highlighting the first.
func NewSelect(title string, options []Option) SelectModel {
	items := make([]list.Item, 0, len(options))
	for _, o := range options {
		items = append(items, o)
	}

	height := len(options)*3 + 6
	if height < selectMinHeight {
		height = selectMinHeight
	}

	l := list.New(items, list.NewDefaultDelegate(), selectWidth, height)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle

	return SelectModel{list: l}
}

func (m SelectModel) Init() tea.Cmd {
	return nil
}

func (m SelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			if o, ok := m.list.SelectedItem().(Option); ok {
				m.chosen = o
				m.done = true
			} else {
				m.cancelled = true
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m SelectModel) View() string {
	if m.cancelled {
		return quitTextStyle.Render("Cancelled.")
	}
	if m.done {
		return quitTextStyle.Render(fmt.Sprintf("%s %s", m.list.Title, selectedItemStyle.Render(m.chosen.Label)))
	}
	return "\n" + m.list.View()
}

// Chosen returns the picked option and whether one was picked.
func (m SelectModel) Chosen() (Option, bool) {
	return m.chosen, m.done && !m.cancelled
}
