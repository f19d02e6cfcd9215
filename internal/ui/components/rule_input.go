package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
)

// AddRuleMsg is sent when the rule input produced a valid rule
type AddRuleMsg struct {
	Rule models.Rule
}

// CloseRuleInputMsg is sent when the rule input should close
type CloseRuleInputMsg struct{}

// RuleInput reads a rule expression such as "GPA>=3.5"
type RuleInput struct {
	Input textinput.Model
	Theme theme.Theme
	Width int

	ds  *dataset.Dataset
	err error
}

// NewRuleInput creates a new rule input
func NewRuleInput(th theme.Theme) *RuleInput {
	ti := textinput.New()
	ti.Placeholder = "GPA>=3.5"
	ti.CharLimit = 256
	ti.Width = 40

	return &RuleInput{Input: ti, Theme: th}
}

// Open clears the input and binds it to the dataset rules are parsed against
func (r *RuleInput) Open(ds *dataset.Dataset) {
	r.ds = ds
	r.err = nil
	r.Input.SetValue("")
	r.Input.Focus()
}

// Err returns the last parse error
func (r *RuleInput) Err() error {
	return r.err
}

// Parse parses the current input against the bound dataset
func (r *RuleInput) Parse() (models.Rule, error) {
	return filter.ParseExpr(r.Input.Value(), func(column string) (models.ColumnKind, bool) {
		if r.ds == nil {
			return "", false
		}
		c, ok := r.ds.Column(column)
		return c.Kind, ok
	})
}

// Update handles messages
func (r *RuleInput) Update(msg tea.Msg) (*RuleInput, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			rule, err := r.Parse()
			if err != nil {
				r.err = err
				return r, nil
			}
			r.err = nil
			return r, func() tea.Msg {
				return AddRuleMsg{Rule: rule}
			}
		case "esc":
			return r, func() tea.Msg {
				return CloseRuleInputMsg{}
			}
		}
	}

	var cmd tea.Cmd
	r.Input, cmd = r.Input.Update(msg)
	return r, cmd
}

// View renders the rule input
func (r *RuleInput) View() string {
	r.Input.Width = max(r.Width-12, 20)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(r.Theme.BorderFocused).
		Padding(0, 1).
		Width(r.Width)

	label := lipgloss.NewStyle().Foreground(r.Theme.RuleChip).Bold(true).Render("Rule")
	line := label + " " + r.Input.View()

	hint := lipgloss.NewStyle().Foreground(r.Theme.Metadata).Italic(true).
		Render("> >= < <= = != │ ~ contains ^ starts $ ends │ col:low..high │ Esc: close")
	if r.err != nil {
		hint = lipgloss.NewStyle().Foreground(r.Theme.Error).Render(r.err.Error())
	}

	return boxStyle.Render(line + "\n" + hint)
}
