package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/presets"
	"github.com/rebeliceyang/lazyroster/internal/stats"
	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
)

// StatsView renders the active rules, the quick filter toggles and the
// statistics of the current view
type StatsView struct {
	Width int
	Theme theme.Theme
}

// NewStatsView creates a stats view
func NewStatsView(th theme.Theme) *StatsView {
	return &StatsView{Width: 32, Theme: th}
}

// Render renders the panel body
func (sv *StatsView) Render(rs filter.RuleSet, q models.SearchQuery, st stats.Statistics) string {
	var b strings.Builder

	b.WriteString(sv.renderRules(rs))
	b.WriteString("\n")
	b.WriteString(sv.renderQuickFilters(rs))
	b.WriteString("\n")
	if !q.IsEmpty() {
		b.WriteString(sv.heading("Search"))
		b.WriteString("\n  ")
		b.WriteString(searchLabel(q))
		b.WriteString("\n\n")
	}
	b.WriteString(sv.renderStats(st))

	return b.String()
}

func (sv *StatsView) heading(s string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(sv.Theme.Info).Render(s)
}

func (sv *StatsView) renderRules(rs filter.RuleSet) string {
	var b strings.Builder
	b.WriteString(sv.heading(fmt.Sprintf("Rules (%s)", strings.ToUpper(string(rs.Mode())))))
	b.WriteString("\n")

	if rs.IsEmpty() {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("  none"))
		b.WriteString("\n")
		return b.String()
	}

	chip := lipgloss.NewStyle().Foreground(sv.Theme.RuleChip)
	for i, r := range rs.Rules() {
		b.WriteString(chip.Render(truncate(fmt.Sprintf("  %d. %s", i+1, r.String()), sv.Width)))
		b.WriteString("\n")
	}
	return b.String()
}

func (sv *StatsView) renderQuickFilters(rs filter.RuleSet) string {
	var b strings.Builder
	b.WriteString(sv.heading("Quick filters"))
	b.WriteString("\n")

	on := lipgloss.NewStyle().Foreground(sv.Theme.QuickActive).Bold(true)
	off := lipgloss.NewStyle().Foreground(sv.Theme.QuickInactive)
	for i, qf := range presets.List() {
		mark, style := "○", off
		if presets.Active(rs, qf.ID) {
			mark, style = "●", on
		}
		b.WriteString(style.Render(fmt.Sprintf("  %d %s %s", i+1, mark, qf.Label)))
		b.WriteString("\n")
	}
	return b.String()
}

func (sv *StatsView) renderStats(st stats.Statistics) string {
	label := lipgloss.NewStyle().Foreground(sv.Theme.StatLabel)
	value := lipgloss.NewStyle().Foreground(sv.Theme.StatValue)
	row := func(k, v string) string {
		return "  " + label.Render(fmt.Sprintf("%-8s", k)) + value.Render(v) + "\n"
	}

	var b strings.Builder
	b.WriteString(sv.heading("Statistics"))
	b.WriteString("\n")
	b.WriteString(row("rows", fmt.Sprintf("%d / %d", st.Rows, st.TotalRows)))

	for _, cs := range st.ColumnStats {
		if cs.Numeric == nil {
			continue
		}
		n := cs.Numeric
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("  " + truncate(cs.Name, sv.Width-2)))
		b.WriteString("\n")
		b.WriteString(row("count", strconv.Itoa(n.Count)))
		b.WriteString(row("mean", FormatFloat(n.Mean)))
		std := "-"
		if n.StdDev != nil {
			std = FormatFloat(*n.StdDev)
		}
		b.WriteString(row("std", std))
		b.WriteString(row("min", FormatFloat(n.Min)))
		b.WriteString(row("median", FormatFloat(n.Median)))
		b.WriteString(row("max", FormatFloat(n.Max)))
		b.WriteString(row("missing", strconv.Itoa(cs.Missing)))
	}
	return b.String()
}

// FormatFloat renders a statistic with at most three decimals
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func searchLabel(q models.SearchQuery) string {
	s := fmt.Sprintf("%q", q.Text)
	if q.Column != "" {
		s = q.Column + " contains " + s
	} else {
		s = "any column contains " + s
	}
	if q.Negate {
		s = "not " + s
	}
	return s
}
