package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/rigup/internal/evaluate"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func levelStyle(level evaluate.Level) lipgloss.Style {
	switch level {
	case evaluate.LevelFull:
		return passStyle
	case evaluate.LevelFailed:
		return failStyle
	default:
		return warnStyle
	}
}

// Render formats the report for the console
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Installation report — %s", r.Profile)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("run %s, finished %s", r.RunID, r.FinishedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Readiness: %s (score %d/100)\n",
		levelStyle(r.Level).Render(string(r.Level)), r.Score))

	if r.SelectedProvider != "" {
		b.WriteString(fmt.Sprintf("Acceleration provider: %s\n", r.SelectedProvider))
	}
	for _, name := range sortedKeys(r.SkippedProviders) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  skipped %s: %s", name, r.SkippedProviders[name])))
		b.WriteString("\n")
	}

	b.WriteString("\nComponents:\n")
	for _, name := range sortedBoolKeys(r.Components) {
		mark := passStyle.Render("✓")
		if !r.Components[name] {
			mark = failStyle.Render("✗")
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", mark, name))
	}

	if len(r.FailedSteps) > 0 {
		b.WriteString("\nFailed steps:\n")
		for _, step := range r.FailedSteps {
			b.WriteString(fmt.Sprintf("  %s %s\n", failStyle.Render("✗"), step))
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, warning := range r.Warnings {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  ⚠ %s", warning)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedBoolKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
