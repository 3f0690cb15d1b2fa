package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// ui holds the output styles of one command invocation.
type ui struct {
	out io.Writer

	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
}

// newUI creates the styles for cmd. Colors are disabled by --no-color or
// the NO_COLOR environment variable, and whenever the output is not a
// terminal.
func newUI(cmd *cobra.Command) *ui {
	out := cmd.OutOrStdout()
	noColor := persistentBool(cmd, "no-color")
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}

	r := lipgloss.NewRenderer(out)
	u := &ui{out: out}
	u.cell = r.NewStyle().Padding(0, 1)
	if noColor {
		u.title = r.NewStyle().Bold(true)
		u.success = r.NewStyle()
		u.warning = r.NewStyle()
		u.failure = r.NewStyle()
		u.dim = r.NewStyle()
		u.header = r.NewStyle().Bold(true).Padding(0, 1)
		return u
	}

	u.title = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#9080a0"))
	u.success = r.NewStyle().Foreground(lipgloss.Color("#6b8c6b"))
	u.warning = r.NewStyle().Foreground(lipgloss.Color("#c9a866"))
	u.failure = r.NewStyle().Foreground(lipgloss.Color("#c87070"))
	u.dim = r.NewStyle().Foreground(lipgloss.Color("#6a6a74"))
	u.header = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#8a9fc9")).Padding(0, 1)
	return u
}

// table renders rows under headers with a plain border.
func (u *ui) table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(u.dim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return u.header
			}
			return u.cell
		})
	return t.Render()
}

// println writes styled text followed by a newline.
func (u *ui) println(style lipgloss.Style, text string) {
	_, _ = io.WriteString(u.out, style.Render(text)+"\n") //nolint:errcheck // terminal output
}
