package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Tabular is a result that can be printed with FormatTable.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Theme defines the colors of table output.
type Theme struct {
	Primary lipgloss.Color // header and border
	Dim     lipgloss.Color // cell text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#c9d1d9"),
}

// RenderTable renders t with rounded borders.
func RenderTable(t Tabular, theme Theme) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Padding(0, 1)
	cell := lipgloss.NewStyle().Foreground(theme.Dim).Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Primary)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(t.Header()...).
		Rows(t.Rows()...).
		String()
}

// Rows is a ready-made Tabular.
type Rows struct {
	Columns []string
	Data    [][]string
}

func (r Rows) Header() []string { return r.Columns }
func (r Rows) Rows() [][]string { return r.Data }
