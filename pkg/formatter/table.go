package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

type Table struct {
	Headers      []string
	Rows         [][]string
	columnWidths []int
}

// Creates a new table with the given headers
func NewTable(headers []string) *Table {
	t := &Table{
		Headers: headers,
		Rows:    [][]string{},
	}
	t.calculateColumnWidths()
	return t
}

func (t *Table) AddRow(row []string) {
	t.Rows = append(t.Rows, row)
	t.calculateColumnWidths()
}

func (t *Table) calculateColumnWidths() {
	t.columnWidths = make([]int, len(t.Headers))
	for i, h := range t.Headers {
		t.columnWidths[i] = len(h)
	}

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(t.columnWidths) && len(cell) > t.columnWidths[i] {
				t.columnWidths[i] = len(cell)
			}
		}
	}
}

// Returns the string representation of the table
func (t *Table) String() string {
	if len(t.Headers) == 0 {
		return ""
	}

	t.calculateColumnWidths()

	var sb strings.Builder

	t.writeBorder(&sb)
	sb.WriteString("\n")

	sb.WriteString("| ")
	for i, h := range t.Headers {
		// Pad before styling so ANSI sequences do not skew the width math.
		sb.WriteString(headerStyle.Render(h + strings.Repeat(" ", t.columnWidths[i]-len(h))))
		sb.WriteString(" | ")
	}
	sb.WriteString("\n")

	t.writeBorder(&sb)
	sb.WriteString("\n")

	for _, row := range t.Rows {
		sb.WriteString("| ")
		for i, cell := range row {
			if i < len(t.columnWidths) {
				sb.WriteString(cell)
				sb.WriteString(strings.Repeat(" ", t.columnWidths[i]-len(cell)))
				sb.WriteString(" | ")
			}
		}
		sb.WriteString("\n")
	}

	t.writeBorder(&sb)

	return sb.String()
}

func (t *Table) writeBorder(sb *strings.Builder) {
	sb.WriteString("+")
	for _, width := range t.columnWidths {
		sb.WriteString(strings.Repeat("-", width+2))
		sb.WriteString("+")
	}
}

// Formats a simple section title
func FormatSectionTitle(title string) string {
	return titleStyle.Render(title)
}
