// Package render draws task views as terminal tables.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/pipeline"
	"github.com/starford/checkmark/internal/tasks"
	"github.com/starford/checkmark/internal/view"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)
	headerRowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle      = lipgloss.NewStyle()
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	categoryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	dateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	tagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TaskText renders the task text with categories, its date and tags styled.
func TaskText(t models.Task) string {
	var b strings.Builder
	for _, seg := range tasks.Segments(t.Text, t.Date) {
		switch seg.Kind {
		case tasks.SegmentCategory:
			b.WriteString(categoryStyle.Render(seg.Value))
		case tasks.SegmentDate:
			b.WriteString(dateStyle.Render(seg.Value))
		case tasks.SegmentTag:
			b.WriteString(tagStyle.Render(seg.Value))
		default:
			if t.Done {
				b.WriteString(doneStyle.Render(seg.Value))
			} else {
				b.WriteString(seg.Value)
			}
		}
	}
	return b.String()
}

// TaskTable renders ts as a table of status, text and location.
func TaskTable(ts []models.Task) string {
	if len(ts) == 0 {
		return "No tasks found."
	}
	rows := make([][]string, len(ts))
	for i, t := range ts {
		mark := "[ ]"
		if t.Done {
			mark = "[x]"
		}
		rows[i] = []string{mark, TaskText(t), t.Date, fmt.Sprintf("%s:%d", t.Path, t.Line+1)}
	}
	return renderTable([]string{"", "Task", "Date", "Location"}, rows)
}

// SummaryTable renders per-category counts followed by the totals.
func SummaryTable(s pipeline.Summary) string {
	rows := make([][]string, 0, len(s.Categories)+1)
	for _, c := range s.Categories {
		rows = append(rows, []string{categoryStyle.Render(c.Name), fmt.Sprint(c.Undone), fmt.Sprint(c.Done)})
	}
	if s.Uncategorized > 0 {
		rows = append(rows, []string{
			mutedStyle.Render("(none)"),
			fmt.Sprint(s.Uncategorized - s.UncategorizedDone),
			fmt.Sprint(s.UncategorizedDone),
		})
	}
	out := renderTable([]string{"Category", "Open", "Done"}, rows)
	totals := fmt.Sprintf("%d tasks, %d open, %d done, %d undated, %d uncategorized",
		s.Total, s.Undone, s.Done, s.Undated, s.Uncategorized)
	return out + "\n" + mutedStyle.Render(totals)
}

// View renders the parts of a view selected by its block.
func View(b view.Block, ts []models.Task) string {
	var parts []string
	if b.Title != "" {
		parts = append(parts, titleStyle.Render(b.Title))
	}
	for _, mode := range b.Views {
		switch mode {
		case view.ModeStats:
			parts = append(parts, SummaryTable(pipeline.Summarize(ts)))
		case view.ModeList:
			parts = append(parts, TaskTable(ts))
		}
	}
	return strings.Join(parts, "\n")
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerRowStyle
			}
			return cellStyle
		})
	return t.Render()
}
