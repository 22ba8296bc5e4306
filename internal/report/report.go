// Package report renders session summaries and history for the terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/care/posturewatch/internal/posture"
	"github.com/care/posturewatch/internal/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	poorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// RenderSummary renders the end-of-session summary block.
// The good posture percentage is only shown when some posture time was tracked.
func RenderSummary(sum posture.Summary) string {
	lines := []string{
		titleStyle.Render("=== Session Summary ==="),
		line("Total session time", valueStyle, posture.FormatDuration(sum.Total)),
		line("Time with good posture", goodStyle, posture.FormatDuration(sum.Good)),
		line("Time with poor posture", poorStyle, posture.FormatDuration(sum.Poor)),
	}
	if sum.HasTracked {
		lines = append(lines, line("Good posture percentage", valueStyle, fmt.Sprintf("%.1f%%", sum.GoodPercent)))
	}
	if sum.Alerts > 0 {
		lines = append(lines, line("Alerts", valueStyle, fmt.Sprintf("%d", sum.Alerts)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func line(label string, style lipgloss.Style, value string) string {
	return labelStyle.Render(label+": ") + style.Render(value)
}

// RenderHistory renders recent sessions as an aligned table
func RenderHistory(records []store.SessionRecord) string {
	if len(records) == 0 {
		return labelStyle.Render("No sessions recorded yet.")
	}

	header := []string{"STARTED", "DURATION", "GOOD", "POOR", "GOOD %", "ALERTS", "THRESHOLDS"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		pct := "-"
		if p, ok := r.GoodPercent(); ok {
			pct = fmt.Sprintf("%.1f%%", p)
		}
		thresholds := "-"
		if r.ShoulderThreshold != nil && r.NeckThreshold != nil {
			thresholds = fmt.Sprintf("%.1f / %.1f", *r.ShoulderThreshold, *r.NeckThreshold)
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			posture.FormatDuration(r.Duration()),
			posture.FormatDuration(seconds(r.GoodSeconds)),
			posture.FormatDuration(seconds(r.PoorSeconds)),
			pct,
			fmt.Sprintf("%d", r.Alerts),
			thresholds,
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(header, widths, headerStyle))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(renderRow(row, widths, valueStyle))
	}
	return b.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = cellStyle.Width(widths[i] + 2).Render(style.Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
