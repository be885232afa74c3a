package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pan123/pkg/transfer"
	"pan123/pkg/types"
	"pan123/pkg/utils"
)

// Style definitions
var (
	primaryColor   = lipgloss.Color("#FF79C6") // Pink
	secondaryColor = lipgloss.Color("#8BE9FD") // Cyan
	accentColor    = lipgloss.Color("#50FA7B") // Green
	warningColor   = lipgloss.Color("#FFB86C") // Orange
	dangerColor    = lipgloss.Color("#FF5555") // Red
	mutedColor     = lipgloss.Color("#6272A4") // Comment
	fgColor        = lipgloss.Color("#F8F8F2") // Foreground

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	folderStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	fileStyle = lipgloss.NewStyle().
			Foreground(fgColor)

	successStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().
					Foreground(secondaryColor).
					Bold(true).
					Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

// renderEntries numbers entries from 1, the way commands take them.
func renderEntries(path string, entries []types.Entry, total int64, complete bool) string {
	t := newTable("#", "NAME", "TYPE", "SIZE", "ID")
	for i, e := range entries {
		name := fileStyle.Render(e.Name)
		kind := "file"
		size := utils.FormatDataSize(e.Size)
		if e.IsFolder() {
			name = folderStyle.Render(e.Name + "/")
			kind = "folder"
			size = "-"
		}
		t.Row(fmt.Sprintf("%d", i+1), name, kind, size, fmt.Sprintf("%d", e.ID))
	}

	var summary string
	if complete {
		summary = mutedStyle.Render(fmt.Sprintf("%d entries", len(entries)))
	} else {
		summary = warningStyle.Render(fmt.Sprintf("%d of %d entries, use 'more' or --all for the rest", len(entries), total))
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(path), t.Render(), summary)
}

func renderProgressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(float64(width) * percent / 100)
	empty := width - filled

	bar := lipgloss.NewStyle().Foreground(accentColor).Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(mutedColor).Render(strings.Repeat("░", empty))

	return fmt.Sprintf("%s %5.1f%%", bar, percent)
}

func stateStyle(s transfer.State) lipgloss.Style {
	switch s {
	case transfer.StateCompleted:
		return successStyle
	case transfer.StateFailed:
		return errorStyle
	case transfer.StatePaused, transfer.StateCancelled:
		return warningStyle
	default:
		return fileStyle
	}
}

func renderJobs(jobs []transfer.Snapshot) string {
	if len(jobs) == 0 {
		return mutedStyle.Render("No transfers")
	}
	t := newTable("ID", "TASK", "STATE", "PROGRESS")
	for _, j := range jobs {
		state := stateStyle(j.State).Render(j.State.String())
		if j.Err != nil && j.State == transfer.StateFailed {
			state += " " + mutedStyle.Render(truncate(j.Err.Error(), 40))
		}
		t.Row(shortID(j.ID), j.Name, state, renderProgressBar(float64(j.Progress), 20))
	}
	return t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
