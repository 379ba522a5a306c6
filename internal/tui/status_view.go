package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agrovihan/agrovihan/internal/syncer"
)

// View renders the status view (Bubble Tea interface).
func (m StatusModel) View() string {
	if m.quit {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(RenderStatus(m.state, m.loading.View()))

	if m.syncing {
		sb.WriteString("\n" + lipgloss.NewStyle().Foreground(ColorMuted).Italic(true).Render("Sync requested..."))
	}
	if m.lastReport != nil || m.syncErr != nil {
		sb.WriteString("\n" + renderReport(m.lastReport, m.syncErr))
	}
	if m.closed {
		sb.WriteString("\n" + lipgloss.NewStyle().Foreground(ColorMuted).Render("Coordinator stopped."))
	}

	sb.WriteString("\n\n" + renderHelp(m.toggle != nil))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(sb.String())
}

// RenderStatus renders a coordinator state. spinnerFrame is shown while
// syncing and may be empty.
func RenderStatus(s syncer.State, spinnerFrame string) string {
	var sb strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorHeader).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	sb.WriteString(titleStyle.Render("Agrovihan sync status"))
	sb.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().Foreground(ColorLabel).Width(labelWidth)
	valueStyle := lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label) + value + "\n")
	}

	if s.Online {
		row("Connection", lipgloss.NewStyle().Foreground(ColorOK).Render(IconOnline+" Online"))
	} else {
		row("Connection", lipgloss.NewStyle().Foreground(ColorWarning).Render(IconOffline+" Offline"))
	}

	activity := valueStyle.Render(s.Phase.String())
	if s.Phase == syncer.PhaseSyncing {
		activity = fmt.Sprintf("%s %s %d/%d", spinnerFrame, valueStyle.Render("syncing"),
			s.Progress.Processed, s.Progress.Total)
		if eta := s.Progress.EstimatedTimeRemaining(); eta > 0 {
			activity += lipgloss.NewStyle().Foreground(ColorMuted).Render(fmt.Sprintf(
				" (%.1f/s, about %s left)", s.Progress.RecordsPerSecond(), eta.Round(time.Second)))
		}
	}
	row("Activity", activity)
	row("Pending uploads", valueStyle.Render(fmt.Sprintf("%d", s.Pending)))

	if !s.LastSync.IsZero() {
		row("Last sync", valueStyle.Render(s.LastSync.Local().Format(time.DateTime)))
	}
	if s.LastError != nil {
		row("Last error", lipgloss.NewStyle().Foreground(ColorError).Render(s.LastError.Error()))
	}
	if s.Warning != "" {
		row("Warning", lipgloss.NewStyle().Foreground(ColorWarning).Render(IconWarning+" "+s.Warning))
	}

	sb.WriteString("\n")
	sb.WriteString(summaryLine(s))
	return sb.String()
}

// summaryLine is the one-line banner shown under the status rows.
func summaryLine(s syncer.State) string {
	switch {
	case !s.Online && s.Pending > 0:
		plural := ""
		if s.Pending > 1 {
			plural = "s"
		}
		return lipgloss.NewStyle().Foreground(ColorWarning).Render(fmt.Sprintf(
			"%d calculation%s saved offline. Data will sync automatically when connected.",
			s.Pending, plural))
	case !s.Online:
		return lipgloss.NewStyle().Foreground(ColorMuted).Render(
			"Offline. New calculations will be saved locally.")
	case s.Pending == 0 && s.Phase == syncer.PhaseIdle:
		return lipgloss.NewStyle().Foreground(ColorOK).Render(IconCheck + " All data synced with the server.")
	default:
		return lipgloss.NewStyle().Foreground(ColorMuted).Render(
			fmt.Sprintf("%d calculation(s) waiting to upload.", s.Pending))
	}
}

func renderReport(r *syncer.Report, err error) string {
	if err != nil {
		return lipgloss.NewStyle().Foreground(ColorError).Render("Sync failed: " + err.Error())
	}
	if r.Skipped {
		return lipgloss.NewStyle().Foreground(ColorMuted).Render("Sync skipped: offline.")
	}
	msg := fmt.Sprintf("Last manual sync: %d synced, %d failed.", len(r.Synced), len(r.Failed))
	color := ColorOK
	if !r.OK() {
		color = ColorWarning
	}
	return lipgloss.NewStyle().Foreground(color).Render(msg)
}

func renderHelp(canToggle bool) string {
	keys := []string{"s sync now"}
	if canToggle {
		keys = append(keys, "o toggle online/offline")
	}
	keys = append(keys, "q quit")
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(strings.Join(keys, " • "))
}
