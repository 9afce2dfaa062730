package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bvrai/campaign-console/internal/campaign"
	"github.com/bvrai/campaign-console/internal/poller"
	"github.com/bvrai/campaign-console/internal/session"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

type consoleStyles struct {
	title  lipgloss.Style
	muted  lipgloss.Style
	text   lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	danger lipgloss.Style
	panel  lipgloss.Style
	header lipgloss.Style
	bar    lipgloss.Style
}

var styles = newConsoleStyles()

func newConsoleStyles() consoleStyles {
	accent := lipgloss.AdaptiveColor{Light: "#5A3FC0", Dark: "#A78BFA"}
	return consoleStyles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
		text:   lipgloss.NewStyle(),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		danger: lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		bar:    lipgloss.NewStyle().Foreground(accent),
	}
}

func renderSession(st session.State) string {
	if !st.Authenticated() || st.User == nil {
		return styles.muted.Render("Not logged in")
	}
	u := st.User

	lines := []string{
		styles.title.Render(strings.TrimSpace(u.FirstName + " " + u.LastName)),
		styles.muted.Render(u.Email),
	}
	if u.CompanyName != "" {
		lines = append(lines, styles.text.Render(u.CompanyName))
	}
	credits := styles.text.Render(fmt.Sprintf("Credits: %.2f", st.Credits()))
	if st.Credits() <= 0 {
		credits = styles.danger.Render("Credits: 0 (upgrade to place calls)")
	}
	lines = append(lines, credits)
	if st.Demo {
		lines = append(lines, styles.warn.Render("Demo session"))
	}
	return styles.panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderControl(c campaign.ControlState) string {
	label := strings.ToUpper(string(c))
	switch c {
	case campaign.ControlRunning:
		return styles.ok.Render(label)
	case campaign.ControlPaused:
		return styles.warn.Render(label)
	case campaign.ControlCompleted:
		return styles.title.Render(label)
	default:
		return styles.muted.Render(label)
	}
}

// renderCampaignTable lays campaigns out in fixed-width columns
func renderCampaignTable(campaigns []sparkai.Campaign) string {
	if len(campaigns) == 0 {
		return styles.muted.Render("No campaigns yet")
	}

	idW, nameW := len("ID"), len("NAME")
	for _, c := range campaigns {
		idW = max(idW, lipgloss.Width(c.ID))
		nameW = max(nameW, lipgloss.Width(c.Name))
	}
	nameW = min(nameW, 40)

	cell := func(s string, w int) string {
		return lipgloss.NewStyle().Width(w).MaxWidth(w).Render(s)
	}

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top,
		styles.header.Render(cell("ID", idW)), "  ",
		styles.header.Render(cell("NAME", nameW)), "  ",
		styles.header.Render(cell("STATUS", 10)), "  ",
		styles.header.Render("CALLS"),
	)}
	for _, c := range campaigns {
		status := c.Status
		if status == "" {
			status = sparkai.CampaignStatusDraft
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			cell(c.ID, idW), "  ",
			cell(c.Name, nameW), "  ",
			cell(renderControl(campaign.ControlOf(status)), 10), "  ",
			fmt.Sprintf("%d/%d", c.CompletedCalls, c.TotalLeads),
		))
	}
	return strings.Join(rows, "\n")
}

// renderStatusPanel draws the live progress panel for one snapshot
func renderStatusPanel(name string, snap poller.Snapshot, credits float64) string {
	r := snap.Report
	if r == nil {
		return styles.panel.Render(styles.muted.Render("Waiting for status..."))
	}

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, styles.title.Render(name), "  ", renderControl(campaign.ControlOf(r.Status))),
		progressBar(r.ProgressPercentage, 30),
		styles.text.Render(fmt.Sprintf("Calls %d/%d  successful %d  pending %d",
			r.CompletedCalls, r.TotalLeads, r.SuccessfulCalls, r.PendingCalls)),
		styles.muted.Render(fmt.Sprintf("Credits %.2f  updated %s", credits, snap.UpdatedAt.Format("15:04:05"))),
	}

	history := r.CallHistory
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	for _, call := range history {
		who := call.LeadName
		if who == "" {
			who = call.ContactNo
		}
		line := fmt.Sprintf("  %s  %s", who, call.Status)
		if call.Outcome != "" {
			line += "  " + call.Outcome
		}
		lines = append(lines, styles.muted.Render(line))
	}

	if snap.Done {
		lines = append(lines, styles.ok.Render("Campaign finished"))
	}
	return styles.panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func progressBar(percent float64, width int) string {
	percent = min(max(percent, 0), 100)
	filled := int(percent / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %5.1f%%", styles.bar.Render(bar), percent)
}
