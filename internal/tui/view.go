package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/controller"
	"github.com/placebolab/coach/internal/models"
	"github.com/placebolab/coach/internal/stats"
)

var tabTitles = []string{"Practices", "Plan", "Session", "Dashboard", "Settings"}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.screen {
	case constants.ScreenLogin:
		body = m.viewLogin()
	case constants.ScreenRegister:
		body = m.viewRegister()
	case constants.ScreenAssessment:
		body = m.viewAssessment()
	case constants.ScreenConfirmReset:
		body = m.viewConfirmReset()
	default:
		if m.form != nil && m.screen == constants.ScreenSettings {
			body = m.form.View()
		} else {
			body = m.viewMain()
		}
	}
	return docStyle.Render(body)
}

func (m Model) viewMain() string {
	var b strings.Builder
	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")

	switch m.screen {
	case constants.ScreenPractices:
		b.WriteString(m.viewPractices())
	case constants.ScreenPlan:
		b.WriteString(m.viewPlan())
	case constants.ScreenSlot:
		b.WriteString(m.viewSlot())
	case constants.ScreenDashboard:
		b.WriteString(m.viewDashboard())
	case constants.ScreenSettings:
		b.WriteString(m.viewSettings())
	}

	if m.formError != "" {
		b.WriteString("\n" + dangerStyle.Render(m.formError))
	}
	if notice := m.ctrl.State().Notice; notice != "" {
		b.WriteString("\n" + noticeStyle.Render(notice))
	}
	b.WriteString("\n\n" + m.help.View(m.keys))
	return b.String()
}

func (m Model) viewTabs() string {
	tabs := make([]string, 0, len(tabTitles))
	for i, title := range tabTitles {
		if constants.Screen(i) == m.screen {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewPractices() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Practices"))
	b.WriteString("\n")

	practices := m.ctrl.State().Practices
	if len(practices) == 0 {
		b.WriteString(dimStyle.Render("No practices yet. Press p on the settings tab to generate some."))
		return b.String()
	}
	for i, p := range practices {
		check := "[ ]"
		if p.Selected {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s  %s", check, p.Title, dimStyle.Render(formatDuration(p.DefaultDurationSec)))
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
		if i == m.cursor && p.Description != "" {
			b.WriteString(dimStyle.Render("    "+p.Description) + "\n")
		}
	}
	b.WriteString("\n" + dimStyle.Render("space: select, g: generate today's plan"))
	return b.String()
}

func (m Model) viewPlan() string {
	var b strings.Builder
	state := m.ctrl.State()

	title := "Today"
	if state.Plan != nil {
		title = "Today, " + state.Plan.Date
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if len(state.Slots) == 0 {
		b.WriteString(dimStyle.Render("No plan yet. Press g to generate one."))
		return b.String()
	}
	for i, s := range state.Slots {
		b.WriteString(m.renderSlotLine(i, s))
	}
	b.WriteString("\n" + dimStyle.Render("enter: open session, g: regenerate"))
	return b.String()
}

// renderSlotLine shows a slot the way the participant is allowed to see it.
// The variant never appears; both arms render identically.
func (m Model) renderSlotLine(i int, s models.Slot) string {
	status := " "
	switch s.Status {
	case models.SlotInProgress:
		status = noticeStyle.Render("~")
	case models.SlotDone:
		status = doneStyle.Render("✓")
	}
	line := fmt.Sprintf("%s Session %d  %-9s %s", status, i+1, strings.ToLower(string(s.TimeOfDay)), dimStyle.Render(formatDuration(s.DurationSec)))
	if i == m.cursor {
		line = selectedStyle.Render("> ") + line
	} else {
		line = "  " + line
	}
	return line + "\n"
}

func (m Model) viewSlot() string {
	var b strings.Builder
	state := m.ctrl.State()
	timer := state.Timer

	if timer.Phase == "" {
		b.WriteString(titleStyle.Render("Session"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Pick a session from the plan tab first."))
		return b.String()
	}

	var slot *models.Slot
	for i := range state.Slots {
		if state.Slots[i].ID == timer.SlotID {
			slot = &state.Slots[i]
			break
		}
	}

	b.WriteString(titleStyle.Render("Session"))
	b.WriteString("\n")
	if slot != nil {
		b.WriteString(slot.Instruction + "\n\n")
	}
	b.WriteString(countdownStyle.Render(formatClock(timer.RemainingSec)))
	b.WriteString("\n\n")

	switch timer.Phase {
	case controller.TimerIdle:
		b.WriteString(dimStyle.Render("s: start"))
	case controller.TimerRunning:
		b.WriteString(dimStyle.Render("s: pause, f: finish early"))
	case controller.TimerPaused:
		b.WriteString(noticeStyle.Render("paused") + "  " + dimStyle.Render("s: resume, f: finish early"))
	case controller.TimerCompleted:
		b.WriteString(doneStyle.Render("done"))
	}
	return b.String()
}

func (m Model) viewDashboard() string {
	var b strings.Builder
	state := m.ctrl.State()

	b.WriteString(titleStyle.Render("Dashboard"))
	b.WriteString("\n")

	summaries := stats.Summaries(allSlots(state), state.Assessments, state.Practices)
	if summaries == nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Complete at least %d sessions with ratings to see results.", stats.MinAssessments)))
		return b.String()
	}

	b.WriteString("Mood vs. control\n")
	for _, s := range summaries {
		delta := fmt.Sprintf("%+.1f", s.MoodDelta)
		if s.MoodDelta > 0 {
			delta = doneStyle.Render(delta)
		} else if s.MoodDelta < 0 {
			delta = dangerStyle.Render(delta)
		}
		b.WriteString(fmt.Sprintf("  %-24s %s  %s\n", s.Title, delta,
			dimStyle.Render(fmt.Sprintf("n=%d, %s confidence", s.Samples, s.Confidence))))
	}

	b.WriteString("\n" + titleCase(string(m.metric)) + " by time of day " + dimStyle.Render("(m: switch metric)") + "\n")
	byBucket := stats.ByTimeOfDay(allSlots(state), state.Assessments, m.metric)
	for _, bucket := range []models.TimeOfDay{models.Morning, models.Afternoon, models.Evening} {
		if mean, ok := byBucket[bucket]; ok {
			b.WriteString(fmt.Sprintf("  %-9s %.1f\n", strings.ToLower(string(bucket)), mean))
		} else {
			b.WriteString(fmt.Sprintf("  %-9s %s\n", strings.ToLower(string(bucket)), dimStyle.Render("no data")))
		}
	}

	b.WriteString("\n" + titleStyle.Render("History"))
	b.WriteString("\n")
	if len(state.History) == 0 {
		b.WriteString(dimStyle.Render("No completed days yet."))
	}
	for _, entry := range state.History {
		b.WriteString(fmt.Sprintf("  %s  %d/%d completed\n", entry.Date, entry.Completed, len(entry.Slots)))
	}
	return b.String()
}

func (m Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n")

	practices := m.ctrl.State().Practices
	if len(practices) == 0 {
		b.WriteString(dimStyle.Render("No practices. Press p to generate from a prompt.") + "\n")
	}
	for i, p := range practices {
		check := "[ ]"
		if p.Selected {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s  %s", check, p.Title, dimStyle.Render(formatDuration(p.DefaultDurationSec)))
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("space: select, e: edit duration, p: generate practices, L: log out"))
	b.WriteString("\n\n" + dangerStyle.Render("X: erase all data"))
	return b.String()
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(constants.AppName))
	b.WriteString("\n")
	b.WriteString(m.form.View())
	if m.formError != "" {
		b.WriteString("\n" + dangerStyle.Render(m.formError))
	}
	if notice := m.ctrl.State().Notice; notice != "" {
		b.WriteString("\n" + noticeStyle.Render(notice))
	}
	b.WriteString("\n" + dimStyle.Render("tab: create an account"))
	return b.String()
}

func (m Model) viewRegister() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create account"))
	b.WriteString("\n")
	b.WriteString(m.form.View())
	if m.formError != "" {
		b.WriteString("\n" + dangerStyle.Render(m.formError))
	}
	b.WriteString("\n" + dimStyle.Render("esc: back to login"))
	return b.String()
}

func (m Model) viewAssessment() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("How was it?"))
	b.WriteString("\n")
	b.WriteString(m.form.View())
	if m.formError != "" {
		b.WriteString("\n" + dangerStyle.Render(m.formError))
	}
	return b.String()
}

func (m Model) viewConfirmReset() string {
	var b strings.Builder
	b.WriteString(dangerStyle.Render("Erase all data?"))
	b.WriteString("\n\nThis deletes every practice, plan and rating, locally and on the server.\n\n")
	b.WriteString(dangerStyle.Render("y: erase") + "  " + dimStyle.Render("n: cancel"))
	return b.String()
}

// allSlots joins today's slots with the history so the dashboard aggregates
// cover the whole retention window, not just the visible day.
func allSlots(state *controller.State) []models.Slot {
	seen := make(map[string]bool, len(state.Slots))
	out := make([]models.Slot, 0, len(state.Slots))
	for _, s := range state.Slots {
		seen[s.ID] = true
		out = append(out, s)
	}
	for _, entry := range state.History {
		for _, s := range entry.Slots {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return time.Time{}.Add(time.Duration(sec) * time.Second).Format(constants.ClockFormat)
}

func formatDuration(sec int) string {
	if sec%60 == 0 {
		return fmt.Sprintf("%dm", sec/60)
	}
	return fmt.Sprintf("%dm%02ds", sec/60, sec%60)
}
