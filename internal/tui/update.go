package tui

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/controller"
	"github.com/placebolab/coach/internal/stats"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.FocusMsg:
		// Regaining foreground runs a reconciliation pass, like the original
		// tab-visibility trigger.
		if m.ctrl.State().Phase == controller.Authenticated {
			m.ctrl.Reconcile(context.Background(), controller.TriggerFocus)
			m.ensureSession()
		}
		return m, nil

	case TickMsg:
		return m.handleTick(msg)
	}

	switch m.screen {
	case constants.ScreenLogin:
		return m.updateLogin(msg)
	case constants.ScreenRegister:
		return m.updateRegister(msg)
	case constants.ScreenAssessment:
		return m.updateAssessment(msg)
	case constants.ScreenConfirmReset:
		return m.updateConfirmReset(msg)
	}

	// Settings-screen modal forms (practice prompt, duration edit).
	if m.form != nil && m.screen == constants.ScreenSettings {
		return m.updateSettingsForm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleMainKeys(keyMsg)
	}
	return m, nil
}

// handleTick consumes a countdown tick. A stale seq means the source was torn
// down (pause, finish, screen change); it is dropped without rescheduling, so
// exactly one tick source is ever live.
func (m Model) handleTick(msg TickMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.tickSeq {
		return m, nil
	}
	if m.ctrl.Tick() {
		return m.openAssessment()
	}
	if m.ctrl.State().Timer.Phase == controller.TimerRunning {
		return m, tickCmd(m.tickSeq)
	}
	return m, nil
}

func (m Model) openAssessment() (tea.Model, tea.Cmd) {
	m.tickSeq++
	m.assessmentForm = &AssessmentFormModel{
		Mood:         constants.RatingDefault,
		Lightness:    constants.RatingDefault,
		Satisfaction: constants.RatingDefault,
		Nervousness:  constants.RatingDefault,
	}
	m.form = newAssessmentForm(m.assessmentForm)
	m.screen = constants.ScreenAssessment
	return m, m.form.Init()
}

func (m *Model) gotoLogin() {
	m.screen = constants.ScreenLogin
	m.loginForm = &LoginFormModel{}
	m.form = newLoginForm(m.loginForm)
	m.tickSeq++
}

// ensureSession drops back to the login screen after a forced logout
// (unrecoverable refresh failure discovered by any command).
func (m *Model) ensureSession() {
	if m.ctrl.State().Phase != controller.Authenticated && m.screen < constants.ScreenLogin {
		m.gotoLogin()
	}
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			m.screen = constants.ScreenRegister
			m.registerForm = &RegisterFormModel{}
			m.form = newRegisterForm(m.registerForm)
			m.formError = ""
			return m, m.form.Init()
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		err := m.ctrl.Login(context.Background(), m.loginForm.Email, m.loginForm.Password)
		if err != nil {
			// Form stays editable with the message from the controller.
			m.formError = m.ctrl.State().AuthError
			m.loginForm.Password = ""
			m.form = newLoginForm(m.loginForm)
			return m, m.form.Init()
		}
		m.formError = ""
		m.form = nil
		m.screen = constants.ScreenPractices
		m.cursor = 0
		return m, nil
	case huh.StateAborted:
		m.quitting = true
		return m, tea.Quit
	}
	return m, cmd
}

func (m Model) updateRegister(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc", "tab":
			m.gotoLogin()
			m.formError = ""
			return m, m.form.Init()
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		f := m.registerForm
		err := m.ctrl.Register(context.Background(), f.Email, f.Password, f.Confirm, f.Terms)
		if err != nil {
			m.formError = m.ctrl.State().AuthError
			m.form = newRegisterForm(m.registerForm)
			return m, m.form.Init()
		}
		m.gotoLogin()
		m.formError = ""
		return m, m.form.Init()
	case huh.StateAborted:
		m.gotoLogin()
		return m, m.form.Init()
	}
	return m, cmd
}

func (m Model) updateAssessment(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The assessment is the only exit from a completed slot; esc does not
	// dismiss it.
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted, huh.StateAborted:
		f := m.assessmentForm
		err := m.ctrl.SubmitAssessment(context.Background(), f.Mood, f.Lightness, f.Satisfaction, f.Nervousness)
		if err != nil {
			m.formError = err.Error()
			m.form = newAssessmentForm(m.assessmentForm)
			return m, m.form.Init()
		}
		m.formError = ""
		m.form = nil
		m.screen = constants.ScreenDashboard
		m.ensureSession()
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirmReset(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "y", "Y":
			m.ctrl.ResetAllData(context.Background())
			m.screen = constants.ScreenSettings
			m.cursor = 0
			m.ensureSession()
		case "n", "N", "esc", "q":
			m.screen = constants.ScreenSettings
		}
	}
	return m, nil
}

func (m Model) updateSettingsForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.promptForm = nil
		m.durationForm = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		switch {
		case m.promptForm != nil:
			if err := m.ctrl.GeneratePractices(context.Background(), m.promptForm.Prompt); err != nil {
				m.formError = err.Error()
			} else {
				m.formError = ""
			}
			m.promptForm = nil
		case m.durationForm != nil:
			secs, err := strconv.Atoi(m.durationForm.Seconds)
			if err == nil {
				if err := m.ctrl.SetPracticeDuration(context.Background(), m.durationTarget, secs); err != nil {
					m.formError = err.Error()
				} else {
					m.formError = ""
				}
			}
			m.durationForm = nil
		}
		m.form = nil
		m.ensureSession()
		return m, nil
	case huh.StateAborted:
		m.form = nil
		m.promptForm = nil
		m.durationForm = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) handleMainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.screen = (m.screen + 1) % constants.NumMainTabs
		m.cursor = 0
		m.ctrl.Reconcile(context.Background(), controller.TriggerScreenChange)
		m.ensureSession()
		return m, nil

	case key.Matches(msg, m.keys.ShiftTab):
		m.screen = (m.screen - 1 + constants.NumMainTabs) % constants.NumMainTabs
		m.cursor = 0
		m.ctrl.Reconcile(context.Background(), controller.TriggerScreenChange)
		m.ensureSession()
		return m, nil
	}

	switch m.screen {
	case constants.ScreenPractices:
		return m.handlePracticesKeys(msg)
	case constants.ScreenPlan:
		return m.handlePlanKeys(msg)
	case constants.ScreenSlot:
		return m.handleSlotKeys(msg)
	case constants.ScreenDashboard:
		return m.handleDashboardKeys(msg)
	case constants.ScreenSettings:
		return m.handleSettingsKeys(msg)
	}
	return m, nil
}

func (m Model) handlePracticesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	practices := m.ctrl.State().Practices
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(practices)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Enter):
		if m.cursor < len(practices) {
			if err := m.ctrl.TogglePractice(context.Background(), practices[m.cursor].ID); err != nil {
				m.formError = "could not update practice: " + err.Error()
			} else {
				m.formError = ""
			}
			m.ensureSession()
		}
	case key.Matches(msg, m.keys.Generate):
		if err := m.ctrl.GeneratePlan(context.Background()); err != nil {
			m.formError = err.Error()
		} else {
			m.formError = ""
			m.screen = constants.ScreenPlan
			m.cursor = 0
		}
		m.ensureSession()
	}
	return m, nil
}

func (m Model) handlePlanKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	slots := m.ctrl.State().Slots
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(slots)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Enter):
		if m.cursor < len(slots) {
			if err := m.ctrl.SelectSlot(slots[m.cursor].ID); err != nil {
				m.formError = err.Error()
			} else {
				m.formError = ""
				m.screen = constants.ScreenSlot
			}
		}
	case key.Matches(msg, m.keys.Generate):
		if err := m.ctrl.GeneratePlan(context.Background()); err != nil {
			m.formError = err.Error()
		} else {
			m.formError = ""
			m.cursor = 0
		}
		m.ensureSession()
	}
	return m, nil
}

func (m Model) handleSlotKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	timer := m.ctrl.State().Timer
	switch {
	case key.Matches(msg, m.keys.StartPause):
		switch timer.Phase {
		case controller.TimerIdle, controller.TimerPaused:
			m.ctrl.StartTimer(context.Background())
			m.ensureSession()
			// New owner for the tick source; any previous one is stale.
			m.tickSeq++
			return m, tickCmd(m.tickSeq)
		case controller.TimerRunning:
			m.ctrl.PauseTimer()
			m.tickSeq++
		}
	case key.Matches(msg, m.keys.Finish):
		if timer.Phase == controller.TimerIdle || timer.Phase == controller.TimerRunning || timer.Phase == controller.TimerPaused {
			m.ctrl.FinishTimer()
			return m.openAssessment()
		}
	}
	return m, nil
}

func (m Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Metric) {
		order := []stats.Metric{stats.MetricMood, stats.MetricLightness, stats.MetricSatisfaction, stats.MetricNervousness}
		for i, metric := range order {
			if metric == m.metric {
				m.metric = order[(i+1)%len(order)]
				break
			}
		}
	}
	return m, nil
}

func (m Model) handleSettingsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	practices := m.ctrl.State().Practices
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(practices)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(practices) {
			if err := m.ctrl.TogglePractice(context.Background(), practices[m.cursor].ID); err != nil {
				m.formError = "could not update practice: " + err.Error()
			}
			m.ensureSession()
		}
	case key.Matches(msg, m.keys.Edit):
		if m.cursor < len(practices) {
			p := practices[m.cursor]
			m.durationTarget = p.ID
			m.durationForm = &DurationFormModel{Seconds: strconv.Itoa(p.DefaultDurationSec)}
			m.form = newDurationForm(m.durationForm)
			return m, m.form.Init()
		}
	case key.Matches(msg, m.keys.Prompt):
		m.promptForm = &PromptFormModel{}
		m.form = newPromptForm(m.promptForm)
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Logout):
		m.ctrl.Logout(context.Background())
		m.gotoLogin()
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Reset):
		m.screen = constants.ScreenConfirmReset
	}
	return m, nil
}
