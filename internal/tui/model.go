package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/controller"
	"github.com/placebolab/coach/internal/stats"
)

// TickMsg is the one-second countdown tick. seq identifies the tick source
// that produced it; a message with a stale seq belongs to a torn-down source
// and is ignored, so the timer can never be decremented twice per second.
type TickMsg struct {
	seq int
}

func tickCmd(seq int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{seq: seq}
	})
}

type Model struct {
	ctrl *controller.Controller

	screen constants.Screen
	keys   KeyMap
	help   help.Model

	form           *huh.Form
	loginForm      *LoginFormModel
	registerForm   *RegisterFormModel
	assessmentForm *AssessmentFormModel
	promptForm     *PromptFormModel
	durationForm   *DurationFormModel
	durationTarget string

	// cursor indexes the list on the practices, plan and settings screens.
	cursor int

	// tickSeq is bumped every time the tick source changes owner.
	tickSeq int

	metric stats.Metric

	formError string
	quitting  bool
	width     int
	height    int
}

func NewModel(ctrl *controller.Controller) Model {
	m := Model{
		ctrl:   ctrl,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		metric: stats.MetricMood,
	}
	if ctrl.State().Phase == controller.Authenticated {
		m.screen = constants.ScreenPractices
	} else {
		m.screen = constants.ScreenLogin
		m.loginForm = &LoginFormModel{}
		m.form = newLoginForm(m.loginForm)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.form != nil {
		return m.form.Init()
	}
	// A restored in-flight timer comes back paused; no tick source yet.
	return nil
}
