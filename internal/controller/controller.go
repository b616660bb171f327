// Package controller owns all application state and mutation logic. Every
// screen-level action is a typed command on Controller that produces the next
// State; the TUI renders State and never mutates it directly.
//
// The controller follows the single-threaded UI event loop model: commands
// are invoked from the bubbletea update loop only and the type is not safe
// for concurrent use.
package controller

import (
	"context"
	"errors"
	"time"

	"github.com/placebolab/coach/internal/api"
	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/logger"
	"github.com/placebolab/coach/internal/mirror"
	"github.com/placebolab/coach/internal/models"
	"github.com/placebolab/coach/internal/planner"
	"github.com/placebolab/coach/internal/validation"
)

// Remote is the backend surface the controller depends on. *api.Client
// implements it.
type Remote interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context)
	HasSession() bool

	Practices(ctx context.Context) ([]models.Practice, error)
	UpdatePractice(ctx context.Context, id string, patch api.PracticePatch) (models.Practice, error)
	DeletePractice(ctx context.Context, id string) error
	GeneratePractices(ctx context.Context, prompt string) ([]models.Practice, error)

	DayPlanByDate(ctx context.Context, date string) (*models.DayPlan, error)
	CreateDayPlan(ctx context.Context, date, timezone string) (models.DayPlan, error)

	Slots(ctx context.Context, dayPlanID, date string) ([]models.Slot, error)
	CreateSlot(ctx context.Context, payload api.SlotCreate) (models.Slot, error)
	StartSlot(ctx context.Context, id string) error
	FinishSlot(ctx context.Context, id string) error
	DeleteSlot(ctx context.Context, id string) error

	CreateRating(ctx context.Context, r api.RatingCreate) error
}

// Phase is the session lifecycle state.
type Phase int

const (
	Anonymous Phase = iota
	Authenticating
	Authenticated
)

// TimerPhase is the countdown lifecycle for the active slot.
type TimerPhase string

const (
	TimerNone      TimerPhase = ""
	TimerIdle      TimerPhase = "idle"
	TimerRunning   TimerPhase = "running"
	TimerPaused    TimerPhase = "paused"
	TimerCompleted TimerPhase = "completed"
)

// Timer is the active countdown. Completed is terminal for the slot instance.
type Timer struct {
	SlotID       string
	Phase        TimerPhase
	RemainingSec int
	TotalSec     int
}

// State is the whole application state. Commands replace fields wholesale;
// the TUI treats it as read-only.
type State struct {
	Phase     Phase
	AuthError string
	Notice    string

	Practices   []models.Practice
	Plan        *models.DayPlan
	Slots       []models.Slot
	History     []models.HistoryEntry
	Assessments []models.Assessment

	Timer Timer
}

// MutationPolicy names how a command treats remote failure. It is a property
// of the command, decided once, not per callsite.
type MutationPolicy int

const (
	// Pessimistic rolls back the local optimistic change when the remote
	// call fails.
	Pessimistic MutationPolicy = iota
	// OptimisticTolerant keeps the local change and logs the remote failure,
	// accepting local/remote divergence.
	OptimisticTolerant
)

// Policies per command. Practice selection is the one mutation where the
// remote call is the authority for correctness.
var Policies = map[string]MutationPolicy{
	"toggle_practice":   Pessimistic,
	"set_duration":      Pessimistic,
	"delete_practice":   Pessimistic,
	"generate_plan":     OptimisticTolerant,
	"submit_assessment": OptimisticTolerant,
	"reset_all_data":    OptimisticTolerant,
	"start_slot":        OptimisticTolerant,
}

// Controller implements the client state machine.
type Controller struct {
	remote Remote
	mirror mirror.Store
	timers *mirror.TimerFile
	gen    *planner.Generator

	state    State
	fetchGen map[aggregate]uint64

	// now is swappable for tests (availability gates, retention stamps).
	now func() time.Time
}

func New(remote Remote, store mirror.Store, timers *mirror.TimerFile) *Controller {
	return &Controller{
		remote:   remote,
		mirror:   store,
		timers:   timers,
		gen:      planner.New(),
		fetchGen: make(map[aggregate]uint64),
		now:      time.Now,
	}
}

// State returns the current application state for rendering.
func (c *Controller) State() *State {
	return &c.state
}

func (c *Controller) today() string {
	return c.now().Format(constants.DateFormat)
}

// Bootstrap runs at startup. A persisted token pair is assumed valid with no
// upfront validation call; the first unauthorized response triggers the
// silent refresh flow instead.
func (c *Controller) Bootstrap(ctx context.Context) {
	if !c.remote.HasSession() {
		c.state.Phase = Anonymous
		return
	}
	c.state.Phase = Authenticated
	c.Reconcile(ctx, TriggerStartup)
	c.restoreTimer()
}

// Login authenticates. Validation failures surface before any network call.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if err := validation.Login(email, password); err != nil {
		c.state.AuthError = err.Error()
		return err
	}
	c.state.Phase = Authenticating
	if err := c.remote.Login(ctx, email, password); err != nil {
		c.state.Phase = Anonymous
		c.state.AuthError = loginMessage(err)
		return err
	}
	c.state.Phase = Authenticated
	c.state.AuthError = ""
	c.Reconcile(ctx, TriggerStartup)
	return nil
}

func loginMessage(err error) string {
	var se *api.StatusError
	if errors.As(err, &se) && (se.Code == 400 || se.Code == 401) {
		if se.Detail != "" {
			return se.Detail
		}
		return "invalid email or password"
	}
	return "login failed: " + err.Error()
}

// Register creates an account. The user logs in afterwards; no tokens are
// issued by registration.
func (c *Controller) Register(ctx context.Context, email, password, confirm string, terms bool) error {
	if err := validation.Registration(email, password, confirm, terms); err != nil {
		c.state.AuthError = err.Error()
		return err
	}
	c.state.Phase = Authenticating
	msg, err := c.remote.Register(ctx, email, password)
	c.state.Phase = Anonymous
	if err != nil {
		c.state.AuthError = "registration failed: " + err.Error()
		return err
	}
	c.state.AuthError = ""
	if msg == "" {
		msg = "account created, you can log in now"
	}
	c.state.Notice = msg
	return nil
}

// Logout revokes the session. Local data is kept; only ResetAllData wipes it.
func (c *Controller) Logout(ctx context.Context) {
	c.remote.Logout(ctx)
	c.state.Phase = Anonymous
	c.state.AuthError = ""
	c.resetTimer()
}

// forceAnonymous handles an unrecoverable refresh failure discovered during
// any call. Tokens are already cleared by the API client.
func (c *Controller) forceAnonymous() {
	c.state.Phase = Anonymous
	c.state.AuthError = "session expired, please log in again"
	c.resetTimer()
}

// remoteFailed applies the error policy shared by optimistic-tolerant
// commands: session expiry forces logout, everything else is logged and
// tolerated. Returns true when the session ended.
func (c *Controller) remoteFailed(cmd string, err error) bool {
	if errors.Is(err, api.ErrSessionExpired) {
		c.forceAnonymous()
		return true
	}
	logger.Warn("remote call failed, keeping local state", "command", cmd, "err", err)
	return false
}

// ResetAllData is the danger-zone action: it purges remote practices and
// slots best-effort and wipes the local mirror. The TUI requires explicit
// confirmation before calling it.
func (c *Controller) ResetAllData(ctx context.Context) {
	for _, p := range c.state.Practices {
		if err := c.remote.DeletePractice(ctx, p.ID); err != nil {
			if c.remoteFailed("reset_all_data", err) {
				break
			}
		}
	}
	if c.state.Phase == Authenticated {
		for _, s := range c.state.Slots {
			if err := c.remote.DeleteSlot(ctx, s.ID); err != nil {
				if c.remoteFailed("reset_all_data", err) {
					break
				}
			}
		}
	}
	if err := c.mirror.Clear(); err != nil {
		logger.Error("clear mirror", "err", err)
	}
	c.state.Practices = nil
	c.state.Plan = nil
	c.state.Slots = nil
	c.state.History = nil
	c.state.Assessments = nil
	c.resetTimer()
}
