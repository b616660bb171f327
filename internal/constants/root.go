package constants

import "time"

// Screen represents the current screen of the TUI application
type Screen int

const (
	AppName            = "coach"
	DefaultKeyringUser = "session-tokens"
	DefaultConfigDir   = "~/.config/coach"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// ClockFormat is the countdown display format (MM:SS)
	ClockFormat = "04:05"

	// SlotsPerDay is the fixed size of a generated day plan
	SlotsPerDay = 6

	// MaxPractices caps how many practice templates are kept after generation
	MaxPractices = 6

	// DefaultSlotDurationSec is the duration snapshot used for control slots and
	// for practice slots whose template lookup fails
	DefaultSlotDurationSec = 120

	// NeutralInstruction is the single display text shown for every slot.
	// It never varies between DO and CONTROL slots.
	NeutralInstruction = "Follow the timer. Breathe calmly or sit comfortably."

	// HistoryRetentionDays is how long mirrored rows are trusted before a load
	// treats them as absent
	HistoryRetentionDays = 30

	// TimerStateMaxAge bounds how old a persisted in-flight timer may be and
	// still be restored
	TimerStateMaxAge = 24 * time.Hour

	// RatingMin and RatingMax bound every assessment scale
	RatingMin     = 0
	RatingMax     = 10
	RatingDefault = 5

	// MinPasswordLen is the registration password floor, checked before any
	// network call
	MinPasswordLen = 8
)

// Screens. The first block are the authenticated main tabs and must stay
// contiguous so tab cycling can use modular arithmetic.
const (
	ScreenPractices Screen = iota
	ScreenPlan
	ScreenSlot
	ScreenDashboard
	ScreenSettings

	ScreenLogin
	ScreenRegister
	ScreenAssessment
	ScreenConfirmReset
)

// NumMainTabs is the count of cycling main tabs while authenticated
const NumMainTabs = 5
