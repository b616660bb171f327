package api

import (
	"fmt"
	"time"

	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/models"
)

// Tokens is the session pair the backend issues on login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// StatusError is a non-2xx response that is not an authorization failure.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Detail)
}

// PracticePatch is a partial practice update. Nil fields are omitted from the
// request body.
type PracticePatch struct {
	Selected    *bool `json:"is_selected,omitempty"`
	DurationSec *int  `json:"duration_sec,omitempty"`
}

// SlotCreate is the payload for creating one slot directly.
type SlotCreate struct {
	DayPlan          string            `json:"day_plan"`
	PracticeTemplate string            `json:"practice_template,omitempty"`
	Variant          models.Variant    `json:"variant"`
	Status           models.SlotStatus `json:"status"`
	TimeOfDay        models.TimeOfDay  `json:"time_of_day"`
	ScheduledAtUTC   time.Time         `json:"scheduled_at_utc"`
	DurationSec      int               `json:"duration_sec_snapshot"`
	DisplayPayload   map[string]any    `json:"display_payload,omitempty"`
}

// slotDTO is the wire shape of a slot. Older server revisions reference the
// practice through user_practice instead of practice_template; both are read.
type slotDTO struct {
	ID               string            `json:"id"`
	DayPlan          string            `json:"day_plan"`
	PracticeTemplate string            `json:"practice_template"`
	UserPractice     string            `json:"user_practice"`
	Variant          models.Variant    `json:"variant"`
	Status           models.SlotStatus `json:"status"`
	TimeOfDay        models.TimeOfDay  `json:"time_of_day"`
	ScheduledAtUTC   time.Time         `json:"scheduled_at_utc"`
	DurationSec      *int              `json:"duration_sec_snapshot"`
	DisplayPayload   map[string]any    `json:"display_payload"`
}

// toModel converts a wire slot. date pins the calendar date when the caller
// knows the plan's local date; when empty it is derived from the schedule
// timestamp in local time.
func (d slotDTO) toModel(date string) models.Slot {
	practiceID := d.PracticeTemplate
	if practiceID == "" {
		practiceID = d.UserPractice
	}
	duration := constants.DefaultSlotDurationSec
	if d.DurationSec != nil && *d.DurationSec > 0 {
		duration = *d.DurationSec
	}
	instruction := constants.NeutralInstruction
	if v, ok := d.DisplayPayload["instruction"].(string); ok && v != "" {
		instruction = v
	}
	if date == "" {
		date = d.ScheduledAtUTC.Local().Format(constants.DateFormat)
	}
	return models.Slot{
		ID:          d.ID,
		PracticeID:  practiceID,
		Variant:     d.Variant,
		Status:      d.Status,
		TimeOfDay:   d.TimeOfDay,
		DurationSec: duration,
		Completed:   d.Status == models.SlotDone,
		Date:        date,
		Instruction: instruction,
		ScheduledAt: d.ScheduledAtUTC,
	}
}

// RatingCreate is the assessment payload. Lightness travels as "ease".
type RatingCreate struct {
	Slot         string `json:"slot"`
	Mood         int    `json:"mood"`
	Ease         int    `json:"ease"`
	Satisfaction int    `json:"satisfaction"`
	Nervousness  int    `json:"nervousness"`
}
