package models

import "time"

type Variant string

const (
	VariantDo      Variant = "DO"
	VariantControl Variant = "CONTROL"
)

type SlotStatus string

const (
	SlotPlanned    SlotStatus = "PLANNED"
	SlotInProgress SlotStatus = "IN_PROGRESS"
	SlotDone       SlotStatus = "DONE"
)

type TimeOfDay string

const (
	Morning   TimeOfDay = "MORNING"
	Afternoon TimeOfDay = "AFTERNOON"
	Evening   TimeOfDay = "EVENING"
)

// Contains reports whether the given wall-clock hour falls inside the bucket's
// window. Morning is 05:00-12:00, afternoon 12:00-18:00, evening wraps
// 18:00-05:00.
func (t TimeOfDay) Contains(hour int) bool {
	switch t {
	case Morning:
		return hour >= 5 && hour < 12
	case Afternoon:
		return hour >= 12 && hour < 18
	case Evening:
		return hour >= 18 || hour < 5
	}
	return false
}

// Slot is one scheduled timed session. PracticeID is empty for a control slot.
// DurationSec is a snapshot copied at creation and does not track later
// template edits. Instruction is frozen at creation and identical for both
// variants.
type Slot struct {
	ID          string     `json:"id"`
	PracticeID  string     `json:"practice_id,omitempty"`
	Variant     Variant    `json:"variant"`
	Status      SlotStatus `json:"status"`
	TimeOfDay   TimeOfDay  `json:"time_of_day"`
	DurationSec int        `json:"duration_sec_snapshot"`
	Completed   bool       `json:"completed"`
	Date        string     `json:"date"` // YYYY-MM-DD
	Instruction string     `json:"instruction"`
	ScheduledAt time.Time  `json:"scheduled_at_utc"`
}

// DayPlan is the per-(user, date) container for a day's slots. There is at
// most one per date; creation goes through fetch-or-create.
type DayPlan struct {
	ID       string `json:"id"`
	Date     string `json:"local_date"`
	Timezone string `json:"timezone"`
}
