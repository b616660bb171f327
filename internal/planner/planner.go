// Package planner builds the blinded six-slot day plan.
package planner

import (
	"io"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/models"
	"github.com/placebolab/coach/internal/validation"
)

var buckets = []models.TimeOfDay{models.Morning, models.Afternoon, models.Evening}

// Generator assigns each of the six daily slots to either a selected practice
// (DO) or nothing (CONTROL).
//
// Arm assignment is the counter-balanced policy: a slot is DO whenever the
// running DO count is not ahead of the CONTROL count, which lands the split at
// 3/3 and front-loads DO on ties. An earlier revision drew CONTROL with a flat
// 30% probability; the counter-balanced behavior is the one kept.
type Generator struct {
	rng     *rand.Rand
	entropy io.Reader
	now     func() time.Time
}

func New() *Generator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Generator{
		rng:     rng,
		entropy: ulid.Monotonic(rng, 0),
		now:     time.Now,
	}
}

// Plan produces exactly six slots for the given local date. It refuses with a
// validation error when no practice is selected, before any remote call can
// happen. Durations are snapshots: a later template edit does not touch the
// produced slots.
func (g *Generator) Plan(date string, practices []models.Practice) ([]models.Slot, error) {
	var selected []models.Practice
	for _, p := range practices {
		if p.Selected {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return nil, validation.ErrNoPracticeSelected
	}

	slots := make([]models.Slot, 0, constants.SlotsPerDay)
	doCount, controlCount := 0, 0
	for i := 0; i < constants.SlotsPerDay; i++ {
		slot := models.Slot{
			Variant:     models.VariantControl,
			Status:      models.SlotPlanned,
			TimeOfDay:   buckets[g.rng.Intn(len(buckets))],
			DurationSec: constants.DefaultSlotDurationSec,
			Date:        date,
			Instruction: constants.NeutralInstruction,
			ScheduledAt: g.now().UTC(),
		}
		if doCount <= controlCount {
			practice := selected[g.rng.Intn(len(selected))]
			slot.Variant = models.VariantDo
			slot.PracticeID = practice.ID
			if practice.DefaultDurationSec > 0 {
				slot.DurationSec = practice.DefaultDurationSec
			}
			doCount++
		} else {
			controlCount++
		}
		slot.ID = g.newID()
		slots = append(slots, slot)
	}
	return slots, nil
}

// newID returns a ULID. IDs are monotonic within a generation run, which the
// retention ordering relies on.
func (g *Generator) newID() string {
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// TrimToNewest keeps at most n slots, newest first by (date desc, id desc),
// and returns the kept and dropped sets. Dropped slots are deleted locally
// and, best-effort, remotely by the caller.
func TrimToNewest(slots []models.Slot, n int) (keep, dropped []models.Slot) {
	sorted := make([]models.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) <= n {
		return sorted, nil
	}
	return sorted[:n], sorted[n:]
}
