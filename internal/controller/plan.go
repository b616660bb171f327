package controller

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/placebolab/coach/internal/api"
	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/logger"
	"github.com/placebolab/coach/internal/models"
	"github.com/placebolab/coach/internal/planner"
)

const maxVisibleSlots = constants.SlotsPerDay

// TogglePractice flips a practice's rotation membership. This command is
// pessimistic: the optimistic local flip is rolled back if the remote update
// fails. Deselecting a practice also removes its unfinished slots from the
// visible plan and from history immediately.
func (c *Controller) TogglePractice(ctx context.Context, id string) error {
	idx := -1
	for i := range c.state.Practices {
		if c.state.Practices[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	p := &c.state.Practices[idx]
	p.Selected = !p.Selected
	c.mirrorPractices()

	patch := api.PracticePatch{Selected: &p.Selected}
	if _, err := c.remote.UpdatePractice(ctx, id, patch); err != nil {
		p.Selected = !p.Selected
		c.mirrorPractices()
		c.remoteFailed("toggle_practice", err)
		return err
	}

	if !p.Selected {
		c.dropPracticeSlots(id)
	}
	return nil
}

// SetPracticeDuration updates a template's default duration. Pessimistic, as
// with selection; existing slot snapshots are untouched.
func (c *Controller) SetPracticeDuration(ctx context.Context, id string, durationSec int) error {
	idx := -1
	for i := range c.state.Practices {
		if c.state.Practices[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	p := &c.state.Practices[idx]
	prev := p.DefaultDurationSec
	p.DefaultDurationSec = durationSec
	c.mirrorPractices()

	patch := api.PracticePatch{DurationSec: &durationSec}
	if _, err := c.remote.UpdatePractice(ctx, id, patch); err != nil {
		p.DefaultDurationSec = prev
		c.mirrorPractices()
		c.remoteFailed("set_duration", err)
		return err
	}
	return nil
}

// DeletePractice removes a template remotely first, then locally.
func (c *Controller) DeletePractice(ctx context.Context, id string) error {
	if err := c.remote.DeletePractice(ctx, id); err != nil {
		c.remoteFailed("delete_practice", err)
		return err
	}
	kept := c.state.Practices[:0]
	for _, p := range c.state.Practices {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	c.state.Practices = kept
	c.mirrorPractices()
	c.dropPracticeSlots(id)
	return nil
}

// GeneratePractices asks the backend's generation collaborator for templates
// from a free-text prompt, then enforces the at-most-six templates rule:
// the oldest beyond the cap are deleted, remotely best-effort.
func (c *Controller) GeneratePractices(ctx context.Context, prompt string) error {
	generated, err := c.remote.GeneratePractices(ctx, prompt)
	if err != nil {
		c.remoteFailed("generate_practices", err)
		return err
	}

	merged := append([]models.Practice{}, c.state.Practices...)
	for _, g := range generated {
		exists := false
		for _, p := range merged {
			if p.ID == g.ID {
				exists = true
				break
			}
		}
		if !exists {
			merged = append(merged, g)
		}
	}
	for len(merged) > constants.MaxPractices {
		oldest := merged[0]
		merged = merged[1:]
		if err := c.remote.DeletePractice(ctx, oldest.ID); err != nil {
			logger.Warn("trim practice", "id", oldest.ID, "err", err)
		}
		c.dropPracticeSlots(oldest.ID)
	}
	c.state.Practices = merged
	c.mirrorPractices()
	return nil
}

// GeneratePlan produces today's six-slot blinded plan.
//
// The command is optimistic-tolerant: the plan is built locally first, remote
// persistence is attempted afterwards, and remote failures on slot creation
// are logged without aborting; the local plan is still shown. Generation is
// idempotent per day at the plan level (fetch-or-create) and replacing at the
// slot level: regeneration clears the previous set rather than appending.
func (c *Controller) GeneratePlan(ctx context.Context) error {
	today := c.today()
	slots, err := c.gen.Plan(today, c.state.Practices)
	if err != nil {
		// Validation refusal; the remote layer was never called.
		return err
	}

	plan, planErr := c.remote.CreateDayPlan(ctx, today, c.timezone())
	switch {
	case planErr == nil:
		c.state.Plan = &plan
		// Regeneration replaces: clear this plan's previous remote slots.
		if previous, err := c.remote.Slots(ctx, plan.ID, today); err == nil {
			for _, s := range previous {
				if err := c.remote.DeleteSlot(ctx, s.ID); err != nil {
					logger.Warn("clear previous slot", "id", s.ID, "err", err)
				}
			}
		}
		for i := range slots {
			created, err := c.remote.CreateSlot(ctx, slotCreatePayload(plan.ID, slots[i]))
			if err != nil {
				logger.Warn("persist slot failed, keeping local copy", "err", err)
				continue
			}
			// Adopt the server-assigned id so later start/finish calls line up.
			slots[i].ID = created.ID
		}
	case c.remoteFailed("generate_plan", planErr):
		return planErr
	default:
		// Offline fallback: the plan lives under a client-side id until a
		// later generation reaches the server.
		logger.Warn("day plan not persisted, keeping local plan", "err", planErr)
		c.state.Plan = &models.DayPlan{
			ID:       "local-" + uuid.NewString(),
			Date:     today,
			Timezone: c.timezone(),
		}
	}

	// Retention across regeneration cycles: anything beyond the six most
	// recent goes, locally and best-effort remotely.
	combined := append(slotsExcludingDate(c.state.Slots, today), slots...)
	keep, dropped := planner.TrimToNewest(combined, maxVisibleSlots)
	for _, s := range dropped {
		if err := c.remote.DeleteSlot(ctx, s.ID); err != nil {
			logger.Warn("retention delete", "id", s.ID, "err", err)
		}
	}
	c.setVisibleSlots(keep)
	c.rebuildHistory()
	return nil
}

func slotCreatePayload(planID string, s models.Slot) api.SlotCreate {
	return api.SlotCreate{
		DayPlan:          planID,
		PracticeTemplate: s.PracticeID,
		Variant:          s.Variant,
		Status:           s.Status,
		TimeOfDay:        s.TimeOfDay,
		ScheduledAtUTC:   s.ScheduledAt,
		DurationSec:      s.DurationSec,
		DisplayPayload:   map[string]any{"instruction": s.Instruction},
	}
}

func slotsExcludingDate(slots []models.Slot, date string) []models.Slot {
	var out []models.Slot
	for _, s := range slots {
		if s.Date != date {
			out = append(out, s)
		}
	}
	return out
}

// dropPracticeSlots removes a practice's unfinished slots from the visible
// plan and from history. Local-only: completed slots and their assessments
// are kept.
func (c *Controller) dropPracticeSlots(practiceID string) {
	var kept []models.Slot
	for _, s := range c.state.Slots {
		if s.PracticeID == practiceID && !s.Completed {
			continue
		}
		kept = append(kept, s)
	}
	c.setVisibleSlots(kept)

	for i := range c.state.History {
		var slots []models.Slot
		for _, s := range c.state.History[i].Slots {
			if s.PracticeID == practiceID && !s.Completed {
				continue
			}
			slots = append(slots, s)
		}
		c.state.History[i].Slots = slots
	}
	if err := c.mirror.SaveHistory(c.state.History); err != nil {
		logger.Warn("mirror history", "err", err)
	}
}

func (c *Controller) mirrorPractices() {
	if err := c.mirror.SavePractices(c.state.Practices); err != nil {
		logger.Warn("mirror practices", "err", err)
	}
}

func (c *Controller) timezone() string {
	if name := time.Local.String(); name != "" {
		return name
	}
	return "UTC"
}
