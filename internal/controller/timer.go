package controller

import (
	"context"

	"github.com/placebolab/coach/internal/api"
	"github.com/placebolab/coach/internal/logger"
	"github.com/placebolab/coach/internal/mirror"
	"github.com/placebolab/coach/internal/models"
	"github.com/placebolab/coach/internal/validation"
)

// SelectSlot arms the countdown for a slot. The availability gate runs before
// any state transition: a completed slot cannot be restarted, and a slot may
// only be entered while the wall clock is inside its time-of-day window.
func (c *Controller) SelectSlot(id string) error {
	slot := c.findSlot(id)
	if slot == nil {
		return nil
	}
	if slot.Completed {
		return validation.ErrSlotCompleted
	}
	if !slot.TimeOfDay.Contains(c.now().Hour()) {
		return validation.ErrSlotOutsideWindow
	}
	c.state.Timer = Timer{
		SlotID:       id,
		Phase:        TimerIdle,
		RemainingSec: slot.DurationSec,
		TotalSec:     slot.DurationSec,
	}
	c.saveTimer()
	return nil
}

// StartTimer moves idle or paused to running. On the first start the backend
// is notified best-effort and the slot is marked in progress locally.
func (c *Controller) StartTimer(ctx context.Context) {
	t := &c.state.Timer
	switch t.Phase {
	case TimerIdle:
		t.Phase = TimerRunning
		if slot := c.findSlot(t.SlotID); slot != nil && slot.Status == models.SlotPlanned {
			slot.Status = models.SlotInProgress
			c.setVisibleSlots(c.state.Slots)
			if err := c.remote.StartSlot(ctx, t.SlotID); err != nil {
				c.remoteFailed("start_slot", err)
			}
		}
	case TimerPaused:
		t.Phase = TimerRunning
	default:
		return
	}
	c.saveTimer()
}

// PauseTimer freezes the countdown. Resumable.
func (c *Controller) PauseTimer() {
	if c.state.Timer.Phase == TimerRunning {
		c.state.Timer.Phase = TimerPaused
		c.saveTimer()
	}
}

// Tick applies one second of countdown. Returns true when the timer just
// completed, which opens the assessment form. The caller owns the single tick
// source; the controller only consumes ticks while running.
func (c *Controller) Tick() (completed bool) {
	t := &c.state.Timer
	if t.Phase != TimerRunning {
		return false
	}
	t.RemainingSec--
	if t.RemainingSec <= 0 {
		t.RemainingSec = 0
		t.Phase = TimerCompleted
		c.saveTimer()
		return true
	}
	c.saveTimer()
	return false
}

// FinishTimer is the explicit "finish" control: the countdown ends now and
// the assessment opens regardless of remaining time.
func (c *Controller) FinishTimer() {
	t := &c.state.Timer
	if t.Phase == TimerNone || t.Phase == TimerCompleted {
		return
	}
	t.Phase = TimerCompleted
	c.saveTimer()
}

// SubmitAssessment records the one-and-only assessment for the active slot,
// marks it completed, folds it into history, and notifies the backend
// best-effort. Completion is one-way: nothing un-completes a slot.
func (c *Controller) SubmitAssessment(ctx context.Context, mood, lightness, satisfaction, nervousness int) error {
	for _, v := range []int{mood, lightness, satisfaction, nervousness} {
		if err := validation.Rating(v); err != nil {
			return err
		}
	}
	slot := c.findSlot(c.state.Timer.SlotID)
	if slot == nil {
		return nil
	}
	if slot.Completed {
		return validation.ErrAssessmentSubmitted
	}

	assessment := models.Assessment{
		SlotID:       slot.ID,
		Mood:         mood,
		Lightness:    lightness,
		Satisfaction: satisfaction,
		Nervousness:  nervousness,
		Timestamp:    c.now(),
	}
	c.state.Assessments = append(c.state.Assessments, assessment)
	slot.Completed = true
	slot.Status = models.SlotDone
	c.setVisibleSlots(c.state.Slots)
	c.rebuildHistory()
	if err := c.mirror.SaveAssessments(c.state.Assessments); err != nil {
		logger.Warn("mirror assessments", "err", err)
	}

	// Optimistic-tolerant remote persistence: the local record stands even
	// if either call fails.
	if err := c.remote.FinishSlot(ctx, slot.ID); err != nil {
		if c.remoteFailed("submit_assessment", err) {
			return nil
		}
	}
	rating := ratingPayload(assessment)
	if err := c.remote.CreateRating(ctx, rating); err != nil {
		c.remoteFailed("submit_assessment", err)
	}

	c.resetTimer()
	return nil
}

// restoreTimer brings back an in-flight countdown saved within the last 24
// hours, re-entering it paused.
func (c *Controller) restoreTimer() {
	if c.timers == nil {
		return
	}
	snap, err := c.timers.Load()
	if err != nil {
		logger.Warn("load timer state", "err", err)
		return
	}
	if snap == nil {
		return
	}
	slot := c.findSlot(snap.SlotID)
	if slot == nil || slot.Completed {
		c.timers.Clear()
		return
	}
	phase := TimerPhase(snap.Phase)
	if phase == TimerRunning {
		phase = TimerPaused
	}
	c.state.Timer = Timer{
		SlotID:       snap.SlotID,
		Phase:        phase,
		RemainingSec: snap.RemainingSec,
		TotalSec:     slot.DurationSec,
	}
}

func (c *Controller) saveTimer() {
	if c.timers == nil {
		return
	}
	t := c.state.Timer
	err := c.timers.Save(mirror.TimerSnapshot{
		SlotID:       t.SlotID,
		RemainingSec: t.RemainingSec,
		Phase:        string(t.Phase),
	})
	if err != nil {
		logger.Warn("save timer state", "err", err)
	}
}

func (c *Controller) resetTimer() {
	c.state.Timer = Timer{}
	if c.timers != nil {
		if err := c.timers.Clear(); err != nil {
			logger.Warn("clear timer state", "err", err)
		}
	}
}

func (c *Controller) findSlot(id string) *models.Slot {
	for i := range c.state.Slots {
		if c.state.Slots[i].ID == id {
			return &c.state.Slots[i]
		}
	}
	return nil
}

// ratingPayload maps the client assessment onto the wire rating; lightness
// travels as "ease".
func ratingPayload(a models.Assessment) api.RatingCreate {
	return api.RatingCreate{
		Slot:         a.SlotID,
		Mood:         a.Mood,
		Ease:         a.Lightness,
		Satisfaction: a.Satisfaction,
		Nervousness:  a.Nervousness,
	}
}
