package controller

import (
	"context"
	"sort"

	"github.com/placebolab/coach/internal/logger"
	"github.com/placebolab/coach/internal/models"
)

// Trigger names why a reconciliation pass runs. It only affects logging.
type Trigger string

const (
	TriggerStartup      Trigger = "startup"
	TriggerScreenChange Trigger = "screen_change"
	TriggerFocus        Trigger = "focus"
)

type aggregate string

const (
	aggPractices aggregate = "practices"
	aggSlots     aggregate = "slots"
	aggHistory   aggregate = "history"
)

// beginFetch bumps and returns the fetch generation for an aggregate. A
// response applied under an older generation is stale and dropped, so rapid
// navigation cannot overwrite fresh data with a slow earlier response.
func (c *Controller) beginFetch(agg aggregate) uint64 {
	c.fetchGen[agg]++
	return c.fetchGen[agg]
}

func (c *Controller) currentGen(agg aggregate) uint64 {
	return c.fetchGen[agg]
}

// ApplyPractices installs a fetched practice list unless it is stale.
func (c *Controller) ApplyPractices(gen uint64, practices []models.Practice) bool {
	if gen != c.currentGen(aggPractices) {
		logger.Debug("dropping stale practices response", "gen", gen)
		return false
	}
	c.state.Practices = practices
	if err := c.mirror.SavePractices(practices); err != nil {
		logger.Warn("mirror practices", "err", err)
	}
	return true
}

// ApplySlots installs today's fetched slots unless stale. The visible set is
// capped to the six most recent slots regardless of what the server returned.
func (c *Controller) ApplySlots(gen uint64, plan *models.DayPlan, slots []models.Slot) bool {
	if gen != c.currentGen(aggSlots) {
		logger.Debug("dropping stale slots response", "gen", gen)
		return false
	}
	c.state.Plan = plan
	c.setVisibleSlots(slots)
	return true
}

// ApplyHistory installs the fetched history unless stale.
func (c *Controller) ApplyHistory(gen uint64, entries []models.HistoryEntry) bool {
	if gen != c.currentGen(aggHistory) {
		logger.Debug("dropping stale history response", "gen", gen)
		return false
	}
	c.state.History = entries
	if err := c.mirror.SaveHistory(entries); err != nil {
		logger.Warn("mirror history", "err", err)
	}
	return true
}

// Reconcile decides, per aggregate independently, whether to trust the local
// mirror or re-fetch from the backend. The policy is cache-first and
// non-validating: a non-empty cached copy wins and the remote is not
// consulted, so staleness is possible and accepted.
func (c *Controller) Reconcile(ctx context.Context, trigger Trigger) {
	if c.state.Phase != Authenticated {
		return
	}
	logger.Debug("reconcile", "trigger", trigger)

	c.reconcilePractices(ctx)
	c.reconcileSlots(ctx)
	c.reconcileHistory(ctx)
	c.loadAssessments()
}

func (c *Controller) reconcilePractices(ctx context.Context) {
	if cached, err := c.mirror.LoadPractices(); err == nil && len(cached) > 0 {
		c.state.Practices = cached
		return
	}
	gen := c.beginFetch(aggPractices)
	practices, err := c.remote.Practices(ctx)
	if err != nil {
		c.remoteFailed("reconcile_practices", err)
		return
	}
	c.ApplyPractices(gen, practices)
}

func (c *Controller) reconcileSlots(ctx context.Context) {
	today := c.today()
	if cached, err := c.mirror.LoadSlots(); err == nil {
		var todays []models.Slot
		for _, s := range cached {
			if s.Date == today {
				todays = append(todays, s)
			}
		}
		if len(todays) > 0 {
			c.state.Slots = capVisible(todays)
			// The plan itself is not mirrored; a header-only copy keeps the
			// date visible after a restart. The id stays empty until the
			// remote plan is seen.
			if c.state.Plan == nil {
				c.state.Plan = &models.DayPlan{Date: today, Timezone: c.timezone()}
			}
			return
		}
	}

	gen := c.beginFetch(aggSlots)
	plan, err := c.remote.DayPlanByDate(ctx, today)
	if err != nil {
		c.remoteFailed("reconcile_slots", err)
		return
	}
	if plan == nil {
		c.ApplySlots(gen, nil, nil)
		return
	}
	slots, err := c.remote.Slots(ctx, plan.ID, today)
	if err != nil {
		c.remoteFailed("reconcile_slots", err)
		return
	}
	c.ApplySlots(gen, plan, slots)
}

func (c *Controller) reconcileHistory(ctx context.Context) {
	if cached, err := c.mirror.LoadHistory(); err == nil && len(cached) > 0 {
		c.state.History = cached
		return
	}
	gen := c.beginFetch(aggHistory)
	all, err := c.remote.Slots(ctx, "", "")
	if err != nil {
		c.remoteFailed("reconcile_history", err)
		return
	}
	c.ApplyHistory(gen, buildHistory(all))
}

func (c *Controller) loadAssessments() {
	if cached, err := c.mirror.LoadAssessments(); err == nil && len(cached) > 0 {
		c.state.Assessments = cached
	}
}

// setVisibleSlots replaces today's visible plan and mirrors it.
func (c *Controller) setVisibleSlots(slots []models.Slot) {
	c.state.Slots = capVisible(slots)
	if err := c.mirror.SaveSlots(c.state.Slots); err != nil {
		logger.Warn("mirror slots", "err", err)
	}
}

// capVisible enforces the six-most-recent cap on what is shown, in case
// older slots leak through a fetch.
func capVisible(slots []models.Slot) []models.Slot {
	sorted := make([]models.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > maxVisibleSlots {
		sorted = sorted[:maxVisibleSlots]
	}
	// Oldest first for display.
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}

// buildHistory derives per-date entries from a flat slot list, newest date
// first.
func buildHistory(slots []models.Slot) []models.HistoryEntry {
	byDate := make(map[string][]models.Slot)
	for _, s := range slots {
		byDate[s.Date] = append(byDate[s.Date], s)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	entries := make([]models.HistoryEntry, 0, len(dates))
	for _, d := range dates {
		completed := 0
		for _, s := range byDate[d] {
			if s.Completed {
				completed++
			}
		}
		entries = append(entries, models.HistoryEntry{
			Date:      d,
			Slots:     byDate[d],
			Completed: completed,
		})
	}
	return entries
}

// rebuildHistory refreshes the derived history from the visible slots and
// whatever older entries already exist, then mirrors it.
func (c *Controller) rebuildHistory() {
	merged := make(map[string][]models.Slot)
	for _, e := range c.state.History {
		if e.Date != c.today() {
			merged[e.Date] = e.Slots
		}
	}
	flat := make([]models.Slot, 0)
	for _, slots := range merged {
		flat = append(flat, slots...)
	}
	flat = append(flat, c.state.Slots...)
	c.state.History = buildHistory(flat)
	if err := c.mirror.SaveHistory(c.state.History); err != nil {
		logger.Warn("mirror history", "err", err)
	}
}
