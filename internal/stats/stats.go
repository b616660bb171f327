// Package stats computes the dashboard aggregates: how each practice's slots
// compare against the neutral control slots.
package stats

import (
	"sort"

	"github.com/placebolab/coach/internal/models"
)

// MinAssessments is how many ratings must exist before any summary is shown.
const MinAssessments = 3

// Metric selects which rating scale an aggregate uses.
type Metric string

const (
	MetricMood         Metric = "mood"
	MetricLightness    Metric = "lightness"
	MetricSatisfaction Metric = "satisfaction"
	MetricNervousness  Metric = "nervousness"
)

// Confidence is a coarse sample-size label, not a statistical test.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// PracticeSummary compares one practice's completed slots against the
// control slots on the mood scale.
type PracticeSummary struct {
	PracticeID string
	Title      string
	MoodDelta  float64
	Samples    int
	Confidence Confidence
}

func metricValue(a models.Assessment, m Metric) float64 {
	switch m {
	case MetricMood:
		return float64(a.Mood)
	case MetricLightness:
		return float64(a.Lightness)
	case MetricSatisfaction:
		return float64(a.Satisfaction)
	case MetricNervousness:
		return float64(a.Nervousness)
	}
	return 0
}

func confidenceFor(samples int) Confidence {
	switch {
	case samples >= 10:
		return ConfidenceHigh
	case samples >= 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// index assessments by slot for joins.
func bySlot(assessments []models.Assessment) map[string]models.Assessment {
	m := make(map[string]models.Assessment, len(assessments))
	for _, a := range assessments {
		m[a.SlotID] = a
	}
	return m
}

// Summaries returns a per-practice comparison against control slots, ordered
// by title. It returns nil until MinAssessments ratings exist.
func Summaries(slots []models.Slot, assessments []models.Assessment, practices []models.Practice) []PracticeSummary {
	if len(assessments) < MinAssessments {
		return nil
	}
	rated := bySlot(assessments)

	controlSum, controlN := 0.0, 0
	practiceSums := make(map[string]float64)
	practiceNs := make(map[string]int)
	for _, s := range slots {
		a, ok := rated[s.ID]
		if !ok {
			continue
		}
		if s.Variant == models.VariantControl || s.PracticeID == "" {
			controlSum += float64(a.Mood)
			controlN++
			continue
		}
		practiceSums[s.PracticeID] += float64(a.Mood)
		practiceNs[s.PracticeID]++
	}

	controlMean := 0.0
	if controlN > 0 {
		controlMean = controlSum / float64(controlN)
	}

	var out []PracticeSummary
	for _, p := range practices {
		n := practiceNs[p.ID]
		if n == 0 {
			continue
		}
		mean := practiceSums[p.ID] / float64(n)
		out = append(out, PracticeSummary{
			PracticeID: p.ID,
			Title:      p.Title,
			MoodDelta:  mean - controlMean,
			Samples:    n + controlN,
			Confidence: confidenceFor(n + controlN),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// ByTimeOfDay returns the mean of one metric per bucket over rated slots.
// Buckets with no rated slots are absent from the result.
func ByTimeOfDay(slots []models.Slot, assessments []models.Assessment, metric Metric) map[models.TimeOfDay]float64 {
	rated := bySlot(assessments)
	sums := make(map[models.TimeOfDay]float64)
	counts := make(map[models.TimeOfDay]int)
	for _, s := range slots {
		a, ok := rated[s.ID]
		if !ok {
			continue
		}
		sums[s.TimeOfDay] += metricValue(a, metric)
		counts[s.TimeOfDay]++
	}
	out := make(map[models.TimeOfDay]float64, len(sums))
	for bucket, sum := range sums {
		out[bucket] = sum / float64(counts[bucket])
	}
	return out
}
