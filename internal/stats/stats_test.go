package stats

import (
	"math"
	"testing"

	"github.com/placebolab/coach/internal/models"
)

func ratedSlots() ([]models.Slot, []models.Assessment, []models.Practice) {
	slots := []models.Slot{
		{ID: "s1", Variant: models.VariantDo, PracticeID: "p1", TimeOfDay: models.Morning},
		{ID: "s2", Variant: models.VariantControl, TimeOfDay: models.Morning},
		{ID: "s3", Variant: models.VariantDo, PracticeID: "p1", TimeOfDay: models.Evening},
		{ID: "s4", Variant: models.VariantControl, TimeOfDay: models.Afternoon},
	}
	assessments := []models.Assessment{
		{SlotID: "s1", Mood: 8, Lightness: 6},
		{SlotID: "s2", Mood: 4, Lightness: 2},
		{SlotID: "s3", Mood: 6, Lightness: 4},
		{SlotID: "s4", Mood: 6, Lightness: 4},
	}
	practices := []models.Practice{
		{ID: "p1", Title: "Box breathing"},
	}
	return slots, assessments, practices
}

func TestSummariesNilBelowMinimum(t *testing.T) {
	slots, assessments, practices := ratedSlots()
	if got := Summaries(slots, assessments[:2], practices); got != nil {
		t.Errorf("expected nil below %d assessments, got %v", MinAssessments, got)
	}
}

func TestSummariesDelta(t *testing.T) {
	slots, assessments, practices := ratedSlots()
	got := Summaries(slots, assessments, practices)
	if len(got) != 1 {
		t.Fatalf("expected one summary, got %d", len(got))
	}

	// DO mean (8+6)/2 = 7, control mean (4+6)/2 = 5.
	s := got[0]
	if s.PracticeID != "p1" || s.Title != "Box breathing" {
		t.Errorf("wrong practice: %+v", s)
	}
	if math.Abs(s.MoodDelta-2.0) > 1e-9 {
		t.Errorf("MoodDelta = %f, want 2.0", s.MoodDelta)
	}
	if s.Samples != 4 {
		t.Errorf("Samples = %d, want 4", s.Samples)
	}
	if s.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %s, want low", s.Confidence)
	}
}

func TestSummariesSkipsUnratedSlots(t *testing.T) {
	slots, assessments, practices := ratedSlots()
	slots = append(slots, models.Slot{ID: "s5", Variant: models.VariantDo, PracticeID: "p1"})

	got := Summaries(slots, assessments, practices)
	if len(got) != 1 || got[0].Samples != 4 {
		t.Errorf("unrated slot leaked into the aggregate: %+v", got)
	}
}

func TestConfidenceThresholds(t *testing.T) {
	tests := []struct {
		samples int
		want    Confidence
	}{
		{3, ConfidenceLow},
		{4, ConfidenceLow},
		{5, ConfidenceMedium},
		{9, ConfidenceMedium},
		{10, ConfidenceHigh},
	}
	for _, tt := range tests {
		if got := confidenceFor(tt.samples); got != tt.want {
			t.Errorf("confidenceFor(%d) = %s, want %s", tt.samples, got, tt.want)
		}
	}
}

func TestByTimeOfDay(t *testing.T) {
	slots, assessments, _ := ratedSlots()
	got := ByTimeOfDay(slots, assessments, MetricMood)

	// Morning (8+4)/2 = 6, afternoon 6, evening 6.
	if math.Abs(got[models.Morning]-6.0) > 1e-9 {
		t.Errorf("morning = %f, want 6.0", got[models.Morning])
	}
	if math.Abs(got[models.Afternoon]-6.0) > 1e-9 {
		t.Errorf("afternoon = %f, want 6.0", got[models.Afternoon])
	}

	lightness := ByTimeOfDay(slots, assessments, MetricLightness)
	if math.Abs(lightness[models.Morning]-4.0) > 1e-9 {
		t.Errorf("morning lightness = %f, want 4.0", lightness[models.Morning])
	}
}

func TestByTimeOfDayOmitsEmptyBuckets(t *testing.T) {
	slots := []models.Slot{{ID: "s1", TimeOfDay: models.Morning}}
	got := ByTimeOfDay(slots, nil, MetricMood)
	if len(got) != 0 {
		t.Errorf("expected no buckets without ratings, got %v", got)
	}
}
