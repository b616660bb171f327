package mirror

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/placebolab/coach/internal/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPracticesRoundtrip(t *testing.T) {
	s := testStore(t)
	in := []models.Practice{
		{ID: "p1", Title: "Box breathing", Description: "Four counts each way", DefaultDurationSec: 300, Selected: true},
		{ID: "p2", Title: "Neck stretch", DefaultDurationSec: 120},
	}
	if err := s.SavePractices(in); err != nil {
		t.Fatal(err)
	}

	out, err := s.LoadPractices()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d practices", len(out))
	}
	if out[0].ID != "p1" || !out[0].Selected || out[0].DefaultDurationSec != 300 {
		t.Errorf("first practice = %+v", out[0])
	}
	if out[1].Selected {
		t.Error("second practice should not be selected")
	}
}

// Saves are replace-all: a second save must not leave stale rows behind.
func TestSaveReplacesWholeAggregate(t *testing.T) {
	s := testStore(t)
	if err := s.SavePractices([]models.Practice{{ID: "p1", Title: "Old"}, {ID: "p2", Title: "Gone"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePractices([]models.Practice{{ID: "p1", Title: "New"}}); err != nil {
		t.Fatal(err)
	}

	out, err := s.LoadPractices()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Title != "New" {
		t.Errorf("expected only the new row, got %+v", out)
	}
}

func TestSlotsRoundtripOrdering(t *testing.T) {
	s := testStore(t)
	scheduled := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	in := []models.Slot{
		{ID: "a", Variant: models.VariantControl, Status: models.SlotPlanned, TimeOfDay: models.Morning,
			DurationSec: 120, Date: "2026-01-14", Instruction: "Sit.", ScheduledAt: scheduled},
		{ID: "b", PracticeID: "p1", Variant: models.VariantDo, Status: models.SlotDone, TimeOfDay: models.Evening,
			DurationSec: 300, Completed: true, Date: "2026-01-15", Instruction: "Sit.", ScheduledAt: scheduled},
	}
	if err := s.SaveSlots(in); err != nil {
		t.Fatal(err)
	}

	out, err := s.LoadSlots()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d slots", len(out))
	}
	if out[0].ID != "b" {
		t.Errorf("expected newest date first, got %s", out[0].ID)
	}
	if !out[0].Completed || out[0].Variant != models.VariantDo || out[0].PracticeID != "p1" {
		t.Errorf("first slot = %+v", out[0])
	}
	if !out[0].ScheduledAt.Equal(scheduled) {
		t.Errorf("scheduled_at = %v", out[0].ScheduledAt)
	}
}

func TestHistoryRoundtrip(t *testing.T) {
	s := testStore(t)
	in := []models.HistoryEntry{
		{Date: "2026-01-14", Completed: 2, Slots: []models.Slot{{ID: "a", Date: "2026-01-14"}}},
	}
	if err := s.SaveHistory(in); err != nil {
		t.Fatal(err)
	}

	out, err := s.LoadHistory()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Completed != 2 || len(out[0].Slots) != 1 {
		t.Errorf("history = %+v", out)
	}
}

func TestAssessmentsRoundtrip(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2026, 1, 15, 9, 5, 0, 0, time.UTC)
	in := []models.Assessment{
		{SlotID: "s1", Mood: 8, Lightness: 6, Satisfaction: 7, Nervousness: 2, Timestamp: ts},
	}
	if err := s.SaveAssessments(in); err != nil {
		t.Fatal(err)
	}

	out, err := s.LoadAssessments()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d assessments", len(out))
	}
	a := out[0]
	if a.SlotID != "s1" || a.Mood != 8 || a.Lightness != 6 || !a.Timestamp.Equal(ts) {
		t.Errorf("assessment = %+v", a)
	}
}

func TestExpiredRowsAreInvisible(t *testing.T) {
	s := testStore(t)

	// Write with a clock 40 days in the past, read with the real one.
	s.now = func() time.Time { return time.Now().AddDate(0, 0, -40) }
	if err := s.SaveSlots([]models.Slot{{ID: "old", Variant: models.VariantControl,
		Status: models.SlotPlanned, TimeOfDay: models.Morning, Date: "2025-12-01"}}); err != nil {
		t.Fatal(err)
	}
	s.now = time.Now

	out, err := s.LoadSlots()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected expired rows hidden, got %+v", out)
	}
}

func TestClear(t *testing.T) {
	s := testStore(t)
	if err := s.SavePractices([]models.Practice{{ID: "p1", Title: "X"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAssessments([]models.Assessment{{SlotID: "s1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}

	practices, _ := s.LoadPractices()
	assessments, _ := s.LoadAssessments()
	if len(practices) != 0 || len(assessments) != 0 {
		t.Error("clear left data behind")
	}
}
