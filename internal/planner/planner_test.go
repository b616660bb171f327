package planner

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/models"
	"github.com/placebolab/coach/internal/validation"
)

func testGenerator(seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		rng:     rng,
		entropy: ulid.Monotonic(rng, 0),
		now:     func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) },
	}
}

func selectedPractices() []models.Practice {
	return []models.Practice{
		{ID: "p1", Title: "Box breathing", DefaultDurationSec: 300, Selected: true},
		{ID: "p2", Title: "Neck stretch", Selected: true},
		{ID: "p3", Title: "Ignored", Selected: false},
	}
}

func TestPlanRefusesWithoutSelection(t *testing.T) {
	g := testGenerator(1)
	practices := []models.Practice{
		{ID: "p1", Title: "Unselected", Selected: false},
	}

	slots, err := g.Plan("2026-01-15", practices)
	if !errors.Is(err, validation.ErrNoPracticeSelected) {
		t.Fatalf("expected ErrNoPracticeSelected, got %v", err)
	}
	if slots != nil {
		t.Errorf("expected no slots, got %d", len(slots))
	}
}

func TestPlanProducesBalancedSlots(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := testGenerator(seed)
		slots, err := g.Plan("2026-01-15", selectedPractices())
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(slots) != constants.SlotsPerDay {
			t.Fatalf("seed %d: expected %d slots, got %d", seed, constants.SlotsPerDay, len(slots))
		}

		doCount, controlCount := 0, 0
		for _, s := range slots {
			switch s.Variant {
			case models.VariantDo:
				doCount++
			case models.VariantControl:
				controlCount++
			default:
				t.Fatalf("seed %d: unexpected variant %q", seed, s.Variant)
			}
		}
		if doCount != 3 || controlCount != 3 {
			t.Errorf("seed %d: expected a 3/3 split, got %d/%d", seed, doCount, controlCount)
		}
	}
}

func TestPlanDoSlotsReferenceSelectedPractices(t *testing.T) {
	g := testGenerator(7)
	practices := selectedPractices()
	slots, err := g.Plan("2026-01-15", practices)
	if err != nil {
		t.Fatal(err)
	}

	allowed := map[string]bool{"p1": true, "p2": true}
	for _, s := range slots {
		if s.Variant == models.VariantDo {
			if !allowed[s.PracticeID] {
				t.Errorf("DO slot references %q, not a selected practice", s.PracticeID)
			}
		} else if s.PracticeID != "" {
			t.Errorf("CONTROL slot carries practice %q", s.PracticeID)
		}
	}
}

// Both arms must be indistinguishable from the fields a slot card displays.
func TestPlanSlotsAreBlinded(t *testing.T) {
	g := testGenerator(3)
	slots, err := g.Plan("2026-01-15", selectedPractices())
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range slots {
		if s.Instruction != constants.NeutralInstruction {
			t.Errorf("slot %s: instruction %q differs from the neutral one", s.ID, s.Instruction)
		}
		if s.Status != models.SlotPlanned {
			t.Errorf("slot %s: expected PLANNED, got %s", s.ID, s.Status)
		}
		if s.Date != "2026-01-15" {
			t.Errorf("slot %s: wrong date %q", s.ID, s.Date)
		}
		if s.ID == "" {
			t.Error("slot without an id")
		}
	}
}

func TestPlanDurationsAreSnapshots(t *testing.T) {
	g := testGenerator(5)
	practices := []models.Practice{
		{ID: "p1", Title: "Long one", DefaultDurationSec: 300, Selected: true},
	}
	slots, err := g.Plan("2026-01-15", practices)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range slots {
		switch s.Variant {
		case models.VariantDo:
			if s.DurationSec != 300 {
				t.Errorf("DO slot duration %d, want 300", s.DurationSec)
			}
		case models.VariantControl:
			if s.DurationSec != constants.DefaultSlotDurationSec {
				t.Errorf("CONTROL slot duration %d, want %d", s.DurationSec, constants.DefaultSlotDurationSec)
			}
		}
	}

	// Editing the template afterwards must not touch the produced slots.
	practices[0].DefaultDurationSec = 60
	for _, s := range slots {
		if s.Variant == models.VariantDo && s.DurationSec != 300 {
			t.Errorf("slot duration changed after template edit: %d", s.DurationSec)
		}
	}
}

func TestPlanDefaultsDurationWhenTemplateHasNone(t *testing.T) {
	g := testGenerator(5)
	practices := []models.Practice{
		{ID: "p1", Title: "No duration", Selected: true},
	}
	slots, err := g.Plan("2026-01-15", practices)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range slots {
		if s.DurationSec != constants.DefaultSlotDurationSec {
			t.Errorf("slot duration %d, want default %d", s.DurationSec, constants.DefaultSlotDurationSec)
		}
	}
}

// Retention orders by (date desc, id desc), so ids within one run must come
// out strictly increasing even when the clock does not advance between slots.
func TestPlanIDsAreMonotonic(t *testing.T) {
	g := testGenerator(9)
	slots, err := g.Plan("2026-01-15", selectedPractices())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].ID <= slots[i-1].ID {
			t.Errorf("slot %d id %s not greater than %s", i, slots[i].ID, slots[i-1].ID)
		}
	}
}

func TestTrimToNewest(t *testing.T) {
	slots := []models.Slot{
		{ID: "b", Date: "2026-01-14"},
		{ID: "a", Date: "2026-01-15"},
		{ID: "c", Date: "2026-01-15"},
		{ID: "d", Date: "2026-01-13"},
	}

	keep, dropped := TrimToNewest(slots, 2)
	if len(keep) != 2 || len(dropped) != 2 {
		t.Fatalf("expected 2 kept and 2 dropped, got %d/%d", len(keep), len(dropped))
	}
	if keep[0].ID != "c" || keep[1].ID != "a" {
		t.Errorf("kept wrong slots: %s, %s", keep[0].ID, keep[1].ID)
	}
	if dropped[0].ID != "b" || dropped[1].ID != "d" {
		t.Errorf("dropped wrong slots: %s, %s", dropped[0].ID, dropped[1].ID)
	}
}

func TestTrimToNewestUnderLimit(t *testing.T) {
	slots := []models.Slot{{ID: "a", Date: "2026-01-15"}}
	keep, dropped := TrimToNewest(slots, 6)
	if len(keep) != 1 || dropped != nil {
		t.Errorf("expected everything kept, got keep=%d dropped=%d", len(keep), len(dropped))
	}
}
