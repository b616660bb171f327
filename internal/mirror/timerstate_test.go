package mirror

import (
	"path/filepath"
	"testing"
	"time"
)

func testTimerFile(t *testing.T) *TimerFile {
	t.Helper()
	return NewTimerFile(filepath.Join(t.TempDir(), "timer.json"))
}

func TestTimerRoundtrip(t *testing.T) {
	f := testTimerFile(t)
	if err := f.Save(TimerSnapshot{SlotID: "s1", RemainingSec: 90, Phase: "running"}); err != nil {
		t.Fatal(err)
	}

	snap, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if snap.SlotID != "s1" || snap.RemainingSec != 90 || snap.Phase != "running" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.SavedAt.IsZero() {
		t.Error("SavedAt should be stamped on save")
	}
}

func TestTimerLoadMissing(t *testing.T) {
	f := testTimerFile(t)
	snap, err := f.Load()
	if err != nil || snap != nil {
		t.Errorf("missing file should load as nil, nil; got %+v, %v", snap, err)
	}
}

func TestTimerExpiresAfterWindow(t *testing.T) {
	f := testTimerFile(t)
	f.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	if err := f.Save(TimerSnapshot{SlotID: "s1", RemainingSec: 90, Phase: "paused"}); err != nil {
		t.Fatal(err)
	}
	f.now = time.Now

	snap, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Errorf("stale snapshot should not restore, got %+v", snap)
	}
}

func TestTimerClear(t *testing.T) {
	f := testTimerFile(t)
	if err := f.Save(TimerSnapshot{SlotID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Clear(); err != nil {
		t.Fatal(err)
	}
	if snap, _ := f.Load(); snap != nil {
		t.Error("snapshot survived clear")
	}
	if err := f.Clear(); err != nil {
		t.Error("clearing twice should be a no-op:", err)
	}
}
