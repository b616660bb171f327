package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/placebolab/coach/internal/constants"
)

// TimerSnapshot is the in-flight timer state persisted on every phase change
// and tick, so a countdown survives a restart. A snapshot older than 24 hours
// is not restored.
type TimerSnapshot struct {
	SlotID       string    `json:"slot_id"`
	RemainingSec int       `json:"remaining_sec"`
	Phase        string    `json:"phase"`
	SavedAt      time.Time `json:"saved_at"`
}

// TimerFile persists a TimerSnapshot as a small JSON file next to the mirror
// database.
type TimerFile struct {
	Path string
	now  func() time.Time
}

func NewTimerFile(path string) *TimerFile {
	return &TimerFile{Path: path, now: time.Now}
}

func (f *TimerFile) Save(snap TimerSnapshot) error {
	snap.SavedAt = f.now()
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.Path, raw, 0o644)
}

// Load returns the saved snapshot, or nil if none exists or it is older than
// the restore window.
func (f *TimerFile) Load() (*TimerSnapshot, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var snap TimerSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode timer state: %w", err)
	}
	if f.now().Sub(snap.SavedAt) > constants.TimerStateMaxAge {
		return nil, nil
	}
	return &snap, nil
}

func (f *TimerFile) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
