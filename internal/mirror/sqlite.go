package mirror

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/models"
)

// SQLiteStore implements Store on a local sqlite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the mirror database at the given path.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create mirror dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open mirror db: %w", err)
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate mirror db: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS practices (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration_sec INTEGER NOT NULL,
		selected INTEGER NOT NULL DEFAULT 0,
		cached_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS slots (
		id TEXT PRIMARY KEY,
		practice_id TEXT NOT NULL DEFAULT '',
		variant TEXT NOT NULL,
		status TEXT NOT NULL,
		time_of_day TEXT NOT NULL,
		duration_sec INTEGER NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		date TEXT NOT NULL,
		instruction TEXT NOT NULL,
		scheduled_at TEXT NOT NULL,
		cached_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_slots_date ON slots(date);
	CREATE TABLE IF NOT EXISTS history (
		date TEXT PRIMARY KEY,
		slots_json TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		cached_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS assessments (
		slot_id TEXT PRIMARY KEY,
		mood INTEGER NOT NULL,
		lightness INTEGER NOT NULL,
		satisfaction INTEGER NOT NULL,
		nervousness INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		cached_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// cutoff is the oldest cached_at still considered fresh.
func (s *SQLiteStore) cutoff() string {
	return s.now().AddDate(0, 0, -constants.HistoryRetentionDays).UTC().Format(time.RFC3339)
}

// replaceAll runs fn inside a transaction after clearing the table. Mirror
// aggregates are always written whole.
func (s *SQLiteStore) replaceAll(table string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM " + table); err != nil {
		tx.Rollback()
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SavePractices(practices []models.Practice) error {
	stamp := s.now().UTC().Format(time.RFC3339)
	return s.replaceAll("practices", func(tx *sql.Tx) error {
		for _, p := range practices {
			_, err := tx.Exec(
				`INSERT INTO practices (id, title, description, duration_sec, selected, cached_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				p.ID, p.Title, p.Description, p.DefaultDurationSec, boolToInt(p.Selected), stamp,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadPractices() ([]models.Practice, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, duration_sec, selected FROM practices
		 WHERE cached_at >= ? ORDER BY title`, s.cutoff())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Practice
	for rows.Next() {
		var p models.Practice
		var selected int
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.DefaultDurationSec, &selected); err != nil {
			return nil, err
		}
		p.Selected = selected != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveSlots(slots []models.Slot) error {
	stamp := s.now().UTC().Format(time.RFC3339)
	return s.replaceAll("slots", func(tx *sql.Tx) error {
		for _, sl := range slots {
			_, err := tx.Exec(
				`INSERT INTO slots (id, practice_id, variant, status, time_of_day, duration_sec,
				                    completed, date, instruction, scheduled_at, cached_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sl.ID, sl.PracticeID, string(sl.Variant), string(sl.Status), string(sl.TimeOfDay),
				sl.DurationSec, boolToInt(sl.Completed), sl.Date, sl.Instruction,
				sl.ScheduledAt.UTC().Format(time.RFC3339), stamp,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadSlots() ([]models.Slot, error) {
	rows, err := s.db.Query(
		`SELECT id, practice_id, variant, status, time_of_day, duration_sec, completed,
		        date, instruction, scheduled_at
		 FROM slots WHERE cached_at >= ? ORDER BY date DESC, id DESC`, s.cutoff())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Slot
	for rows.Next() {
		var sl models.Slot
		var variant, status, timeOfDay, scheduledAt string
		var completed int
		if err := rows.Scan(&sl.ID, &sl.PracticeID, &variant, &status, &timeOfDay,
			&sl.DurationSec, &completed, &sl.Date, &sl.Instruction, &scheduledAt); err != nil {
			return nil, err
		}
		sl.Variant = models.Variant(variant)
		sl.Status = models.SlotStatus(status)
		sl.TimeOfDay = models.TimeOfDay(timeOfDay)
		sl.Completed = completed != 0
		if ts, err := time.Parse(time.RFC3339, scheduledAt); err == nil {
			sl.ScheduledAt = ts
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveHistory(entries []models.HistoryEntry) error {
	stamp := s.now().UTC().Format(time.RFC3339)
	return s.replaceAll("history", func(tx *sql.Tx) error {
		for _, e := range entries {
			slotsJSON, err := json.Marshal(e.Slots)
			if err != nil {
				return err
			}
			_, err = tx.Exec(
				`INSERT INTO history (date, slots_json, completed, cached_at) VALUES (?, ?, ?, ?)`,
				e.Date, string(slotsJSON), e.Completed, stamp,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadHistory() ([]models.HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT date, slots_json, completed FROM history
		 WHERE cached_at >= ? ORDER BY date DESC`, s.cutoff())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var slotsJSON string
		if err := rows.Scan(&e.Date, &slotsJSON, &e.Completed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(slotsJSON), &e.Slots); err != nil {
			return nil, fmt.Errorf("decode history slots for %s: %w", e.Date, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveAssessments(assessments []models.Assessment) error {
	stamp := s.now().UTC().Format(time.RFC3339)
	return s.replaceAll("assessments", func(tx *sql.Tx) error {
		for _, a := range assessments {
			_, err := tx.Exec(
				`INSERT INTO assessments (slot_id, mood, lightness, satisfaction, nervousness, created_at, cached_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				a.SlotID, a.Mood, a.Lightness, a.Satisfaction, a.Nervousness,
				a.Timestamp.UTC().Format(time.RFC3339), stamp,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadAssessments() ([]models.Assessment, error) {
	rows, err := s.db.Query(
		`SELECT slot_id, mood, lightness, satisfaction, nervousness, created_at
		 FROM assessments WHERE cached_at >= ? ORDER BY created_at`, s.cutoff())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Assessment
	for rows.Next() {
		var a models.Assessment
		var createdAt string
		if err := rows.Scan(&a.SlotID, &a.Mood, &a.Lightness, &a.Satisfaction, &a.Nervousness, &createdAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			a.Timestamp = ts
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Clear() error {
	for _, table := range []string{"practices", "slots", "history", "assessments"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
