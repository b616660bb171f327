package models

import "time"

// Assessment is the post-slot subjective rating. Exactly one exists per
// completed slot and it is immutable after creation. The wire name for
// Lightness is "ease"; the client keeps the user-facing name.
type Assessment struct {
	SlotID       string    `json:"slot_id"`
	Mood         int       `json:"mood"`
	Lightness    int       `json:"lightness"`
	Satisfaction int       `json:"satisfaction"`
	Nervousness  int       `json:"nervousness"`
	Timestamp    time.Time `json:"timestamp"`
}

// HistoryEntry is the derived per-date view over slots, retained client-side
// for up to 30 days.
type HistoryEntry struct {
	Date      string `json:"date"`
	Slots     []Slot `json:"slots"`
	Completed int    `json:"completed"`
}
