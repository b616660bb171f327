package models

// Practice is a micro-practice template the user can enroll in the daily
// rotation. IDs are server-assigned; the client treats them as opaque strings.
type Practice struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	DefaultDurationSec int    `json:"default_duration_sec"`
	Selected           bool   `json:"is_selected"`
}
