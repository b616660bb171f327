package tui

import "testing"

func TestFormatClock(t *testing.T) {
	tests := []struct {
		sec  int
		want string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{90, "01:30"},
		{600, "10:00"},
		{-5, "00:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.sec); got != tt.want {
			t.Errorf("formatClock(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		sec  int
		want string
	}{
		{120, "2m"},
		{300, "5m"},
		{150, "2m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.sec); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}
