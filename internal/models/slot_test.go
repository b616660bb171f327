package models

import "testing"

func TestTimeOfDayContains(t *testing.T) {
	tests := []struct {
		bucket TimeOfDay
		hour   int
		want   bool
	}{
		{Morning, 5, true},
		{Morning, 11, true},
		{Morning, 4, false},
		{Morning, 12, false},
		{Afternoon, 12, true},
		{Afternoon, 17, true},
		{Afternoon, 18, false},
		{Evening, 18, true},
		{Evening, 23, true},
		{Evening, 0, true},
		{Evening, 4, true},
		{Evening, 5, false},
		{Evening, 17, false},
	}
	for _, tt := range tests {
		if got := tt.bucket.Contains(tt.hour); got != tt.want {
			t.Errorf("%s.Contains(%d) = %v, want %v", tt.bucket, tt.hour, got, tt.want)
		}
	}
}
