package survey

import (
	"testing"
	"time"
)

// A survey whose end date is stored at midnight must stay active for the
// whole of that day, so the reference instant is truncated before comparison.
func TestStartOfDayKeepsEndDateInclusive(t *testing.T) {
	endDate := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
	}{
		{name: "midnight", now: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)},
		{name: "afternoon", now: time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)},
		{name: "last second", now: time.Date(2026, 8, 28, 23, 59, 59, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			today := startOfDay(tc.now)
			if endDate.Before(today) {
				t.Fatalf("end date %v must not precede truncated now %v", endDate, today)
			}
		})
	}

	dayAfter := time.Date(2026, 8, 29, 0, 30, 0, 0, time.UTC)
	if !endDate.Before(startOfDay(dayAfter)) {
		t.Fatalf("survey must drop out of the window the day after its end date")
	}
}

func TestStartOfDayNormalizesZone(t *testing.T) {
	zone := time.FixedZone("UTC+7", 7*60*60)
	in := time.Date(2026, 8, 28, 2, 0, 0, 0, zone)

	got := startOfDay(in)
	want := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("startOfDay(%v) = %v, want %v", in, got, want)
	}
}
