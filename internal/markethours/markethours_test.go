package markethours

import (
	"testing"
	"time"
)

func et(month time.Month, day, hour, min int) time.Time {
	return time.Date(2026, month, day, hour, min, 0, 0, Eastern)
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"midday tuesday", et(time.June, 9, 12, 0), true},
		{"exactly at open", et(time.June, 9, 9, 30), true},
		{"one minute before open", et(time.June, 9, 9, 29), false},
		{"exactly at close", et(time.June, 9, 16, 0), false},
		{"one minute before close", et(time.June, 9, 15, 59), true},
		{"saturday", et(time.June, 13, 12, 0), false},
		{"sunday", et(time.June, 14, 12, 0), false},
		{"christmas", et(time.December, 25, 12, 0), false},
		{"juneteenth", et(time.June, 19, 12, 0), false},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.at); got != tc.want {
			t.Errorf("%s: IsMarketOpen = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNextOpen(t *testing.T) {
	// Before open on a trading day → same day 9:30.
	got := NextOpen(et(time.June, 9, 8, 0))
	want := et(time.June, 9, 9, 30)
	if !got.Equal(want) {
		t.Errorf("NextOpen before open = %v, want %v", got, want)
	}

	// After close on Friday → Monday 9:30.
	got = NextOpen(et(time.June, 12, 17, 0))
	want = et(time.June, 15, 9, 30)
	if !got.Equal(want) {
		t.Errorf("NextOpen friday evening = %v, want %v", got, want)
	}

	// Day before a holiday weekend skips the holiday: Thursday after close
	// with Friday July 3 closed → Monday July 6.
	got = NextOpen(et(time.July, 2, 17, 0))
	want = et(time.July, 6, 9, 30)
	if !got.Equal(want) {
		t.Errorf("NextOpen over holiday = %v, want %v", got, want)
	}
}

func TestTimeUntilClose(t *testing.T) {
	if d := TimeUntilClose(et(time.June, 9, 15, 0)); d != time.Hour {
		t.Errorf("TimeUntilClose at 3pm = %v, want 1h", d)
	}
	if d := TimeUntilClose(et(time.June, 9, 17, 0)); d != 0 {
		t.Errorf("TimeUntilClose after close = %v, want 0", d)
	}
}

func TestNextPreOpen(t *testing.T) {
	got := NextPreOpen(et(time.June, 9, 8, 0))
	want := et(time.June, 9, 9, 25)
	if !got.Equal(want) {
		t.Errorf("NextPreOpen = %v, want %v", got, want)
	}
}
