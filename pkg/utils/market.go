package utils

import (
	"time"
)

// EasternLocation is the home exchange timezone used for cache expiry
// anchoring.
var EasternLocation *time.Location

func init() {
	var err error
	EasternLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		EasternLocation = time.FixedZone("EST", -5*60*60)
	}
}

// CacheExpiry computes the instant a chain cache entry should expire:
// the given clock hour in loc, anchorDays calendar days after now. The
// time of day is always re-anchored to the hour so an entry cannot
// vanish in the middle of a live session.
func CacheExpiry(now time.Time, anchorDays, hour int, loc *time.Location) time.Time {
	local := now.In(loc).AddDate(0, 0, anchorDays)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
}

// WeekdaysAhead returns the weekdays within the next n calendar days,
// starting from the day after from. It is the fallback market calendar
// when the broker's trading-day source is unavailable; it does not know
// exchange holidays.
func WeekdaysAhead(from time.Time, n int) []time.Time {
	var out []time.Time
	for i := 1; i <= n; i++ {
		d := from.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()))
	}
	return out
}

// MarketDayStart truncates a time to midnight in its location.
func MarketDayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
