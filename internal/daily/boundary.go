// Package daily materializes one attendance row per member per local calendar day and
// keeps the monthly attendance counters in step.
package daily

import "time"

// NextBoundary returns the first daily boundary strictly after now. The boundary is
// local midnight in loc plus offset. When now is exactly on today's boundary the
// result is tomorrow's, so a runner that wakes on time never fires twice.
func NextBoundary(now time.Time, loc *time.Location, offset time.Duration) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	target := boundaryOn(y, m, d, loc, offset)
	if !local.Before(target) {
		target = boundaryOn(y, m, d+1, loc, offset)
	}
	return target
}

// boundaryOn builds the boundary from wall-clock components so a DST shift on that
// day cannot move it off the configured local time.
func boundaryOn(y int, m time.Month, d int, loc *time.Location, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	mins := int(offset % time.Hour / time.Minute)
	sec := int(offset % time.Minute / time.Second)
	return time.Date(y, m, d, h, mins, sec, 0, loc)
}

// DayOf returns local midnight of the calendar day containing t in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
