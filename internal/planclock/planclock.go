package planclock

import "time"

// Shift moves base by the given number of calendar months. A nil base is
// treated as now. The day of month is kept when the target month has it and
// clamped to the month's last day otherwise, so Jan 31 + 1 month lands on the
// last day of February. Clamping is not reversible.
func Shift(base *time.Time, months int, now time.Time) time.Time {
	b := now
	if base != nil {
		b = *base
	}

	year, month, day := b.Date()
	hour, min, sec := b.Clock()

	// normalise the target month without letting time.Date roll the day over
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, b.Location())
	if last := daysIn(target.Year(), target.Month(), b.Location()); day > last {
		day = last
	}

	return time.Date(target.Year(), target.Month(), day, hour, min, sec, b.Nanosecond(), b.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
