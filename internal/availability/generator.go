package availability

import (
	"sort"
	"time"
)

// ISOWeekday maps Go's weekday to ISO numbering, Monday=1 .. Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// CombineDateTime pins a time of day onto a calendar day.
func CombineDateTime(day time.Time, tod TimeOfDay) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour, tod.Minute, 0, 0, day.Location())
}

// ExpandRanges expands recurring ranges into concrete slot timestamps over
// the window [windowStart, windowStart+windowDays], both ends included.
// For every day whose weekday matches a range, it walks from the range start
// in interval steps while strictly before the range end; a slot landing
// exactly on the end time is never emitted. Timestamps at or before now are
// skipped, so a day already underway only contributes what is left of it.
// The result is deduplicated and sorted ascending.
func ExpandRanges(ranges []Range, windowStart time.Time, windowDays int, now time.Time) []time.Time {
	if len(ranges) == 0 || windowDays < 0 {
		return nil
	}

	seen := make(map[time.Time]struct{})
	var out []time.Time

	day := startOfDay(windowStart)
	last := day.AddDate(0, 0, windowDays)

	for !day.After(last) {
		wd := ISOWeekday(day)
		for _, r := range ranges {
			if r.Weekday != wd || r.IntervalMinutes <= 0 {
				continue
			}
			for m := r.Start.Minutes(); m < r.End.Minutes(); m += r.IntervalMinutes {
				ts := CombineDateTime(day, timeOfDayFromMinutes(m))
				if !ts.After(now) {
					continue
				}
				if _, dup := seen[ts]; dup {
					continue
				}
				seen[ts] = struct{}{}
				out = append(out, ts)
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
