package availability

import (
	"testing"
	"time"
)

// 2024-01-15 is a Monday.
var (
	monday   = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	farPast  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	weekdays = map[string]int{"Mon": 1, "Tue": 2, "Wed": 3, "Thu": 4, "Fri": 5, "Sat": 6, "Sun": 7}
)

func mondayRange(start, end string, interval int) Range {
	return testRange("Mon", start, end, interval)
}

func testRange(day, start, end string, interval int) Range {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	return Range{Weekday: weekdays[day], Start: s, End: e, IntervalMinutes: interval}
}

func TestISOWeekday(t *testing.T) {
	if got := ISOWeekday(monday); got != 1 {
		t.Fatalf("Monday = %d, want 1", got)
	}
	sunday := monday.AddDate(0, 0, 6)
	if got := ISOWeekday(sunday); got != 7 {
		t.Fatalf("Sunday = %d, want 7", got)
	}
}

func TestExpandRangesSingleDay(t *testing.T) {
	got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 30)}, monday, 0, farPast)

	want := []time.Time{
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
	}
	assertTimes(t, got, want)
}

// A slot landing exactly on the end time is not emitted.
func TestExpandRangesEndExclusive(t *testing.T) {
	got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 30)}, monday, 0, farPast)
	end := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	for _, ts := range got {
		if ts.Equal(end) {
			t.Fatal("slot at the range end must not be emitted")
		}
	}
}

func TestExpandRangesIntervalNotDividing(t *testing.T) {
	got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 45)}, monday, 0, farPast)

	want := []time.Time{
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 45, 0, 0, time.UTC),
	}
	assertTimes(t, got, want)
}

func TestExpandRangesSkipsElapsed(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 10, 0, 0, time.UTC)
	got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 30)}, monday, 0, now)

	want := []time.Time{time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)}
	assertTimes(t, got, want)
}

// A slot exactly at now counts as elapsed.
func TestExpandRangesNowIsNotBookable(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 30)}, monday, 0, now)

	if len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
}

func TestExpandRangesDeduplicatesOverlap(t *testing.T) {
	ranges := []Range{
		mondayRange("09:00", "10:00", 30),
		mondayRange("09:30", "11:00", 30),
	}
	got := ExpandRanges(ranges, monday, 0, farPast)

	want := []time.Time{
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	assertTimes(t, got, want)
}

// The window includes both its first and its last day.
func TestExpandRangesWindowInclusive(t *testing.T) {
	got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 30)}, monday, 7, farPast)

	if len(got) != 4 {
		t.Fatalf("expected slots on both Mondays (4 total), got %d: %v", len(got), got)
	}
	if !got[0].Equal(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("first slot = %v", got[0])
	}
	if !got[3].Equal(time.Date(2024, 1, 22, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("last slot = %v", got[3])
	}
}

func TestExpandRangesFourWeeksOfWednesdays(t *testing.T) {
	// Thursday start, so the 28-day window holds exactly four Wednesdays:
	// Jan 24, Jan 31, Feb 7, Feb 14.
	thursday := time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC)
	got := ExpandRanges([]Range{testRange("Wed", "10:00", "11:00", 30)}, thursday, 28, farPast)

	if len(got) != 8 {
		t.Fatalf("expected 2 slots on each of 4 Wednesdays, got %d: %v", len(got), got)
	}
	for _, ts := range got {
		if ts.Weekday() != time.Wednesday {
			t.Errorf("slot %v is not on a Wednesday", ts)
		}
	}
	if !got[0].Equal(time.Date(2024, 1, 24, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("first slot = %v", got[0])
	}
	if !got[7].Equal(time.Date(2024, 2, 14, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("last slot = %v", got[7])
	}
}

func TestExpandRangesSorted(t *testing.T) {
	ranges := []Range{
		mondayRange("14:00", "15:00", 30),
		mondayRange("09:00", "10:00", 30),
	}
	got := ExpandRanges(ranges, monday, 7, farPast)

	for i := 1; i < len(got); i++ {
		if !got[i-1].Before(got[i]) {
			t.Fatalf("slots out of order at %d: %v >= %v", i, got[i-1], got[i])
		}
	}
}

func TestExpandRangesEmpty(t *testing.T) {
	if got := ExpandRanges(nil, monday, 7, farPast); len(got) != 0 {
		t.Fatalf("nil ranges produced %v", got)
	}
	if got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 30)}, monday, -1, farPast); len(got) != 0 {
		t.Fatalf("negative window produced %v", got)
	}
}

func TestExpandRangesMidDayWindowStart(t *testing.T) {
	// The walk starts at the beginning of the window day; only now filters
	// out the morning.
	lateMonday := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
	got := ExpandRanges([]Range{mondayRange("09:00", "10:00", 30)}, lateMonday, 0, farPast)

	if len(got) != 2 {
		t.Fatalf("expected the full morning, got %v", got)
	}
}

func TestCombineDateTime(t *testing.T) {
	got := CombineDateTime(monday, TimeOfDay{Hour: 9, Minute: 30})
	want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("CombineDateTime = %v, want %v", got, want)
	}
}

func assertTimes(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("slot[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
