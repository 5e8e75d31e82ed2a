package productivity

import (
	"fmt"
	"strings"
	"time"
)

const (
	TimePeriodThisWeek = "this week"
	TimePeriodLastWeek = "last week"
)

// DateRange is a pair of contiguous windows: the reporting period and
// a fixed 7-day lookahead starting the day after it ends.
type DateRange struct {
	StartDate           time.Time
	EndDate             time.Time
	NextPeriodStartDate time.Time
	NextPeriodEndDate   time.Time
	DisplayRange        string
}

// DetermineDateRange computes the reporting window for the given
// relative label at the given instant. Unrecognized labels fall back to
// "this week". The function cannot fail and has no side effects.
//
// "This week" runs from Monday of the current week to the end of today,
// except on Saturday, Sunday, or Friday from 17:00 local time, when the
// end is clamped to that week's Friday so the digest never spans a
// weekend that has not happened yet.
func DetermineDateRange(timePeriod string, now time.Time) DateRange {
	today := startOfDay(now)

	var start, end time.Time
	var label string

	if strings.EqualFold(strings.TrimSpace(timePeriod), TimePeriodLastWeek) {
		label = "Last Week"
		dayOfWeek := int(today.Weekday()) // 0 (Sun) - 6 (Sat)
		start = today.AddDate(0, 0, -dayOfWeek-6)
		end = endOfDay(start.AddDate(0, 0, 6))
	} else {
		label = "This Week"
		dayOfWeek := int(today.Weekday())
		offset := dayOfWeek - 1
		if dayOfWeek == 0 {
			offset = 6
		}
		start = today.AddDate(0, 0, -offset)

		end = today
		weekday := end.Weekday()
		if weekday == time.Saturday || weekday == time.Sunday ||
			(weekday == time.Friday && now.Hour() >= 17) {
			end = start.AddDate(0, 0, 4)
		}
		end = endOfDay(end)
	}

	nextStart := startOfDay(end.AddDate(0, 0, 1))
	nextEnd := endOfDay(nextStart.AddDate(0, 0, 6))

	return DateRange{
		StartDate:           start,
		EndDate:             end,
		NextPeriodStartDate: nextStart,
		NextPeriodEndDate:   nextEnd,
		DisplayRange:        fmt.Sprintf("%s (%s - %s)", label, start.Format("Jan 2"), end.Format("Jan 2")),
	}
}

// DetermineDateRangeNow is DetermineDateRange against the real clock.
func DetermineDateRangeNow(timePeriod string) DateRange {
	return DetermineDateRange(timePeriod, time.Now())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
