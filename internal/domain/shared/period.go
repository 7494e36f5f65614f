package shared

import (
	"fmt"
	"strings"
	"time"
)

// Period presets accepted by reporting endpoints
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodWeek      = "week"
	PeriodMonth     = "month"
	PeriodQuarter   = "quarter"
	PeriodYear      = "year"
	PeriodCustom    = "custom"
)

// DateRange is a half-open interval [Start, End)
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls in the range
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the number of calendar days covered by the range
func (r DateRange) Days() int {
	d := int(r.End.Sub(r.Start).Hours() / 24)
	if r.End.Sub(r.Start)%(24*time.Hour) != 0 {
		d++
	}
	return d
}

// Key returns a stable string form for cache keys
func (r DateRange) Key() string {
	return r.Start.UTC().Format(time.RFC3339) + "_" + r.End.UTC().Format(time.RFC3339)
}

// StartOfDay truncates t to midnight in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfMonth truncates t to the first day of its month in loc
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// DayRange returns the full local day containing t
func DayRange(t time.Time, loc *time.Location) DateRange {
	start := StartOfDay(t, loc)
	return DateRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// ResolvePeriod turns a preset name into a concrete range relative to now.
// Custom ranges take from/to as dates (YYYY-MM-DD); to is inclusive.
func ResolvePeriod(period, from, to string, now time.Time, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := StartOfDay(now, loc)
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", PeriodToday:
		return DateRange{Start: today, End: today.AddDate(0, 0, 1)}, nil
	case PeriodYesterday:
		return DateRange{Start: today.AddDate(0, 0, -1), End: today}, nil
	case PeriodWeek:
		return DateRange{Start: today.AddDate(0, 0, -6), End: today.AddDate(0, 0, 1)}, nil
	case PeriodMonth:
		start := StartOfMonth(now, loc)
		return DateRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case PeriodQuarter:
		n := now.In(loc)
		qMonth := time.Month(((int(n.Month())-1)/3)*3 + 1)
		start := time.Date(n.Year(), qMonth, 1, 0, 0, 0, 0, loc)
		return DateRange{Start: start, End: start.AddDate(0, 3, 0)}, nil
	case PeriodYear:
		start := time.Date(now.In(loc).Year(), 1, 1, 0, 0, 0, 0, loc)
		return DateRange{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case PeriodCustom:
		start, err := time.ParseInLocation("2006-01-02", from, loc)
		if err != nil {
			return DateRange{}, NewDomainError("INVALID_PERIOD", "from must be a date in YYYY-MM-DD format")
		}
		end, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return DateRange{}, NewDomainError("INVALID_PERIOD", "to must be a date in YYYY-MM-DD format")
		}
		if end.Before(start) {
			return DateRange{}, NewDomainError("INVALID_PERIOD", "to must not be before from")
		}
		if end.Sub(start) > 366*24*time.Hour {
			return DateRange{}, NewDomainError("INVALID_PERIOD", "custom period cannot exceed 366 days")
		}
		return DateRange{Start: start, End: end.AddDate(0, 0, 1)}, nil
	default:
		return DateRange{}, NewDomainError("INVALID_PERIOD", fmt.Sprintf("unknown period %q", period))
	}
}
