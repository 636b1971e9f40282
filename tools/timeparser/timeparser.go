package timeparser

import (
	"fmt"
	"strings"
	"time"
)

// ReportLayout is the layout of a runtime report row's date and time columns joined by a space
const ReportLayout = "2006-01-02 15:04:05"

// DateLayout is the layout of report start/end dates
const DateLayout = "2006-01-02"

// ParseReportTimestamp combines a report row's date and time columns in loc
func ParseReportTimestamp(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	dateStr := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	t, err := time.ParseInLocation(ReportLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse report timestamp '%s': %w", dateStr, err)
	}
	return t, nil
}

// ReportWindow returns the [yesterday, today] date pair for now in loc, so a
// run shortly after midnight still sees the end of the previous day.
func ReportWindow(now time.Time, loc *time.Location) (start, end string) {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)
	return today.AddDate(0, 0, -1).Format(DateLayout), today.Format(DateLayout)
}

// IsOlderThan reports whether more than thresholdMinutes have passed between
// last and now. Exactly thresholdMinutes is not older.
func IsOlderThan(last, now time.Time, thresholdMinutes int) bool {
	return now.Sub(last) > time.Duration(thresholdMinutes)*time.Minute
}

// ElapsedMinutes returns the minutes between last and now
func ElapsedMinutes(last, now time.Time) float64 {
	return now.Sub(last).Minutes()
}
