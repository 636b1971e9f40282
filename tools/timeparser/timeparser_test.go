package timeparser_test

import (
	"testing"
	"time"

	"github.com/septivank/ecobee-sync/tools/timeparser"
)

func TestParseReportTimestamp(t *testing.T) {
	result, err := timeparser.ParseReportTimestamp("2025-12-29", "10:30:00", time.UTC)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReportTimestamp_Location(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)

	result, err := timeparser.ParseReportTimestamp("2025-12-29", "10:30:00", loc)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 15, 30, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReportTimestamp_NilLocation(t *testing.T) {
	result, err := timeparser.ParseReportTimestamp(" 2025-12-29", "00:05:00 ", nil)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}
	if result.Location() != time.UTC {
		t.Errorf("Expected UTC, got %v", result.Location())
	}
}

func TestParseReportTimestamp_Invalid(t *testing.T) {
	_, err := timeparser.ParseReportTimestamp("29/12/2025", "10:30:00", time.UTC)
	if err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}

func TestReportWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 10, 0, 0, time.UTC)

	start, end := timeparser.ReportWindow(now, time.UTC)
	if start != "2026-02-28" {
		t.Errorf("Expected start 2026-02-28, got %s", start)
	}
	if end != "2026-03-01" {
		t.Errorf("Expected end 2026-03-01, got %s", end)
	}
}

func TestReportWindow_Location(t *testing.T) {
	// 03:00 UTC is still the previous evening in New York (UTC-5)
	now := time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC)
	loc := time.FixedZone("EST", -5*3600)

	start, end := timeparser.ReportWindow(now, loc)
	if start != "2026-01-08" || end != "2026-01-09" {
		t.Errorf("Expected 2026-01-08..2026-01-09, got %s..%s", start, end)
	}
}

func TestIsOlderThan(t *testing.T) {
	last := time.Date(2025, 12, 29, 10, 5, 0, 0, time.UTC)

	if timeparser.IsOlderThan(last, last.Add(35*time.Minute), 60) {
		t.Error("Expected 35 minutes not to exceed a 60 minute threshold")
	}
	if !timeparser.IsOlderThan(last, last.Add(65*time.Minute), 60) {
		t.Error("Expected 65 minutes to exceed a 60 minute threshold")
	}
}

func TestIsOlderThan_ExactBoundary(t *testing.T) {
	last := time.Date(2025, 12, 29, 10, 0, 0, 0, time.UTC)

	if timeparser.IsOlderThan(last, last.Add(60*time.Minute), 60) {
		t.Error("Expected exact threshold not to be older")
	}
}

func TestIsOlderThan_AcrossDays(t *testing.T) {
	last := time.Date(2025, 12, 27, 10, 0, 0, 0, time.UTC)
	now := time.Date(2025, 12, 29, 10, 10, 0, 0, time.UTC)

	if !timeparser.IsOlderThan(last, now, 60) {
		t.Error("Expected a two day gap to be older than the threshold")
	}
}

func TestElapsedMinutes(t *testing.T) {
	last := time.Date(2025, 12, 29, 10, 5, 0, 0, time.UTC)
	if got := timeparser.ElapsedMinutes(last, last.Add(90*time.Second)); got != 1.5 {
		t.Errorf("Expected 1.5, got %f", got)
	}
}
