package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Fixed reference date used across date tests.
var today = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func TestCleanDate_StateTokenStrippedAndRolledForward(t *testing.T) {
	// "Aug 2 AL": the state code is site noise, the year is inferred, and
	// Aug 2 2025 is already past, so the next occurrence is in 2026.
	start, end, warnings := CleanDate("Aug 2 AL", today)

	assert.Equal(t, "2026-08-02", start)
	assert.Equal(t, "2026-08-02", end)
	assert.Contains(t, warnings, "state token removed from date")
	assert.NotContains(t, start, "AL")
}

func TestCleanDate_SingleDates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		start string
		end   string
	}{
		{"iso", "2026-08-02", "2026-08-02", "2026-08-02"},
		{"full month with year", "March 14, 2026", "2026-03-14", "2026-03-14"},
		{"abbrev month with year", "Mar 14 2026", "2026-03-14", "2026-03-14"},
		{"slash with year", "3/14/2026", "2026-03-14", "2026-03-14"},
		{"slash short year", "3/14/26", "2026-03-14", "2026-03-14"},
		{"no year future", "Oct 4", "2025-10-04", "2025-10-04"},
		{"no year past rolls forward", "Aug 2", "2026-08-02", "2026-08-02"},
		{"explicit past year preserved", "Aug 2, 2024", "2024-08-02", "2024-08-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, _ := CleanDate(tt.input, today)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestCleanDate_Ranges(t *testing.T) {
	tests := []struct {
		name  string
		input string
		start string
		end   string
	}{
		{"same month day range", "Oct 4-5", "2025-10-04", "2025-10-05"},
		{"day range with year", "March 14-15, 2026", "2026-03-14", "2026-03-15"},
		{"cross month", "Aug 30 - Sep 1", "2026-08-30", "2026-09-01"},
		{"cross year", "Dec 30 - Jan 2", "2025-12-30", "2026-01-02"},
		{"iso range", "2026-08-02 - 2026-08-03", "2026-08-02", "2026-08-03"},
		{"to separator", "Oct 4 to Oct 5", "2025-10-04", "2025-10-05"},
		{"past day range rolls forward", "Aug 2-3", "2026-08-02", "2026-08-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, _ := CleanDate(tt.input, today)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestCleanDate_Unparseable(t *testing.T) {
	start, end, warnings := CleanDate("every third Sunday", today)
	assert.Empty(t, start)
	assert.Empty(t, end)
	assert.NotEmpty(t, warnings)
}

func TestCleanDate_Empty(t *testing.T) {
	start, end, warnings := CleanDate("   ", today)
	assert.Empty(t, start)
	assert.Empty(t, end)
	assert.Equal(t, []string{"date missing"}, warnings)
}

func TestCleanDate_Idempotent(t *testing.T) {
	start1, end1, _ := CleanDate("Aug 2 AL", today)
	start2, end2, warnings := CleanDate(start1, today)
	assert.Equal(t, start1, start2)
	assert.Equal(t, end1, end2)
	assert.Empty(t, warnings)
}
