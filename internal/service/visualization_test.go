package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

func TestBuildTimelineSortsAndLabels(t *testing.T) {
	window := models.Window{From: day(2026, time.March, 2), To: day(2026, time.March, 8)}

	records := []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r2", subject: "sub-b", date: day(2026, time.March, 4), start: 14}),
		buildRecord(recordOpts{id: "r1", subject: "sub-a", date: day(2026, time.March, 3), start: 9}),
		buildRecord(recordOpts{id: "r3", subject: "sub-c", date: day(2026, time.March, 5), status: models.AttendanceStatusCancelled}),
		buildRecord(recordOpts{id: "r4", subject: "sub-d", date: day(2026, time.March, 6), noEnd: true}),
	}

	entries := BuildTimeline(records, window, nil)
	require.Len(t, entries, 3)
	assert.Equal(t, "sub-a", entries[0].Label)
	assert.Equal(t, "sub-b", entries[1].Label)
	// A session without an end time becomes a zero-length interval.
	assert.Equal(t, "sub-d", entries[2].Label)
	assert.Equal(t, entries[2].Start, entries[2].End)
}

func TestBuildTimelineCustomLabel(t *testing.T) {
	window := models.Window{From: day(2026, time.March, 2), To: day(2026, time.March, 8)}
	records := []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r1", subject: "sub-a", date: day(2026, time.March, 3)}),
	}

	entries := BuildTimeline(records, window, func(r models.AttendanceRecord) string { return "Algebra" })
	require.Len(t, entries, 1)
	assert.Equal(t, "Algebra", entries[0].Label)
}

func TestBuildCalendarDensityCoversEveryDay(t *testing.T) {
	window := models.Window{From: day(2026, time.March, 2), To: day(2026, time.March, 8)}

	records := []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r1", date: day(2026, time.March, 3), start: 8, duration: 7}),
		buildRecord(recordOpts{id: "r2", date: day(2026, time.March, 3), start: 15, duration: 7}),
		buildRecord(recordOpts{id: "r3", date: day(2026, time.March, 5), duration: 3}),
		buildRecord(recordOpts{id: "r4", date: day(2026, time.March, 6), status: models.AttendanceStatusAbsent}),
	}

	days := BuildCalendarDensity(records, window, 12)
	require.Len(t, days, 7)

	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Zero(t, days[0].Hours)

	// Two sessions on the 3rd total 14 hours; intensity clamps at 12 while
	// the raw figure survives.
	assert.Equal(t, "2026-03-03", days[1].Date)
	assert.InDelta(t, 14.0, days[1].Hours, 1e-9)
	assert.InDelta(t, 12.0, days[1].Intensity, 1e-9)

	assert.InDelta(t, 3.0, days[3].Hours, 1e-9)
	assert.InDelta(t, 3.0, days[3].Intensity, 1e-9)

	// Absent sessions contribute no hours.
	assert.Zero(t, days[4].Hours)
}

func TestBuildCalendarDensityInvertedWindow(t *testing.T) {
	window := models.Window{From: day(2026, time.March, 8), To: day(2026, time.March, 2)}
	assert.Nil(t, BuildCalendarDensity(nil, window, 12))
}
