package service

import (
	"sort"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// BuildTimeline emits one Gantt interval per session, sorted by start
// instant. Overlaps are preserved as-is; conflict detection is the faculty
// load analyzer's job. A session without an end time becomes a zero-length
// interval. An empty record set yields an empty timeline, never an error.
func BuildTimeline(records []models.AttendanceRecord, window models.Window, label func(models.AttendanceRecord) string) []models.TimelineEntry {
	if label == nil {
		label = func(r models.AttendanceRecord) string { return r.SubjectID }
	}
	entries := make([]models.TimelineEntry, 0, len(records))
	for _, record := range records {
		date := dateOnly(record.Date)
		if record.Status == models.AttendanceStatusCancelled {
			continue
		}
		if date.Before(dateOnly(window.From)) || date.After(dateOnly(window.To)) {
			continue
		}
		end := record.StartTime
		if record.EndTime != nil && record.EndTime.After(record.StartTime) {
			end = *record.EndTime
		}
		entries = append(entries, models.TimelineEntry{
			Label: label(record),
			Start: record.StartTime,
			End:   end,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Start.Equal(entries[j].Start) {
			return entries[i].Label < entries[j].Label
		}
		return entries[i].Start.Before(entries[j].Start)
	})
	return entries
}

// BuildCalendarDensity maps every date in the window, inclusive, to total
// attended hours. Dates without sessions appear with zero values so the
// consumer can render a complete grid. Intensity is clamped for colour
// scaling; the raw hour total is preserved alongside.
func BuildCalendarDensity(records []models.AttendanceRecord, window models.Window, clampHours float64) []models.CalendarDay {
	hoursByDate := make(map[string]float64)
	for _, record := range records {
		if record.Status != models.AttendanceStatusPresent {
			continue
		}
		date := dateOnly(record.Date)
		if date.Before(dateOnly(window.From)) || date.After(dateOnly(window.To)) {
			continue
		}
		hoursByDate[date.Format("2006-01-02")] += record.DurationHours()
	}

	from := dateOnly(window.From)
	to := dateOnly(window.To)
	if to.Before(from) {
		return nil
	}
	days := make([]models.CalendarDay, 0, int(to.Sub(from).Hours()/24)+1)
	for cursor := from; !cursor.After(to); cursor = cursor.AddDate(0, 0, 1) {
		key := cursor.Format("2006-01-02")
		hours := hoursByDate[key]
		intensity := hours
		if clampHours > 0 && intensity > clampHours {
			intensity = clampHours
		}
		days = append(days, models.CalendarDay{Date: key, Hours: hours, Intensity: intensity})
	}
	return days
}
