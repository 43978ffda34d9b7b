package service

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// SummarizeAttendance turns raw attendance records into per-entity aggregates
// bucketed by week. It is deterministic: the reference date is always passed
// in, never read from the wall clock. Records dated before the student's
// enrollment, after the reference date or outside the window are excluded.
// Records missing an end time contribute zero hours and are counted as
// low-confidence rather than rejected.
func SummarizeAttendance(records []models.AttendanceRecord, groupBy models.EntityKind, window models.Window, today time.Time, enrolledAt map[string]time.Time, logger *zap.Logger) []models.EntitySummary {
	if logger == nil {
		logger = zap.NewNop()
	}
	today = dateOnly(today)

	type accumulator struct {
		summary  models.EntitySummary
		days     map[string]struct{}
		topics   map[string]struct{}
		weeks    map[time.Time]*models.WeekBucket
		earliest time.Time
	}
	acc := make(map[string]*accumulator)

	for _, record := range records {
		date := dateOnly(record.Date)
		if date.After(today) || date.Before(dateOnly(window.From)) || date.After(dateOnly(window.To)) {
			continue
		}
		if enrollment, ok := enrolledAt[record.StudentID]; ok && date.Before(dateOnly(enrollment)) {
			continue
		}
		if record.Status == models.AttendanceStatusCancelled {
			continue
		}

		entityID := entityIDFor(record, groupBy)
		if entityID == "" {
			continue
		}
		a, ok := acc[entityID]
		if !ok {
			a = &accumulator{
				summary: models.EntitySummary{Entity: models.EntityRef{Kind: groupBy, ID: entityID}},
				days:    make(map[string]struct{}),
				topics:  make(map[string]struct{}),
				weeks:   make(map[time.Time]*models.WeekBucket),
			}
			acc[entityID] = a
		}

		a.summary.Sessions++
		if record.Status != models.AttendanceStatusPresent {
			continue
		}
		a.summary.Attended++

		hours := record.DurationHours()
		if record.EndTime == nil {
			a.summary.LowConfidence++
			logger.Warn("attendance record missing end time",
				zap.String("record_id", record.ID),
				zap.String("assignment_id", record.AssignmentID))
		}
		a.summary.TotalHours += hours

		a.days[date.Format("2006-01-02")] = struct{}{}
		for _, topic := range record.Topics {
			a.topics[topic] = struct{}{}
		}
		if date.After(a.summary.LastSession) {
			a.summary.LastSession = date
		}
		if a.earliest.IsZero() || date.Before(a.earliest) {
			a.earliest = date
		}

		week := weekStart(date)
		bucket, ok := a.weeks[week]
		if !ok {
			bucket = &models.WeekBucket{WeekStart: week}
			a.weeks[week] = bucket
		}
		bucket.Sessions++
		bucket.Hours += hours
	}

	summaries := make([]models.EntitySummary, 0, len(acc))
	for _, a := range acc {
		a.summary.ActiveDays = len(a.days)
		a.summary.TopicsCovered = len(a.topics)
		a.summary.Weekly = fillWeeks(a.weeks, weeklyRangeStart(window, groupBy, a.summary.Entity.ID, enrolledAt), weekStart(minDate(dateOnly(window.To), today)))
		summaries = append(summaries, a.summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Entity.ID < summaries[j].Entity.ID
	})
	return summaries
}

// fillWeeks materialises a bucket for every week between first and last so
// weeks without sessions count as zeros in variance analysis.
func fillWeeks(weeks map[time.Time]*models.WeekBucket, first, last time.Time) []models.WeekBucket {
	if last.Before(first) {
		return nil
	}
	var result []models.WeekBucket
	for week := first; !week.After(last); week = week.AddDate(0, 0, 7) {
		if bucket, ok := weeks[week]; ok {
			result = append(result, *bucket)
		} else {
			result = append(result, models.WeekBucket{WeekStart: week})
		}
	}
	return result
}

// weeklyRangeStart keeps weeks before a student's enrollment out of the
// zero-filled range, so a mid-window joiner is not penalised for them.
func weeklyRangeStart(window models.Window, groupBy models.EntityKind, entityID string, enrolledAt map[string]time.Time) time.Time {
	start := weekStart(dateOnly(window.From))
	if groupBy != models.EntityStudent {
		return start
	}
	if enrollment, ok := enrolledAt[entityID]; ok {
		enrollWeek := weekStart(dateOnly(enrollment))
		if enrollWeek.After(start) {
			return enrollWeek
		}
	}
	return start
}

func entityIDFor(record models.AttendanceRecord, groupBy models.EntityKind) string {
	switch groupBy {
	case models.EntityCenter:
		return record.CenterID
	case models.EntityStudent:
		return record.StudentID
	case models.EntityFaculty:
		return record.FacultyID
	default:
		return ""
	}
}

// weekStart returns the Monday of the week containing t, at UTC midnight.
func weekStart(t time.Time) time.Time {
	t = dateOnly(t)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
