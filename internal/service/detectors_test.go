package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

func detail(id, student, center string, start time.Time, topicCount, plannedWeeks int) models.AssignmentDetail {
	return models.AssignmentDetail{
		Assignment: models.Assignment{
			ID:        id,
			StudentID: student,
			SubjectID: "sub1",
			FacultyID: "f1",
			CenterID:  center,
			StartDate: start,
			Active:    true,
		},
		SubjectName:  "Subject",
		TopicCount:   topicCount,
		PlannedWeeks: plannedWeeks,
	}
}

func TestBuildAssignmentProgressCountsDistinctTopics(t *testing.T) {
	start := day(2026, time.January, 5)
	assignments := []models.AssignmentDetail{detail("a-s1", "s1", "c1", start, 24, 12)}
	records := []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r1", date: day(2026, time.January, 6), topics: []string{"t1", "t2"}}),
		buildRecord(recordOpts{id: "r2", date: day(2026, time.January, 8), topics: []string{"t2", "t3"}}),
		buildRecord(recordOpts{id: "r3", date: day(2026, time.January, 9), status: models.AttendanceStatusAbsent, topics: []string{"t4"}}),
	}

	progress := BuildAssignmentProgress(records, assignments)
	require.Contains(t, progress, "a-s1")
	p := progress["a-s1"]
	assert.Equal(t, 3, p.TopicsCovered)
	assert.InDelta(t, 4.0, p.HoursSpent, 1e-9)
	assert.Equal(t, day(2026, time.January, 8), p.LastSession)
}

func TestDetectDelayedStudentsBehindPace(t *testing.T) {
	today := day(2026, time.June, 1)
	// 84 days at 2 topics/week puts the expected count at the full syllabus.
	start := today.AddDate(0, 0, -84)
	thresholds := models.DefaultThresholds()

	progress := map[string]*AssignmentProgress{
		"a-s1": {Detail: detail("a-s1", "s1", "c1", start, 24, 12), TopicsCovered: 10},
		"a-s2": {Detail: detail("a-s2", "s2", "c1", start, 24, 12), TopicsCovered: 22},
	}

	delayed := DetectDelayedStudents(progress, today, thresholds)
	require.Len(t, delayed, 1)
	d := delayed[0]
	assert.Equal(t, "s1", d.StudentID)
	assert.InDelta(t, 24.0, d.ExpectedTopics, 1e-9)
	assert.Equal(t, 10, d.ActualTopics)
	assert.InDelta(t, 14.0, d.Gap, 1e-9)
	assert.InDelta(t, 14.0/24.0, d.Severity, 1e-9)
}

func TestDetectDelayedStudentsOverdueLowCompletion(t *testing.T) {
	today := day(2026, time.September, 1)
	start := today.AddDate(0, -7, 0)
	thresholds := models.DefaultThresholds()
	thresholds.DelaySlackFraction = 0.3

	// Within the pace slack but seven months in with 70% completion.
	progress := map[string]*AssignmentProgress{
		"a-s1": {Detail: detail("a-s1", "s1", "c1", start, 10, 10), TopicsCovered: 7},
	}

	delayed := DetectDelayedStudents(progress, today, thresholds)
	require.Len(t, delayed, 1)
	assert.Equal(t, 7, delayed[0].MonthsElapsed)
	assert.InDelta(t, 0.7, delayed[0].CompletionRate, 1e-9)
}

func TestDetectDelayedStudentsOrderedByGap(t *testing.T) {
	today := day(2026, time.June, 1)
	start := today.AddDate(0, 0, -84)
	thresholds := models.DefaultThresholds()

	progress := map[string]*AssignmentProgress{
		"a-s1": {Detail: detail("a-s1", "s1", "c1", start, 24, 12), TopicsCovered: 10},
		"a-s2": {Detail: detail("a-s2", "s2", "c1", start, 24, 12), TopicsCovered: 4},
	}

	delayed := DetectDelayedStudents(progress, today, thresholds)
	require.Len(t, delayed, 2)
	assert.Equal(t, "s2", delayed[0].StudentID)
	assert.Equal(t, "s1", delayed[1].StudentID)
	assert.Greater(t, delayed[0].Gap, delayed[1].Gap)
}

func TestDetectIrregularStudentsLapsedAttendance(t *testing.T) {
	today := day(2026, time.June, 1)
	window := models.Window{From: today.AddDate(0, 0, -30), To: today}
	thresholds := models.DefaultThresholds()

	progress := map[string]*AssignmentProgress{
		"a-s1": {Detail: detail("a-s1", "s1", "c1", window.From, 0, 0)},
		"a-s2": {Detail: detail("a-s2", "s2", "c1", window.From, 0, 0)},
	}

	uniform := []models.WeekBucket{{Sessions: 2}, {Sessions: 2}, {Sessions: 2}, {Sessions: 2}}
	summaries := []models.EntitySummary{
		{
			Entity:      models.EntityRef{Kind: models.EntityStudent, ID: "s1"},
			Attended:    4,
			Weekly:      uniform,
			LastSession: today.AddDate(0, 0, -21),
		},
		{
			Entity:      models.EntityRef{Kind: models.EntityStudent, ID: "s2"},
			Attended:    8,
			Weekly:      uniform,
			LastSession: today.AddDate(0, 0, -2),
		},
	}

	flagged := DetectIrregularStudents(summaries, progress, today, thresholds)
	require.Len(t, flagged, 1)
	assert.Equal(t, "s1", flagged[0].StudentID)
	assert.Equal(t, 21, flagged[0].DaysSinceLastSession)
	assert.InDelta(t, 1.0, flagged[0].Severity, 1e-9)
}

func TestDetectIrregularStudentsFlagsSilenceBeyondWindow(t *testing.T) {
	today := day(2026, time.June, 1)
	window := models.Window{From: today.AddDate(0, 0, -30), To: today}
	thresholds := models.DefaultThresholds()

	// The only session predates the window entirely, so the window summary
	// never sees the student; the drop-off must still register.
	records := []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r1", date: today.AddDate(0, 0, -40)}),
	}
	assignments := []models.AssignmentDetail{detail("a-s1", "s1", "c1", today.AddDate(0, 0, -60), 0, 0)}

	summaries := SummarizeAttendance(records, models.EntityStudent, window, today, nil, nil)
	require.Empty(t, summaries)

	progress := BuildAssignmentProgress(records, assignments)
	flagged := DetectIrregularStudents(summaries, progress, today, thresholds)
	require.Len(t, flagged, 1)
	assert.Equal(t, "s1", flagged[0].StudentID)
	assert.Equal(t, 40, flagged[0].DaysSinceLastSession)
	assert.InDelta(t, 1.0, flagged[0].Severity, 1e-9)
}

func TestDetectIrregularStudentsFlagsNeverAttended(t *testing.T) {
	today := day(2026, time.June, 1)
	thresholds := models.DefaultThresholds()

	// Active assignment, zero sessions ever: silent since the start date.
	progress := map[string]*AssignmentProgress{
		"a-s1": {Detail: detail("a-s1", "s1", "c1", today.AddDate(0, 0, -15), 0, 0)},
	}

	flagged := DetectIrregularStudents(nil, progress, today, thresholds)
	require.Len(t, flagged, 1)
	assert.Equal(t, 15, flagged[0].DaysSinceLastSession)
}

func TestDetectIrregularStudentsHighVariation(t *testing.T) {
	today := day(2026, time.June, 1)
	window := models.Window{From: today.AddDate(0, 0, -30), To: today}
	thresholds := models.DefaultThresholds()

	progress := map[string]*AssignmentProgress{
		"a-s1": {Detail: detail("a-s1", "s1", "c1", window.From, 0, 0)},
	}
	summaries := []models.EntitySummary{
		{
			Entity:      models.EntityRef{Kind: models.EntityStudent, ID: "s1"},
			Attended:    4,
			Weekly:      []models.WeekBucket{{Sessions: 4}, {Sessions: 0}},
			LastSession: today.AddDate(0, 0, -1),
		},
	}

	flagged := DetectIrregularStudents(summaries, progress, today, thresholds)
	require.Len(t, flagged, 1)
	assert.InDelta(t, 1.0, flagged[0].Variation, 1e-9)
}

func TestDetectIrregularStudentsSkipsInactive(t *testing.T) {
	today := day(2026, time.June, 1)
	window := models.Window{From: today.AddDate(0, 0, -30), To: today}

	inactive := detail("a-s1", "s1", "c1", window.From, 0, 0)
	inactive.Active = false
	progress := map[string]*AssignmentProgress{"a-s1": {Detail: inactive}}

	summaries := []models.EntitySummary{
		{
			Entity:      models.EntityRef{Kind: models.EntityStudent, ID: "s1"},
			LastSession: today.AddDate(0, 0, -60),
		},
	}

	flagged := DetectIrregularStudents(summaries, progress, today, models.DefaultThresholds())
	assert.Empty(t, flagged)
}

func TestDetectFacultyConflictsStrictOverlap(t *testing.T) {
	today := day(2026, time.June, 1)
	window := models.Window{From: today.AddDate(0, 0, -7), To: today}
	date := day(2026, time.May, 28)

	records := []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r1", student: "s1", date: date, start: 9, duration: 2}),
		buildRecord(recordOpts{id: "r2", student: "s2", date: date, start: 10, duration: 2}),
		// Starts exactly when r2 ends; touching endpoints do not conflict.
		buildRecord(recordOpts{id: "r3", student: "s3", date: date, start: 12, duration: 2}),
	}
	// r2 overlaps r1 by 60 of 120 minutes.
	end := sessionAt(date, 12)
	records[1].StartTime = time.Date(date.Year(), date.Month(), date.Day(), 10, 30, 0, 0, time.UTC)
	records[1].EndTime = &end

	conflicts, overloads := DetectFacultyConflicts(records, nil, window, today, models.DefaultThresholds())
	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, "f1", c.FacultyID)
	assert.Equal(t, sessionAt(date, 9), c.FirstStart)
	assert.Equal(t, records[1].StartTime, c.SecondStart)
	assert.InDelta(t, 0.5/1.5, c.Severity, 1e-9)
	assert.Empty(t, overloads)
}

func TestDetectFacultyConflictsIgnoresSeparateDays(t *testing.T) {
	today := day(2026, time.June, 1)
	window := models.Window{From: today.AddDate(0, 0, -7), To: today}

	records := []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r1", student: "s1", date: day(2026, time.May, 27), start: 9, duration: 2}),
		buildRecord(recordOpts{id: "r2", student: "s2", date: day(2026, time.May, 28), start: 9, duration: 2}),
	}

	conflicts, _ := DetectFacultyConflicts(records, nil, window, today, models.DefaultThresholds())
	assert.Empty(t, conflicts)
}

func TestDetectFacultyOverloadFlagsHeavyWeeks(t *testing.T) {
	today := day(2026, time.June, 1)
	window := models.Window{From: today.AddDate(0, 0, -30), To: today}

	summaries := []models.EntitySummary{
		{
			Entity: models.EntityRef{Kind: models.EntityFaculty, ID: "f1"},
			Weekly: []models.WeekBucket{
				{WeekStart: day(2026, time.May, 4), Hours: 45},
				{WeekStart: day(2026, time.May, 11), Hours: 30},
			},
		},
	}

	_, overloads := DetectFacultyConflicts(nil, summaries, window, today, models.DefaultThresholds())
	require.Len(t, overloads, 1)
	assert.Equal(t, day(2026, time.May, 4), overloads[0].WeekStart)
	assert.InDelta(t, 45.0, overloads[0].ScheduledHours, 1e-9)
	assert.InDelta(t, 5.0/40.0, overloads[0].Severity, 1e-9)
}

func TestDetectLowPerformingCentersOrderedWorstFirst(t *testing.T) {
	today := day(2026, time.June, 1)
	// Four weeks at 1 topic/week puts the expected count at 4 per assignment.
	start := today.AddDate(0, 0, -28)
	thresholds := models.DefaultThresholds()

	progress := map[string]*AssignmentProgress{
		"a1": {Detail: detail("a1", "s1", "c1", start, 10, 10), TopicsCovered: 2},
		"a2": {Detail: detail("a2", "s2", "c2", start, 10, 10), TopicsCovered: 1},
		"a3": {Detail: detail("a3", "s3", "c3", start, 10, 10), TopicsCovered: 4},
	}
	summaries := []models.EntitySummary{
		{Entity: models.EntityRef{Kind: models.EntityCenter, ID: "c1"}, Sessions: 10, Attended: 9},
		{Entity: models.EntityRef{Kind: models.EntityCenter, ID: "c2"}, Sessions: 10, Attended: 9},
		{Entity: models.EntityRef{Kind: models.EntityCenter, ID: "c3"}, Sessions: 10, Attended: 9},
	}

	flagged := DetectLowPerformingCenters(summaries, progress, today, thresholds)
	require.Len(t, flagged, 2)
	assert.Equal(t, "c2", flagged[0].CenterID)
	assert.InDelta(t, 0.25, flagged[0].CompletionRate, 1e-9)
	assert.Equal(t, "c1", flagged[1].CenterID)
	assert.InDelta(t, 0.5, flagged[1].CompletionRate, 1e-9)
	assert.InDelta(t, 1-0.5/0.8, flagged[1].Severity, 1e-9)
}

func TestDetectLowPerformingCentersAttendanceFloorWithoutPace(t *testing.T) {
	today := day(2026, time.June, 1)
	thresholds := models.DefaultThresholds()

	// No subject defines a pace, so completion cannot be computed; the
	// attendance floor must still catch the center.
	progress := map[string]*AssignmentProgress{
		"a1": {Detail: detail("a1", "s1", "c1", today.AddDate(0, 0, -28), 0, 0)},
	}
	summaries := []models.EntitySummary{
		{Entity: models.EntityRef{Kind: models.EntityCenter, ID: "c1"}, Sessions: 10, Attended: 4},
		{Entity: models.EntityRef{Kind: models.EntityCenter, ID: "c2"}, Sessions: 10, Attended: 9},
	}

	flagged := DetectLowPerformingCenters(summaries, progress, today, thresholds)
	require.Len(t, flagged, 1)
	assert.Equal(t, "c1", flagged[0].CenterID)
	assert.InDelta(t, 0.4, flagged[0].AttendanceRate, 1e-9)
	assert.InDelta(t, 1-0.4/0.6, flagged[0].Severity, 1e-9)
	assert.Zero(t, flagged[0].ActiveAssignments)
}

func TestDetectLowPerformingCentersEmptyProgress(t *testing.T) {
	flagged := DetectLowPerformingCenters(nil, nil, day(2026, time.June, 1), models.DefaultThresholds())
	assert.Empty(t, flagged)
}

func TestEstimateProfitability(t *testing.T) {
	cost := 1000.0
	highCost := 200.0
	centers := []models.Center{
		{ID: "c1", MonthlyCost: &cost},
		{ID: "c2"},
		{ID: "c3", MonthlyCost: &highCost},
	}
	counts := map[string]int{"c1": 5, "c2": 3, "c3": 10}

	thresholds := models.DefaultThresholds()
	thresholds.RevenuePerStudent = 100

	flagged := EstimateProfitability(centers, counts, thresholds)
	require.Len(t, flagged, 2)

	// c1 loses money and sorts before the insufficient-data entry.
	assert.Equal(t, "c1", flagged[0].CenterID)
	assert.InDelta(t, -500.0, flagged[0].Margin, 1e-9)
	assert.InDelta(t, 0.5, flagged[0].Severity, 1e-9)
	assert.False(t, flagged[0].InsufficientData)

	assert.Equal(t, "c2", flagged[1].CenterID)
	assert.True(t, flagged[1].InsufficientData)
}

func TestEstimateProfitabilityNoRevenueRate(t *testing.T) {
	cost := 100.0
	centers := []models.Center{{ID: "c1", MonthlyCost: &cost}}

	flagged := EstimateProfitability(centers, nil, models.DefaultThresholds())
	require.Len(t, flagged, 1)
	assert.True(t, flagged[0].InsufficientData)
}
