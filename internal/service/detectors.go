package service

import (
	"sort"
	"time"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// AssignmentProgress pairs an assignment with the topic and hour totals the
// student has accumulated against it. Totals are taken over the full record
// span the caller supplies, since progress is measured from the assignment
// start, not from the lookback window.
type AssignmentProgress struct {
	Detail        models.AssignmentDetail
	TopicsCovered int
	HoursSpent    float64
	LastSession   time.Time
}

// BuildAssignmentProgress folds attendance records into per-assignment
// progress. Cancelled and absent sessions contribute nothing.
func BuildAssignmentProgress(records []models.AttendanceRecord, assignments []models.AssignmentDetail) map[string]*AssignmentProgress {
	progress := make(map[string]*AssignmentProgress, len(assignments))
	topicSets := make(map[string]map[string]struct{}, len(assignments))
	for _, detail := range assignments {
		progress[detail.ID] = &AssignmentProgress{Detail: detail}
		topicSets[detail.ID] = make(map[string]struct{})
	}
	for _, record := range records {
		p, ok := progress[record.AssignmentID]
		if !ok || record.Status != models.AttendanceStatusPresent {
			continue
		}
		p.HoursSpent += record.DurationHours()
		for _, topic := range record.Topics {
			topicSets[record.AssignmentID][topic] = struct{}{}
		}
		date := dateOnly(record.Date)
		if date.After(p.LastSession) {
			p.LastSession = date
		}
	}
	for id, set := range topicSets {
		progress[id].TopicsCovered = len(set)
	}
	return progress
}

// expectedTopicsToDate derives how many topics an assignment should have
// covered by the reference date, given the subject pace.
func expectedTopicsToDate(detail models.AssignmentDetail, today time.Time) float64 {
	pace := detail.ExpectedTopicsPerWeek()
	if pace <= 0 {
		return 0
	}
	days := dateOnly(today).Sub(dateOnly(detail.StartDate)).Hours() / 24
	if days <= 0 {
		return 0
	}
	expected := days / 7 * pace
	if max := float64(detail.TopicCount); expected > max {
		return max
	}
	return expected
}

// DetectLowPerformingCenters flags centers whose aggregate completion rate or
// attendance rate fell below the configured floors. Output is ordered worst
// first (ascending completion rate).
func DetectLowPerformingCenters(centerSummaries []models.EntitySummary, progress map[string]*AssignmentProgress, today time.Time, t models.Thresholds) []models.CenterPerformance {
	type centerAgg struct {
		completionSum float64
		assignments   int
	}
	byCenter := make(map[string]*centerAgg)
	for _, p := range progress {
		if !p.Detail.Active {
			continue
		}
		expected := expectedTopicsToDate(p.Detail, today)
		if expected <= 0 {
			continue
		}
		agg, ok := byCenter[p.Detail.CenterID]
		if !ok {
			agg = &centerAgg{}
			byCenter[p.Detail.CenterID] = agg
		}
		agg.completionSum += clamp01(float64(p.TopicsCovered) / expected)
		agg.assignments++
	}

	attendanceByCenter := make(map[string]float64, len(centerSummaries))
	for _, summary := range centerSummaries {
		attendanceByCenter[summary.Entity.ID] = summary.AttendanceRate()
	}

	var flagged []models.CenterPerformance
	for centerID, agg := range byCenter {
		if agg.assignments == 0 {
			continue
		}
		completion := agg.completionSum / float64(agg.assignments)
		attendance := attendanceByCenter[centerID]
		if completion >= t.CompletionThreshold && attendance >= t.AttendanceRateFloor {
			continue
		}
		severity := clamp01(1 - completion/t.CompletionThreshold)
		if t.AttendanceRateFloor > 0 {
			if s := clamp01(1 - attendance/t.AttendanceRateFloor); s > severity {
				severity = s
			}
		}
		flagged = append(flagged, models.CenterPerformance{
			CenterID:          centerID,
			CompletionRate:    completion,
			AttendanceRate:    attendance,
			ActiveAssignments: agg.assignments,
			Severity:          severity,
		})
	}
	// Centers with no paced assignments never enter byCenter but can still
	// fail the attendance floor.
	for _, summary := range centerSummaries {
		if _, ok := byCenter[summary.Entity.ID]; ok {
			continue
		}
		if summary.Sessions == 0 || t.AttendanceRateFloor <= 0 {
			continue
		}
		attendance := summary.AttendanceRate()
		if attendance >= t.AttendanceRateFloor {
			continue
		}
		flagged = append(flagged, models.CenterPerformance{
			CenterID:       summary.Entity.ID,
			AttendanceRate: attendance,
			Severity:       clamp01(1 - attendance/t.AttendanceRateFloor),
		})
	}

	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].CompletionRate == flagged[j].CompletionRate {
			return flagged[i].CenterID < flagged[j].CenterID
		}
		return flagged[i].CompletionRate < flagged[j].CompletionRate
	})
	return flagged
}

// DetectIrregularStudents flags erratic weekly attendance (high coefficient
// of variation) and silent drop-off (long gap since the last session while an
// assignment is still active). The drop-off gap is measured over the full
// record history carried by progress, so a student silent for longer than the
// analysis window is still flagged even though the window summary never sees
// them.
func DetectIrregularStudents(studentSummaries []models.EntitySummary, progress map[string]*AssignmentProgress, today time.Time, t models.Thresholds) []models.StudentIrregularity {
	type studentState struct {
		lastSession time.Time
		firstStart  time.Time
	}
	active := make(map[string]*studentState)
	for _, p := range progress {
		if !p.Detail.Active {
			continue
		}
		st, ok := active[p.Detail.StudentID]
		if !ok {
			st = &studentState{}
			active[p.Detail.StudentID] = st
		}
		if p.LastSession.After(st.lastSession) {
			st.lastSession = p.LastSession
		}
		start := dateOnly(p.Detail.StartDate)
		if st.firstStart.IsZero() || start.Before(st.firstStart) {
			st.firstStart = start
		}
	}

	summaries := make(map[string]models.EntitySummary, len(studentSummaries))
	for _, summary := range studentSummaries {
		summaries[summary.Entity.ID] = summary
	}

	today = dateOnly(today)
	var flagged []models.StudentIrregularity
	for studentID, st := range active {
		var variation float64
		last := st.lastSession
		if summary, ok := summaries[studentID]; ok {
			variation = coefficientOfVariation(summary.Weekly)
			if summary.LastSession.After(last) {
				last = summary.LastSession
			}
		}

		gapDays := 0
		switch {
		case !last.IsZero():
			gapDays = int(today.Sub(last).Hours() / 24)
		case !st.firstStart.IsZero():
			// Never attended at all: silent since the assignment started.
			gapDays = int(today.Sub(st.firstStart).Hours() / 24)
		}
		if gapDays < 0 {
			gapDays = 0
		}

		irregular := variation > t.IrregularityCutoff
		lapsed := gapDays > t.DaysThreshold
		if !irregular && !lapsed {
			continue
		}

		severity := clamp01(variation / (2 * t.IrregularityCutoff))
		if lapsed {
			if s := clamp01(float64(gapDays) / float64(3*t.DaysThreshold)); s > severity {
				severity = s
			}
		}
		flagged = append(flagged, models.StudentIrregularity{
			StudentID:            studentID,
			Variation:            variation,
			DaysSinceLastSession: gapDays,
			Severity:             severity,
		})
	}
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].Severity == flagged[j].Severity {
			return flagged[i].StudentID < flagged[j].StudentID
		}
		return flagged[i].Severity > flagged[j].Severity
	})
	return flagged
}

// DetectDelayedStudents flags assignments whose covered topics trail the
// expected pace by more than the slack fraction, or that have dragged past
// the month threshold with a low completion rate. Ties break by largest
// expected-minus-actual gap.
func DetectDelayedStudents(progress map[string]*AssignmentProgress, today time.Time, t models.Thresholds) []models.StudentDelay {
	today = dateOnly(today)
	var flagged []models.StudentDelay
	for _, p := range progress {
		if !p.Detail.Active {
			continue
		}
		expected := expectedTopicsToDate(p.Detail, today)
		if expected <= 0 {
			continue
		}
		actual := p.TopicsCovered
		gap := expected - float64(actual)

		var completion float64
		if p.Detail.TopicCount > 0 {
			completion = float64(actual) / float64(p.Detail.TopicCount)
		}
		months := monthsBetween(p.Detail.StartDate, today)

		behindPace := float64(actual) < expected*(1-t.DelaySlackFraction)
		overdue := months >= t.MonthsThreshold && completion < t.CompletionThreshold
		if !behindPace && !overdue {
			continue
		}

		flagged = append(flagged, models.StudentDelay{
			StudentID:      p.Detail.StudentID,
			AssignmentID:   p.Detail.ID,
			ExpectedTopics: expected,
			ActualTopics:   actual,
			Gap:            gap,
			MonthsElapsed:  months,
			CompletionRate: completion,
			Severity:       clamp01(gap / expected),
		})
	}
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].Gap == flagged[j].Gap {
			return flagged[i].AssignmentID < flagged[j].AssignmentID
		}
		return flagged[i].Gap > flagged[j].Gap
	})
	return flagged
}

// DetectFacultyConflicts groups a faculty member's sessions by day and flags
// strictly overlapping intervals; touching endpoints do not conflict. It also
// flags weeks whose scheduled hours exceed the configured cap.
func DetectFacultyConflicts(records []models.AttendanceRecord, facultySummaries []models.EntitySummary, window models.Window, today time.Time, t models.Thresholds) ([]models.FacultyConflict, []models.FacultyOverload) {
	type interval struct {
		start, end time.Time
	}
	byDay := make(map[string]map[time.Time][]interval)

	today = dateOnly(today)
	for _, record := range records {
		date := dateOnly(record.Date)
		if record.Status == models.AttendanceStatusCancelled || date.After(today) {
			continue
		}
		if date.Before(dateOnly(window.From)) || date.After(dateOnly(window.To)) {
			continue
		}
		end := record.StartTime
		if record.EndTime != nil {
			end = *record.EndTime
		}
		days, ok := byDay[record.FacultyID]
		if !ok {
			days = make(map[time.Time][]interval)
			byDay[record.FacultyID] = days
		}
		days[date] = append(days[date], interval{start: record.StartTime, end: end})
	}

	var conflicts []models.FacultyConflict
	for facultyID, days := range byDay {
		for date, intervals := range days {
			sort.Slice(intervals, func(i, j int) bool {
				return intervals[i].start.Before(intervals[j].start)
			})
			for i := 0; i < len(intervals); i++ {
				for j := i + 1; j < len(intervals); j++ {
					a, b := intervals[i], intervals[j]
					if a.start.Before(b.end) && b.start.Before(a.end) {
						conflicts = append(conflicts, models.FacultyConflict{
							FacultyID:   facultyID,
							Date:        date,
							FirstStart:  a.start,
							FirstEnd:    a.end,
							SecondStart: b.start,
							SecondEnd:   b.end,
							Severity:    overlapSeverity(a.start, a.end, b.start, b.end),
						})
					}
				}
			}
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].FacultyID == conflicts[j].FacultyID {
			return conflicts[i].FirstStart.Before(conflicts[j].FirstStart)
		}
		return conflicts[i].FacultyID < conflicts[j].FacultyID
	})

	var overloads []models.FacultyOverload
	for _, summary := range facultySummaries {
		for _, bucket := range summary.Weekly {
			if bucket.Hours <= t.WeeklyHoursCap {
				continue
			}
			overloads = append(overloads, models.FacultyOverload{
				FacultyID:      summary.Entity.ID,
				WeekStart:      bucket.WeekStart,
				ScheduledHours: bucket.Hours,
				Severity:       clamp01((bucket.Hours - t.WeeklyHoursCap) / t.WeeklyHoursCap),
			})
		}
	}
	sort.Slice(overloads, func(i, j int) bool {
		if overloads[i].FacultyID == overloads[j].FacultyID {
			return overloads[i].WeekStart.Before(overloads[j].WeekStart)
		}
		return overloads[i].FacultyID < overloads[j].FacultyID
	})
	return conflicts, overloads
}

// EstimateProfitability computes a heuristic net margin per center. Missing
// cost or revenue inputs degrade to insufficient data instead of failing.
// Only centers below the margin floor or lacking inputs are returned, margin
// ascending.
func EstimateProfitability(centers []models.Center, activeStudents map[string]int, t models.Thresholds) []models.CenterProfitability {
	var flagged []models.CenterProfitability
	for _, center := range centers {
		students := activeStudents[center.ID]
		if center.MonthlyCost == nil || t.RevenuePerStudent <= 0 {
			flagged = append(flagged, models.CenterProfitability{
				CenterID:         center.ID,
				ActiveStudents:   students,
				InsufficientData: true,
			})
			continue
		}
		revenue := t.RevenuePerStudent * float64(students)
		cost := *center.MonthlyCost
		margin := revenue - cost
		if margin >= t.MarginFloor {
			continue
		}
		var severity float64
		if cost > 0 {
			severity = clamp01((t.MarginFloor - margin) / cost)
		}
		flagged = append(flagged, models.CenterProfitability{
			CenterID:       center.ID,
			ActiveStudents: students,
			Revenue:        revenue,
			Cost:           cost,
			Margin:         margin,
			Severity:       severity,
		})
	}
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].InsufficientData != flagged[j].InsufficientData {
			return !flagged[i].InsufficientData
		}
		if flagged[i].Margin == flagged[j].Margin {
			return flagged[i].CenterID < flagged[j].CenterID
		}
		return flagged[i].Margin < flagged[j].Margin
	})
	return flagged
}

func overlapSeverity(aStart, aEnd, bStart, bEnd time.Time) float64 {
	overlapStart := aStart
	if bStart.After(overlapStart) {
		overlapStart = bStart
	}
	overlapEnd := aEnd
	if bEnd.Before(overlapEnd) {
		overlapEnd = bEnd
	}
	overlap := overlapEnd.Sub(overlapStart)
	shorter := aEnd.Sub(aStart)
	if other := bEnd.Sub(bStart); other < shorter {
		shorter = other
	}
	if shorter <= 0 {
		return 0
	}
	return clamp01(float64(overlap) / float64(shorter))
}

func monthsBetween(start, end time.Time) int {
	start = dateOnly(start)
	end = dateOnly(end)
	months := 0
	for cursor := start.AddDate(0, 1, 0); !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
		months++
	}
	return months
}
