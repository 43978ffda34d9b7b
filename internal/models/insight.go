package models

import "time"

// Window is the [From, To] date range over which aggregation and detection run.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Days returns the inclusive number of calendar days covered by the window.
func (w Window) Days() int {
	if w.To.Before(w.From) {
		return 0
	}
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

// Scope narrows an insight run to a subset of entities. Empty fields mean no
// restriction; permission filtering happens in the calling application.
type Scope struct {
	CenterID  string `json:"center_id,omitempty"`
	StudentID string `json:"student_id,omitempty"`
	FacultyID string `json:"faculty_id,omitempty"`
}

// ScoreWeights blends the three sub-scores of the composite performance score.
// The weights must sum to 1.0.
type ScoreWeights struct {
	Consistency float64 `json:"consistency"`
	Efficiency  float64 `json:"efficiency"`
	Progress    float64 `json:"progress"`
}

// Thresholds carries every tunable cutoff used by the detectors and the
// scorer. Values are supplied per call; config provides the defaults.
type Thresholds struct {
	DaysThreshold       int          `json:"days_threshold"`
	MonthsThreshold     int          `json:"months_threshold"`
	CompletionThreshold float64      `json:"completion_threshold"`
	AttendanceRateFloor float64      `json:"attendance_rate_floor"`
	IrregularityCutoff  float64      `json:"irregularity_cutoff"`
	DelaySlackFraction  float64      `json:"delay_slack_fraction"`
	WeeklyHoursCap      float64      `json:"weekly_hours_cap"`
	MarginFloor         float64      `json:"margin_floor"`
	RevenuePerStudent   float64      `json:"revenue_per_student"`
	DensityClampHours   float64      `json:"density_clamp_hours"`
	Weights             ScoreWeights `json:"weights"`
}

// DefaultThresholds returns the reference configuration documented for the
// engine. Callers may override any field before validation.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DaysThreshold:       7,
		MonthsThreshold:     6,
		CompletionThreshold: 0.8,
		AttendanceRateFloor: 0.6,
		IrregularityCutoff:  0.5,
		DelaySlackFraction:  0.2,
		WeeklyHoursCap:      40,
		MarginFloor:         0,
		RevenuePerStudent:   0,
		DensityClampHours:   12,
		Weights:             ScoreWeights{Consistency: 0.3, Efficiency: 0.3, Progress: 0.4},
	}
}

// WeekBucket is one week's worth of session activity for an entity.
type WeekBucket struct {
	WeekStart time.Time `json:"week_start"`
	Sessions  int       `json:"sessions"`
	Hours     float64   `json:"hours"`
}

// EntitySummary is the time-bucketed aggregate produced for a single center,
// student or faculty member over a lookback window.
type EntitySummary struct {
	Entity        EntityRef    `json:"entity"`
	Sessions      int          `json:"sessions"`
	Attended      int          `json:"attended"`
	TotalHours    float64      `json:"total_hours"`
	ActiveDays    int          `json:"active_days"`
	TopicsCovered int          `json:"topics_covered"`
	Weekly        []WeekBucket `json:"weekly"`
	LastSession   time.Time    `json:"last_session"`
	LowConfidence int          `json:"low_confidence"`
}

// AttendanceRate is the share of scheduled sessions the entity attended.
func (s EntitySummary) AttendanceRate() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return float64(s.Attended) / float64(s.Sessions)
}

// TriggerKind categorises the condition that produced an action item.
type TriggerKind string

const (
	TriggerLowPerformingCenter TriggerKind = "low_performing_center"
	TriggerIrregularStudent    TriggerKind = "irregular_student"
	TriggerDelayedStudent      TriggerKind = "delayed_student"
	TriggerFacultyConflict     TriggerKind = "faculty_conflict"
	TriggerLowProfitability    TriggerKind = "low_profitability"
)

// Valid returns true when the trigger kind is a supported value.
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerLowPerformingCenter, TriggerIrregularStudent, TriggerDelayedStudent,
		TriggerFacultyConflict, TriggerLowProfitability:
		return true
	default:
		return false
	}
}

// CenterPerformance flags a center whose completion or attendance rate fell
// below the configured floors.
type CenterPerformance struct {
	CenterID          string  `json:"center_id"`
	CompletionRate    float64 `json:"completion_rate"`
	AttendanceRate    float64 `json:"attendance_rate"`
	ActiveAssignments int     `json:"active_assignments"`
	Severity          float64 `json:"severity"`
}

// StudentIrregularity flags erratic or silently lapsed attendance.
type StudentIrregularity struct {
	StudentID            string  `json:"student_id"`
	Variation            float64 `json:"variation"`
	DaysSinceLastSession int     `json:"days_since_last_session"`
	Severity             float64 `json:"severity"`
}

// StudentDelay flags a student whose covered topics trail the expected pace.
type StudentDelay struct {
	StudentID      string  `json:"student_id"`
	AssignmentID   string  `json:"assignment_id"`
	ExpectedTopics float64 `json:"expected_topics"`
	ActualTopics   int     `json:"actual_topics"`
	Gap            float64 `json:"gap"`
	MonthsElapsed  int     `json:"months_elapsed"`
	CompletionRate float64 `json:"completion_rate"`
	Severity       float64 `json:"severity"`
}

// FacultyConflict records two same-day sessions with overlapping intervals.
type FacultyConflict struct {
	FacultyID   string    `json:"faculty_id"`
	Date        time.Time `json:"date"`
	FirstStart  time.Time `json:"first_start"`
	FirstEnd    time.Time `json:"first_end"`
	SecondStart time.Time `json:"second_start"`
	SecondEnd   time.Time `json:"second_end"`
	Severity    float64   `json:"severity"`
}

// FacultyOverload flags a week whose scheduled hours exceed the cap.
type FacultyOverload struct {
	FacultyID      string    `json:"faculty_id"`
	WeekStart      time.Time `json:"week_start"`
	ScheduledHours float64   `json:"scheduled_hours"`
	Severity       float64   `json:"severity"`
}

// CenterProfitability is a heuristic margin estimate for a center. When the
// cost basis or revenue rate is unavailable the entry degrades to
// insufficient data instead of failing.
type CenterProfitability struct {
	CenterID         string  `json:"center_id"`
	ActiveStudents   int     `json:"active_students"`
	Revenue          float64 `json:"revenue"`
	Cost             float64 `json:"cost"`
	Margin           float64 `json:"margin"`
	InsufficientData bool    `json:"insufficient_data"`
	Severity         float64 `json:"severity"`
}

// InsightSet is the combined output of one detection run.
type InsightSet struct {
	Window               Window                `json:"window"`
	GeneratedAt          time.Time             `json:"generated_at"`
	LowPerformingCenters []CenterPerformance   `json:"low_performing_centers"`
	IrregularStudents    []StudentIrregularity `json:"irregular_students"`
	DelayedStudents      []StudentDelay        `json:"delayed_students"`
	FacultyConflicts     []FacultyConflict     `json:"faculty_conflicts"`
	FacultyOverloads     []FacultyOverload     `json:"faculty_overloads"`
	Profitability        []CenterProfitability `json:"profitability"`
}

// StudentScore is the composite performance score with its sub-scores.
type StudentScore struct {
	StudentID        string  `json:"student_id"`
	Composite        float64 `json:"composite"`
	Consistency      float64 `json:"consistency"`
	Efficiency       float64 `json:"efficiency"`
	Progress         float64 `json:"progress"`
	InsufficientData bool    `json:"insufficient_data"`
}

// TimelineEntry is one interval in a Gantt-style schedule view.
type TimelineEntry struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CalendarDay maps one calendar date to attended hours. Intensity carries the
// clamped value used for colour scaling; Hours keeps the raw total.
type CalendarDay struct {
	Date      string  `json:"date"`
	Hours     float64 `json:"hours"`
	Intensity float64 `json:"intensity"`
}

// BridgeRunResult summarises one insight-to-action bridging run.
type BridgeRunResult struct {
	TasksCreated         int `json:"tasks_created"`
	NotificationsCreated int `json:"notifications_created"`
	Skipped              int `json:"skipped"`
}

// SystemMetrics represents system level statistics captured from
// instrumentation, surfaced for the operations dashboard.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	InsightRuns              uint64    `json:"insight_runs"`
	BridgeRuns               uint64    `json:"bridge_runs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
