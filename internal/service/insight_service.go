package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

// AttendanceReader loads attendance records for aggregation and detection.
type AttendanceReader interface {
	ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// AssignmentReader loads assignment details joined with subject syllabus data.
type AssignmentReader interface {
	ListDetails(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	GetDetail(ctx context.Context, id string) (*models.AssignmentDetail, error)
}

// EntityReader resolves centers, students and faculty.
type EntityReader interface {
	GetCenter(ctx context.Context, id string) (*models.Center, error)
	ListCenters(ctx context.Context) ([]models.Center, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetFaculty(ctx context.Context, id string) (*models.Faculty, error)
	CountActiveStudents(ctx context.Context, centerID string) (int, error)
}

// InsightServiceParams bundles the dependencies for NewInsightService.
type InsightServiceParams struct {
	Attendance  AttendanceReader
	Assignments AssignmentReader
	Entities    EntityReader
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	CacheTTL    time.Duration
	Now         func() time.Time
}

// InsightService runs the detection pipeline: load records, aggregate,
// detect, score. All computation is read-only; results are cached briefly
// because attendance data changes slowly between runs.
type InsightService struct {
	attendance  AttendanceReader
	assignments AssignmentReader
	entities    EntityReader
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	cacheTTL    time.Duration
	now         func() time.Time
}

// NewInsightService constructs the service, defaulting optional dependencies.
func NewInsightService(p InsightServiceParams) *InsightService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = 10 * time.Minute
	}
	return &InsightService{
		attendance:  p.Attendance,
		assignments: p.Assignments,
		entities:    p.Entities,
		cache:       p.Cache,
		metrics:     p.Metrics,
		logger:      p.Logger,
		cacheTTL:    p.CacheTTL,
		now:         p.Now,
	}
}

// ComputeInsights runs every detector over the window and scope. Thresholds
// are validated before anything is loaded; a bad configuration never produces
// a partial result. The boolean reports whether the result came from cache.
func (s *InsightService) ComputeInsights(ctx context.Context, window models.Window, scope models.Scope, today time.Time, t models.Thresholds) (*models.InsightSet, bool, error) {
	if err := ValidateThresholds(t); err != nil {
		return nil, false, err
	}
	if err := validateWindow(window); err != nil {
		return nil, false, err
	}
	if today.IsZero() {
		today = s.now().UTC()
	}
	today = dateOnly(today)

	cacheKey := insightCacheKey("insights", window, scope, today, t)
	var cached models.InsightSet
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	records, assignments, err := s.loadInputs(ctx, scope, window.To)
	if err != nil {
		return nil, false, err
	}
	enrolledAt := enrollmentIndex(assignments)

	// Aggregation respects the window; progress is measured over the full
	// record history so pace is judged from the assignment start.
	centerSummaries := SummarizeAttendance(records, models.EntityCenter, window, today, enrolledAt, s.logger)
	studentSummaries := SummarizeAttendance(records, models.EntityStudent, window, today, enrolledAt, s.logger)
	facultySummaries := SummarizeAttendance(records, models.EntityFaculty, window, today, enrolledAt, s.logger)
	progress := BuildAssignmentProgress(records, assignments)

	conflicts, overloads := DetectFacultyConflicts(records, facultySummaries, window, today, t)

	set := &models.InsightSet{
		Window:               window,
		GeneratedAt:          s.now().UTC(),
		LowPerformingCenters: DetectLowPerformingCenters(centerSummaries, progress, today, t),
		IrregularStudents:    DetectIrregularStudents(studentSummaries, progress, today, t),
		DelayedStudents:      DetectDelayedStudents(progress, today, t),
		FacultyConflicts:     conflicts,
		FacultyOverloads:     overloads,
	}

	profitability, err := s.estimateProfitability(ctx, scope, t)
	if err != nil {
		return nil, false, err
	}
	set.Profitability = profitability

	if s.metrics != nil {
		s.metrics.ObserveInsightRun(time.Since(start))
	}
	s.logger.Info("insight run completed",
		zap.Time("window_from", window.From),
		zap.Time("window_to", window.To),
		zap.Int("records", len(records)),
		zap.Int("low_performing_centers", len(set.LowPerformingCenters)),
		zap.Int("irregular_students", len(set.IrregularStudents)),
		zap.Int("delayed_students", len(set.DelayedStudents)),
		zap.Int("faculty_conflicts", len(set.FacultyConflicts)),
		zap.Duration("duration", time.Since(start)))

	_ = s.cache.Set(ctx, cacheKey, set, s.cacheTTL)
	return set, false, nil
}

// StudentScore computes the composite performance score for one student.
func (s *InsightService) StudentScore(ctx context.Context, studentID string, window models.Window, today time.Time, t models.Thresholds) (*models.StudentScore, error) {
	if err := ValidateThresholds(t); err != nil {
		return nil, err
	}
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if today.IsZero() {
		today = s.now().UTC()
	}
	today = dateOnly(today)

	student, err := s.entities.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	dateTo := dateOnly(window.To)
	records, err := s.listRecords(ctx, models.AttendanceFilter{StudentID: student.ID, DateTo: &dateTo})
	if err != nil {
		return nil, err
	}
	assignments, err := s.listAssignments(ctx, models.AssignmentFilter{StudentID: student.ID})
	if err != nil {
		return nil, err
	}

	enrolledAt := map[string]time.Time{student.ID: student.EnrolledAt}
	summaries := SummarizeAttendance(records, models.EntityStudent, window, today, enrolledAt, s.logger)
	var summary models.EntitySummary
	for _, candidate := range summaries {
		if candidate.Entity.ID == student.ID {
			summary = candidate
			break
		}
	}

	progressMap := BuildAssignmentProgress(records, assignments)
	progress := make([]*AssignmentProgress, 0, len(progressMap))
	for _, p := range progressMap {
		progress = append(progress, p)
	}

	score := ComputeStudentScore(student.ID, summary, progress, today, t)
	return &score, nil
}

// Timeline builds the Gantt-style session view for a center, student or
// faculty member. Session labels carry the subject name when resolvable.
func (s *InsightService) Timeline(ctx context.Context, entity models.EntityRef, window models.Window) ([]models.TimelineEntry, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	records, err := s.entityRecords(ctx, entity, window)
	if err != nil {
		return nil, err
	}

	names, err := s.subjectNames(ctx, entity)
	if err != nil {
		return nil, err
	}
	entries := BuildTimeline(records, window, func(r models.AttendanceRecord) string {
		if name, ok := names[r.SubjectID]; ok && name != "" {
			return name
		}
		return r.SubjectID
	})
	return entries, nil
}

// CalendarDensity builds the per-day attended-hours grid for an entity.
func (s *InsightService) CalendarDensity(ctx context.Context, entity models.EntityRef, window models.Window, clampHours float64) ([]models.CalendarDay, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if clampHours <= 0 {
		clampHours = models.DefaultThresholds().DensityClampHours
	}
	records, err := s.entityRecords(ctx, entity, window)
	if err != nil {
		return nil, err
	}
	return BuildCalendarDensity(records, window, clampHours), nil
}

func (s *InsightService) loadInputs(ctx context.Context, scope models.Scope, to time.Time) ([]models.AttendanceRecord, []models.AssignmentDetail, error) {
	dateTo := dateOnly(to)
	records, err := s.listRecords(ctx, models.AttendanceFilter{
		CenterID:  scope.CenterID,
		StudentID: scope.StudentID,
		FacultyID: scope.FacultyID,
		DateTo:    &dateTo,
	})
	if err != nil {
		return nil, nil, err
	}
	assignments, err := s.listAssignments(ctx, models.AssignmentFilter{
		CenterID:  scope.CenterID,
		StudentID: scope.StudentID,
		FacultyID: scope.FacultyID,
	})
	if err != nil {
		return nil, nil, err
	}
	return records, assignments, nil
}

func (s *InsightService) estimateProfitability(ctx context.Context, scope models.Scope, t models.Thresholds) ([]models.CenterProfitability, error) {
	var centers []models.Center
	if scope.CenterID != "" {
		center, err := s.entities.GetCenter(ctx, scope.CenterID)
		if err != nil {
			return nil, err
		}
		centers = []models.Center{*center}
	} else {
		var err error
		centers, err = s.entities.ListCenters(ctx)
		if err != nil {
			return nil, err
		}
	}

	counts := make(map[string]int, len(centers))
	for _, center := range centers {
		count, err := s.entities.CountActiveStudents(ctx, center.ID)
		if err != nil {
			return nil, err
		}
		counts[center.ID] = count
	}
	return EstimateProfitability(centers, counts, t), nil
}

func (s *InsightService) entityRecords(ctx context.Context, entity models.EntityRef, window models.Window) ([]models.AttendanceRecord, error) {
	dateFrom := dateOnly(window.From)
	dateTo := dateOnly(window.To)
	filter := models.AttendanceFilter{DateFrom: &dateFrom, DateTo: &dateTo}
	switch entity.Kind {
	case models.EntityCenter:
		if _, err := s.entities.GetCenter(ctx, entity.ID); err != nil {
			return nil, err
		}
		filter.CenterID = entity.ID
	case models.EntityStudent:
		if _, err := s.entities.GetStudent(ctx, entity.ID); err != nil {
			return nil, err
		}
		filter.StudentID = entity.ID
	case models.EntityFaculty:
		if _, err := s.entities.GetFaculty(ctx, entity.ID); err != nil {
			return nil, err
		}
		filter.FacultyID = entity.ID
	default:
		return nil, appErrors.New("INVALID_ENTITY_KIND", http.StatusBadRequest, fmt.Sprintf("unsupported entity kind %q", entity.Kind))
	}
	return s.listRecords(ctx, filter)
}

func (s *InsightService) subjectNames(ctx context.Context, entity models.EntityRef) (map[string]string, error) {
	filter := models.AssignmentFilter{}
	switch entity.Kind {
	case models.EntityCenter:
		filter.CenterID = entity.ID
	case models.EntityStudent:
		filter.StudentID = entity.ID
	case models.EntityFaculty:
		filter.FacultyID = entity.ID
	}
	details, err := s.listAssignments(ctx, filter)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(details))
	for _, detail := range details {
		names[detail.SubjectID] = detail.SubjectName
	}
	return names, nil
}

func (s *InsightService) listRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	start := time.Now()
	records, err := s.attendance.ListRecords(ctx, filter)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("attendance_list", time.Since(start))
	}
	return records, err
}

func (s *InsightService) listAssignments(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	start := time.Now()
	details, err := s.assignments.ListDetails(ctx, filter)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("assignment_list", time.Since(start))
	}
	return details, err
}

func validateWindow(window models.Window) error {
	if window.From.IsZero() || window.To.IsZero() {
		return appErrors.New("INVALID_WINDOW", http.StatusBadRequest, "window requires both from and to dates")
	}
	if window.To.Before(window.From) {
		return appErrors.New("INVALID_WINDOW", http.StatusBadRequest, "window end precedes window start")
	}
	return nil
}

// enrollmentIndex maps student IDs to enrollment dates from assignment rows.
func enrollmentIndex(assignments []models.AssignmentDetail) map[string]time.Time {
	index := make(map[string]time.Time, len(assignments))
	for _, detail := range assignments {
		index[detail.StudentID] = detail.EnrolledAt
	}
	return index
}

// insightCacheKey derives a deterministic key from every input that affects
// the result, so threshold overrides never serve stale payloads.
func insightCacheKey(prefix string, window models.Window, scope models.Scope, today time.Time, t models.Thresholds) string {
	payload, _ := json.Marshal(struct {
		Window     models.Window     `json:"window"`
		Scope      models.Scope      `json:"scope"`
		Today      string            `json:"today"`
		Thresholds models.Thresholds `json:"thresholds"`
	}{window, scope, today.Format("2006-01-02"), t})
	sum := sha256.Sum256(payload)
	return prefix + ":" + hex.EncodeToString(sum[:8])
}
