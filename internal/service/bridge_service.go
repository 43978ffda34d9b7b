package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

// TaskWriter persists follow-up tasks with conditional-insert semantics.
type TaskWriter interface {
	CreateIfAbsent(ctx context.Context, task models.Task) (*models.Task, bool, error)
}

// NotificationWriter persists notifications and answers cool-down queries.
type NotificationWriter interface {
	Create(ctx context.Context, notification models.Notification) (*models.Notification, error)
	ExistsSince(ctx context.Context, recipientID string, trigger models.TriggerKind, entityKind models.EntityKind, entityID string, cutoff time.Time) (bool, error)
}

// BridgeServiceParams bundles the dependencies for NewBridgeService.
type BridgeServiceParams struct {
	Insights      *InsightService
	Tasks         TaskWriter
	Notifications NotificationWriter
	Entities      EntityReader
	Assignments   AssignmentReader
	Metrics       *MetricsService
	Logger        *zap.Logger
	Cooldown      time.Duration
	MasterID      string
	DueDays       int
	ConflictDays  int
	Now           func() time.Time
}

// BridgeService converts detection results into tasks and notifications.
// Creation is idempotent per (trigger kind, entity): the database's partial
// unique index guards against concurrent runs, an in-process keyed lock keeps
// a single run from racing itself, and the notification cool-down suppresses
// repeats inside the configured interval.
type BridgeService struct {
	insights      *InsightService
	tasks         TaskWriter
	notifications NotificationWriter
	entities      EntityReader
	assignments   AssignmentReader
	metrics       *MetricsService
	logger        *zap.Logger
	cooldown      time.Duration
	masterID      string
	dueDays       int
	conflictDays  int
	now           func() time.Time

	locks sync.Map
}

// NewBridgeService constructs the service, defaulting optional dependencies.
func NewBridgeService(p BridgeServiceParams) *BridgeService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Cooldown <= 0 {
		p.Cooldown = 24 * time.Hour
	}
	if p.DueDays <= 0 {
		p.DueDays = 7
	}
	if p.ConflictDays <= 0 {
		p.ConflictDays = 2
	}
	return &BridgeService{
		insights:      p.Insights,
		tasks:         p.Tasks,
		notifications: p.Notifications,
		entities:      p.Entities,
		assignments:   p.Assignments,
		metrics:       p.Metrics,
		logger:        p.Logger,
		cooldown:      p.Cooldown,
		masterID:      p.MasterID,
		dueDays:       p.DueDays,
		conflictDays:  p.ConflictDays,
		now:           p.Now,
	}
}

// actionItem is one flagged condition normalised for bridging.
type actionItem struct {
	trigger    models.TriggerKind
	entityKind models.EntityKind
	entityID   string
	severity   float64
	title      string
	detail     string
	dueDays    int
}

// RunBridge computes insights for the window and materialises tasks and
// notifications for every flagged condition. Re-running with unchanged inputs
// creates nothing new. Stale references are skipped and counted, never fatal.
func (s *BridgeService) RunBridge(ctx context.Context, window models.Window, scope models.Scope, today time.Time, t models.Thresholds) (*models.BridgeRunResult, error) {
	set, _, err := s.insights.ComputeInsights(ctx, window, scope, today, t)
	if err != nil {
		return nil, err
	}

	result := &models.BridgeRunResult{}
	for _, item := range s.collectItems(set) {
		if err := s.bridgeItem(ctx, item, result); err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveBridgeRun(*result)
	}
	s.logger.Info("bridge run completed",
		zap.Int("tasks_created", result.TasksCreated),
		zap.Int("notifications_created", result.NotificationsCreated),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// collectItems flattens the insight set into one action item per flagged
// condition. Conflicts and overloads collapse to one item per faculty member
// so a chaotic week produces a single task, not one per collision.
func (s *BridgeService) collectItems(set *models.InsightSet) []actionItem {
	var items []actionItem

	for _, c := range set.LowPerformingCenters {
		items = append(items, actionItem{
			trigger:    models.TriggerLowPerformingCenter,
			entityKind: models.EntityCenter,
			entityID:   c.CenterID,
			severity:   c.Severity,
			title:      "Review center performance",
			detail: fmt.Sprintf("Completion rate %.0f%% and attendance rate %.0f%% across %d active assignments are below target.",
				c.CompletionRate*100, c.AttendanceRate*100, c.ActiveAssignments),
			dueDays: s.dueDays,
		})
	}

	for _, st := range set.IrregularStudents {
		items = append(items, actionItem{
			trigger:    models.TriggerIrregularStudent,
			entityKind: models.EntityStudent,
			entityID:   st.StudentID,
			severity:   st.Severity,
			title:      "Follow up on irregular attendance",
			detail: fmt.Sprintf("Weekly attendance variation %.2f, %d days since the last session.",
				st.Variation, st.DaysSinceLastSession),
			dueDays: s.dueDays,
		})
	}

	// Multiple delayed assignments for one student merge into the worst one.
	delayed := make(map[string]actionItem)
	for _, d := range set.DelayedStudents {
		item := actionItem{
			trigger:    models.TriggerDelayedStudent,
			entityKind: models.EntityStudent,
			entityID:   d.StudentID,
			severity:   d.Severity,
			title:      "Address syllabus delay",
			detail: fmt.Sprintf("Covered %d of %.0f expected topics (%.0f%% of the syllabus after %d months).",
				d.ActualTopics, d.ExpectedTopics, d.CompletionRate*100, d.MonthsElapsed),
			dueDays: s.dueDays,
		}
		if existing, ok := delayed[d.StudentID]; !ok || item.severity > existing.severity {
			delayed[d.StudentID] = item
		}
	}
	for _, item := range delayed {
		items = append(items, item)
	}

	conflicted := make(map[string]actionItem)
	for _, c := range set.FacultyConflicts {
		item := actionItem{
			trigger:    models.TriggerFacultyConflict,
			entityKind: models.EntityFaculty,
			entityID:   c.FacultyID,
			severity:   c.Severity,
			title:      "Resolve schedule conflict",
			detail: fmt.Sprintf("Overlapping sessions on %s starting %s and %s.",
				c.Date.Format("2006-01-02"), c.FirstStart.Format("15:04"), c.SecondStart.Format("15:04")),
			dueDays: s.conflictDays,
		}
		if existing, ok := conflicted[c.FacultyID]; !ok || item.severity > existing.severity {
			conflicted[c.FacultyID] = item
		}
	}
	for _, o := range set.FacultyOverloads {
		item := actionItem{
			trigger:    models.TriggerFacultyConflict,
			entityKind: models.EntityFaculty,
			entityID:   o.FacultyID,
			severity:   o.Severity,
			title:      "Resolve schedule conflict",
			detail: fmt.Sprintf("Week of %s has %.1f scheduled hours, above the cap.",
				o.WeekStart.Format("2006-01-02"), o.ScheduledHours),
			dueDays: s.conflictDays,
		}
		if existing, ok := conflicted[o.FacultyID]; !ok || item.severity > existing.severity {
			conflicted[o.FacultyID] = item
		}
	}
	for _, item := range conflicted {
		items = append(items, item)
	}

	for _, p := range set.Profitability {
		if p.InsufficientData {
			continue
		}
		items = append(items, actionItem{
			trigger:    models.TriggerLowProfitability,
			entityKind: models.EntityCenter,
			entityID:   p.CenterID,
			severity:   p.Severity,
			title:      "Review center profitability",
			detail: fmt.Sprintf("Estimated margin %.2f with %d active students against a cost basis of %.2f.",
				p.Margin, p.ActiveStudents, p.Cost),
			dueDays: s.dueDays,
		})
	}

	return items
}

func (s *BridgeService) bridgeItem(ctx context.Context, item actionItem, result *models.BridgeRunResult) error {
	key := string(item.trigger) + "|" + string(item.entityKind) + "|" + item.entityID
	lock, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	recipients, err := s.resolveRecipients(ctx, item)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrReferenceStale.Code {
			s.logger.Warn("skipping stale reference",
				zap.String("trigger", string(item.trigger)),
				zap.String("entity_kind", string(item.entityKind)),
				zap.String("entity_id", item.entityID),
				zap.Error(err))
			result.Skipped++
			return nil
		}
		return err
	}

	assignee := s.masterID
	if len(recipients) > 0 {
		assignee = recipients[0]
	}

	due := dateOnly(s.now().UTC()).AddDate(0, 0, item.dueDays)
	task := models.Task{
		AssigneeID:  assignee,
		Title:       item.title,
		Description: item.detail,
		Priority:    priorityFor(item.severity),
		DueDate:     due,
		TriggerKind: item.trigger,
		EntityKind:  item.entityKind,
		EntityID:    item.entityID,
	}
	_, created, err := s.tasks.CreateIfAbsent(ctx, task)
	if err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			created = false
		} else {
			return err
		}
	}
	if created {
		result.TasksCreated++
	}

	cutoff := s.now().UTC().Add(-s.cooldown)
	trigger := item.trigger
	entityKind := item.entityKind
	entityID := item.entityID
	for _, recipient := range dedupe(append(recipients, s.masterID)) {
		if recipient == "" {
			continue
		}
		exists, err := s.notifications.ExistsSince(ctx, recipient, trigger, entityKind, entityID, cutoff)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		_, err = s.notifications.Create(ctx, models.Notification{
			RecipientID: recipient,
			Title:       item.title,
			Message:     item.detail,
			Kind:        notificationKindFor(item.severity),
			TriggerKind: &trigger,
			EntityKind:  &entityKind,
			EntityID:    &entityID,
		})
		if err != nil {
			return err
		}
		result.NotificationsCreated++
	}
	return nil
}

// resolveRecipients re-checks the flagged entity against the database so the
// bridge never acts on a row deleted since detection ran. It returns the
// users responsible for the entity, most specific first: for student-level
// triggers the faculty members actively teaching the student, then the
// student's center head.
func (s *BridgeService) resolveRecipients(ctx context.Context, item actionItem) ([]string, error) {
	switch item.entityKind {
	case models.EntityCenter:
		center, err := s.entities.GetCenter(ctx, item.entityID)
		if err != nil {
			return nil, staleOr(err, item)
		}
		if center.HeadUserID != nil && *center.HeadUserID != "" {
			return []string{*center.HeadUserID}, nil
		}
		return nil, nil
	case models.EntityStudent:
		student, err := s.entities.GetStudent(ctx, item.entityID)
		if err != nil {
			return nil, staleOr(err, item)
		}
		recipients, err := s.teachingFacultyUsers(ctx, student.ID)
		if err != nil {
			return nil, err
		}
		center, err := s.entities.GetCenter(ctx, student.CenterID)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				return recipients, nil
			}
			return nil, err
		}
		if center.HeadUserID != nil && *center.HeadUserID != "" {
			recipients = append(recipients, *center.HeadUserID)
		}
		return recipients, nil
	case models.EntityFaculty:
		member, err := s.entities.GetFaculty(ctx, item.entityID)
		if err != nil {
			return nil, staleOr(err, item)
		}
		if member.UserID != nil && *member.UserID != "" {
			return []string{*member.UserID}, nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// teachingFacultyUsers resolves the user accounts of faculty with an active
// assignment for the student. A faculty row deleted since detection is
// tolerated; the remaining recipients still get notified.
func (s *BridgeService) teachingFacultyUsers(ctx context.Context, studentID string) ([]string, error) {
	if s.assignments == nil {
		return nil, nil
	}
	active := true
	details, err := s.assignments.ListDetails(ctx, models.AssignmentFilter{StudentID: studentID, Active: &active})
	if err != nil {
		return nil, err
	}
	var users []string
	seen := make(map[string]struct{}, len(details))
	for _, detail := range details {
		if detail.FacultyID == "" {
			continue
		}
		if _, ok := seen[detail.FacultyID]; ok {
			continue
		}
		seen[detail.FacultyID] = struct{}{}
		member, err := s.entities.GetFaculty(ctx, detail.FacultyID)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if member.UserID != nil && *member.UserID != "" {
			users = append(users, *member.UserID)
		}
	}
	return users, nil
}

// staleOr converts a not-found on the flagged entity itself into a stale
// reference so the bridge skips it; other errors pass through.
func staleOr(err error, item actionItem) error {
	if !errors.Is(err, appErrors.ErrNotFound) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrReferenceStale.Code, appErrors.ErrReferenceStale.Status,
		fmt.Sprintf("%s %s no longer exists", item.entityKind, item.entityID))
}

// priorityFor maps detection severity onto task priority.
func priorityFor(severity float64) models.TaskPriority {
	switch {
	case severity >= 0.75:
		return models.TaskPriorityHigh
	case severity >= 0.4:
		return models.TaskPriorityMedium
	default:
		return models.TaskPriorityLow
	}
}

func notificationKindFor(severity float64) models.NotificationKind {
	if severity >= 0.75 {
		return models.NotificationError
	}
	return models.NotificationWarning
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
