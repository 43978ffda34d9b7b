package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
	"github.com/noah-isme/tc-insight-api/pkg/export"
)

// ExportFormat selects the report encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportService renders insight runs into downloadable reports.
type ExportService struct {
	insights *InsightService
	logger   *zap.Logger
	enabled  bool
}

// NewExportService constructs the service.
func NewExportService(insights *InsightService, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{insights: insights, logger: logger, enabled: enabled}
}

// Enabled indicates whether exports are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// ExportInsights runs the detection pipeline and renders the result. The
// returned string is the suggested file name.
func (s *ExportService) ExportInsights(ctx context.Context, format ExportFormat, window models.Window, scope models.Scope, today time.Time, t models.Thresholds) ([]byte, string, error) {
	if !s.Enabled() {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled")
	}
	set, _, err := s.insights.ComputeInsights(ctx, window, scope, today, t)
	if err != nil {
		return nil, "", err
	}

	tables := insightTables(set)
	stamp := set.GeneratedAt.Format("20060102-150405")
	switch format {
	case ExportCSV:
		payload, err := export.RenderCSV(tables)
		if err != nil {
			return nil, "", err
		}
		return payload, fmt.Sprintf("insights-%s.csv", stamp), nil
	case ExportPDF:
		title := fmt.Sprintf("Insight report %s to %s",
			set.Window.From.Format("2006-01-02"), set.Window.To.Format("2006-01-02"))
		payload, err := export.RenderPDF(title, tables)
		if err != nil {
			return nil, "", err
		}
		return payload, fmt.Sprintf("insights-%s.pdf", stamp), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// insightTables flattens the insight set into one table per detector.
func insightTables(set *models.InsightSet) []export.Table {
	centers := export.Table{
		Title:   "Low performing centers",
		Headers: []string{"Center", "Completion rate", "Attendance rate", "Active assignments", "Severity"},
	}
	for _, c := range set.LowPerformingCenters {
		centers.Rows = append(centers.Rows, []string{
			c.CenterID,
			formatPercent(c.CompletionRate),
			formatPercent(c.AttendanceRate),
			strconv.Itoa(c.ActiveAssignments),
			formatFloat(c.Severity),
		})
	}

	irregular := export.Table{
		Title:   "Irregular students",
		Headers: []string{"Student", "Variation", "Days since last session", "Severity"},
	}
	for _, st := range set.IrregularStudents {
		irregular.Rows = append(irregular.Rows, []string{
			st.StudentID,
			formatFloat(st.Variation),
			strconv.Itoa(st.DaysSinceLastSession),
			formatFloat(st.Severity),
		})
	}

	delayed := export.Table{
		Title:   "Delayed students",
		Headers: []string{"Student", "Assignment", "Expected topics", "Actual topics", "Gap", "Months", "Completion", "Severity"},
	}
	for _, d := range set.DelayedStudents {
		delayed.Rows = append(delayed.Rows, []string{
			d.StudentID,
			d.AssignmentID,
			formatFloat(d.ExpectedTopics),
			strconv.Itoa(d.ActualTopics),
			formatFloat(d.Gap),
			strconv.Itoa(d.MonthsElapsed),
			formatPercent(d.CompletionRate),
			formatFloat(d.Severity),
		})
	}

	conflicts := export.Table{
		Title:   "Faculty conflicts",
		Headers: []string{"Faculty", "Date", "First session", "Second session", "Severity"},
	}
	for _, c := range set.FacultyConflicts {
		conflicts.Rows = append(conflicts.Rows, []string{
			c.FacultyID,
			c.Date.Format("2006-01-02"),
			fmt.Sprintf("%s-%s", c.FirstStart.Format("15:04"), c.FirstEnd.Format("15:04")),
			fmt.Sprintf("%s-%s", c.SecondStart.Format("15:04"), c.SecondEnd.Format("15:04")),
			formatFloat(c.Severity),
		})
	}

	overloads := export.Table{
		Title:   "Faculty overloads",
		Headers: []string{"Faculty", "Week start", "Scheduled hours", "Severity"},
	}
	for _, o := range set.FacultyOverloads {
		overloads.Rows = append(overloads.Rows, []string{
			o.FacultyID,
			o.WeekStart.Format("2006-01-02"),
			formatFloat(o.ScheduledHours),
			formatFloat(o.Severity),
		})
	}

	profitability := export.Table{
		Title:   "Center profitability",
		Headers: []string{"Center", "Active students", "Revenue", "Cost", "Margin", "Status"},
	}
	for _, p := range set.Profitability {
		status := "flagged"
		if p.InsufficientData {
			status = "insufficient data"
		}
		profitability.Rows = append(profitability.Rows, []string{
			p.CenterID,
			strconv.Itoa(p.ActiveStudents),
			formatFloat(p.Revenue),
			formatFloat(p.Cost),
			formatFloat(p.Margin),
			status,
		})
	}

	return []export.Table{centers, irregular, delayed, conflicts, overloads, profitability}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}
