package dto

import (
	"time"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// InsightQuery carries the window, scope and threshold overrides for a
// detection run. Dates use YYYY-MM-DD.
type InsightQuery struct {
	From      string `form:"from" binding:"required"`
	To        string `form:"to" binding:"required"`
	Today     string `form:"today"`
	CenterID  string `form:"center_id"`
	StudentID string `form:"student_id"`
	FacultyID string `form:"faculty_id"`
	ThresholdOverrides
}

// ScoreQuery carries the window for a student score computation.
type ScoreQuery struct {
	From  string `form:"from" binding:"required"`
	To    string `form:"to" binding:"required"`
	Today string `form:"today"`
	ThresholdOverrides
}

// WindowQuery carries just a date window, for timeline and calendar views.
type WindowQuery struct {
	From       string   `form:"from" binding:"required"`
	To         string   `form:"to" binding:"required"`
	ClampHours *float64 `form:"clamp_hours" binding:"omitempty,gt=0"`
}

// BridgeRunRequest triggers an insight-to-action bridging run.
type BridgeRunRequest struct {
	From      string `json:"from" binding:"required"`
	To        string `json:"to" binding:"required"`
	Today     string `json:"today"`
	CenterID  string `json:"center_id"`
	StudentID string `json:"student_id"`
	FacultyID string `json:"faculty_id"`
	ThresholdOverrides
}

// ExportQuery selects the export format on top of the detection inputs.
type ExportQuery struct {
	Format string `form:"format" binding:"required,oneof=csv pdf"`
	InsightQuery
}

// ThresholdOverrides optionally replaces individual engine defaults for one
// request. Absent fields keep the configured value.
type ThresholdOverrides struct {
	DaysThreshold       *int     `form:"days_threshold" json:"days_threshold" binding:"omitempty,gt=0"`
	MonthsThreshold     *int     `form:"months_threshold" json:"months_threshold" binding:"omitempty,gt=0"`
	CompletionThreshold *float64 `form:"completion_threshold" json:"completion_threshold" binding:"omitempty,gt=0,lte=1"`
	AttendanceRateFloor *float64 `form:"attendance_rate_floor" json:"attendance_rate_floor" binding:"omitempty,gte=0,lte=1"`
	IrregularityCutoff  *float64 `form:"irregularity_cutoff" json:"irregularity_cutoff" binding:"omitempty,gt=0"`
	DelaySlackFraction  *float64 `form:"delay_slack_fraction" json:"delay_slack_fraction" binding:"omitempty,gte=0,lt=1"`
	WeeklyHoursCap      *float64 `form:"weekly_hours_cap" json:"weekly_hours_cap" binding:"omitempty,gt=0"`
	MarginFloor         *float64 `form:"margin_floor" json:"margin_floor"`
	RevenuePerStudent   *float64 `form:"revenue_per_student" json:"revenue_per_student" binding:"omitempty,gte=0"`
	DensityClampHours   *float64 `form:"density_clamp_hours" json:"density_clamp_hours" binding:"omitempty,gt=0"`
	WeightConsistency   *float64 `form:"weight_consistency" json:"weight_consistency" binding:"omitempty,gte=0"`
	WeightEfficiency    *float64 `form:"weight_efficiency" json:"weight_efficiency" binding:"omitempty,gte=0"`
	WeightProgress      *float64 `form:"weight_progress" json:"weight_progress" binding:"omitempty,gte=0"`
}

// Apply overlays the overrides onto a base threshold set.
func (o ThresholdOverrides) Apply(base models.Thresholds) models.Thresholds {
	if o.DaysThreshold != nil {
		base.DaysThreshold = *o.DaysThreshold
	}
	if o.MonthsThreshold != nil {
		base.MonthsThreshold = *o.MonthsThreshold
	}
	if o.CompletionThreshold != nil {
		base.CompletionThreshold = *o.CompletionThreshold
	}
	if o.AttendanceRateFloor != nil {
		base.AttendanceRateFloor = *o.AttendanceRateFloor
	}
	if o.IrregularityCutoff != nil {
		base.IrregularityCutoff = *o.IrregularityCutoff
	}
	if o.DelaySlackFraction != nil {
		base.DelaySlackFraction = *o.DelaySlackFraction
	}
	if o.WeeklyHoursCap != nil {
		base.WeeklyHoursCap = *o.WeeklyHoursCap
	}
	if o.MarginFloor != nil {
		base.MarginFloor = *o.MarginFloor
	}
	if o.RevenuePerStudent != nil {
		base.RevenuePerStudent = *o.RevenuePerStudent
	}
	if o.DensityClampHours != nil {
		base.DensityClampHours = *o.DensityClampHours
	}
	if o.WeightConsistency != nil {
		base.Weights.Consistency = *o.WeightConsistency
	}
	if o.WeightEfficiency != nil {
		base.Weights.Efficiency = *o.WeightEfficiency
	}
	if o.WeightProgress != nil {
		base.Weights.Progress = *o.WeightProgress
	}
	return base
}

// ParseDate parses a YYYY-MM-DD value at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
