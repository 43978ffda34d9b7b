package service

import (
	"fmt"
	"math"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

const weightEpsilon = 1e-6

// ValidateThresholds rejects misconfigured threshold sets before any
// computation or write happens. A misconfigured run could otherwise flag
// everything or nothing, so this is a hard failure.
func ValidateThresholds(t models.Thresholds) error {
	if t.DaysThreshold <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "days_threshold must be positive")
	}
	if t.MonthsThreshold <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "months_threshold must be positive")
	}
	if t.CompletionThreshold <= 0 || t.CompletionThreshold > 1 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "completion_threshold must be in (0, 1]")
	}
	if t.AttendanceRateFloor < 0 || t.AttendanceRateFloor > 1 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "attendance_rate_floor must be in [0, 1]")
	}
	if t.IrregularityCutoff <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "irregularity_cutoff must be positive")
	}
	if t.DelaySlackFraction < 0 || t.DelaySlackFraction >= 1 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "delay_slack_fraction must be in [0, 1)")
	}
	if t.WeeklyHoursCap <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "weekly_hours_cap must be positive")
	}
	if t.DensityClampHours <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidThresholds, "density_clamp_hours must be positive")
	}

	w := t.Weights
	if w.Consistency < 0 || w.Efficiency < 0 || w.Progress < 0 {
		return appErrors.Clone(appErrors.ErrInvalidWeights, "score weights must be non-negative")
	}
	sum := w.Consistency + w.Efficiency + w.Progress
	if math.Abs(sum-1) > weightEpsilon {
		return appErrors.Clone(appErrors.ErrInvalidWeights,
			fmt.Sprintf("score weights sum to %.4f, expected 1.0", sum))
	}
	return nil
}
