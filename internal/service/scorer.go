package service

import (
	"time"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// ComputeStudentScore blends consistency, efficiency and progress into one
// composite score in [0, 100]. A student with no attended sessions gets a
// zero score with the insufficient-data flag set instead of a misleadingly
// neutral value. Weights are assumed validated by ValidateThresholds.
func ComputeStudentScore(studentID string, summary models.EntitySummary, progress []*AssignmentProgress, today time.Time, t models.Thresholds) models.StudentScore {
	score := models.StudentScore{StudentID: studentID}
	if summary.Attended == 0 {
		score.InsufficientData = true
		return score
	}

	consistency := 100 * (1 - clamp01(coefficientOfVariation(summary.Weekly)))

	var efficiency float64
	if summary.TotalHours > 0 {
		actualRate := float64(summary.TopicsCovered) / summary.TotalHours
		baseline := baselineTopicsPerHour(progress)
		if baseline > 0 {
			efficiency = 100 * clamp01(actualRate/baseline)
		}
	}

	var progressScore float64
	var paced int
	for _, p := range progress {
		if !p.Detail.Active {
			continue
		}
		expected := expectedTopicsToDate(p.Detail, today)
		if expected <= 0 {
			continue
		}
		progressScore += 100 * clamp01(float64(p.TopicsCovered)/expected)
		paced++
	}
	if paced > 0 {
		progressScore /= float64(paced)
	}

	score.Consistency = consistency
	score.Efficiency = efficiency
	score.Progress = progressScore
	score.Composite = t.Weights.Consistency*consistency +
		t.Weights.Efficiency*efficiency +
		t.Weights.Progress*progressScore
	return score
}

// baselineTopicsPerHour averages the subject baselines across the student's
// assignments. Subjects without a calibrated baseline are ignored.
func baselineTopicsPerHour(progress []*AssignmentProgress) float64 {
	var sum float64
	var count int
	for _, p := range progress {
		if p.Detail.TopicsPerHourBase > 0 {
			sum += p.Detail.TopicsPerHourBase
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
