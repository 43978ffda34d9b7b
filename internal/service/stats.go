package service

import (
	"math"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// coefficientOfVariation computes stddev/mean over weekly session counts.
// Returns 0 when fewer than two buckets or a zero mean, since variation is
// undefined there.
func coefficientOfVariation(weekly []models.WeekBucket) float64 {
	if len(weekly) < 2 {
		return 0
	}
	var sum float64
	for _, bucket := range weekly {
		sum += float64(bucket.Sessions)
	}
	mean := sum / float64(len(weekly))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, bucket := range weekly {
		diff := float64(bucket.Sessions) - mean
		variance += diff * diff
	}
	variance /= float64(len(weekly))
	return math.Sqrt(variance) / mean
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
