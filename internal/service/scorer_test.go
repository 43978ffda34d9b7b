package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

func TestComputeStudentScoreNoSessions(t *testing.T) {
	score := ComputeStudentScore("s1", models.EntitySummary{}, nil, day(2026, time.June, 1), models.DefaultThresholds())
	assert.True(t, score.InsufficientData)
	assert.Zero(t, score.Composite)
	assert.Zero(t, score.Consistency)
}

func TestComputeStudentScoreBlendsSubScores(t *testing.T) {
	today := day(2026, time.June, 1)
	// Ten weeks at 1 topic/week puts the expected count at 10.
	start := today.AddDate(0, 0, -70)

	d := detail("a-s1", "s1", "c1", start, 20, 20)
	d.TopicsPerHourBase = 0.5
	progress := []*AssignmentProgress{{Detail: d, TopicsCovered: 5, HoursSpent: 10}}

	summary := models.EntitySummary{
		Entity:        models.EntityRef{Kind: models.EntityStudent, ID: "s1"},
		Sessions:      8,
		Attended:      8,
		TotalHours:    10,
		TopicsCovered: 5,
		Weekly:        []models.WeekBucket{{Sessions: 2}, {Sessions: 2}, {Sessions: 2}, {Sessions: 2}},
	}

	score := ComputeStudentScore("s1", summary, progress, today, models.DefaultThresholds())
	assert.False(t, score.InsufficientData)
	assert.InDelta(t, 100.0, score.Consistency, 1e-9)
	assert.InDelta(t, 100.0, score.Efficiency, 1e-9)
	assert.InDelta(t, 50.0, score.Progress, 1e-9)
	// 0.3*100 + 0.3*100 + 0.4*50
	assert.InDelta(t, 80.0, score.Composite, 1e-9)
}

func TestComputeStudentScoreNoBaseline(t *testing.T) {
	today := day(2026, time.June, 1)
	d := detail("a-s1", "s1", "c1", today.AddDate(0, 0, -70), 20, 20)
	progress := []*AssignmentProgress{{Detail: d, TopicsCovered: 5, HoursSpent: 10}}

	summary := models.EntitySummary{
		Attended:      5,
		TotalHours:    10,
		TopicsCovered: 5,
		Weekly:        []models.WeekBucket{{Sessions: 1}, {Sessions: 1}},
	}

	score := ComputeStudentScore("s1", summary, progress, today, models.DefaultThresholds())
	assert.Zero(t, score.Efficiency)
	assert.InDelta(t, 100.0, score.Consistency, 1e-9)
}

func TestComputeStudentScoreSkipsInactiveAssignments(t *testing.T) {
	today := day(2026, time.June, 1)
	inactive := detail("a-s1", "s1", "c1", today.AddDate(0, 0, -70), 20, 20)
	inactive.Active = false
	progress := []*AssignmentProgress{{Detail: inactive, TopicsCovered: 1}}

	summary := models.EntitySummary{Attended: 2, Weekly: []models.WeekBucket{{Sessions: 1}, {Sessions: 1}}}

	score := ComputeStudentScore("s1", summary, progress, today, models.DefaultThresholds())
	assert.Zero(t, score.Progress)
}
