package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	return nil
}

func newInsightFixture(today time.Time, cacheRepo CacheRepository) (*InsightService, *fakeAttendanceRepo, *fakeEntityRepo) {
	head := "head-1"
	entities := &fakeEntityRepo{
		centers:  map[string]*models.Center{"c1": {ID: "c1", Name: "Center One", HeadUserID: &head, Active: true}},
		students: map[string]*models.Student{"s1": {ID: "s1", CenterID: "c1", EnrolledAt: today.AddDate(0, -6, 0), Active: true}},
		faculty:  map[string]*models.Faculty{"f1": {ID: "f1", CenterID: "c1", Active: true}},
		counts:   map[string]int{"c1": 1},
	}
	attendance := &fakeAttendanceRepo{records: []models.AttendanceRecord{
		buildRecord(recordOpts{id: "r1", date: today.AddDate(0, 0, -3), topics: []string{"t1"}}),
		buildRecord(recordOpts{id: "r2", date: today.AddDate(0, 0, -10), topics: []string{"t2"}}),
	}}
	assignments := &fakeAssignmentRepo{details: []models.AssignmentDetail{
		detail("a-s1", "s1", "c1", today.AddDate(0, 0, -28), 10, 10),
	}}

	var cacheSvc *CacheService
	if cacheRepo != nil {
		cacheSvc = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	}
	svc := NewInsightService(InsightServiceParams{
		Attendance:  attendance,
		Assignments: assignments,
		Entities:    entities,
		Cache:       cacheSvc,
		Now:         func() time.Time { return today },
	})
	return svc, attendance, entities
}

func TestComputeInsightsValidatesThresholdsFirst(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, attendance, _ := newInsightFixture(today, nil)

	bad := models.DefaultThresholds()
	bad.DaysThreshold = 0

	_, _, err := svc.ComputeInsights(context.Background(), models.Window{From: today.AddDate(0, 0, -30), To: today}, models.Scope{}, today, bad)
	require.Error(t, err)
	assert.Equal(t, "INVALID_THRESHOLDS", appErrors.FromError(err).Code)
	assert.Zero(t, attendance.calls)
}

func TestComputeInsightsRejectsInvertedWindow(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, _, _ := newInsightFixture(today, nil)

	_, _, err := svc.ComputeInsights(context.Background(), models.Window{From: today, To: today.AddDate(0, 0, -30)}, models.Scope{}, today, models.DefaultThresholds())
	require.Error(t, err)
	assert.Equal(t, "INVALID_WINDOW", appErrors.FromError(err).Code)
}

func TestComputeInsightsCachesResults(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, attendance, _ := newInsightFixture(today, &stubCacheRepo{})
	window := models.Window{From: today.AddDate(0, 0, -30), To: today}

	set, hit, err := svc.ComputeInsights(context.Background(), window, models.Scope{}, today, models.DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, attendance.calls)
	require.NotNil(t, set)

	cached, hit2, err := svc.ComputeInsights(context.Background(), window, models.Scope{}, today, models.DefaultThresholds())
	require.NoError(t, err)
	assert.True(t, hit2)
	assert.Equal(t, 1, attendance.calls)
	assert.Equal(t, set.Window, cached.Window)

	// A different threshold set must not reuse the cached payload.
	altered := models.DefaultThresholds()
	altered.DaysThreshold = 14
	_, hit3, err := svc.ComputeInsights(context.Background(), window, models.Scope{}, today, altered)
	require.NoError(t, err)
	assert.False(t, hit3)
	assert.Equal(t, 2, attendance.calls)
}

func TestComputeInsightsProfitabilityIncluded(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, _, entities := newInsightFixture(today, nil)
	cost := 1000.0
	entities.centers["c1"].MonthlyCost = &cost

	thresholds := models.DefaultThresholds()
	thresholds.RevenuePerStudent = 100

	set, _, err := svc.ComputeInsights(context.Background(), models.Window{From: today.AddDate(0, 0, -30), To: today}, models.Scope{}, today, thresholds)
	require.NoError(t, err)
	require.Len(t, set.Profitability, 1)
	assert.Equal(t, "c1", set.Profitability[0].CenterID)
	assert.InDelta(t, -900.0, set.Profitability[0].Margin, 1e-9)
}

func TestStudentScoreUnknownStudent(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, _, _ := newInsightFixture(today, nil)

	_, err := svc.StudentScore(context.Background(), "missing", models.Window{From: today.AddDate(0, 0, -30), To: today}, today, models.DefaultThresholds())
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestStudentScoreComputed(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, _, _ := newInsightFixture(today, nil)

	score, err := svc.StudentScore(context.Background(), "s1", models.Window{From: today.AddDate(0, 0, -30), To: today}, today, models.DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, "s1", score.StudentID)
	assert.False(t, score.InsufficientData)
	assert.Greater(t, score.Composite, 0.0)
}

func TestTimelineUsesSubjectNames(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, _, _ := newInsightFixture(today, nil)

	entries, err := svc.Timeline(context.Background(), models.EntityRef{Kind: models.EntityStudent, ID: "s1"},
		models.Window{From: today.AddDate(0, 0, -30), To: today})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Subject", entries[0].Label)
}

func TestTimelineRejectsUnknownEntityKind(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, _, _ := newInsightFixture(today, nil)

	_, err := svc.Timeline(context.Background(), models.EntityRef{Kind: "classroom", ID: "x"},
		models.Window{From: today.AddDate(0, 0, -30), To: today})
	require.Error(t, err)
	assert.Equal(t, "INVALID_ENTITY_KIND", appErrors.FromError(err).Code)
}

func TestCalendarDensityForCenter(t *testing.T) {
	today := day(2026, time.June, 1)
	svc, _, _ := newInsightFixture(today, nil)
	window := models.Window{From: today.AddDate(0, 0, -6), To: today}

	days, err := svc.CalendarDensity(context.Background(), models.EntityRef{Kind: models.EntityCenter, ID: "c1"}, window, 12)
	require.NoError(t, err)
	assert.Len(t, days, 7)
}
