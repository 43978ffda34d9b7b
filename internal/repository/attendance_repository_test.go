package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "subject_id", "faculty_id", "center_id",
		"date", "start_time", "end_time", "topics", "status", "created_at"})
}

func TestAttendanceRepositoryListRecords(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT ar\\.id, .+ FROM attendance_records ar").
		WillReturnRows(attendanceRows().
			AddRow("r1", "a1", "s1", "sub1", "f1", "c1", now, now, now.Add(2*time.Hour), "{t1,t2}", "present", now).
			AddRow("r2", "a1", "s1", "sub1", "f1", "c1", now, now, nil, "{}", "absent", now))

	records, err := repo.ListRecords(context.Background(), models.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.AttendanceStatusPresent, records[0].Status)
	assert.Equal(t, []string{"t1", "t2"}, []string(records[0].Topics))
	assert.Nil(t, records[1].EndTime)
	assert.Zero(t, records[1].DurationHours())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListRecordsAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT ar\\.id, .+ FROM attendance_records ar").
		WithArgs("s1", from, to).
		WillReturnRows(attendanceRows())

	records, err := repo.ListRecords(context.Background(), models.AttendanceFilter{
		StudentID: "s1",
		DateFrom:  &from,
		DateTo:    &to,
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
