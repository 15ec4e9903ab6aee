package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuitron-api/internal/models"
)

func TestApplicationCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO applications").WillReturnError(&pq.Error{Code: "23505"})

	app := models.Application{TuitionID: "t1", TutorID: "p1", TutorEmail: "b@example.com", Message: "hi", Status: models.ApplicationPending}
	first := app
	require.NoError(t, repo.Create(context.Background(), &first))
	second := app
	assert.ErrorIs(t, repo.Create(context.Background(), &second), ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).WithArgs("t1", "p1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApplicationListByTutorEmailJoinsListing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	cols := []string{"id", "tuition_id", "tutor_id", "tutor_email", "message", "qualifications", "expected_salary", "status", "applied_at", "updated_at", "tuition_subject", "tuition_location", "tutor_name"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(a.tutor_email) = LOWER($1)")).
		WithArgs("b@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("ap1", "t1", "p1", "b@example.com", "hi", nil, nil, "pending", now, now, "Math", "Dhaka", "B"))

	apps, err := repo.ListByTutorEmail(context.Background(), "b@example.com")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.NotNil(t, apps[0].TuitionSubject)
	assert.Equal(t, "Math", *apps[0].TuitionSubject)
	assert.Equal(t, models.ApplicationPending, apps[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $2")).
		WithArgs("ap1", models.ApplicationAccepted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "ap1", models.ApplicationAccepted))
	assert.NoError(t, mock.ExpectationsWereMet())
}
