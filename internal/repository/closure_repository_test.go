package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextRequestSequence(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewClosureRepository(database)

	mock.ExpectQuery(`SELECT nextval\('closure_request_seq'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	next, err := repo.NextRequestSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), next)
}

func TestMarkApprovedGuardsOnPending(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewClosureRepository(database)
	id := uuid.New()
	approver := uuid.New()

	mock.ExpectExec(`UPDATE project_closure_request`).
		WithArgs(approver, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.MarkApproved(context.Background(), id, approver, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRequestNotFound(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewClosureRepository(database)
	id := uuid.New()

	mock.ExpectQuery(`SELECT(.|\n)*FROM project_closure_request`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetRequest(context.Background(), id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// Agreements with several return requests must still come back as a
// single row, carrying the latest return status.
func TestListRowsJoinsLatestReturnRequest(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewClosureRepository(database)
	agreementID := uuid.New()
	requestID := uuid.New()
	requestDate := time.Date(2024, 7, 20, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "project_name", "hirer", "term_of_hire", "rental_start_date",
		"monthly_rental_status", "deposit_status", "return_request_status",
		"request_id", "request_number", "request_date", "request_status",
		"approved_by", "approved_date",
	}).AddRow(agreementID, "KLCC Tower Annex", "Hup Seng Construction", "3 months",
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "Paid", "Paid", "Completed",
		requestID, "PCR-00001", requestDate, "PENDING", nil, nil)

	mock.ExpectQuery(`DISTINCT ON \(agreement_id\)`).
		WillReturnRows(rows)

	result, err := repo.ListRows(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "COMPLETED", string(result[0].Agreement.ReturnRequestStatus))
	require.NotNil(t, result[0].Request)
	assert.Equal(t, "PCR-00001", result[0].Request.RequestNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAgreementMapsPersistedStatuses(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewClosureRepository(database)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "project_name", "hirer", "term_of_hire", "rental_start_date",
		"monthly_rental_status", "deposit_status", "return_request_status",
	}).AddRow(id, "KLCC Tower Annex", "Hup Seng Construction", "3 months",
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "Paid", "Pending Approval", "Completed")

	mock.ExpectQuery(`SELECT(.|\n)*FROM rental_agreements`).
		WithArgs(id).
		WillReturnRows(rows)

	agreement, err := repo.GetAgreement(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "PAID", string(agreement.MonthlyRentalStatus))
	assert.Equal(t, "PENDING_APPROVAL", string(agreement.DepositStatus))
	assert.Equal(t, "COMPLETED", string(agreement.ReturnRequestStatus))
}
