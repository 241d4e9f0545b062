package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scaffre/billing-service/internal/model"
)

type ClosureRepository struct {
	db *gorm.DB
}

func NewClosureRepository(db *gorm.DB) *ClosureRepository {
	return &ClosureRepository{db: db}
}

// AgreementRow carries the persisted status strings; they are mapped to
// the closed enums in one place, here.
type AgreementRow struct {
	ID                  uuid.UUID
	ProjectName         string
	Hirer               string
	TermOfHire          string
	RentalStartDate     time.Time
	MonthlyRentalStatus string
	DepositStatus       string
	ReturnRequestStatus string
}

func (row AgreementRow) toModel() model.RentalAgreement {
	return model.RentalAgreement{
		ID:                  row.ID,
		ProjectName:         row.ProjectName,
		Hirer:               row.Hirer,
		TermOfHire:          row.TermOfHire,
		RentalStartDate:     row.RentalStartDate,
		MonthlyRentalStatus: model.ParseSettlementStatus(row.MonthlyRentalStatus),
		DepositStatus:       model.ParseSettlementStatus(row.DepositStatus),
		ReturnRequestStatus: model.ParseReturnStatus(row.ReturnRequestStatus),
	}
}

// returnRequestJoin picks the latest return request per agreement, so
// agreements with several return requests still produce a single row.
const returnRequestJoin = `
	LEFT JOIN (
		SELECT DISTINCT ON (agreement_id) agreement_id, status
		FROM return_requests
		ORDER BY agreement_id, created_at DESC
	) rr ON rr.agreement_id = ra.id
`

const agreementColumns = `
	ra.id,
	ra.project_name,
	ra.hirer,
	ra.term_of_hire,
	ra.rental_start_date,
	ra.monthly_rental_status,
	ra.deposit_status,
	COALESCE(rr.status, '') AS return_request_status
`

func (r *ClosureRepository) GetAgreement(ctx context.Context, id uuid.UUID) (*model.RentalAgreement, error) {
	var row AgreementRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+agreementColumns+`
		FROM rental_agreements ra
		`+returnRequestJoin+`
		WHERE ra.id = ?
		LIMIT 1
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	agreement := row.toModel()
	return &agreement, nil
}

const closureColumns = `
	id,
	agreement_id,
	request_number,
	request_date,
	status,
	approved_by,
	approved_date,
	created_at
`

func (r *ClosureRepository) GetRequest(ctx context.Context, id uuid.UUID) (*model.ClosureRequest, error) {
	var request model.ClosureRequest
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+closureColumns+`
		FROM project_closure_request
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &request, nil
}

func (r *ClosureRepository) GetRequestByAgreement(ctx context.Context, agreementID uuid.UUID) (*model.ClosureRequest, error) {
	var request model.ClosureRequest
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+closureColumns+`
		FROM project_closure_request
		WHERE agreement_id = ?
		LIMIT 1
	`, agreementID).Scan(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &request, nil
}

// CreateRequest relies on the unique index on agreement_id: under two
// racing creates exactly one insert succeeds, the other returns
// gorm.ErrDuplicatedKey.
func (r *ClosureRepository) CreateRequest(ctx context.Context, agreementID uuid.UUID, requestNumber string, requestDate time.Time) (*model.ClosureRequest, error) {
	var saved model.ClosureRequest
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO project_closure_request (agreement_id, request_number, request_date, status)
		VALUES (?, ?, ?, 'PENDING')
		RETURNING `+closureColumns+`
	`, agreementID, requestNumber, requestDate).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ClosureRepository) NextRequestSequence(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT nextval('closure_request_seq')
	`).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// MarkApproved carries the PENDING guard in the WHERE clause; zero
// affected rows means the request was already approved or is gone.
func (r *ClosureRepository) MarkApproved(ctx context.Context, id uuid.UUID, approverID uuid.UUID, approvedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE project_closure_request
		SET
			status = 'APPROVED',
			approved_by = ?,
			approved_date = ?
		WHERE id = ? AND status = 'PENDING'
	`, approverID, approvedAt, id)
	return res.RowsAffected, res.Error
}

type closureListRow struct {
	AgreementRow
	RequestID     *uuid.UUID
	RequestNumber *string
	RequestDate   *time.Time
	RequestStatus *string
	ApprovedBy    *uuid.UUID
	ApprovedDate  *time.Time
}

// ListRows returns every agreement with its closure request, if any, for
// the project-closure screen.
func (r *ClosureRepository) ListRows(ctx context.Context) ([]model.ClosureRow, error) {
	var rows []closureListRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			`+agreementColumns+`,
			pcr.id AS request_id,
			pcr.request_number,
			pcr.request_date,
			pcr.status AS request_status,
			pcr.approved_by,
			pcr.approved_date
		FROM rental_agreements ra
		`+returnRequestJoin+`
		LEFT JOIN project_closure_request pcr ON pcr.agreement_id = ra.id
		ORDER BY ra.rental_start_date DESC, ra.id
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.ClosureRow, 0, len(rows))
	for _, row := range rows {
		item := model.ClosureRow{Agreement: row.toModel()}
		if row.RequestID != nil {
			item.Request = &model.ClosureRequest{
				ID:            *row.RequestID,
				AgreementID:   row.ID,
				RequestNumber: derefString(row.RequestNumber),
				RequestDate:   derefTime(row.RequestDate),
				Status:        model.ClosureStatus(derefString(row.RequestStatus)),
				ApprovedBy:    row.ApprovedBy,
				ApprovedDate:  row.ApprovedDate,
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
