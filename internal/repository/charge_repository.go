package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scaffre/billing-service/internal/model"
)

type ChargeRepository struct {
	db *gorm.DB
}

func NewChargeRepository(db *gorm.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

type ListChargesOrder string

const (
	OrderLatest   ListChargesOrder = "latest"
	OrderEarliest ListChargesOrder = "earliest"
)

const chargeColumns = `
	id,
	invoice_no,
	do_number,
	customer_name,
	total_charges,
	status,
	due_date,
	returned_date,
	proof_of_payment_url,
	reference_id,
	rejection_reason,
	approval_date,
	rejection_date,
	created_at
`

func (r *ChargeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AdditionalCharge, error) {
	var charge model.AdditionalCharge
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+chargeColumns+`
		FROM additional_charge
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&charge).Error
	if err != nil {
		return nil, err
	}
	if charge.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	items, err := r.listItems(ctx, []uuid.UUID{charge.ID})
	if err != nil {
		return nil, err
	}
	charge.Items = items[charge.ID]
	return &charge, nil
}

func (r *ChargeRepository) List(ctx context.Context, offset, limit int, order ListChargesOrder) ([]model.AdditionalCharge, int64, error) {
	direction := "DESC"
	if order == OrderEarliest {
		direction = "ASC"
	}

	var total int64
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM additional_charge
	`).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	var charges []model.AdditionalCharge
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+chargeColumns+`
		FROM additional_charge
		ORDER BY created_at `+direction+`, id `+direction+`
		OFFSET ? LIMIT ?
	`, offset, limit).Scan(&charges).Error
	if err != nil {
		return nil, 0, err
	}

	if len(charges) == 0 {
		return charges, total, nil
	}

	ids := make([]uuid.UUID, 0, len(charges))
	for _, charge := range charges {
		ids = append(ids, charge.ID)
	}
	items, err := r.listItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range charges {
		charges[i].Items = items[charges[i].ID]
	}
	return charges, total, nil
}

func (r *ChargeRepository) listItems(ctx context.Context, chargeIDs []uuid.UUID) (map[uuid.UUID][]model.ChargeItem, error) {
	var items []model.ChargeItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			charge_id,
			position,
			item_name,
			item_type,
			quantity,
			unit_price,
			amount,
			repair_description
		FROM additional_charge_item
		WHERE charge_id IN (?)
		ORDER BY charge_id, position
	`, chargeIDs).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[uuid.UUID][]model.ChargeItem, len(chargeIDs))
	for _, item := range items {
		grouped[item.ChargeID] = append(grouped[item.ChargeID], item)
	}
	return grouped, nil
}

// Create inserts a charge with its lines in one transaction. Charges are
// raised by the inspection/return process; this service itself only
// transitions them.
func (r *ChargeRepository) Create(ctx context.Context, charge model.AdditionalCharge) (*model.AdditionalCharge, error) {
	var saved model.AdditionalCharge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
			INSERT INTO additional_charge (
				invoice_no,
				do_number,
				customer_name,
				total_charges,
				status,
				due_date,
				returned_date
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING `+chargeColumns+`
		`,
			charge.InvoiceNo,
			charge.DONumber,
			charge.CustomerName,
			charge.TotalCharges,
			charge.Status,
			charge.DueDate,
			charge.ReturnedDate,
		).Scan(&saved).Error
		if err != nil {
			return err
		}

		for i, item := range charge.Items {
			if err := tx.Exec(`
				INSERT INTO additional_charge_item (
					charge_id,
					position,
					item_name,
					item_type,
					quantity,
					unit_price,
					amount,
					repair_description
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, saved.ID, i+1, item.ItemName, item.ItemType, item.Quantity, item.UnitPrice, item.Amount, item.RepairDescription).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, saved.ID)
}

// MarkPendingApproval applies the upload-proof transition. The status
// guard lives in the WHERE clause so two racing transitions cannot both
// succeed; zero affected rows means the charge was not in an allowed
// source status.
func (r *ChargeRepository) MarkPendingApproval(ctx context.Context, id uuid.UUID, proofURL string) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE additional_charge
		SET
			status = 'PENDING_APPROVAL',
			proof_of_payment_url = ?,
			rejection_reason = NULL,
			rejection_date = NULL
		WHERE id = ? AND status IN ('PENDING_PAYMENT', 'REJECTED')
	`, proofURL, id)
	return res.RowsAffected, res.Error
}

func (r *ChargeRepository) MarkPaid(ctx context.Context, id uuid.UUID, referenceID string, approvedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE additional_charge
		SET
			status = 'PAID',
			reference_id = ?,
			approval_date = ?
		WHERE id = ? AND status = 'PENDING_APPROVAL'
	`, referenceID, approvedAt, id)
	return res.RowsAffected, res.Error
}

func (r *ChargeRepository) MarkRejected(ctx context.Context, id uuid.UUID, reason string, rejectedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE additional_charge
		SET
			status = 'REJECTED',
			rejection_reason = ?,
			rejection_date = ?
		WHERE id = ? AND status = 'PENDING_APPROVAL'
	`, reason, rejectedAt, id)
	return res.RowsAffected, res.Error
}

func (r *ChargeRepository) CreditNotesTotal(ctx context.Context, chargeID uuid.UUID) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(amount), 0) FROM credit_note WHERE charge_id = ?
	`, chargeID).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ChargeRepository) CreditNotesTotals(ctx context.Context, chargeIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	if len(chargeIDs) == 0 {
		return map[uuid.UUID]float64{}, nil
	}

	var rows []struct {
		ChargeID uuid.UUID
		Total    float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT charge_id, COALESCE(SUM(amount), 0) AS total
		FROM credit_note
		WHERE charge_id IN (?)
		GROUP BY charge_id
	`, chargeIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]float64, len(rows))
	for _, row := range rows {
		totals[row.ChargeID] = row.Total
	}
	return totals, nil
}
