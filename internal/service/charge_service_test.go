package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scaffre/billing-service/internal/config"
	"github.com/scaffre/billing-service/internal/model"
	"github.com/scaffre/billing-service/internal/repository"
)

type fakeChargeStore struct {
	charges map[uuid.UUID]*model.AdditionalCharge
	credits map[uuid.UUID]float64
}

func newFakeChargeStore(charges ...*model.AdditionalCharge) *fakeChargeStore {
	store := &fakeChargeStore{
		charges: map[uuid.UUID]*model.AdditionalCharge{},
		credits: map[uuid.UUID]float64{},
	}
	for _, charge := range charges {
		store.charges[charge.ID] = charge
	}
	return store
}

func (f *fakeChargeStore) GetByID(_ context.Context, id uuid.UUID) (*model.AdditionalCharge, error) {
	charge, ok := f.charges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *charge
	return &copied, nil
}

func (f *fakeChargeStore) List(_ context.Context, offset, limit int, _ repository.ListChargesOrder) ([]model.AdditionalCharge, int64, error) {
	var all []model.AdditionalCharge
	for _, charge := range f.charges {
		all = append(all, *charge)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeChargeStore) MarkPendingApproval(_ context.Context, id uuid.UUID, proofURL string) (int64, error) {
	charge, ok := f.charges[id]
	if !ok {
		return 0, nil
	}
	if charge.Status != model.ChargeStatusPendingPayment && charge.Status != model.ChargeStatusRejected {
		return 0, nil
	}
	charge.Status = model.ChargeStatusPendingApproval
	charge.ProofOfPaymentURL = &proofURL
	charge.RejectionReason = nil
	charge.RejectionDate = nil
	return 1, nil
}

func (f *fakeChargeStore) MarkPaid(_ context.Context, id uuid.UUID, referenceID string, approvedAt time.Time) (int64, error) {
	charge, ok := f.charges[id]
	if !ok || charge.Status != model.ChargeStatusPendingApproval {
		return 0, nil
	}
	charge.Status = model.ChargeStatusPaid
	charge.ReferenceID = &referenceID
	charge.ApprovalDate = &approvedAt
	return 1, nil
}

func (f *fakeChargeStore) MarkRejected(_ context.Context, id uuid.UUID, reason string, rejectedAt time.Time) (int64, error) {
	charge, ok := f.charges[id]
	if !ok || charge.Status != model.ChargeStatusPendingApproval {
		return 0, nil
	}
	charge.Status = model.ChargeStatusRejected
	charge.RejectionReason = &reason
	charge.RejectionDate = &rejectedAt
	return 1, nil
}

func (f *fakeChargeStore) CreditNotesTotal(_ context.Context, chargeID uuid.UUID) (float64, error) {
	return f.credits[chargeID], nil
}

func (f *fakeChargeStore) CreditNotesTotals(_ context.Context, chargeIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	totals := map[uuid.UUID]float64{}
	for _, id := range chargeIDs {
		totals[id] = f.credits[id]
	}
	return totals, nil
}

type fakeProofStorage struct {
	uploads int
	fail    bool
}

func (f *fakeProofStorage) UploadProof(_ context.Context, objectName string, _ io.Reader, _ int64, _ string) (string, error) {
	if f.fail {
		return "", errors.New("storage unavailable")
	}
	f.uploads++
	return "https://files.local/proof-of-payment/" + objectName, nil
}

type stubRegisterGenerator struct{}

func (stubRegisterGenerator) Generate(model.ChargeRegister) ([]byte, error) {
	return []byte("xlsx"), nil
}

type stubStatementGenerator struct{}

func (stubStatementGenerator) Generate(model.ChargeStatement) ([]byte, error) {
	return []byte("pdf"), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Billing: config.BillingConfig{
			MinimumRentalPeriodDays: 30,
			ClosureNumberPrefix:     "PCR",
			DefaultPageSize:         20,
			MaxPageSize:             100,
		},
	}
}

func newChargeService(store ChargeStore, proofs ProofStorage, now time.Time) *ChargeService {
	svc := NewChargeService(store, proofs, stubRegisterGenerator{}, stubStatementGenerator{}, testConfig())
	svc.now = func() time.Time { return now }
	return svc
}

func pendingPaymentCharge(now time.Time) *model.AdditionalCharge {
	id := uuid.New()
	return &model.AdditionalCharge{
		ID:           id,
		InvoiceNo:    "AC-2024-0001",
		DONumber:     "DO-0042",
		CustomerName: "Hup Seng Construction",
		TotalCharges: 500,
		Status:       model.ChargeStatusPendingPayment,
		DueDate:      now.Add(14 * 24 * time.Hour),
		Items: []model.ChargeItem{
			{ChargeID: id, Position: 1, ItemName: "Scaffold frame 1.7m", ItemType: model.ChargeItemDamaged, Quantity: 4, UnitPrice: 95, Amount: 380},
			{ChargeID: id, Position: 2, ItemName: "Cross brace", ItemType: model.ChargeItemMissing, Quantity: 8, UnitPrice: 15, Amount: 120},
		},
		CreatedAt: now.Add(-24 * time.Hour),
	}
}

func TestComputePayable(t *testing.T) {
	assert.Equal(t, 380.0, ComputePayable(500, 120))
	assert.Equal(t, 0.0, ComputePayable(500, 600))
	assert.Equal(t, 500.0, ComputePayable(500, 0))
}

func TestItemsTotalMatchesTotalCharges(t *testing.T) {
	charge := pendingPaymentCharge(time.Now())
	assert.Equal(t, charge.TotalCharges, charge.ItemsTotal())
}

func TestUploadProofFromPendingPayment(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	charge := pendingPaymentCharge(now)
	store := newFakeChargeStore(charge)
	proofs := &fakeProofStorage{}
	svc := newChargeService(store, proofs, now)

	view, err := svc.UploadProof(context.Background(), UploadProofInput{
		ChargeID:    charge.ID,
		FileName:    "receipt.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Content:     bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChargeStatusPendingApproval, view.Charge.Status)
	require.NotNil(t, view.Charge.ProofOfPaymentURL)
	assert.Equal(t, 1, proofs.uploads)
}

func TestUploadProofFromRejectedClearsRejection(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	charge := pendingPaymentCharge(now)
	reason := "blurry receipt"
	rejectedAt := now.Add(-time.Hour)
	charge.Status = model.ChargeStatusRejected
	charge.RejectionReason = &reason
	charge.RejectionDate = &rejectedAt

	store := newFakeChargeStore(charge)
	svc := newChargeService(store, &fakeProofStorage{}, now)

	view, err := svc.UploadProof(context.Background(), UploadProofInput{
		ChargeID: charge.ID,
		FileName: "receipt-2.pdf",
		Size:     4,
		Content:  bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChargeStatusPendingApproval, view.Charge.Status)
	assert.Nil(t, view.Charge.RejectionReason)
	assert.Nil(t, view.Charge.RejectionDate)
}

func TestUploadProofInvalidStates(t *testing.T) {
	now := time.Now()
	for _, status := range []model.ChargeStatus{model.ChargeStatusPendingApproval, model.ChargeStatusPaid} {
		t.Run(string(status), func(t *testing.T) {
			charge := pendingPaymentCharge(now)
			charge.Status = status
			store := newFakeChargeStore(charge)
			proofs := &fakeProofStorage{}
			svc := newChargeService(store, proofs, now)

			_, err := svc.UploadProof(context.Background(), UploadProofInput{
				ChargeID: charge.ID,
				FileName: "receipt.pdf",
				Size:     4,
				Content:  bytes.NewReader([]byte("data")),
			})
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Equal(t, 0, proofs.uploads)
			assert.Equal(t, status, store.charges[charge.ID].Status)
		})
	}
}

func TestUploadProofStorageFailureLeavesChargeUntouched(t *testing.T) {
	now := time.Now()
	charge := pendingPaymentCharge(now)
	store := newFakeChargeStore(charge)
	svc := newChargeService(store, &fakeProofStorage{fail: true}, now)

	_, err := svc.UploadProof(context.Background(), UploadProofInput{
		ChargeID: charge.ID,
		FileName: "receipt.pdf",
		Size:     4,
		Content:  bytes.NewReader([]byte("data")),
	})
	require.Error(t, err)
	assert.Equal(t, model.ChargeStatusPendingPayment, store.charges[charge.ID].Status)
	assert.Nil(t, store.charges[charge.ID].ProofOfPaymentURL)
}

func TestApprove(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	charge := pendingPaymentCharge(now)
	charge.Status = model.ChargeStatusPendingApproval
	store := newFakeChargeStore(charge)
	svc := newChargeService(store, &fakeProofStorage{}, now)

	view, err := svc.Approve(context.Background(), charge.ID, "TXN-88412")
	require.NoError(t, err)
	assert.Equal(t, model.ChargeStatusPaid, view.Charge.Status)
	require.NotNil(t, view.Charge.ReferenceID)
	assert.Equal(t, "TXN-88412", *view.Charge.ReferenceID)
	require.NotNil(t, view.Charge.ApprovalDate)
	assert.False(t, view.Charge.ApprovalDate.Before(view.Charge.CreatedAt))
	assert.False(t, view.Overdue)
}

func TestApproveBlankReference(t *testing.T) {
	now := time.Now()
	charge := pendingPaymentCharge(now)
	charge.Status = model.ChargeStatusPendingApproval
	store := newFakeChargeStore(charge)
	svc := newChargeService(store, &fakeProofStorage{}, now)

	for _, ref := range []string{"", "   ", "\t"} {
		_, err := svc.Approve(context.Background(), charge.ID, ref)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Equal(t, model.ChargeStatusPendingApproval, store.charges[charge.ID].Status)
}

func TestApproveWrongState(t *testing.T) {
	now := time.Now()
	charge := pendingPaymentCharge(now)
	charge.Status = model.ChargeStatusPaid
	store := newFakeChargeStore(charge)
	svc := newChargeService(store, &fakeProofStorage{}, now)

	_, err := svc.Approve(context.Background(), charge.ID, "TXN-1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveUnknownCharge(t *testing.T) {
	svc := newChargeService(newFakeChargeStore(), &fakeProofStorage{}, time.Now())
	_, err := svc.Approve(context.Background(), uuid.New(), "TXN-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectThenResubmit(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	charge := pendingPaymentCharge(now)
	charge.Status = model.ChargeStatusPendingApproval
	store := newFakeChargeStore(charge)
	svc := newChargeService(store, &fakeProofStorage{}, now)

	view, err := svc.Reject(context.Background(), charge.ID, "amount does not match invoice")
	require.NoError(t, err)
	assert.Equal(t, model.ChargeStatusRejected, view.Charge.Status)
	require.NotNil(t, view.Charge.RejectionReason)
	assert.False(t, view.Overdue)

	view, err = svc.UploadProof(context.Background(), UploadProofInput{
		ChargeID: charge.ID,
		FileName: "corrected.pdf",
		Size:     4,
		Content:  bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChargeStatusPendingApproval, view.Charge.Status)
	assert.Nil(t, view.Charge.RejectionReason)
}

func TestRejectBlankReason(t *testing.T) {
	now := time.Now()
	charge := pendingPaymentCharge(now)
	charge.Status = model.ChargeStatusPendingApproval
	svc := newChargeService(newFakeChargeStore(charge), &fakeProofStorage{}, now)

	_, err := svc.Reject(context.Background(), charge.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConcurrentApproveRejectOneWins(t *testing.T) {
	now := time.Now()
	charge := pendingPaymentCharge(now)
	charge.Status = model.ChargeStatusPendingApproval
	store := newFakeChargeStore(charge)
	svc := newChargeService(store, &fakeProofStorage{}, now)

	_, err := svc.Approve(context.Background(), charge.ID, "TXN-1")
	require.NoError(t, err)

	// The losing call observes the state conflict, not a second win.
	_, err = svc.Reject(context.Background(), charge.ID, "late")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, model.ChargeStatusPaid, store.charges[charge.ID].Status)
}

func TestOverdueDecoration(t *testing.T) {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		status  model.ChargeStatus
		now     time.Time
		overdue bool
	}{
		{"pending payment past due", model.ChargeStatusPendingPayment, due.Add(time.Hour), true},
		{"pending approval past due", model.ChargeStatusPendingApproval, due.Add(time.Hour), true},
		{"pending payment before due", model.ChargeStatusPendingPayment, due.Add(-time.Hour), false},
		{"paid past due", model.ChargeStatusPaid, due.Add(time.Hour), false},
		{"rejected past due", model.ChargeStatusRejected, due.Add(time.Hour), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			charge := pendingPaymentCharge(tc.now)
			charge.Status = tc.status
			charge.DueDate = due
			svc := newChargeService(newFakeChargeStore(charge), &fakeProofStorage{}, tc.now)

			view, err := svc.Get(context.Background(), charge.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.overdue, view.Overdue)
		})
	}
}

func TestGetIncludesPayableAfterCreditNotes(t *testing.T) {
	now := time.Now()
	charge := pendingPaymentCharge(now)
	store := newFakeChargeStore(charge)
	store.credits[charge.ID] = 120
	svc := newChargeService(store, &fakeProofStorage{}, now)

	view, err := svc.Get(context.Background(), charge.ID)
	require.NoError(t, err)
	assert.Equal(t, 120.0, view.CreditNotesTotal)
	assert.Equal(t, 380.0, view.Payable)
	// TotalCharges itself is never reduced by credit notes.
	assert.Equal(t, 500.0, view.Charge.TotalCharges)
}

func TestListRejectsUnknownOrder(t *testing.T) {
	svc := newChargeService(newFakeChargeStore(), &fakeProofStorage{}, time.Now())
	_, err := svc.List(context.Background(), ListChargesInput{OrderBy: "newest"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListClampsPageSize(t *testing.T) {
	store := newFakeChargeStore()
	for i := 0; i < 3; i++ {
		charge := pendingPaymentCharge(time.Now())
		charge.InvoiceNo = fmt.Sprintf("AC-2024-%04d", i)
		store.charges[charge.ID] = charge
	}
	svc := newChargeService(store, &fakeProofStorage{}, time.Now())

	result, err := svc.List(context.Background(), ListChargesInput{Page: 0, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, testConfig().Billing.MaxPageSize, result.PageSize)
	assert.Equal(t, int64(3), result.Total)
}
