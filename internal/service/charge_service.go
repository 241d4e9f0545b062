package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scaffre/billing-service/internal/config"
	"github.com/scaffre/billing-service/internal/model"
	"github.com/scaffre/billing-service/internal/repository"
)

// ChargeStore is the persistence surface of the charge lifecycle. The
// Mark* methods carry their status guard in the query and report
// affected rows, which is how concurrent transitions are serialized.
type ChargeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.AdditionalCharge, error)
	List(ctx context.Context, offset, limit int, order repository.ListChargesOrder) ([]model.AdditionalCharge, int64, error)
	MarkPendingApproval(ctx context.Context, id uuid.UUID, proofURL string) (int64, error)
	MarkPaid(ctx context.Context, id uuid.UUID, referenceID string, approvedAt time.Time) (int64, error)
	MarkRejected(ctx context.Context, id uuid.UUID, reason string, rejectedAt time.Time) (int64, error)
	CreditNotesTotal(ctx context.Context, chargeID uuid.UUID) (float64, error)
	CreditNotesTotals(ctx context.Context, chargeIDs []uuid.UUID) (map[uuid.UUID]float64, error)
}

type ProofStorage interface {
	UploadProof(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
}

type RegisterGenerator interface {
	Generate(register model.ChargeRegister) ([]byte, error)
}

type StatementGenerator interface {
	Generate(statement model.ChargeStatement) ([]byte, error)
}

type ChargeService struct {
	store      ChargeStore
	proofs     ProofStorage
	register   RegisterGenerator
	statements StatementGenerator
	cfg        *config.Config
	now        func() time.Time
}

func NewChargeService(
	store ChargeStore,
	proofs ProofStorage,
	register RegisterGenerator,
	statements StatementGenerator,
	cfg *config.Config,
) *ChargeService {
	return &ChargeService{
		store:      store,
		proofs:     proofs,
		register:   register,
		statements: statements,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ComputePayable clamps at zero; credit notes reduce what is collected,
// never the charge total itself.
func ComputePayable(totalCharges, creditNotesTotal float64) float64 {
	payable := totalCharges - creditNotesTotal
	if payable < 0 {
		return 0
	}
	return payable
}

func (s *ChargeService) Get(ctx context.Context, id uuid.UUID) (*model.ChargeView, error) {
	charge, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decorate(ctx, charge)
}

func (s *ChargeService) decorate(ctx context.Context, charge *model.AdditionalCharge) (*model.ChargeView, error) {
	credits, err := s.store.CreditNotesTotal(ctx, charge.ID)
	if err != nil {
		return nil, err
	}
	return &model.ChargeView{
		Charge:           *charge,
		Overdue:          charge.IsOverdue(s.now()),
		CreditNotesTotal: credits,
		Payable:          ComputePayable(charge.TotalCharges, credits),
	}, nil
}

type ListChargesInput struct {
	Page     int
	PageSize int
	OrderBy  string
}

type ListChargesResult struct {
	Items    []model.ChargeView
	Total    int64
	Page     int
	PageSize int
}

func (s *ChargeService) List(ctx context.Context, input ListChargesInput) (*ListChargesResult, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = s.cfg.Billing.DefaultPageSize
	}
	if pageSize > s.cfg.Billing.MaxPageSize {
		pageSize = s.cfg.Billing.MaxPageSize
	}

	order := repository.OrderLatest
	switch strings.ToLower(strings.TrimSpace(input.OrderBy)) {
	case "", "latest":
		order = repository.OrderLatest
	case "earliest":
		order = repository.OrderEarliest
	default:
		return nil, fmt.Errorf("%w: order_by must be latest or earliest", ErrInvalidInput)
	}

	charges, total, err := s.store.List(ctx, (page-1)*pageSize, pageSize, order)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(charges))
	for _, charge := range charges {
		ids = append(ids, charge.ID)
	}
	credits, err := s.store.CreditNotesTotals(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]model.ChargeView, 0, len(charges))
	for _, charge := range charges {
		items = append(items, model.ChargeView{
			Charge:           charge,
			Overdue:          charge.IsOverdue(now),
			CreditNotesTotal: credits[charge.ID],
			Payable:          ComputePayable(charge.TotalCharges, credits[charge.ID]),
		})
	}

	return &ListChargesResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

type UploadProofInput struct {
	ChargeID    uuid.UUID
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadProof moves a charge from PENDING_PAYMENT or REJECTED to
// PENDING_APPROVAL. The object is stored first; a storage failure
// leaves the charge untouched.
func (s *ChargeService) UploadProof(ctx context.Context, input UploadProofInput) (*model.ChargeView, error) {
	if input.Content == nil || input.Size <= 0 {
		return nil, fmt.Errorf("%w: proof file is required", ErrInvalidInput)
	}

	charge, err := s.store.GetByID(ctx, input.ChargeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if charge.Status != model.ChargeStatusPendingPayment && charge.Status != model.ChargeStatusRejected {
		return nil, fmt.Errorf("%w: proof can only be uploaded for charges pending payment or rejected", ErrInvalidState)
	}

	objectName := fmt.Sprintf("charges/%s/%s-%s", charge.ID, uuid.New(), sanitizeFileName(input.FileName))
	proofURL, err := s.proofs.UploadProof(ctx, objectName, input.Content, input.Size, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store proof of payment: %w", err)
	}

	affected, err := s.store.MarkPendingApproval(ctx, charge.ID, proofURL)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost a race; the guard in the UPDATE kept the record intact.
		return nil, fmt.Errorf("%w: charge status changed, refetch and retry", ErrInvalidState)
	}
	return s.Get(ctx, charge.ID)
}

// Approve settles a charge. Terminal; nothing transitions out of PAID.
func (s *ChargeService) Approve(ctx context.Context, chargeID uuid.UUID, referenceID string) (*model.ChargeView, error) {
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return nil, fmt.Errorf("%w: reference_id is required", ErrInvalidInput)
	}

	affected, err := s.store.MarkPaid(ctx, chargeID, referenceID, s.now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, chargeID)
	}
	return s.Get(ctx, chargeID)
}

func (s *ChargeService) Reject(ctx context.Context, chargeID uuid.UUID, reason string) (*model.ChargeView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}

	affected, err := s.store.MarkRejected(ctx, chargeID, reason, s.now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, chargeID)
	}
	return s.Get(ctx, chargeID)
}

// transitionConflict distinguishes an unknown charge from one that is
// simply not in the required source status.
func (s *ChargeService) transitionConflict(ctx context.Context, chargeID uuid.UUID) error {
	if _, err := s.store.GetByID(ctx, chargeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: charge is not pending approval", ErrInvalidState)
}

type ExportResult struct {
	FileName string
	Content  []byte
}

// ExportRegister renders every charge into one XLSX register.
func (s *ChargeService) ExportRegister(ctx context.Context) (*ExportResult, error) {
	result, err := s.List(ctx, ListChargesInput{Page: 1, PageSize: s.cfg.Billing.MaxPageSize})
	if err != nil {
		return nil, err
	}
	rows := result.Items
	for int64(len(rows)) < result.Total {
		next, err := s.List(ctx, ListChargesInput{Page: len(rows)/s.cfg.Billing.MaxPageSize + 1, PageSize: s.cfg.Billing.MaxPageSize})
		if err != nil {
			return nil, err
		}
		if len(next.Items) == 0 {
			break
		}
		rows = append(rows, next.Items...)
	}

	register := model.ChargeRegister{
		GeneratedAt: s.now(),
		Rows:        rows,
	}
	for _, row := range rows {
		register.TotalCharges += row.Charge.TotalCharges
		register.TotalPayable += row.Payable
	}

	content, err := s.register.Generate(register)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("additional-charges-%s.xlsx", register.GeneratedAt.Format("20060102-150405")),
		Content:  content,
	}, nil
}

// Statement renders the PDF statement of a single charge.
func (s *ChargeService) Statement(ctx context.Context, chargeID uuid.UUID) (*ExportResult, error) {
	view, err := s.Get(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	content, err := s.statements.Generate(model.ChargeStatement{
		View:        *view,
		GeneratedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	name := sanitizeFileName(view.Charge.InvoiceNo)
	if name == "" {
		name = view.Charge.ID.String()
	}
	return &ExportResult{
		FileName: fmt.Sprintf("charge-statement-%s.pdf", name),
		Content:  content,
	}, nil
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_', r == '.':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
