package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scaffre/billing-service/internal/config"
	"github.com/scaffre/billing-service/internal/model"
)

type ClosureStore interface {
	GetAgreement(ctx context.Context, id uuid.UUID) (*model.RentalAgreement, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*model.ClosureRequest, error)
	GetRequestByAgreement(ctx context.Context, agreementID uuid.UUID) (*model.ClosureRequest, error)
	CreateRequest(ctx context.Context, agreementID uuid.UUID, requestNumber string, requestDate time.Time) (*model.ClosureRequest, error)
	NextRequestSequence(ctx context.Context) (int64, error)
	MarkApproved(ctx context.Context, id uuid.UUID, approverID uuid.UUID, approvedAt time.Time) (int64, error)
	ListRows(ctx context.Context) ([]model.ClosureRow, error)
}

type ClosureService struct {
	store ClosureStore
	cfg   *config.Config
	now   func() time.Time
}

func NewClosureService(store ClosureStore, cfg *config.Config) *ClosureService {
	return &ClosureService{store: store, cfg: cfg, now: time.Now}
}

var (
	daysPattern   = regexp.MustCompile(`(?i)(\d+)\s*days?`)
	monthsPattern = regexp.MustCompile(`(?i)(\d+)\s*months?`)
)

// ParseMinimumPeriodDays extracts a day count from the free-text term of
// hire. A day figure wins over a month figure; months count as 30 days
// flat, with no calendar awareness. Anything else is unparseable and
// the rental-period check fails closed.
func ParseMinimumPeriodDays(termOfHire string) (int, bool) {
	if match := daysPattern.FindStringSubmatch(termOfHire); match != nil {
		days, err := strconv.Atoi(match[1])
		if err == nil {
			return days, true
		}
	}
	if match := monthsPattern.FindStringSubmatch(termOfHire); match != nil {
		months, err := strconv.Atoi(match[1])
		if err == nil {
			return months * 30, true
		}
	}
	return 0, false
}

// Checks computes the three closure validation badges for an agreement.
// PaymentsSettled is displayed but does not gate approval; only the
// first two checks do.
func (s *ClosureService) Checks(agreement model.RentalAgreement) model.ClosureChecks {
	days, ok := ParseMinimumPeriodDays(agreement.TermOfHire)
	return model.ClosureChecks{
		RentalPeriodMet:       ok && days >= s.cfg.Billing.MinimumRentalPeriodDays,
		ReturnProcessComplete: agreement.ReturnRequestStatus == model.ReturnStatusCompleted,
		PaymentsSettled: agreement.MonthlyRentalStatus == model.SettlementPaid &&
			agreement.DepositStatus == model.SettlementPaid,
	}
}

func (s *ClosureService) CanApprove(request *model.ClosureRequest, checks model.ClosureChecks) bool {
	return request != nil &&
		request.Status == model.ClosureStatusPending &&
		checks.RentalPeriodMet &&
		checks.ReturnProcessComplete
}

// Create opens a closure request for an agreement. The unique index on
// agreement_id decides races; at most one request per agreement ever
// exists.
func (s *ClosureService) Create(ctx context.Context, agreementID uuid.UUID) (*model.ClosureRequest, error) {
	if agreementID == uuid.Nil {
		return nil, fmt.Errorf("%w: agreement_id is required", ErrInvalidInput)
	}

	if _, err := s.store.GetAgreement(ctx, agreementID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: rental agreement", ErrNotFound)
		}
		return nil, err
	}

	if _, err := s.store.GetRequestByAgreement(ctx, agreementID); err == nil {
		return nil, fmt.Errorf("%w: closure request already exists for agreement", ErrAlreadyExists)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sequence, err := s.store.NextRequestSequence(ctx)
	if err != nil {
		return nil, err
	}
	number := fmt.Sprintf("%s-%05d", s.cfg.Billing.ClosureNumberPrefix, sequence)

	request, err := s.store.CreateRequest(ctx, agreementID, number, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: closure request already exists for agreement", ErrAlreadyExists)
		}
		return nil, err
	}
	return request, nil
}

// Approve closes out the project. Gated on rental-period-met and
// return-process-complete; APPROVED is terminal.
func (s *ClosureService) Approve(ctx context.Context, requestID, approverID uuid.UUID) (*model.ClosureRequest, error) {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	agreement, err := s.store.GetAgreement(ctx, request.AgreementID)
	if err != nil {
		return nil, err
	}

	checks := s.Checks(*agreement)
	if !s.CanApprove(request, checks) {
		return nil, fmt.Errorf("%w: %s", ErrPreconditionFailed, strings.Join(unmetConditions(request, checks), "; "))
	}

	affected, err := s.store.MarkApproved(ctx, requestID, approverID, s.now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Another approval won the race.
		return nil, fmt.Errorf("%w: closure request is no longer pending", ErrPreconditionFailed)
	}
	return s.store.GetRequest(ctx, requestID)
}

func unmetConditions(request *model.ClosureRequest, checks model.ClosureChecks) []string {
	var unmet []string
	if request.Status != model.ClosureStatusPending {
		unmet = append(unmet, "closure request is not pending")
	}
	if !checks.RentalPeriodMet {
		unmet = append(unmet, "minimum rental period not met")
	}
	if !checks.ReturnProcessComplete {
		unmet = append(unmet, "return process not complete")
	}
	return unmet
}

// List returns every agreement with its closure request and computed
// checks for the project-closure screen.
func (s *ClosureService) List(ctx context.Context) ([]model.ClosureRow, error) {
	rows, err := s.store.ListRows(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Checks = s.Checks(rows[i].Agreement)
	}
	return rows, nil
}
