package model

import (
	"time"

	"github.com/google/uuid"
)

type ClosureStatus string

const (
	// ClosureStatusActive is virtual: no closure row exists for the
	// agreement yet. It is never stored.
	ClosureStatusActive   ClosureStatus = "ACTIVE"
	ClosureStatusPending  ClosureStatus = "PENDING"
	ClosureStatusApproved ClosureStatus = "APPROVED"
)

type ClosureRequest struct {
	ID            uuid.UUID
	AgreementID   uuid.UUID
	RequestNumber string
	RequestDate   time.Time
	Status        ClosureStatus
	ApprovedBy    *uuid.UUID
	ApprovedDate  *time.Time
	CreatedAt     time.Time
}

// ClosureChecks are computed per view from agreement, return and
// settlement data; they are never stored.
type ClosureChecks struct {
	RentalPeriodMet       bool
	ReturnProcessComplete bool
	PaymentsSettled       bool
}

// ClosureRow is one line of the project-closure screen: the agreement,
// its closure request if any, and the computed checks.
type ClosureRow struct {
	Agreement RentalAgreement
	Request   *ClosureRequest
	Checks    ClosureChecks
}

func (r ClosureRow) Status() ClosureStatus {
	if r.Request == nil {
		return ClosureStatusActive
	}
	return r.Request.Status
}
