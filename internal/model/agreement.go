package model

import (
	"time"

	"github.com/google/uuid"
)

// SettlementStatus is the closed form of the settlement strings the ERP
// persists on rental agreements. The persisted spelling is mapped here
// once; nothing else in the service compares raw strings.
type SettlementStatus string

const (
	SettlementPaid            SettlementStatus = "PAID"
	SettlementPendingPayment  SettlementStatus = "PENDING_PAYMENT"
	SettlementPendingApproval SettlementStatus = "PENDING_APPROVAL"
	SettlementUnknown         SettlementStatus = "UNKNOWN"
)

var settlementByPersisted = map[string]SettlementStatus{
	"Paid":             SettlementPaid,
	"Pending Payment":  SettlementPendingPayment,
	"Pending Approval": SettlementPendingApproval,
}

func ParseSettlementStatus(persisted string) SettlementStatus {
	if s, ok := settlementByPersisted[persisted]; ok {
		return s
	}
	return SettlementUnknown
}

type ReturnStatus string

const (
	ReturnStatusNone       ReturnStatus = "NONE"
	ReturnStatusInProgress ReturnStatus = "IN_PROGRESS"
	ReturnStatusCompleted  ReturnStatus = "COMPLETED"
)

var returnByPersisted = map[string]ReturnStatus{
	"":            ReturnStatusNone,
	"In Progress": ReturnStatusInProgress,
	"Completed":   ReturnStatusCompleted,
}

func ParseReturnStatus(persisted string) ReturnStatus {
	if s, ok := returnByPersisted[persisted]; ok {
		return s
	}
	return ReturnStatusNone
}

// RentalAgreement rows are owned by the agreements module; this service
// only reads them.
type RentalAgreement struct {
	ID                  uuid.UUID
	ProjectName         string
	Hirer               string
	TermOfHire          string
	RentalStartDate     time.Time
	MonthlyRentalStatus SettlementStatus
	DepositStatus       SettlementStatus
	ReturnRequestStatus ReturnStatus
}
