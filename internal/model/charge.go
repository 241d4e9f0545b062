package model

import (
	"time"

	"github.com/google/uuid"
)

type ChargeStatus string

const (
	ChargeStatusPendingPayment  ChargeStatus = "PENDING_PAYMENT"
	ChargeStatusPendingApproval ChargeStatus = "PENDING_APPROVAL"
	ChargeStatusPaid            ChargeStatus = "PAID"
	ChargeStatusRejected        ChargeStatus = "REJECTED"
)

type ChargeItemType string

const (
	ChargeItemMissing  ChargeItemType = "MISSING"
	ChargeItemDamaged  ChargeItemType = "DAMAGED"
	ChargeItemRepair   ChargeItemType = "REPAIR"
	ChargeItemCleaning ChargeItemType = "CLEANING"
)

// ChargeItem is one billable line of an additional charge, raised for a
// missing, damaged, repaired or cleaned scaffold item after return.
type ChargeItem struct {
	ID                uuid.UUID
	ChargeID          uuid.UUID
	Position          int
	ItemName          string
	ItemType          ChargeItemType
	Quantity          int
	UnitPrice         float64
	Amount            float64
	RepairDescription *string
}

type AdditionalCharge struct {
	ID                uuid.UUID
	InvoiceNo         string
	DONumber          string `gorm:"column:do_number"`
	CustomerName      string
	TotalCharges      float64
	Status            ChargeStatus
	DueDate           time.Time
	ReturnedDate      *time.Time
	Items             []ChargeItem `gorm:"-"`
	ProofOfPaymentURL *string
	ReferenceID       *string
	RejectionReason   *string
	ApprovalDate      *time.Time
	RejectionDate     *time.Time
	CreatedAt         time.Time
}

// IsOverdue is a read-time decoration only; the stored status never
// changes because a due date passed.
func (c *AdditionalCharge) IsOverdue(now time.Time) bool {
	if c.Status != ChargeStatusPendingPayment && c.Status != ChargeStatusPendingApproval {
		return false
	}
	return now.After(c.DueDate)
}

// ItemsTotal sums the line amounts. TotalCharges must always equal it.
func (c *AdditionalCharge) ItemsTotal() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.Amount
	}
	return total
}

// CreditNote reduces the payable amount of a charge. Only the sum per
// charge matters to the lifecycle.
type CreditNote struct {
	ID         uuid.UUID
	ChargeID   uuid.UUID
	NoteNumber string
	Amount     float64
	IssuedAt   time.Time
}
