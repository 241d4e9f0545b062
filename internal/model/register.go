package model

import "time"

// ChargeView decorates a charge with the read-time fields the screens
// and exports show: overdue flag and payable after credit notes.
type ChargeView struct {
	Charge           AdditionalCharge
	Overdue          bool
	CreditNotesTotal float64
	Payable          float64
}

// ChargeRegister is the input of the XLSX export.
type ChargeRegister struct {
	GeneratedAt  time.Time
	TotalCharges float64
	TotalPayable float64
	Rows         []ChargeView
}

// ChargeStatement is the input of the per-charge PDF statement.
type ChargeStatement struct {
	View        ChargeView
	GeneratedAt time.Time
}
