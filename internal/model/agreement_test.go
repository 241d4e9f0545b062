package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSettlementStatus(t *testing.T) {
	assert.Equal(t, SettlementPaid, ParseSettlementStatus("Paid"))
	assert.Equal(t, SettlementPendingPayment, ParseSettlementStatus("Pending Payment"))
	assert.Equal(t, SettlementPendingApproval, ParseSettlementStatus("Pending Approval"))
	assert.Equal(t, SettlementUnknown, ParseSettlementStatus("paid"))
	assert.Equal(t, SettlementUnknown, ParseSettlementStatus(""))
}

func TestParseReturnStatus(t *testing.T) {
	assert.Equal(t, ReturnStatusCompleted, ParseReturnStatus("Completed"))
	assert.Equal(t, ReturnStatusInProgress, ParseReturnStatus("In Progress"))
	assert.Equal(t, ReturnStatusNone, ParseReturnStatus(""))
	assert.Equal(t, ReturnStatusNone, ParseReturnStatus("Cancelled"))
}
