package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/scaffre/billing-service/internal/model"
)

func TestGenerateRegister(t *testing.T) {
	reason := "amount mismatch"
	register := model.ChargeRegister{
		GeneratedAt:  time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		TotalCharges: 880,
		TotalPayable: 760,
		Rows: []model.ChargeView{
			{
				Charge: model.AdditionalCharge{
					InvoiceNo:    "AC-2024-0001",
					DONumber:     "DO-0042",
					CustomerName: "Hup Seng Construction",
					TotalCharges: 500,
					Status:       model.ChargeStatusPendingPayment,
					DueDate:      time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
					Items: []model.ChargeItem{
						{ItemName: "Scaffold frame 1.7m", ItemType: model.ChargeItemDamaged, Quantity: 4, UnitPrice: 95, Amount: 380},
					},
				},
				Overdue:          true,
				CreditNotesTotal: 120,
				Payable:          380,
			},
			{
				Charge: model.AdditionalCharge{
					InvoiceNo:       "AC-2024-0002",
					CustomerName:    "Mega Builders",
					TotalCharges:    380,
					Status:          model.ChargeStatusRejected,
					RejectionReason: &reason,
				},
				Payable: 380,
			},
		},
	}

	content, err := NewGenerator().Generate(register)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	assert.ElementsMatch(t, []string{"Register", "Line Items"}, file.GetSheetList())

	status, err := file.GetCellValue("Register", "D7")
	require.NoError(t, err)
	assert.Equal(t, "Pending Payment (Overdue)", status)

	payable, err := file.GetCellValue("Register", "J7")
	require.NoError(t, err)
	assert.Equal(t, "380.00", payable)
}
