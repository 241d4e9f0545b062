package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/scaffre/billing-service/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes the additional-charge register: a summary sheet plus
// one line-item sheet section per charge.
func (g *Generator) Generate(register model.ChargeRegister) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Register"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, register); err != nil {
		return nil, err
	}

	itemsSheet := "Line Items"
	file.NewSheet(itemsSheet)
	if err := g.writeItems(file, itemsSheet, register); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, register model.ChargeRegister) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Generated")
	set("B1", formatDateTime(register.GeneratedAt))
	set("A2", "Charges")
	set("B2", len(register.Rows))
	set("A3", "Total charges")
	set("B3", formatAmount(register.TotalCharges))
	set("A4", "Total payable")
	set("B4", formatAmount(register.TotalPayable))

	headers := []string{
		"Invoice No",
		"DO No",
		"Customer",
		"Status",
		"Overdue",
		"Due Date",
		"Returned Date",
		"Total Charges",
		"Credit Notes",
		"Payable",
		"Reference ID",
	}
	tableRow := 6
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, row := range register.Rows {
		r := tableRow + 1 + i
		set(fmt.Sprintf("A%d", r), row.Charge.InvoiceNo)
		set(fmt.Sprintf("B%d", r), row.Charge.DONumber)
		set(fmt.Sprintf("C%d", r), row.Charge.CustomerName)
		set(fmt.Sprintf("D%d", r), statusLabel(row.Charge.Status, row.Overdue))
		set(fmt.Sprintf("E%d", r), yesNo(row.Overdue))
		set(fmt.Sprintf("F%d", r), formatDate(row.Charge.DueDate))
		set(fmt.Sprintf("G%d", r), formatDatePtr(row.Charge.ReturnedDate))
		set(fmt.Sprintf("H%d", r), formatAmount(row.Charge.TotalCharges))
		set(fmt.Sprintf("I%d", r), formatAmount(row.CreditNotesTotal))
		set(fmt.Sprintf("J%d", r), formatAmount(row.Payable))
		set(fmt.Sprintf("K%d", r), formatString(row.Charge.ReferenceID))
	}

	_ = file.SetColWidth(sheet, "A", "B", 16)
	_ = file.SetColWidth(sheet, "C", "C", 32)
	_ = file.SetColWidth(sheet, "D", "D", 20)
	_ = file.SetColWidth(sheet, "E", "G", 14)
	_ = file.SetColWidth(sheet, "H", "K", 14)
	return nil
}

func (g *Generator) writeItems(file *excelize.File, sheet string, register model.ChargeRegister) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Invoice No",
		"Item",
		"Type",
		"Quantity",
		"Unit Price",
		"Amount",
		"Repair Description",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	row := 2
	for _, view := range register.Rows {
		for _, item := range view.Charge.Items {
			set(fmt.Sprintf("A%d", row), view.Charge.InvoiceNo)
			set(fmt.Sprintf("B%d", row), item.ItemName)
			set(fmt.Sprintf("C%d", row), string(item.ItemType))
			set(fmt.Sprintf("D%d", row), item.Quantity)
			set(fmt.Sprintf("E%d", row), formatAmount(item.UnitPrice))
			set(fmt.Sprintf("F%d", row), formatAmount(item.Amount))
			set(fmt.Sprintf("G%d", row), formatString(item.RepairDescription))
			row++
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 16)
	_ = file.SetColWidth(sheet, "B", "B", 32)
	_ = file.SetColWidth(sheet, "C", "F", 14)
	_ = file.SetColWidth(sheet, "G", "G", 40)
	return nil
}

func statusLabel(status model.ChargeStatus, overdue bool) string {
	label := ""
	switch status {
	case model.ChargeStatusPendingPayment:
		label = "Pending Payment"
	case model.ChargeStatusPendingApproval:
		label = "Pending Approval"
	case model.ChargeStatusPaid:
		label = "Paid"
	case model.ChargeStatusRejected:
		label = "Rejected"
	default:
		label = string(status)
	}
	if overdue {
		label += " (Overdue)"
	}
	return label
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
