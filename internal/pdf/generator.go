package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/scaffre/billing-service/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate renders a single-charge statement for handing to the hirer.
func (g *Generator) Generate(statement model.ChargeStatement) ([]byte, error) {
	charge := statement.View.Charge

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Additional Charge Statement", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Invoice %s / DO %s", charge.InvoiceNo, charge.DONumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", formatDate(statement.GeneratedAt)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Customer", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, charge.CustomerName, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Status", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, statusLine(statement.View), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Due date: %s", formatDate(charge.DueDate)), "", 1, "L", false, 0, "")
	if charge.ReturnedDate != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Returned: %s", formatDate(*charge.ReturnedDate)), "", 1, "L", false, 0, "")
	}
	if charge.RejectionReason != nil {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, fmt.Sprintf("Rejection reason: %s", *charge.RejectionReason), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Charges", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)

	headers := []string{"Item", "Type", "Qty", "Unit Price", "Amount"}
	colWidths := []float64{75, 28, 17, 30, 30}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)

	for _, item := range charge.Items {
		row := []string{
			item.ItemName,
			string(item.ItemType),
			fmt.Sprintf("%d", item.Quantity),
			formatAmount(item.UnitPrice),
			formatAmount(item.Amount),
		}
		drawTableRow(pdf, g.fontName, row, colWidths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total charges: %s", formatAmount(charge.TotalCharges)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Credit notes: -%s", formatAmount(statement.View.CreditNotesTotal)), "", 1, "R", false, 0, "")
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Payable: %s", formatAmount(statement.View.Payable)), "", 1, "R", false, 0, "")

	if charge.ReferenceID != nil {
		pdf.Ln(2)
		pdf.SetFont(g.fontName, "", 11)
		pdf.CellFormat(0, 6, fmt.Sprintf("Payment reference: %s", *charge.ReferenceID), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func statusLine(view model.ChargeView) string {
	label := ""
	switch view.Charge.Status {
	case model.ChargeStatusPendingPayment:
		label = "Pending Payment"
	case model.ChargeStatusPendingApproval:
		label = "Pending Approval"
	case model.ChargeStatusPaid:
		label = "Paid"
	case model.ChargeStatusRejected:
		label = "Rejected"
	default:
		label = string(view.Charge.Status)
	}
	if view.Overdue {
		label += " (Overdue)"
	}
	return label
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
