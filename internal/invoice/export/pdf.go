package export

import (
	"strings"

	"github.com/tracklane/tracklane/internal/format"
	"github.com/tracklane/tracklane/internal/invoice/lineitem"
	"github.com/tracklane/tracklane/internal/pdfenc"
)

// Fixed page geometry. All other coordinates derive from these; there is no
// dynamic reflow, so long strings are truncated rather than wrapped.
const (
	pageWidth  = 595
	pageHeight = 842
	margin     = 24

	headerHeight = 82
	rowHeight    = 24
	maxTableRows = 8
	paymentRow   = 14
)

// PDF renders the document as a single-page A4 invoice. Line items beyond
// the eighth row are dropped from the table; totals still cover every item.
func PDF(doc Document) File {
	start, endInclusive := doc.periodDates()
	periodLabel := start.Format("Jan 2, 2006") + " – " + endInclusive.Format("Jan 2, 2006")

	innerWidth := pageWidth - margin*2
	innerHeight := pageHeight - margin*2
	left := margin + 22
	right := pageWidth - margin - 22

	var cs pdfenc.ContentStream

	// Page frame.
	cs.Raw("0.72 0.70 0.68 RG 1 w\n")
	cs.StrokeRect(margin, margin, innerWidth, innerHeight)

	// Header band with decorative right stripes.
	headerTop := pageHeight - margin
	cs.Raw("0.95 0.94 0.93 rg\n")
	cs.FillRect(margin, headerTop-headerHeight, innerWidth, headerHeight)
	cs.Raw("0.90 0.89 0.88 rg\n")
	cs.FillRect(pageWidth-margin-120, headerTop-headerHeight, 20, headerHeight)
	cs.FillRect(pageWidth-margin-88, headerTop-headerHeight, 12, headerHeight)
	cs.FillRect(pageWidth-margin-62, headerTop-headerHeight, 8, headerHeight)

	cs.Raw("0 0 0 rg\n")
	cs.Text("INVOICE", left, headerTop-40, 26)
	cs.Text("#", left, headerTop-64, 10)
	cs.Text(doc.InvoiceNumber, left+12, headerTop-64, 10)
	cs.Text("TERM:", left+80, headerTop-64, 10)
	cs.Text(pdfenc.Truncate(periodLabel, 34), left+118, headerTop-64, 10)

	// Billed-to block. ClientLocation lines split into up to two address
	// lines; whatever follows is joined into the email line.
	billedTop := headerTop - headerHeight - 34
	cs.Text("BILLED TO:", left, billedTop, 11)
	cs.Raw("0.25 0.25 0.25 rg\n")
	cs.Text("Name:", left, billedTop-18, 9)
	cs.Text("Address:", left, billedTop-32, 9)
	cs.Text("Email:", left, billedTop-60, 9)

	cs.Raw("0 0 0 rg\n")
	clientName := strings.TrimSpace(doc.ClientName)
	if clientName == "" {
		clientName = doc.ProjectName
	}
	locationLines := splitLines(doc.ClientLocation)
	if len(locationLines) > 6 {
		locationLines = locationLines[:6]
	}
	addr1, addr2, email := "", "", ""
	if len(locationLines) > 0 {
		addr1 = locationLines[0]
	}
	if len(locationLines) > 1 {
		addr2 = locationLines[1]
	}
	if len(locationLines) > 2 {
		email = strings.Join(locationLines[2:], " ")
	}
	cs.Text(pdfenc.Truncate(clientName, 42), left+54, billedTop-18, 9)
	cs.Text(pdfenc.Truncate(addr1, 42), left+54, billedTop-32, 9)
	cs.Text(pdfenc.Truncate(addr2, 42), left+54, billedTop-44, 9)
	cs.Text(pdfenc.Truncate(email, 42), left+54, billedTop-60, 9)

	// Line-item table.
	tableLeft := left
	tableRight := right
	tableTop := billedTop - 92

	cs.Raw("0.72 0.70 0.68 RG 1 w\n")
	cs.Line(tableLeft, tableTop+12, tableRight, tableTop+12)
	cs.Line(tableLeft, tableTop-6, tableRight, tableTop-6)

	cs.Raw("0.25 0.25 0.25 rg\n")
	cs.Text("TASK", tableLeft, tableTop, 9)
	cs.Text("RATE", tableLeft+270, tableTop, 9)
	cs.Text("HOURS", tableLeft+360, tableTop, 9)
	cs.Text("TOTAL", tableLeft+445, tableTop, 9)

	rowStartY := tableTop - 30

	cs.Raw("0.90 0.90 0.90 RG 0.6 w\n")
	for i := 0; i <= maxTableRows; i++ {
		y := rowStartY - i*rowHeight
		cs.Line(tableLeft, y, tableRight, y)
	}

	cs.Raw("0 0 0 rg\n")
	visible := doc.LineItems
	if len(visible) > maxTableRows {
		visible = visible[:maxTableRows]
	}
	for i, item := range visible {
		y := rowStartY - i*rowHeight + 7
		cs.Text(pdfenc.Truncate(item.Label, 40), tableLeft, y, 9)
		cs.Text(format.CurrencyFromCents(doc.HourlyRateCents, doc.Currency), tableLeft+270, y, 9)
		cs.Text(format.Hours(item.Hours), tableLeft+360, y, 9)
		cs.Text(format.CurrencyFromCents(item.AmountCents, doc.Currency), tableLeft+445, y, 9)
	}

	totals := lineitem.TotalsFrom(doc.LineItems)

	totalsY := rowStartY - maxTableRows*rowHeight - 34
	cs.Raw("0.72 0.70 0.68 RG 1 w\n")
	cs.Line(tableLeft, totalsY+18, tableRight, totalsY+18)
	cs.Raw("0.25 0.25 0.25 rg\n")
	cs.Text("TOTAL DUE:", tableLeft, totalsY, 9)
	cs.Raw("0 0 0 rg\n")
	cs.Text(format.CurrencyFromCents(totals.TotalAmountCents, doc.Currency), tableLeft+445, totalsY, 10)

	// Payment block.
	paymentY := totalsY - 36
	payment := ParsePayment(doc.PaymentInstructions)
	cs.Raw("0.25 0.25 0.25 rg\n")
	cs.Text("PAYMENT INFORMATION:", tableLeft, paymentY, 9)

	paymentValuesX := tableLeft + 92
	paymentStartY := paymentY - 18

	cs.Text("Bank:", tableLeft, paymentStartY, 8)
	cs.Text("Account Name:", tableLeft, paymentStartY-paymentRow, 8)
	cs.Text("Routing Number:", tableLeft, paymentStartY-paymentRow*2, 8)
	cs.Text("Account Number:", tableLeft, paymentStartY-paymentRow*3, 8)

	cs.Raw("0 0 0 rg\n")
	cs.Text(pdfenc.Truncate(payment.Bank, 44), paymentValuesX, paymentStartY, 8)
	cs.Text(pdfenc.Truncate(payment.AccountName, 44), paymentValuesX, paymentStartY-paymentRow, 8)
	cs.Text(pdfenc.Truncate(payment.RoutingNumber, 44), paymentValuesX, paymentStartY-paymentRow*2, 8)
	cs.Text(pdfenc.Truncate(payment.AccountNumber, 44), paymentValuesX, paymentStartY-paymentRow*3, 8)

	extraY := paymentStartY - paymentRow*4 - 4
	for i := 0; i < len(payment.Extra) && i < 2; i++ {
		cs.Text(pdfenc.Truncate(payment.Extra[i], 80), tableLeft, extraY-i*12, 8)
	}

	// Footer: up to four sender lines, split two left and two right.
	cs.Raw("0.60 0.60 0.60 rg\n")
	footerY := margin + 26
	cs.Line(margin+14, footerY+32, pageWidth-margin-14, footerY+32)
	cs.Raw("0.25 0.25 0.25 rg\n")
	fromLines := splitLines(doc.FromLocation)
	if len(fromLines) > 4 {
		fromLines = fromLines[:4]
	}
	if len(fromLines) > 0 {
		cs.Text(pdfenc.Truncate(fromLines[0], 42), tableLeft, footerY+10, 8)
	}
	if len(fromLines) > 1 {
		cs.Text(pdfenc.Truncate(fromLines[1], 42), tableLeft, footerY-2, 8)
	}
	if len(fromLines) > 2 {
		cs.Text(pdfenc.Truncate(fromLines[2], 42), tableLeft+330, footerY+10, 8)
	}
	if len(fromLines) > 3 {
		cs.Text(pdfenc.Truncate(fromLines[3], 42), tableLeft+330, footerY-2, 8)
	}

	return File{
		Name:        SanitizeFilename(doc.InvoiceNumber + ".pdf"),
		ContentType: "application/pdf",
		Data:        pdfenc.SinglePage(pageWidth, pageHeight, cs.Bytes()),
	}
}
