package export

import (
	"strings"

	"github.com/tracklane/tracklane/internal/format"
)

var csvHeader = []string{
	"invoiceNumber", "projectName", "periodStart", "periodEnd",
	"label", "hours", "hourlyRate", "amount",
}

// CSV renders the document as comma-delimited UTF-8 text: one header row,
// one row per line item, dates as ISO calendar dates in the document's
// timezone, hours and money pre-formatted as display strings.
func CSV(doc Document) File {
	start, endInclusive := doc.periodDates()
	startDate := start.Format("2006-01-02")
	endDate := endInclusive.Format("2006-01-02")

	rows := [][]string{csvHeader}
	for _, item := range doc.LineItems {
		rows = append(rows, []string{
			doc.InvoiceNumber,
			doc.ProjectName,
			startDate,
			endDate,
			item.Label,
			format.Hours(item.Hours),
			format.CurrencyFromCents(doc.HourlyRateCents, doc.Currency),
			format.CurrencyFromCents(item.AmountCents, doc.Currency),
		})
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = csvEscape(cell)
		}
		lines[i] = strings.Join(cells, ",")
	}

	return File{
		Name:        SanitizeFilename(doc.InvoiceNumber + ".csv"),
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte(strings.Join(lines, "\n")),
	}
}

// csvEscape wraps cells containing a quote, comma, or newline in quotes,
// doubling internal quotes.
func csvEscape(value string) string {
	if strings.ContainsAny(value, "\",\n\r") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}
