package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/tracklane/tracklane/internal/invoice/lineitem"
)

func ms(t time.Time) int64 { return t.UnixMilli() }

func sampleDoc() Document {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return Document{
		InvoiceNumber:   "INV-20240301-AB12",
		ProjectName:     "Acme Website",
		PeriodStart:     ms(start),
		PeriodEnd:       ms(end),
		HourlyRateCents: 5000,
		Currency:        "USD",
		Timezone:        "UTC",
		LineItems: []lineitem.LineItem{
			{GroupKey: "iss-1", Label: "Fix login", TotalDurationMs: 5_400_000, Hours: 1.5, HourlyRateCents: 5000, AmountCents: 7500},
			{GroupKey: "general", Label: "General", TotalDurationMs: 1_800_000, Hours: 0.5, HourlyRateCents: 5000, AmountCents: 2500},
		},
	}
}

func TestCSVOutput(t *testing.T) {
	file := CSV(sampleDoc())

	if file.Name != "INV-20240301-AB12.csv" {
		t.Fatalf("filename = %q", file.Name)
	}

	lines := strings.Split(string(file.Data), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "invoiceNumber,projectName,periodStart,periodEnd,label,hours,hourlyRate,amount" {
		t.Fatalf("header = %q", lines[0])
	}
	// Exclusive period end renders as the inclusive last day.
	if lines[1] != "INV-20240301-AB12,Acme Website,2024-03-01,2024-03-31,Fix login,1.5,$50.00,$75.00" {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if lines[2] != "INV-20240301-AB12,Acme Website,2024-03-01,2024-03-31,General,0.5,$50.00,$25.00" {
		t.Fatalf("row 2 = %q", lines[2])
	}
}

func TestCSVEscaping(t *testing.T) {
	doc := sampleDoc()
	doc.ProjectName = `Acme, "Web" division`
	doc.LineItems = doc.LineItems[:1]
	doc.LineItems[0].Label = "line one\nline two"

	file := CSV(doc)

	// A strict CSV reader must recover the original cell values.
	r := csv.NewReader(strings.NewReader(string(file.Data)))
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1][1] != doc.ProjectName {
		t.Fatalf("project cell = %q", records[1][1])
	}
	if records[1][4] != "line one\nline two" {
		t.Fatalf("label cell = %q", records[1][4])
	}
}

func TestCSVEmptyLineItems(t *testing.T) {
	doc := sampleDoc()
	doc.LineItems = nil

	file := CSV(doc)
	lines := strings.Split(string(file.Data), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected header only, got %d lines", len(lines))
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename("INV/2024:01.csv"); got != "INV_2024_01.csv" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeFilename("safe-NAME_1.0.pdf"); got != "safe-NAME_1.0.pdf" {
		t.Fatalf("got %q", got)
	}
}
