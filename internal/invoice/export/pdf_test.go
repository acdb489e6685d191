package export

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/tracklane/tracklane/internal/invoice/lineitem"
)

func TestPDFStructureAndContent(t *testing.T) {
	doc := sampleDoc()
	doc.ClientName = "Globex (EU) Ltd"
	doc.ClientLocation = "1 Main St\nSpringfield\nbilling@globex.test"
	doc.FromLocation = "Tracklane Inc\n9 Side Rd\nNY 10001\nus@tracklane.test"
	doc.PaymentInstructions = "Bank: Chase\nAccount Name: Tracklane Inc"

	file := PDF(doc)
	out := string(file.Data)

	if file.Name != "INV-20240301-AB12.pdf" {
		t.Fatalf("filename = %q", file.Name)
	}
	if file.ContentType != "application/pdf" {
		t.Fatalf("content type = %q", file.ContentType)
	}
	if !strings.HasPrefix(out, "%PDF-1.4\n") || !strings.HasSuffix(out, "%%EOF\n") {
		t.Fatalf("not a framed pdf document")
	}
	if !strings.Contains(out, "/MediaBox [0 0 595 842]") {
		t.Fatalf("wrong page size")
	}

	for _, want := range []string{
		"(INVOICE)",
		"(INV-20240301-AB12)",
		"(TERM:)",
		"(Mar 1, 2024 – Mar 31, 2024)",
		"(BILLED TO:)",
		`(Globex \(EU\) Ltd)`,
		"(1 Main St)",
		"(billing@globex.test)",
		"(TASK)", "(RATE)", "(HOURS)", "(TOTAL)",
		"(Fix login)",
		"($50.00)",
		"(1.5)",
		"($75.00)",
		"(TOTAL DUE:)",
		"($100.00)",
		"(Chase)",
		"(Tracklane Inc)",
		"(us@tracklane.test)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("content stream missing %s", want)
		}
	}
}

func TestPDFClientNameDefaultsToProject(t *testing.T) {
	doc := sampleDoc()
	doc.ClientName = "   "

	out := string(PDF(doc).Data)
	if !strings.Contains(out, "(Acme Website)") {
		t.Fatalf("client name did not fall back to project name")
	}
}

func TestPDFTableCapsAtEightRowsButTotalsCoverAll(t *testing.T) {
	doc := sampleDoc()
	doc.LineItems = nil
	var wantTotal int64
	for i := 0; i < 10; i++ {
		doc.LineItems = append(doc.LineItems, lineitem.LineItem{
			GroupKey:    fmt.Sprintf("iss-%d", i),
			Label:       fmt.Sprintf("Task number %d", i),
			Hours:       1,
			AmountCents: 5000,
		})
		wantTotal += 5000
	}

	out := string(PDF(doc).Data)
	if !strings.Contains(out, "(Task number 7)") {
		t.Fatalf("eighth row missing")
	}
	if strings.Contains(out, "(Task number 8)") || strings.Contains(out, "(Task number 9)") {
		t.Fatalf("rows beyond the cap must be dropped")
	}
	if !strings.Contains(out, "($500.00)") {
		t.Fatalf("total must sum all %d items", len(doc.LineItems))
	}
}

func TestPDFEmptyInvoiceStillValid(t *testing.T) {
	doc := sampleDoc()
	doc.LineItems = nil

	out := string(PDF(doc).Data)
	if !strings.Contains(out, "($0.00)") {
		t.Fatalf("zero total missing")
	}
	assertXrefOffsets(t, out)
}

func TestPDFXrefOffsetsExact(t *testing.T) {
	doc := sampleDoc()
	doc.ClientLocation = "Ünïcode Straße 12\nBerlin" // multibyte bytes shift offsets
	assertXrefOffsets(t, string(PDF(doc).Data))
}

func assertXrefOffsets(t *testing.T, doc string) {
	t.Helper()
	// "startxref" also ends in "xref\n", so anchor on the preceding newline.
	idx := strings.LastIndex(doc, "\nxref\n")
	if idx < 0 {
		t.Fatalf("no xref table")
	}
	idx++
	lines := strings.Split(doc[idx:], "\n")
	for i := 1; i <= 5; i++ {
		entry := lines[2+i]
		off, err := strconv.Atoi(entry[:10])
		if err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
		if !strings.HasPrefix(doc[off:], fmt.Sprintf("%d 0 obj\n", i)) {
			t.Fatalf("offset for object %d is wrong", i)
		}
	}

	rest := doc[strings.LastIndex(doc, "startxref\n")+len("startxref\n"):]
	start, err := strconv.Atoi(rest[:strings.Index(rest, "\n")])
	if err != nil {
		t.Fatalf("startxref value: %v", err)
	}
	if start != idx {
		t.Fatalf("startxref = %d, xref actually at %d", start, idx)
	}
}
