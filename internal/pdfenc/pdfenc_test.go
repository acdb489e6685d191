package pdfenc

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"
)

func TestSinglePageStructure(t *testing.T) {
	var cs ContentStream
	cs.Raw("0 0 0 rg\n")
	cs.Text("Hello (world) \\ done", 40, 800, 12)

	out := SinglePage(595, 842, cs.Bytes())
	doc := string(out)

	if !strings.HasPrefix(doc, "%PDF-1.4\n") {
		t.Fatalf("missing header: %q", doc[:16])
	}
	if !strings.HasSuffix(doc, "%%EOF\n") {
		t.Fatalf("missing EOF marker")
	}
	for i := 1; i <= 5; i++ {
		if !strings.Contains(doc, fmt.Sprintf("%d 0 obj\n", i)) {
			t.Fatalf("object %d missing", i)
		}
	}
	if !strings.Contains(doc, "/MediaBox [0 0 595 842]") {
		t.Fatalf("media box missing")
	}
	if !strings.Contains(doc, "/BaseFont /Helvetica") {
		t.Fatalf("font object missing")
	}
	if !strings.Contains(doc, `(Hello \(world\) \\ done)`) {
		t.Fatalf("text not escaped: %s", doc)
	}
}

func TestXrefOffsetsMatchObjectPositions(t *testing.T) {
	out := SinglePage(595, 842, []byte("0 0 0 rg\n"))
	doc := string(out)

	// "startxref" also ends in "xref\n", so anchor on the preceding newline.
	idx := strings.LastIndex(doc, "\nxref\n")
	if idx < 0 {
		t.Fatalf("xref table missing")
	}
	idx++
	lines := strings.Split(doc[idx:], "\n")
	if lines[1] != "0 6" {
		t.Fatalf("xref subsection header = %q, want %q", lines[1], "0 6")
	}
	if lines[2] != "0000000000 65535 f " {
		t.Fatalf("free entry = %q", lines[2])
	}
	for i := 1; i <= 5; i++ {
		entry := lines[2+i]
		if len(entry) != 19 || !strings.HasSuffix(entry, " 00000 n ") {
			t.Fatalf("xref entry %d malformed: %q", i, entry)
		}
		off, err := strconv.Atoi(entry[:10])
		if err != nil {
			t.Fatalf("xref entry %d offset: %v", i, err)
		}
		marker := fmt.Sprintf("%d 0 obj\n", i)
		if !strings.HasPrefix(doc[off:], marker) {
			t.Fatalf("offset %d for object %d points at %q", off, i, doc[off:off+10])
		}
	}

	trailer := strings.Index(doc, "startxref\n")
	if trailer < 0 {
		t.Fatalf("startxref missing")
	}
	rest := doc[trailer+len("startxref\n"):]
	start, err := strconv.Atoi(rest[:strings.Index(rest, "\n")])
	if err != nil {
		t.Fatalf("startxref value: %v", err)
	}
	if start != idx {
		t.Fatalf("startxref = %d, xref actually at %d", start, idx)
	}
}

func TestStreamLengthCountsBytesNotRunes(t *testing.T) {
	content := []byte("BT (héllo…) Tj ET\n")

	var doc Document
	doc.AddStream(content)
	out := doc.Bytes()

	want := fmt.Sprintf("<< /Length %d >>", len(content))
	if !bytes.Contains(out, []byte(want)) {
		t.Fatalf("stream length dict %q missing in %s", want, out)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this is far too long", 10, "this is f…"},
		{"héllo wörld", 6, "héllo…"},
		{"anything", 0, ""},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestEscapeText(t *testing.T) {
	if got := EscapeText(`a(b)c\d`); got != `a\(b\)c\\d` {
		t.Fatalf("EscapeText = %q", got)
	}
}
