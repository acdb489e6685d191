// Package pdfenc assembles minimal PDF files from raw object bodies.
//
// The builder keeps an ordered arena of objects; serialization walks the
// arena once, recording the true byte offset of every object as it is
// written, so the xref table always matches the emitted bytes. Callers are
// responsible for the object graph itself (catalog, pages, fonts,
// content streams) and reference objects by the number AddObject returns.
package pdfenc

import (
	"bytes"
	"fmt"
	"strings"
)

const header = "%PDF-1.4\n"

// Document is an ordered collection of PDF objects. Object numbers are
// assigned sequentially starting at 1; the trailer names object 1 as /Root.
type Document struct {
	objects [][]byte
}

// AddObject appends a dictionary (or any object body) and returns its number.
func (d *Document) AddObject(body string) int {
	d.objects = append(d.objects, []byte(body))
	return len(d.objects)
}

// AddStream appends a stream object. The /Length entry is derived from the
// exact byte length of stream, never from its rune count.
func (d *Document) AddStream(stream []byte) int {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<< /Length %d >>\nstream\n", len(stream))
	b.Write(stream)
	b.WriteString("\nendstream")
	d.objects = append(d.objects, b.Bytes())
	return len(d.objects)
}

// Bytes serializes the document: header, numbered objects, xref table with
// recorded byte offsets, trailer, startxref, and the EOF marker.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(header)

	offsets := make([]int, len(d.objects))
	for i, body := range d.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}

	xrefStart := buf.Len()
	buf.WriteString("xref\n")
	fmt.Fprintf(&buf, "0 %d\n", len(d.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	buf.WriteString("trailer\n")
	fmt.Fprintf(&buf, "<< /Size %d /Root 1 0 R >>\n", len(d.objects)+1)
	buf.WriteString("startxref\n")
	fmt.Fprintf(&buf, "%d\n", xrefStart)
	buf.WriteString("%%EOF\n")

	return buf.Bytes()
}

// EscapeText escapes a string for inclusion in a PDF literal string token:
// backslash, "(" and ")" are prefixed with a backslash.
func EscapeText(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '\\', '(', ')':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate trims text to maxRunes runes, replacing the last retained rune
// with an ellipsis when anything was cut.
func Truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 0 {
		return ""
	}
	return string(runes[:maxRunes-1]) + "…"
}

// ContentStream accumulates page drawing operators. All coordinates are in
// PDF points with the origin at the bottom-left corner of the page.
type ContentStream struct {
	buf bytes.Buffer
}

// Raw appends a literal operator sequence, e.g. a color selection.
func (c *ContentStream) Raw(ops string) {
	c.buf.WriteString(ops)
}

// Text places a single line of text at (x, y) in the F1 font.
func (c *ContentStream) Text(text string, x, y, fontSize int) {
	fmt.Fprintf(&c.buf, "BT /F1 %d Tf 1 0 0 1 %d %d Tm (%s) Tj ET\n", fontSize, x, y, EscapeText(text))
}

// FillRect draws a filled rectangle in the current fill color.
func (c *ContentStream) FillRect(x, y, w, h int) {
	fmt.Fprintf(&c.buf, "%d %d %d %d re f\n", x, y, w, h)
}

// StrokeRect draws a rectangle outline in the current stroke color.
func (c *ContentStream) StrokeRect(x, y, w, h int) {
	fmt.Fprintf(&c.buf, "%d %d %d %d re S\n", x, y, w, h)
}

// Line draws a straight line from (x1, y1) to (x2, y2).
func (c *ContentStream) Line(x1, y1, x2, y2 int) {
	fmt.Fprintf(&c.buf, "%d %d m %d %d l S\n", x1, y1, x2, y2)
}

// Bytes returns the accumulated operator stream.
func (c *ContentStream) Bytes() []byte {
	return c.buf.Bytes()
}

// SinglePage builds a complete one-page document: catalog, page tree, a page
// sized w×h points with a Helvetica /F1 resource, and the given content
// stream.
func SinglePage(w, h int, content []byte) []byte {
	var doc Document
	doc.AddObject("<< /Type /Catalog /Pages 2 0 R >>")
	doc.AddObject("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	doc.AddObject(fmt.Sprintf(
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		w, h,
	))
	doc.AddObject("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	doc.AddStream(content)
	return doc.Bytes()
}
