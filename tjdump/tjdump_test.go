package tjdump

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/speedata/glyphmap/fontmap"
	"github.com/speedata/glyphmap/pdfread"
	"github.com/speedata/glyphmap/ttx"
)

const testCMap = `2 beginbfchar
<0006> <0902>
<000F> <0915>
endbfchar
`

func buildPDF(t *testing.T, content string) *pdfread.Document {
	t.Helper()
	var buf bytes.Buffer
	offsets := make(map[int]int)
	obj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}
	buf.WriteString("%PDF-1.6\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")
	offsets[4] = buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content)
	obj(5, "<< /Type /Font /Subtype /Type0 /BaseFont /Chanakya /ToUnicode 6 0 R >>")
	offsets[6] = buf.Len()
	fmt.Fprintf(&buf, "6 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(testCMap), testCMap)
	xref := buf.Len()
	buf.WriteString("xref\n0 7\n0000000000 65535 f \n")
	for id := 1; id <= 6; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 7 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)

	doc, err := pdfread.Load(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestCollect(t *testing.T) {
	doc := buildPDF(t, "BT /F1 10 Tf <0006000F> Tj [<0028> -120 <0029>] TJ ET")
	fonts, err := Collect(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(fonts) != 1 {
		t.Fatalf("got %d fonts, want 1", len(fonts))
	}
	u := fonts[0]
	if u.BaseFont != "Chanakya" || !u.Type0 {
		t.Errorf("font = %q type0=%v", u.BaseFont, u.Type0)
	}
	if got, want := u.Basename(), "font-5-0-Chanakya"; got != want {
		t.Errorf("basename = %q, want %q", got, want)
	}
	if len(u.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(u.Lines))
	}
	if len(u.Lines[0]) != 2 || u.Lines[0][0] != 6 || u.Lines[0][1] != 0xF {
		t.Errorf("line 0 = %v", u.Lines[0])
	}
	// the TJ array collapses into one line, kern values dropped
	if len(u.Lines[1]) != 2 || u.Lines[1][0] != 0x28 || u.Lines[1][1] != 0x29 {
		t.Errorf("line 1 = %v", u.Lines[1])
	}
	if got := u.ToUnicode[0x06]; got != "ं" {
		t.Errorf("ToUnicode[0006] = %q", got)
	}
}

func TestToGlyphs(t *testing.T) {
	if got := toGlyphs([]byte{0x00, 0x15, 0x01, 0x02}, true); len(got) != 2 || got[0] != 0x15 || got[1] != 0x102 {
		t.Errorf("type0 glyphs = %v", got)
	}
	if got := toGlyphs([]byte{0x41, 0x42}, false); len(got) != 2 || got[0] != 0x41 || got[1] != 0x42 {
		t.Errorf("simple glyphs = %v", got)
	}
}

func TestWriteFiles(t *testing.T) {
	doc := buildPDF(t, "BT /F1 10 Tf <0006000F> Tj ET")
	dir := t.TempDir()
	if err := Dump(doc, dir); err != nil {
		t.Fatal(err)
	}

	tjs, err := os.ReadFile(filepath.Join(dir, "font-5-0-Chanakya.Tjs"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(tjs)), "0006 000F"; got != want {
		t.Errorf("Tjs = %q, want %q", got, want)
	}

	m, err := fontmap.Load(filepath.Join(dir, "font-5-0-Chanakya-cmap.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if got := m[ttx.GlyphID(6)].Text; got != "ं" {
		t.Errorf("cmap[0006] = %q", got)
	}
}
