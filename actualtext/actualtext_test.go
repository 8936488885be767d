package actualtext

import (
	"strings"
	"testing"

	"github.com/speedata/glyphmap/devanagari"
	"github.com/speedata/glyphmap/fontmap"
	"github.com/speedata/glyphmap/pdfread"
)

func testFont(repl fontmap.Map) *pageFont {
	return &pageFont{base: "Chanakya", t0: true, repl: repl}
}

func TestRewriteContent(t *testing.T) {
	fonts := map[string]*pageFont{
		"F1": testFont(fontmap.Map{
			0x0F: {Text: "क"},
			0x28: {Text: "र"},
		}),
	}
	content := []byte("BT /F1 10 Tf 1 0 0 1 50 700 Tm <000F0028> Tj ET")
	out, n := rewriteContent(content, fonts, Options{})
	if n != 1 {
		t.Fatalf("annotated %d operators, want 1", n)
	}
	s := string(out)
	if !strings.Contains(s, "/Span << /ActualText <FEFF09150930> >> BDC") {
		t.Errorf("missing ActualText span in %q", s)
	}
	if !strings.Contains(s, "<000F0028> Tj\nEMC") {
		t.Errorf("original operator not preserved in %q", s)
	}
	// everything outside the span is untouched
	if !strings.HasPrefix(s, "BT /F1 10 Tf 1 0 0 1 50 700 Tm ") {
		t.Errorf("prefix changed: %q", s)
	}
	if !strings.HasSuffix(s, " ET") {
		t.Errorf("suffix changed: %q", s)
	}
}

func TestRewriteContentPlaceholder(t *testing.T) {
	fonts := map[string]*pageFont{"F1": testFont(fontmap.Map{})}
	out, _ := rewriteContent([]byte("BT /F1 10 Tf <0042> Tj ET"), fonts, Options{})
	// [glyph0042] as UTF-16BE
	want := "<FEFF005B0067006C0079007000680030003000340032005D>"
	if !strings.Contains(string(out), want) {
		t.Errorf("missing placeholder in %q", out)
	}
}

func TestRewriteContentNormalizes(t *testing.T) {
	fonts := map[string]*pageFont{
		"F1": testFont(fontmap.Map{
			0x10: {Text: "ि" + devanagari.MarkSucc},
			0x0F: {Text: "क"},
		}),
	}
	out, _ := rewriteContent([]byte("BT /F1 10 Tf <0010000F> Tj ET"), fonts, Options{})
	// the marked vowel sign moved behind the consonant: क U+0915, ि U+093F
	if !strings.Contains(string(out), "<FEFF0915093F>") {
		t.Errorf("vowel sign not reordered in %q", out)
	}
}

func TestRewriteContentTJ(t *testing.T) {
	fonts := map[string]*pageFont{
		"F1": testFont(fontmap.Map{0x0F: {Text: "क"}, 0x28: {Text: "र"}}),
	}
	out, n := rewriteContent([]byte("BT /F1 10 Tf [<000F> -120 <0028>] TJ ET"), fonts, Options{})
	if n != 1 {
		t.Fatalf("annotated %d operators, want 1", n)
	}
	if !strings.Contains(string(out), "<FEFF09150930>") {
		t.Errorf("TJ text wrong in %q", out)
	}
}

func TestRewriteContentUnknownFont(t *testing.T) {
	content := []byte("BT /F9 10 Tf (abc) Tj ET")
	out, n := rewriteContent(content, map[string]*pageFont{}, Options{})
	if n != 0 {
		t.Errorf("annotated %d operators, want 0", n)
	}
	if string(out) != string(content) {
		t.Errorf("content changed without a font: %q", out)
	}
}

func TestDecorate(t *testing.T) {
	fonts := map[string]*pageFont{
		"F1": testFont(fontmap.Map{0x0F: {Text: "क"}}),
	}
	content := []byte("BT /F1 10 Tf 1 0 0.2 1 0 0 Tm <000F> Tj ET")
	out, _ := rewriteContent(content, fonts, Options{Decorate: true})
	// [Chanakya][sl]क[/sl][/Chanakya]
	text := decode(t, string(out))
	if text != "[Chanakya][sl]क[/sl][/Chanakya]" {
		t.Errorf("decorated text = %q", text)
	}
}

// decode extracts the first ActualText hex string and decodes its UTF-16BE.
func decode(t *testing.T, s string) string {
	t.Helper()
	start := strings.Index(s, "<FEFF")
	if start < 0 {
		t.Fatalf("no ActualText in %q", s)
	}
	end := strings.Index(s[start:], ">")
	hex := s[start+5 : start+end]
	var runes []rune
	for i := 0; i+3 < len(hex); i += 4 {
		var v rune
		for j := 0; j < 4; j++ {
			c := hex[i+j]
			switch {
			case c >= '0' && c <= '9':
				v = v<<4 | rune(c-'0')
			case c >= 'A' && c <= 'F':
				v = v<<4 | rune(c-'A'+10)
			}
		}
		runes = append(runes, v)
	}
	return string(runes)
}

func TestAnnotateDocument(t *testing.T) {
	var buf strings.Builder
	content := "BT /F1 10 Tf <000F> Tj ET"
	buildPDF(&buf, content)
	doc, err := pdfread.Load([]byte(buf.String()))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	m := fontmap.Map{0x0F: {Text: "क"}}
	if err := fontmap.Save(dir+"/font-5-0-Chanakya.toml", m); err != nil {
		t.Fatal(err)
	}

	n, err := Annotate(doc, dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("annotated %d operators, want 1", n)
	}

	var out strings.Builder
	if err := doc.Save(&out); err != nil {
		t.Fatal(err)
	}
	saved, err := pdfread.Load([]byte(out.String()))
	if err != nil {
		t.Fatal(err)
	}
	pages, err := saved.Pages()
	if err != nil {
		t.Fatal(err)
	}
	got, err := saved.Content(pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "/ActualText <FEFF0915>") {
		t.Errorf("saved content = %q", got)
	}
}

func buildPDF(buf *strings.Builder, content string) {
	offsets := make(map[int]int)
	obj := func(id int, body string) {
		offsets[id] = buf.Len()
		buf.WriteString(itoa(id) + " 0 obj\n" + body + "\nendobj\n")
	}
	buf.WriteString("%PDF-1.6\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")
	offsets[4] = buf.Len()
	buf.WriteString("4 0 obj\n<< /Length " + itoa(len(content)) + " >>\nstream\n" + content + "\nendstream\nendobj\n")
	obj(5, "<< /Type /Font /Subtype /Type0 /BaseFont /Chanakya >>")
	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for id := 1; id <= 5; id++ {
		buf.WriteString(pad10(offsets[id]) + " 00000 n \n")
	}
	buf.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + itoa(xref) + "\n%%EOF\n")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func pad10(n int) string {
	s := itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
