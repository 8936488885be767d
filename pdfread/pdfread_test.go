package pdfread

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

const testCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0006> <0902>
<000F> <0915>
endbfchar
1 beginbfrange
<0028> <002A> <0930>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end
`

// buildPDF assembles a one page PDF with a Type0 font and the given content
// stream, using a classic xref table.
func buildPDF(content []byte) []byte {
	var buf bytes.Buffer
	offsets := make(map[int]int)
	obj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	buf.WriteString("%PDF-1.6\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")

	offsets[4] = buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Length %d >>\nstream\n", len(content))
	buf.Write(content)
	buf.WriteString("\nendstream\nendobj\n")

	obj(5, "<< /Type /Font /Subtype /Type0 /BaseFont /Chanakya /ToUnicode 6 0 R >>")

	offsets[6] = buf.Len()
	fmt.Fprintf(&buf, "6 0 obj\n<< /Length %d >>\nstream\n", len(testCMap))
	buf.WriteString(testCMap)
	buf.WriteString("\nendstream\nendobj\n")

	xref := buf.Len()
	buf.WriteString("xref\n0 7\n0000000000 65535 f \n")
	for id := 1; id <= 6; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 7 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestLoadPages(t *testing.T) {
	doc, err := Load(buildPDF([]byte("BT /F1 10 Tf <0006000F> Tj ET")))
	if err != nil {
		t.Fatal(err)
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	content, err := doc.Content(pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(content, []byte("Tj")) {
		t.Errorf("content = %q", content)
	}
}

func TestPagesCyclicTree(t *testing.T) {
	// The pages node lists itself as its first kid.
	var buf bytes.Buffer
	offsets := make(map[int]int)
	obj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}
	buf.WriteString("%PDF-1.6\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [2 0 R 3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R >>")
	xref := buf.Len()
	buf.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for id := 1; id <= 3; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)

	doc, err := Load(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
}

func TestPageFonts(t *testing.T) {
	doc, err := Load(buildPDF([]byte("BT ET")))
	if err != nil {
		t.Fatal(err)
	}
	pages, _ := doc.Pages()
	fonts, err := doc.PageFonts(pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(fonts) != 1 {
		t.Fatalf("got %d fonts, want 1", len(fonts))
	}
	f := fonts[0]
	if f.Name != "F1" {
		t.Errorf("name = %q, want F1", f.Name)
	}
	if f.Ref.Number != 5 || f.Ref.Gen != 0 {
		t.Errorf("ref = %v, want 5 0 R", f.Ref)
	}
	if base, _ := f.Dict.NameValue("BaseFont"); base != "Chanakya" {
		t.Errorf("BaseFont = %q", base)
	}
	if !IsType0(f.Dict) {
		t.Error("font must report as Type0")
	}
}

func TestToUnicode(t *testing.T) {
	doc, err := Load(buildPDF([]byte("BT ET")))
	if err != nil {
		t.Fatal(err)
	}
	pages, _ := doc.Pages()
	fonts, _ := doc.PageFonts(pages[0])
	m, err := doc.ToUnicode(fonts[0].Dict)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[uint32]string{
		0x06: "ं",
		0x0F: "क",
		0x28: "र",
		0x29: "ऱ",
		0x2A: "ल",
	}
	for code, want := range cases {
		if got := m[code]; got != want {
			t.Errorf("code %04X = %q, want %q", code, got, want)
		}
	}
}

func TestParserBasics(t *testing.T) {
	p := NewParser([]byte("null true 42 -3.5 (a\\)b) <4869> /Na#20me [1 2 0 R 3] << /A 1 >>"), 0)
	obj, _ := p.ParseObject()
	if obj.Kind != KindNull {
		t.Errorf("kind = %v, want null", obj.Kind)
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindBool || !obj.Bool {
		t.Error("want true")
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindInt || obj.Int != 42 {
		t.Errorf("int = %v", obj)
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindReal || obj.Real != -3.5 {
		t.Errorf("real = %v", obj)
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindString || string(obj.Str) != "a)b" {
		t.Errorf("string = %q", obj.Str)
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindString || string(obj.Str) != "Hi" {
		t.Errorf("hex string = %q", obj.Str)
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindName || obj.Name != "Na me" {
		t.Errorf("name = %q", obj.Name)
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindArray || len(obj.Array) != 3 {
		t.Fatalf("array = %v", obj)
	}
	if obj.Array[1].Kind != KindRef || obj.Array[1].Ref.Number != 2 {
		t.Errorf("array[1] = %v, want 2 0 R", obj.Array[1])
	}
	obj, _ = p.ParseObject()
	if obj.Kind != KindDict {
		t.Fatalf("dict = %v", obj)
	}
	if n, _ := obj.Dict.Int("A"); n != 1 {
		t.Errorf("dict /A = %d", n)
	}
}

func TestReplaceAndSave(t *testing.T) {
	doc, err := Load(buildPDF([]byte("BT /F1 10 Tf <0006> Tj ET")))
	if err != nil {
		t.Fatal(err)
	}
	pages, _ := doc.Pages()
	refs := doc.ContentRefs(pages[0])
	if len(refs) != 1 {
		t.Fatalf("got %d content refs, want 1", len(refs))
	}

	rewritten := []byte("BT /F1 10 Tf <000F> Tj ET")
	doc.Replace(refs[0], &Object{Kind: KindStream, Dict: Dict{}, Stream: rewritten})

	var out bytes.Buffer
	if err := doc.Save(&out); err != nil {
		t.Fatal(err)
	}

	saved, err := Load(out.Bytes())
	if err != nil {
		t.Fatalf("reloading saved file: %v", err)
	}
	savedPages, err := saved.Pages()
	if err != nil {
		t.Fatal(err)
	}
	content, err := saved.Content(savedPages[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "<000F>") {
		t.Errorf("saved content = %q", content)
	}
	fonts, _ := saved.PageFonts(savedPages[0])
	if len(fonts) != 1 {
		t.Fatalf("saved document lost the font resources")
	}
}

func TestObjectWrite(t *testing.T) {
	obj := &Object{Kind: KindDict, Dict: Dict{
		"Type": {Kind: KindName, Name: "Page"},
		"N":    {Kind: KindInt, Int: 7},
	}}
	var buf bytes.Buffer
	obj.write(&buf)
	want := "<</N 7 /Type /Page >>"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
