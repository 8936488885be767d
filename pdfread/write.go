package pdfread

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
)

// SaveFile writes the document, including all replaced objects, to a file.
func (doc *Document) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := doc.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Save writes the whole document as a fresh PDF with a classic xref table.
// Every reachable object is materialized, so object streams and xref streams
// of the input are dropped and their members become plain objects.
func (doc *Document) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	pos := int64(0)
	write := func(data []byte) error {
		n, err := bw.Write(data)
		pos += int64(n)
		return err
	}

	if err := write([]byte("%PDF-1.6\n%\xe2\xe3\xcf\xd3\n")); err != nil {
		return err
	}

	ids := make([]int, 0, len(doc.xref)+len(doc.replaced))
	seen := make(map[int]bool)
	for id := range doc.xref {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range doc.replaced {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	maxID := 0
	offsets := make(map[int]int64)
	var buf bytes.Buffer
	for _, id := range ids {
		if id == 0 {
			continue
		}
		obj := doc.ResolveRef(Reference{Number: id})
		if obj.Kind == KindNull {
			continue
		}
		if isContainer(obj) {
			continue
		}
		if obj.Kind == KindStream {
			// keep /Length honest after stream replacement
			obj.Dict["Length"] = &Object{Kind: KindInt, Int: int64(len(obj.Stream))}
		}
		offsets[id] = pos
		if id > maxID {
			maxID = id
		}
		buf.Reset()
		fmt.Fprintf(&buf, "%d 0 obj\n", id)
		obj.write(&buf)
		buf.WriteString("\nendobj\n")
		if err := write(buf.Bytes()); err != nil {
			return err
		}
	}

	xrefPos := pos
	buf.Reset()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxID+1)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= maxID; id++ {
		if off, ok := offsets[id]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := Dict{"Size": &Object{Kind: KindInt, Int: int64(maxID + 1)}}
	if root, ok := doc.trailer["Root"]; ok {
		trailer["Root"] = root
	}
	if info, ok := doc.trailer["Info"]; ok {
		trailer["Info"] = info
	}
	buf.WriteString("trailer\n")
	writeDict(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	if err := write(buf.Bytes()); err != nil {
		return err
	}
	return bw.Flush()
}

// isContainer reports whether a stream only packages other objects or xref
// data. Such streams must not survive a rewrite that materializes their
// contents.
func isContainer(obj *Object) bool {
	if obj.Kind != KindStream {
		return false
	}
	typ, _ := obj.Dict.NameValue("Type")
	return typ == "ObjStm" || typ == "XRef"
}
