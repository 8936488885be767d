// Package pdfread is a small PDF reader and rewriter. It loads the cross
// reference data of a file, resolves indirect objects on demand and can save
// a document back to disk with individual objects replaced. It covers what
// glyph usage dumping and content stream annotation need, nothing more.
package pdfread

import (
	"bytes"
	"fmt"
	"strconv"
)

// Kind identifies the type of a PDF object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
)

// An Object is one PDF object of any kind. Only the fields matching Kind are
// meaningful.
type Object struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Real   float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte
	Ref    Reference
}

// A Reference is an indirect object reference (N G R).
type Reference struct {
	Number int
	Gen    int
}

func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Gen)
}

// Dict is a PDF dictionary.
type Dict map[string]*Object

// Int returns the integer value of an entry.
func (d Dict) Int(key string) (int64, bool) {
	obj, ok := d[key]
	if !ok {
		return 0, false
	}
	switch obj.Kind {
	case KindInt:
		return obj.Int, true
	case KindReal:
		return int64(obj.Real), true
	}
	return 0, false
}

// NameValue returns the name value of an entry.
func (d Dict) NameValue(key string) (string, bool) {
	obj, ok := d[key]
	if !ok {
		return "", false
	}
	switch obj.Kind {
	case KindName:
		return obj.Name, true
	case KindString:
		return string(obj.Str), true
	}
	return "", false
}

// ArrayValue returns the array value of an entry. A single object counts as a
// one element array.
func (d Dict) ArrayValue(key string) ([]*Object, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Kind == KindArray {
		return obj.Array, true
	}
	return []*Object{obj}, true
}

// DictValue returns the dictionary value of an entry. Streams carry their
// dictionary along.
func (d Dict) DictValue(key string) (Dict, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Kind == KindDict || obj.Kind == KindStream {
		return obj.Dict, true
	}
	return nil, false
}

// Float returns the numeric value of an object, 0 for non-numbers.
func (obj *Object) Float() float64 {
	if obj == nil {
		return 0
	}
	switch obj.Kind {
	case KindReal:
		return obj.Real
	case KindInt:
		return float64(obj.Int)
	}
	return 0
}

// write serializes the object in PDF syntax.
func (obj *Object) write(buf *bytes.Buffer) {
	switch obj.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(obj.Bool))
	case KindInt:
		buf.WriteString(strconv.FormatInt(obj.Int, 10))
	case KindReal:
		buf.WriteString(strconv.FormatFloat(obj.Real, 'f', -1, 64))
	case KindString:
		writeString(buf, obj.Str)
	case KindName:
		writeName(buf, obj.Name)
	case KindArray:
		buf.WriteByte('[')
		for i, el := range obj.Array {
			if i > 0 {
				buf.WriteByte(' ')
			}
			el.write(buf)
		}
		buf.WriteByte(']')
	case KindDict:
		writeDict(buf, obj.Dict)
	case KindStream:
		writeDict(buf, obj.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(obj.Stream)
		buf.WriteString("\nendstream")
	case KindRef:
		fmt.Fprintf(buf, "%d %d R", obj.Ref.Number, obj.Ref.Gen)
	}
}

func writeDict(buf *bytes.Buffer, d Dict) {
	buf.WriteString("<<")
	for _, key := range sortedKeys(d) {
		writeName(buf, key)
		buf.WriteByte(' ')
		d[key].write(buf)
		buf.WriteByte(' ')
	}
	buf.WriteString(">>")
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c == '#' || isDelim(c) || c > '~' {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

// writeString emits a literal string when the bytes are mostly printable and
// a hex string otherwise.
func writeString(buf *bytes.Buffer, s []byte) {
	printable := 0
	for _, b := range s {
		if b >= ' ' && b <= '~' {
			printable++
		}
	}
	if len(s) > 0 && printable < len(s) {
		buf.WriteByte('<')
		for _, b := range s {
			fmt.Fprintf(buf, "%02X", b)
		}
		buf.WriteByte('>')
		return
	}
	buf.WriteByte('(')
	for _, b := range s {
		switch b {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}

func sortedKeys(d Dict) []string {
	keys := make([]string, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	for i := 0; i < len(keys)-1; i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}
