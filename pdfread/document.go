package pdfread

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/speedata/glyphmap/core"
)

// xrefEntry locates one indirect object in the file.
type xrefEntry struct {
	offset     int64
	generation int
	inUse      bool
	// set for objects living inside an object stream
	compressed int
	indexInStm int
}

// A Document is a loaded PDF file. Objects resolve lazily and are cached.
type Document struct {
	data     []byte
	xref     map[int]xrefEntry
	trailer  Dict
	cache    map[int]*Object
	replaced map[int]*Object
}

// Open loads a PDF from disk.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return doc, nil
}

// Load parses a PDF from memory.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("missing PDF header")
	}
	doc := &Document{
		data:     data,
		xref:     make(map[int]xrefEntry),
		cache:    make(map[int]*Object),
		replaced: make(map[int]*Object),
	}
	if err := doc.loadXRef(); err != nil {
		return nil, fmt.Errorf("loading xref: %w", err)
	}
	return doc, nil
}

func (doc *Document) loadXRef() error {
	searchFrom := len(doc.data) - 1024
	if searchFrom < 0 {
		searchFrom = 0
	}
	idx := bytes.LastIndex(doc.data[searchFrom:], []byte("startxref"))
	if idx < 0 {
		return fmt.Errorf("startxref not found")
	}
	p := NewParser(doc.data, searchFrom+idx+len("startxref"))
	p.SkipWhitespace()
	offset, err := strconv.ParseInt(p.ReadToken(), 10, 64)
	if err != nil {
		return fmt.Errorf("bad startxref value: %w", err)
	}
	return doc.loadXRefAt(offset)
}

// loadXRefAt reads the xref section at the given offset, classic table or
// cross reference stream, and follows the Prev chain. Entries already seen
// win since later sections are older.
func (doc *Document) loadXRefAt(offset int64) error {
	if offset < 0 || int(offset) >= len(doc.data) {
		return fmt.Errorf("xref offset %d out of bounds", offset)
	}
	p := NewParser(doc.data, int(offset))
	p.SkipWhitespace()
	if p.match("xref") {
		return doc.loadXRefTable(p)
	}
	return doc.loadXRefStream(p)
}

func (doc *Document) loadXRefTable(p *Parser) error {
	for {
		p.SkipWhitespace()
		if p.AtEnd() {
			break
		}
		if p.match("trailer") {
			break
		}
		first, err1 := strconv.Atoi(p.ReadToken())
		p.SkipWhitespace()
		count, err2 := strconv.Atoi(p.ReadToken())
		if err1 != nil || err2 != nil {
			break
		}
		p.SkipWhitespace()
		// fixed 20 byte entries
		for i := 0; i < count; i++ {
			if p.Pos()+20 > len(doc.data) {
				break
			}
			entry := string(doc.data[p.Pos() : p.Pos()+20])
			p.SetPos(p.Pos() + 20)
			off, _ := strconv.ParseInt(strings.TrimSpace(entry[:10]), 10, 64)
			gen, _ := strconv.Atoi(strings.TrimSpace(entry[11:16]))
			id := first + i
			if _, ok := doc.xref[id]; !ok {
				doc.xref[id] = xrefEntry{offset: off, generation: gen, inUse: entry[17] == 'n'}
			}
		}
	}
	p.SkipWhitespace()
	trailerObj, err := p.ParseObject()
	if err != nil {
		return fmt.Errorf("parsing trailer: %w", err)
	}
	if doc.trailer == nil && trailerObj.Kind == KindDict {
		doc.trailer = trailerObj.Dict
	}
	if prev, ok := trailerObj.Dict.Int("Prev"); ok && prev > 0 {
		return doc.loadXRefAt(prev)
	}
	return nil
}

func (doc *Document) loadXRefStream(p *Parser) error {
	p.ReadToken()
	p.SkipWhitespace()
	p.ReadToken()
	p.SkipWhitespace()
	p.match("obj")
	obj, err := p.ParseObject()
	if err != nil {
		return fmt.Errorf("parsing xref stream: %w", err)
	}
	if obj.Kind != KindStream {
		return fmt.Errorf("xref section is neither a table nor a stream")
	}
	if doc.trailer == nil {
		doc.trailer = obj.Dict
	}
	data, err := DecodeStream(obj.Dict, obj.Stream)
	if err != nil {
		return fmt.Errorf("decoding xref stream: %w", err)
	}

	w, _ := obj.Dict.ArrayValue("W")
	if len(w) < 3 {
		return fmt.Errorf("xref stream without /W")
	}
	w1, w2, w3 := int(w[0].Int), int(w[1].Int), int(w[2].Int)
	entrySize := w1 + w2 + w3
	if entrySize == 0 {
		return fmt.Errorf("xref stream with empty entries")
	}

	size, _ := obj.Dict.Int("Size")
	var sections [][2]int
	if index, ok := obj.Dict.ArrayValue("Index"); ok {
		for i := 0; i+1 < len(index); i += 2 {
			sections = append(sections, [2]int{int(index[i].Int), int(index[i+1].Int)})
		}
	} else {
		sections = [][2]int{{0, int(size)}}
	}

	pos := 0
	for _, sec := range sections {
		for i := 0; i < sec[1]; i++ {
			if pos+entrySize > len(data) {
				break
			}
			typ := readBigEndian(data[pos:], w1)
			f2 := readBigEndian(data[pos+w1:], w2)
			f3 := readBigEndian(data[pos+w1+w2:], w3)
			pos += entrySize
			id := sec[0] + i
			if _, ok := doc.xref[id]; ok {
				continue
			}
			switch typ {
			case 0:
				doc.xref[id] = xrefEntry{generation: f3}
			case 1:
				doc.xref[id] = xrefEntry{offset: int64(f2), generation: f3, inUse: true}
			case 2:
				doc.xref[id] = xrefEntry{compressed: f2, indexInStm: f3, inUse: true}
			}
		}
	}

	if prev, ok := obj.Dict.Int("Prev"); ok && prev > 0 {
		return doc.loadXRefAt(prev)
	}
	return nil
}

func readBigEndian(data []byte, n int) int {
	v := 0
	for i := 0; i < n && i < len(data); i++ {
		v = v<<8 | int(data[i])
	}
	return v
}

// ResolveRef returns the object an indirect reference points to. Unknown or
// free references resolve to null.
func (doc *Document) ResolveRef(ref Reference) *Object {
	if obj, ok := doc.replaced[ref.Number]; ok {
		return obj
	}
	if obj, ok := doc.cache[ref.Number]; ok {
		return obj
	}
	entry, ok := doc.xref[ref.Number]
	if !ok || !entry.inUse {
		return &Object{Kind: KindNull}
	}
	var obj *Object
	var err error
	if entry.compressed != 0 {
		obj, err = doc.fromObjectStream(entry)
	} else {
		obj, err = doc.atOffset(entry.offset)
	}
	if err != nil {
		core.Logger.Debugf("cannot resolve object %d: %v", ref.Number, err)
		obj = &Object{Kind: KindNull}
	}
	doc.cache[ref.Number] = obj
	return obj
}

// atOffset parses "N G obj ... endobj" at a byte offset.
func (doc *Document) atOffset(offset int64) (*Object, error) {
	if offset < 0 || int(offset) >= len(doc.data) {
		return nil, fmt.Errorf("object offset %d out of bounds", offset)
	}
	parse := func() (*Object, error) {
		p := NewParser(doc.data, int(offset))
		p.ReadToken()
		p.SkipWhitespace()
		p.ReadToken()
		p.SkipWhitespace()
		if !p.match("obj") {
			return nil, fmt.Errorf("no object at offset %d", offset)
		}
		return p.ParseObject()
	}
	obj, err := parse()
	if err != nil {
		return nil, err
	}
	// An indirect /Length forces a second pass with the value filled in.
	if obj.Kind == KindStream {
		if lenRef, ok := obj.Dict["Length"]; ok && lenRef.Kind == KindRef {
			lenObj := doc.ResolveRef(lenRef.Ref)
			if lenObj.Kind == KindInt {
				obj.Dict["Length"] = lenObj
				return parse()
			}
		}
	}
	return obj, nil
}

// fromObjectStream extracts one object from an object stream container.
func (doc *Document) fromObjectStream(entry xrefEntry) (*Object, error) {
	container := doc.ResolveRef(Reference{Number: entry.compressed})
	if container.Kind != KindStream {
		return nil, fmt.Errorf("object stream %d is not a stream", entry.compressed)
	}
	data, err := DecodeStream(container.Dict, container.Stream)
	if err != nil {
		return nil, err
	}
	n, _ := container.Dict.Int("N")
	first, _ := container.Dict.Int("First")

	p := NewParser(data, 0)
	offsets := make([]int, 0, n)
	for i := 0; i < int(n); i++ {
		p.SkipWhitespace()
		p.ReadToken()
		p.SkipWhitespace()
		off, _ := strconv.Atoi(p.ReadToken())
		offsets = append(offsets, off)
	}
	if entry.indexInStm < 0 || entry.indexInStm >= len(offsets) {
		return nil, fmt.Errorf("object index %d outside object stream %d", entry.indexInStm, entry.compressed)
	}
	return NewParser(data, int(first)+offsets[entry.indexInStm]).ParseObject()
}

// Resolve follows an indirect reference, other objects pass through.
func (doc *Document) Resolve(obj *Object) *Object {
	if obj == nil {
		return &Object{Kind: KindNull}
	}
	if obj.Kind != KindRef {
		return obj
	}
	return doc.ResolveRef(obj.Ref)
}

// Trailer returns the trailer dictionary.
func (doc *Document) Trailer() Dict { return doc.trailer }

// Catalog returns the document catalog.
func (doc *Document) Catalog() (Dict, error) {
	rootRef, ok := doc.trailer["Root"]
	if !ok {
		return nil, fmt.Errorf("no /Root in trailer")
	}
	root := doc.Resolve(rootRef)
	if root.Kind != KindDict {
		return nil, fmt.Errorf("catalog is not a dictionary")
	}
	return root.Dict, nil
}

// Pages returns all page dictionaries in document order.
func (doc *Document) Pages() ([]Dict, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	pagesRef, ok := cat["Pages"]
	if !ok {
		return nil, fmt.Errorf("no /Pages in catalog")
	}
	var pages []Dict
	doc.collectPages(doc.Resolve(pagesRef), &pages, make(map[*Object]bool))
	return pages, nil
}

// collectPages walks the page tree. Resolved objects are cached per
// reference, so pointer identity catches a tree node linking back at an
// ancestor.
func (doc *Document) collectPages(node *Object, pages *[]Dict, visited map[*Object]bool) {
	if node.Kind != KindDict && node.Kind != KindStream {
		return
	}
	if visited[node] {
		return
	}
	visited[node] = true
	d := node.Dict
	if typ, _ := d.NameValue("Type"); typ == "Page" {
		*pages = append(*pages, d)
		return
	}
	kidsObj, ok := d["Kids"]
	if !ok {
		return
	}
	kids := doc.Resolve(kidsObj)
	if kids.Kind != KindArray {
		return
	}
	for _, kidRef := range kids.Array {
		doc.collectPages(doc.Resolve(kidRef), pages, visited)
	}
}

// ContentRefs returns the references of a page's content streams, in order.
// Direct stream objects are not supported, real world pages always use
// indirect contents.
func (doc *Document) ContentRefs(page Dict) []Reference {
	contentsObj, ok := page["Contents"]
	if !ok {
		return nil
	}
	var refs []Reference
	if contentsObj.Kind == KindRef {
		// may point at an array of refs
		if resolved := doc.ResolveRef(contentsObj.Ref); resolved.Kind == KindArray {
			for _, el := range resolved.Array {
				if el.Kind == KindRef {
					refs = append(refs, el.Ref)
				}
			}
			return refs
		}
		return []Reference{contentsObj.Ref}
	}
	if contentsObj.Kind == KindArray {
		for _, el := range contentsObj.Array {
			if el.Kind == KindRef {
				refs = append(refs, el.Ref)
			}
		}
	}
	return refs
}

// Content returns the concatenated decoded content streams of a page.
func (doc *Document) Content(page Dict) ([]byte, error) {
	var result []byte
	for _, ref := range doc.ContentRefs(page) {
		obj := doc.ResolveRef(ref)
		if obj.Kind != KindStream {
			continue
		}
		data, err := DecodeStream(obj.Dict, obj.Stream)
		if err != nil {
			return nil, fmt.Errorf("content stream %s: %w", ref, err)
		}
		result = append(result, data...)
		result = append(result, '\n')
	}
	return result, nil
}

// A FontRes is a font resource of a page: the resource name used by Tf, the
// reference of the font dictionary and the dictionary itself.
type FontRes struct {
	Name string
	Ref  Reference
	Dict Dict
}

// PageFonts returns the font resources of a page.
func (doc *Document) PageFonts(page Dict) ([]FontRes, error) {
	resObj, ok := page["Resources"]
	if !ok {
		return nil, nil
	}
	resources := doc.Resolve(resObj)
	if resources.Kind != KindDict && resources.Kind != KindStream {
		return nil, nil
	}
	fontObj, ok := resources.Dict["Font"]
	if !ok {
		return nil, nil
	}

	var fonts []FontRes
	add := func(name string, ref Reference) {
		obj := doc.ResolveRef(ref)
		if obj.Kind == KindDict || obj.Kind == KindStream {
			fonts = append(fonts, FontRes{Name: name, Ref: ref, Dict: obj.Dict})
		}
	}
	fontDict := doc.Resolve(fontObj)
	if fontDict.Kind != KindDict {
		return nil, nil
	}
	for _, name := range sortedKeys(fontDict.Dict) {
		entry := fontDict.Dict[name]
		if entry.Kind == KindRef {
			add(name, entry.Ref)
			continue
		}
		// fonts defined inline have no reference of their own
		if entry.Kind == KindDict {
			fonts = append(fonts, FontRes{Name: name, Dict: entry.Dict})
		}
	}
	return fonts, nil
}

// Replace substitutes the object behind a reference. The replacement shows
// up in subsequent resolution and in Save.
func (doc *Document) Replace(ref Reference, obj *Object) {
	doc.replaced[ref.Number] = obj
}
