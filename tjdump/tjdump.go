// Package tjdump records which glyphs a PDF actually uses. For every font it
// collects the glyph id sequences of all text showing operators into a .Tjs
// file and dumps the font's ToUnicode mapping, the raw material for building
// a replacement map.
package tjdump

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/speedata/glyphmap/core"
	"github.com/speedata/glyphmap/pdfread"
	"github.com/speedata/glyphmap/ttx"
)

// A FontUsage is the collected usage of a single font across a document.
type FontUsage struct {
	Ref      pdfread.Reference
	BaseFont string
	Type0    bool
	// Lines holds one glyph id sequence per text showing operator.
	Lines [][]ttx.GlyphID
	// ToUnicode is the font's own glyph id to text mapping, may be nil.
	ToUnicode map[uint32]string
}

// Basename returns the file stem shared by all dump files of this font.
func (u *FontUsage) Basename() string {
	base := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, u.BaseFont)
	return fmt.Sprintf("font-%d-%d-%s", u.Ref.Number, u.Ref.Gen, base)
}

// Collect walks all pages of a document and gathers per font glyph usage.
func Collect(doc *pdfread.Document) ([]*FontUsage, error) {
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	usage := make(map[pdfread.Reference]*FontUsage)
	var order []pdfread.Reference

	for pageno, page := range pages {
		fonts, err := doc.PageFonts(page)
		if err != nil {
			return nil, fmt.Errorf("page %d fonts: %w", pageno+1, err)
		}
		byName := make(map[string]*FontUsage, len(fonts))
		for _, f := range fonts {
			if f.Ref == (pdfread.Reference{}) {
				core.Logger.Warnf("page %d: skipping inline font resource %s", pageno+1, f.Name)
				continue
			}
			u, ok := usage[f.Ref]
			if !ok {
				base, _ := f.Dict.NameValue("BaseFont")
				tu, err := doc.ToUnicode(f.Dict)
				if err != nil {
					core.Logger.Warnf("font %s: unreadable ToUnicode: %v", base, err)
				}
				u = &FontUsage{Ref: f.Ref, BaseFont: base, Type0: pdfread.IsType0(f.Dict), ToUnicode: tu}
				usage[f.Ref] = u
				order = append(order, f.Ref)
			}
			byName[f.Name] = u
		}

		content, err := doc.Content(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageno+1, err)
		}
		walkText(content, func(fontName string, strs [][]byte) {
			u, ok := byName[fontName]
			if !ok {
				return
			}
			var line []ttx.GlyphID
			for _, s := range strs {
				line = append(line, toGlyphs(s, u.Type0)...)
			}
			if len(line) > 0 {
				u.Lines = append(u.Lines, line)
			}
		})
	}

	result := make([]*FontUsage, 0, len(order))
	for _, ref := range order {
		result = append(result, usage[ref])
	}
	return result, nil
}

// toGlyphs splits a show text operand into glyph ids, two bytes per glyph
// for composite fonts, one byte otherwise.
func toGlyphs(s []byte, type0 bool) []ttx.GlyphID {
	if !type0 {
		ids := make([]ttx.GlyphID, len(s))
		for i, b := range s {
			ids[i] = ttx.GlyphID(b)
		}
		return ids
	}
	ids := make([]ttx.GlyphID, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		ids = append(ids, ttx.GlyphID(uint16(s[i])<<8|uint16(s[i+1])))
	}
	return ids
}

// walkText runs over a content stream and calls show for every text showing
// operator with the current font and the shown strings.
func walkText(content []byte, show func(font string, strs [][]byte)) {
	p := pdfread.NewParser(content, 0)
	var stack []*pdfread.Object
	font := ""
	for !p.AtEnd() {
		obj, op := p.Next()
		if obj != nil {
			stack = append(stack, obj)
			continue
		}
		switch op {
		case "Tf":
			if len(stack) >= 2 && stack[len(stack)-2].Kind == pdfread.KindName {
				font = stack[len(stack)-2].Name
			}
		case "Tj", "'":
			if len(stack) >= 1 && stack[len(stack)-1].Kind == pdfread.KindString {
				show(font, [][]byte{stack[len(stack)-1].Str})
			}
		case `"`:
			if len(stack) >= 1 && stack[len(stack)-1].Kind == pdfread.KindString {
				show(font, [][]byte{stack[len(stack)-1].Str})
			}
		case "TJ":
			if len(stack) >= 1 && stack[len(stack)-1].Kind == pdfread.KindArray {
				var strs [][]byte
				for _, el := range stack[len(stack)-1].Array {
					if el.Kind == pdfread.KindString {
						strs = append(strs, el.Str)
					}
				}
				if len(strs) > 0 {
					show(font, strs)
				}
			}
		case "":
			// stray byte, skip
		}
		if op != "" {
			stack = stack[:0]
		}
	}
}

// WriteFiles writes the .Tjs and cmap TOML files of all fonts into dir.
func WriteFiles(dir string, fonts []*FontUsage) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, u := range fonts {
		base := u.Basename()
		if len(u.Lines) > 0 {
			var sb strings.Builder
			for _, line := range u.Lines {
				for i, id := range line {
					if i > 0 {
						sb.WriteByte(' ')
					}
					fmt.Fprintf(&sb, "%04X", uint16(id))
				}
				sb.WriteByte('\n')
			}
			name := filepath.Join(dir, base+".Tjs")
			if err := os.WriteFile(name, []byte(sb.String()), 0644); err != nil {
				return err
			}
			core.Logger.Infof("%s: %d text runs", name, len(u.Lines))
		}
		if len(u.ToUnicode) > 0 {
			name := filepath.Join(dir, base+"-cmap.toml")
			if err := writeCmapTOML(name, u.ToUnicode); err != nil {
				return err
			}
			core.Logger.Infof("%s: %d mappings", name, len(u.ToUnicode))
		}
	}
	return nil
}

func writeCmapTOML(name string, m map[uint32]string) error {
	keyed := make(map[string]string, len(m))
	keys := make([]string, 0, len(m))
	for code, text := range m {
		key := fmt.Sprintf("%04X", code)
		keyed[key] = text
		keys = append(keys, key)
	}
	sort.Strings(keys)
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(f)
	for _, key := range keys {
		if err := enc.Encode(map[string]string{key: keyed[key]}); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// Dump is the phase one entry point: collect usage and write the dump files.
func Dump(doc *pdfread.Document, dir string) error {
	fonts, err := Collect(doc)
	if err != nil {
		return err
	}
	return WriteFiles(dir, fonts)
}
