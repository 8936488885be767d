// Package actualtext rewrites a PDF so that copy and paste yields readable
// text. Every text showing operator is wrapped in a marked content span
// whose /ActualText carries the curated replacement text of the shown
// glyphs.
package actualtext

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/speedata/glyphmap/core"
	"github.com/speedata/glyphmap/devanagari"
	"github.com/speedata/glyphmap/fontmap"
	"github.com/speedata/glyphmap/pdfread"
	"github.com/speedata/glyphmap/ttx"
)

// Options control the annotation run.
type Options struct {
	// Decorate brackets every span with the font name and marks slanted
	// text, useful when proofreading the output.
	Decorate bool
}

// pageFont is one font resource with its replacement map attached.
type pageFont struct {
	res  pdfread.FontRes
	base string
	t0   bool
	repl fontmap.Map
}

// Annotate loads the replacement maps from dir, rewrites every page of the
// document and returns the number of annotated text operators.
func Annotate(doc *pdfread.Document, dir string, opts Options) (int, error) {
	pages, err := doc.Pages()
	if err != nil {
		return 0, err
	}
	maps := make(map[pdfread.Reference]*pageFont)
	annotated := 0

	for pageno, page := range pages {
		fonts, err := doc.PageFonts(page)
		if err != nil {
			return annotated, fmt.Errorf("page %d fonts: %w", pageno+1, err)
		}
		byName := make(map[string]*pageFont, len(fonts))
		for _, f := range fonts {
			if f.Ref == (pdfread.Reference{}) {
				continue
			}
			pf, ok := maps[f.Ref]
			if !ok {
				pf = loadFont(f, dir)
				maps[f.Ref] = pf
			}
			byName[f.Name] = pf
		}

		content, err := doc.Content(page)
		if err != nil {
			return annotated, fmt.Errorf("page %d: %w", pageno+1, err)
		}
		rewritten, n := rewriteContent(content, byName, opts)
		annotated += n

		refs := doc.ContentRefs(page)
		if len(refs) == 0 {
			continue
		}
		doc.Replace(refs[0], &pdfread.Object{
			Kind:   pdfread.KindStream,
			Dict:   pdfread.Dict{},
			Stream: rewritten,
		})
		// the remaining streams are already merged into the first one
		for _, ref := range refs[1:] {
			doc.Replace(ref, &pdfread.Object{Kind: pdfread.KindStream, Dict: pdfread.Dict{}, Stream: nil})
		}
	}
	return annotated, nil
}

func loadFont(f pdfread.FontRes, dir string) *pageFont {
	base, _ := f.Dict.NameValue("BaseFont")
	pf := &pageFont{res: f, base: base, t0: pdfread.IsType0(f.Dict)}
	stem := fmt.Sprintf("font-%d-%d-%s", f.Ref.Number, f.Ref.Gen, base)
	for _, name := range []string{stem + ".toml", stem + "-cmap.toml"} {
		m, err := fontmap.Load(filepath.Join(dir, name))
		if err == nil {
			pf.repl = m
			core.Logger.Debugf("font %s: using %s (%d glyphs)", base, name, len(m))
			return pf
		}
		if !os.IsNotExist(err) {
			core.Logger.Warnf("font %s: %v", base, err)
		}
	}
	core.Logger.Warnf("font %s: no replacement map in %s, emitting placeholders", base, dir)
	return pf
}

// rewriteContent wraps every text showing operator of a content stream in a
// BDC/EMC pair carrying the actual text.
func rewriteContent(content []byte, fonts map[string]*pageFont, opts Options) ([]byte, int) {
	var out bytes.Buffer
	p := pdfread.NewParser(content, 0)
	var stack []*pdfread.Object
	var cur *pageFont
	slanted := false
	segStart := -1
	emitted := 0
	count := 0

	for !p.AtEnd() {
		p.SkipWhitespace()
		before := p.Pos()
		obj, op := p.Next()
		if obj != nil {
			if segStart < 0 {
				segStart = before
			}
			stack = append(stack, obj)
			continue
		}
		if op == "" {
			continue
		}
		opEnd := p.Pos()
		spanStart := segStart
		if spanStart < 0 {
			spanStart = before
		}
		segStart = -1

		switch op {
		case "Tf":
			if len(stack) >= 2 && stack[len(stack)-2].Kind == pdfread.KindName {
				cur = fonts[stack[len(stack)-2].Name]
			}
		case "Tm":
			if len(stack) >= 6 {
				// a positive c component means the font is sheared
				slanted = stack[len(stack)-4].Float() > 0
			}
		case "Tj", "'", `"`, "TJ":
			text, ok := spanText(op, stack, cur)
			if ok {
				if opts.Decorate {
					text = decorate(text, cur, slanted)
				}
				out.Write(content[emitted:spanStart])
				out.WriteString("/Span << /ActualText ")
				writeTextString(&out, text)
				out.WriteString(" >> BDC\n")
				out.Write(content[spanStart:opEnd])
				out.WriteString("\nEMC")
				emitted = opEnd
				count++
			}
		}
		stack = stack[:0]
	}
	out.Write(content[emitted:])
	return out.Bytes(), count
}

// spanText assembles the replacement text for one text showing operator.
func spanText(op string, stack []*pdfread.Object, font *pageFont) (string, bool) {
	if font == nil {
		return "", false
	}
	var strs [][]byte
	switch op {
	case "Tj", "'", `"`:
		if len(stack) == 0 || stack[len(stack)-1].Kind != pdfread.KindString {
			return "", false
		}
		strs = [][]byte{stack[len(stack)-1].Str}
	case "TJ":
		if len(stack) == 0 || stack[len(stack)-1].Kind != pdfread.KindArray {
			return "", false
		}
		for _, el := range stack[len(stack)-1].Array {
			if el.Kind == pdfread.KindString {
				strs = append(strs, el.Str)
			}
		}
	}

	var sb strings.Builder
	for _, s := range strs {
		for _, id := range glyphs(s, font.t0) {
			repl, ok := font.repl[id]
			if !ok {
				core.Logger.Warnf("font %s: glyph %04X has no replacement", font.base, uint16(id))
				fmt.Fprintf(&sb, "[glyph%04X]", uint16(id))
				continue
			}
			sb.WriteString(repl.Text)
		}
	}
	text := devanagari.NormalizeMarked(sb.String())
	text = strings.ReplaceAll(text, devanagari.MarkPrec, "")
	text = strings.ReplaceAll(text, devanagari.MarkSucc, "")
	return text, true
}

func glyphs(s []byte, type0 bool) []ttx.GlyphID {
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

func decorate(text string, font *pageFont, slanted bool) string {
	if slanted {
		text = "[sl]" + text + "[/sl]"
	}
	if font != nil && font.base != "" {
		text = "[" + font.base + "]" + text + "[/" + font.base + "]"
	}
	return text
}

// writeTextString emits a PDF hex string in UTF-16BE with a byte order mark,
// the encoding every viewer understands for ActualText.
func writeTextString(out *bytes.Buffer, text string) {
	out.WriteString("<FEFF")
	for _, u := range utf16.Encode([]rune(text)) {
		fmt.Fprintf(out, "%04X", u)
	}
	out.WriteByte('>')
}
