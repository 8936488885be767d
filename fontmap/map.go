// Package fontmap reads and writes the hand-curated replacement maps that
// assign a text to each glyph id of a broken font. The maps live in TOML
// files keyed by the four digit hex glyph id.
package fontmap

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/speedata/glyphmap/ttx"
)

// A Replacement is the curated text for one glyph. The three fields are
// redundant representations of the same sequence and are kept in sync by
// Validate. Sequences may carry the devanagari sentinel markers.
type Replacement struct {
	Text  string   `toml:"replacement_text"`
	Codes []int32  `toml:"replacement_codes"`
	Desc  []string `toml:"replacement_desc"`
}

// A Map assigns replacements to glyph ids.
type Map map[ttx.GlyphID]Replacement

// Load reads a replacement map from a TOML file. Besides the full table form
// a glyph id may map to a bare code point list or a bare string, shorthands
// found in generated and spreadsheet derived maps.
func Load(filename string) (Map, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a replacement map from TOML.
func Read(r io.Reader) (Map, error) {
	var raw map[string]toml.Primitive
	md, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	m := make(Map, len(raw))
	for key, prim := range raw {
		id, err := parseGlyphID(key)
		if err != nil {
			return nil, err
		}
		var repl Replacement
		if err = md.PrimitiveDecode(prim, &repl); err == nil {
			m[id] = repl
			continue
		}
		var codes []int32
		if err = md.PrimitiveDecode(prim, &codes); err == nil {
			m[id] = Replacement{Codes: codes}
			continue
		}
		var text string
		if err = md.PrimitiveDecode(prim, &text); err == nil {
			m[id] = Replacement{Text: text}
			continue
		}
		return nil, fmt.Errorf("%w: glyph %s: unsupported value", ErrInvalid, key)
	}
	return m, nil
}

func parseGlyphID(key string) (ttx.GlyphID, error) {
	if len(key) != 4 {
		return 0, fmt.Errorf("%w: glyph id key %q must be 4 hex digits", ErrInvalid, key)
	}
	id, err := strconv.ParseUint(key, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: glyph id key %q must be 4 hex digits", ErrInvalid, key)
	}
	return ttx.GlyphID(id), nil
}

// Save writes the map as TOML, glyph ids sorted.
func Save(filename string, m Map) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the map as TOML, glyph ids sorted.
func Write(w io.Writer, m Map) error {
	ids := make([]ttx.GlyphID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	enc := toml.NewEncoder(w)
	for _, id := range ids {
		one := map[string]Replacement{fmt.Sprintf("%04X", uint16(id)): m[id]}
		if err := enc.Encode(one); err != nil {
			return err
		}
	}
	return nil
}
