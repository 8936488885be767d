package fontmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/speedata/glyphmap/ttx"
)

// WriteCSV writes one or more maps as a spreadsheet with a glyph_id column
// and one text column per source. The row set is the union of all glyph ids.
func WriteCSV(w io.Writer, sources []string, maps []Map) error {
	if len(sources) != len(maps) {
		return fmt.Errorf("%w: %d sources for %d maps", ErrInvalid, len(sources), len(maps))
	}
	ids := map[ttx.GlyphID]bool{}
	for _, m := range maps {
		for id := range m {
			ids[id] = true
		}
	}
	sorted := make([]ttx.GlyphID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"glyph_id"}, sources...)); err != nil {
		return err
	}
	for _, id := range sorted {
		row := make([]string, 1, len(maps)+1)
		row[0] = fmt.Sprintf("%04X", uint16(id))
		for _, m := range maps {
			row = append(row, m[id].Text)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV merges a spreadsheet written by WriteCSV back into a single map.
// For each glyph the first non-empty column wins; when several columns are
// filled in they must agree.
func ReadCSV(r io.Reader) (Map, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(header) < 2 || header[0] != "glyph_id" {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrInvalid, header)
	}
	m := make(Map)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		id64, err := strconv.ParseUint(row[0], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: glyph id %q", ErrInvalid, row[0])
		}
		text := ""
		for i, cell := range row[1:] {
			if cell == "" {
				continue
			}
			if text == "" {
				text = cell
				continue
			}
			if cell != text {
				return nil, fmt.Errorf("%w: glyph %s: column %s disagrees: %q vs %q", ErrInvalid, row[0], header[i+1], text, cell)
			}
		}
		if text == "" {
			continue
		}
		m[ttx.GlyphID(id64)] = Replacement{Text: text}
	}
	return m, nil
}
