package ttx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/speedata/glyphmap/core"
)

var (
	// ErrParse is returned when a record in the dump cannot be interpreted.
	ErrParse = errors.New("cannot parse font dump")
	// ErrConsistency is returned when two records contradict each other.
	ErrConsistency = errors.New("inconsistent font dump")
)

// DefaultIgnore lists glyph names that never carry text of their own and are
// dropped from ligature components.
var DefaultIgnore = map[GlyphName]bool{
	"vattudeva":     true,
	"uni200D":       true,
	"dummymarkdeva": true,
}

var (
	reGlyphID      = regexp.MustCompile(`<GlyphID id="(\d+)" name="([^"]+)"\s*/>`)
	reMap          = regexp.MustCompile(`<map code="0x([0-9a-fA-F]+)" name="([^"]+)"\s*/>`)
	reLigatureSet  = regexp.MustCompile(`<LigatureSet glyph="([^"]+)"\s*>`)
	reLigature     = regexp.MustCompile(`<Ligature components="([^"]+)" glyph="([^"]+)"\s*/>`)
	reSubstitution = regexp.MustCompile(`<Substitution in="([^"]+)" out="([^"]+)"\s*/>`)
)

// ParseDump reads a symbolic font dump and builds the relation graph from its
// glyph id, character map, ligature and substitution records. A ligature
// record naming a glyph from ignore contributes nothing, the whole derivation
// is dropped; a nil ignore means DefaultIgnore. All other markup in the dump
// is skipped.
func ParseDump(r io.Reader, ignore map[GlyphName]bool) (*Dump, error) {
	if ignore == nil {
		ignore = DefaultIgnore
	}
	d := &Dump{
		Names:       make(map[GlyphID]GlyphName),
		Equivalents: make(Equivalents),
	}

	var ligatureSet GlyphName
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		switch {
		case strings.Contains(line, "<GlyphID"):
			m := reGlyphID.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: bad GlyphID record in line %d", ErrParse, lineno)
			}
			id64, err := strconv.ParseUint(m[1], 10, 16)
			if err != nil {
				return nil, fmt.Errorf("%w: glyph id %q in line %d", ErrParse, m[1], lineno)
			}
			id, name := GlyphID(id64), GlyphName(m[2])
			if prev, ok := d.Names[id]; ok && prev != name {
				return nil, fmt.Errorf("%w: glyph id %d named both %q and %q", ErrConsistency, id, prev, name)
			}
			d.Names[id] = name
		case strings.Contains(line, "<map "):
			m := reMap.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: bad map record in line %d", ErrParse, lineno)
			}
			code, err := strconv.ParseUint(m[1], 16, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: code point %q in line %d", ErrParse, m[1], lineno)
			}
			d.Equivalents.add(GlyphName(m[2]), RelationDirect, Sequence{Code(rune(code))})
		case strings.Contains(line, "<LigatureSet"):
			m := reLigatureSet.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: bad LigatureSet record in line %d", ErrParse, lineno)
			}
			ligatureSet = GlyphName(m[1])
		case strings.Contains(line, "</LigatureSet>"):
			ligatureSet = ""
		case strings.Contains(line, "<Ligature "):
			m := reLigature.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: bad Ligature record in line %d", ErrParse, lineno)
			}
			if ligatureSet == "" {
				return nil, fmt.Errorf("%w: Ligature record outside a LigatureSet in line %d", ErrParse, lineno)
			}
			parts := append([]GlyphName{ligatureSet}, splitNames(m[1])...)
			skip := false
			for _, p := range parts {
				if ignore[p] {
					skip = true
					break
				}
			}
			if skip {
				// A connector glyph in the composition carries no text of
				// its own, so the whole derivation is meaningless.
				core.Logger.Debugf("skipping ligature %q with ignored component in line %d", m[2], lineno)
				continue
			}
			seq := make(Sequence, len(parts))
			for i, p := range parts {
				seq[i] = Name(p)
			}
			d.Equivalents.add(GlyphName(m[2]), RelationLigature, seq)
		case strings.Contains(line, "<Substitution"):
			m := reSubstitution.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: bad Substitution record in line %d", ErrParse, lineno)
			}
			in, out := splitNames(m[1]), splitNames(m[2])
			if len(out) > 1 {
				// One-to-many substitutions cannot be inverted into a
				// replacement sequence for a single glyph.
				core.Logger.Debugf("skipping one-to-many substitution %q -> %q in line %d", m[1], m[2], lineno)
				continue
			}
			if len(in) != 1 {
				return nil, fmt.Errorf("%w: substitution with %d inputs and one output in line %d", ErrParse, len(in), lineno)
			}
			d.Equivalents.add(out[0], RelationSubstitution, Sequence{Name(in[0])})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return d, nil
}

func splitNames(s string) []GlyphName {
	fields := strings.Split(s, ",")
	names := make([]GlyphName, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			names = append(names, GlyphName(f))
		}
	}
	return names
}
