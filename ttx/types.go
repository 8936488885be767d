package ttx

import (
	"fmt"
	"strings"
)

// A GlyphID is the font-internal identifier of a glyph, as assigned at
// font-dump time.
type GlyphID uint16

// A GlyphName is the symbolic name of a glyph as it appears in the dump.
type GlyphName string

// Relation says which kind of dump record a sequence was derived from. The
// zero value is the strongest kind, so the ordering of the constants doubles
// as the caller-side preference order.
type Relation uint8

const (
	// RelationDirect is a code-to-name mapping record.
	RelationDirect Relation = iota
	// RelationLigature is a ligature composition record.
	RelationLigature
	// RelationSubstitution is a single-output substitution record.
	RelationSubstitution
)

func (r Relation) String() string {
	switch r {
	case RelationDirect:
		return "direct"
	case RelationLigature:
		return "ligature"
	case RelationSubstitution:
		return "substitution"
	}
	return fmt.Sprintf("relation(%d)", uint8(r))
}

// An Element is one step of a not yet resolved sequence: either a Unicode
// scalar value or a glyph name. A non-empty Name wins over Code.
type Element struct {
	Code rune
	Name GlyphName
}

// Code returns an Element holding a Unicode scalar value.
func Code(r rune) Element { return Element{Code: r} }

// Name returns an Element holding a glyph name.
func Name(n GlyphName) Element { return Element{Name: n} }

// IsName reports whether the element is a glyph name.
func (el Element) IsName() bool { return el.Name != "" }

// A Sequence is an ordered list of elements. Once resolution finishes, all
// surviving sequences consist of code elements only.
type Sequence []Element

// Pure reports whether the sequence contains no glyph names.
func (s Sequence) Pure() bool {
	for _, el := range s {
		if el.IsName() {
			return false
		}
	}
	return true
}

// Codes returns the code points of a pure sequence. The second return value
// is false if the sequence still contains glyph names.
func (s Sequence) Codes() ([]rune, bool) {
	codes := make([]rune, 0, len(s))
	for _, el := range s {
		if el.IsName() {
			return nil, false
		}
		codes = append(codes, el.Code)
	}
	return codes, true
}

// Text renders a pure sequence as a string. The second return value is false
// if the sequence still contains glyph names.
func (s Sequence) Text() (string, bool) {
	codes, ok := s.Codes()
	if !ok {
		return "", false
	}
	return string(codes), true
}

// Equal reports whether two sequences have the same elements.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i, el := range s {
		if el != other[i] {
			return false
		}
	}
	return true
}

func (s Sequence) String() string {
	var sb strings.Builder
	for i, el := range s {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if el.IsName() {
			sb.WriteString(string(el.Name))
		} else {
			fmt.Fprintf(&sb, "U+%04X", el.Code)
		}
	}
	return sb.String()
}

// key returns a canonical representation used for set membership.
func (s Sequence) key() string {
	var sb strings.Builder
	for _, el := range s {
		if el.IsName() {
			sb.WriteByte('n')
			sb.WriteString(string(el.Name))
		} else {
			fmt.Fprintf(&sb, "c%x", el.Code)
		}
		sb.WriteByte(0)
	}
	return sb.String()
}

// An Alternative is one possible derivation of a glyph name.
type Alternative struct {
	Kind Relation
	Seq  Sequence
}

// Equivalents maps each glyph name to the set of sequences it may stand for.
// The slice is a set: duplicate sequences coalesce, and when the same
// sequence arrives through two relation kinds the stronger kind is kept.
type Equivalents map[GlyphName][]Alternative

func (eq Equivalents) add(name GlyphName, kind Relation, seq Sequence) {
	for i, alt := range eq[name] {
		if alt.Seq.Equal(seq) {
			if kind < alt.Kind {
				eq[name][i].Kind = kind
			}
			return
		}
	}
	eq[name] = append(eq[name], Alternative{Kind: kind, Seq: seq})
}

// A Dump is the parsed form of one symbolic font dump.
type Dump struct {
	// Names maps each glyph id to its symbolic name.
	Names map[GlyphID]GlyphName
	// Equivalents holds the combined relation graph.
	Equivalents Equivalents
}
