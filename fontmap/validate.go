package fontmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/speedata/glyphmap/devanagari"
	"golang.org/x/text/unicode/runenames"
)

// ErrInvalid is returned for malformed replacement maps and for maps whose
// redundant fields disagree.
var ErrInvalid = errors.New("invalid replacement map")

// Seq returns the canonical code sequence of the replacement. All non-empty
// fields must describe the same sequence. Sentinel markers become the
// negative and positive one codes. A fully empty replacement is the empty
// sequence, which is how a glyph is marked as carrying no text.
func (r Replacement) Seq() ([]rune, error) {
	var seqs [][]rune
	if r.Text != "" {
		seqs = append(seqs, seqFromText(r.Text))
	}
	if len(r.Codes) > 0 {
		seq := make([]rune, len(r.Codes))
		for i, c := range r.Codes {
			seq[i] = rune(c)
		}
		seqs = append(seqs, seq)
	}
	if len(r.Desc) > 0 {
		seq, err := seqFromDesc(r.Desc)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	if len(seqs) == 0 {
		return []rune{}, nil
	}
	for _, seq := range seqs[1:] {
		if !runesEqual(seq, seqs[0]) {
			return nil, fmt.Errorf("%w: fields disagree: %q vs %q", ErrInvalid, string(seqs[0]), string(seq))
		}
	}
	return seqs[0], nil
}

func seqFromText(t string) []rune {
	var seq []rune
	for len(t) > 0 {
		switch {
		case strings.HasPrefix(t, devanagari.MarkPrec):
			seq = append(seq, devanagari.PrecCode)
			t = t[len(devanagari.MarkPrec):]
		case strings.HasPrefix(t, devanagari.MarkSucc):
			seq = append(seq, devanagari.SuccCode)
			t = t[len(devanagari.MarkSucc):]
		default:
			r := []rune(t)[0]
			seq = append(seq, r)
			t = t[len(string(r)):]
		}
	}
	return seq
}

func seqFromDesc(d []string) ([]rune, error) {
	seq := make([]rune, 0, len(d))
	for _, desc := range d {
		switch desc {
		case devanagari.MarkPrec:
			seq = append(seq, devanagari.PrecCode)
			continue
		case devanagari.MarkSucc:
			seq = append(seq, devanagari.SuccCode)
			continue
		}
		if len(desc) < 5 {
			return nil, fmt.Errorf("%w: malformed description %q", ErrInvalid, desc)
		}
		code, err := strconv.ParseUint(desc[:4], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed description %q", ErrInvalid, desc)
		}
		if want := describe(rune(code)); desc != want {
			return nil, fmt.Errorf("%w: description %q should read %q", ErrInvalid, desc, want)
		}
		seq = append(seq, rune(code))
	}
	return seq, nil
}

func describe(r rune) string {
	return fmt.Sprintf("%04X %s", r, runenames.Name(r))
}

// Canonical builds the replacement with all three fields regenerated from a
// canonical sequence.
func Canonical(seq []rune) Replacement {
	var text strings.Builder
	codes := make([]int32, len(seq))
	desc := make([]string, len(seq))
	for i, r := range seq {
		codes[i] = int32(r)
		switch r {
		case devanagari.PrecCode:
			text.WriteString(devanagari.MarkPrec)
			desc[i] = devanagari.MarkPrec
		case devanagari.SuccCode:
			text.WriteString(devanagari.MarkSucc)
			desc[i] = devanagari.MarkSucc
		default:
			text.WriteRune(r)
			desc[i] = describe(r)
		}
	}
	return Replacement{Text: text.String(), Codes: codes, Desc: desc}
}

// Validate checks every replacement of the map and returns a copy with all
// three fields regenerated from the canonical sequences.
func Validate(m Map) (Map, error) {
	out := make(Map, len(m))
	for id, repl := range m {
		seq, err := repl.Seq()
		if err != nil {
			return nil, fmt.Errorf("glyph %04X: %w", uint16(id), err)
		}
		out[id] = Canonical(seq)
	}
	return out, nil
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
