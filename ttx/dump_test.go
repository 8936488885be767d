package ttx

import (
	"errors"
	"strings"
	"testing"
)

const sampleDump = `<?xml version="1.0" encoding="UTF-8"?>
<ttFont>
  <GlyphOrder>
    <GlyphID id="3" name="space"/>
    <GlyphID id="6" name="anusvaradeva"/>
    <GlyphID id="15" name="kadeva"/>
    <GlyphID id="40" name="radeva"/>
    <GlyphID id="41" name="viramadeva"/>
    <GlyphID id="120" name="rakaradeva"/>
  </GlyphOrder>
  <cmap>
    <map code="0x20" name="space"/>
    <map code="0x902" name="anusvaradeva"/>
    <map code="0x915" name="kadeva"/>
    <map code="0x930" name="radeva"/>
    <map code="0x94d" name="viramadeva"/>
  </cmap>
  <LigatureSet glyph="radeva">
    <Ligature components="viramadeva" glyph="rephdeva"/>
    <Ligature components="vattudeva,kadeva" glyph="krdeva"/>
  </LigatureSet>
  <Substitution in="kadeva" out="kadeva.alt"/>
  <Substitution in="rakaradeva" out="rakaradeva.ps,dummymarkdeva"/>
</ttFont>
`

func TestParseDump(t *testing.T) {
	d, err := ParseDump(strings.NewReader(sampleDump), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := d.Names[15], GlyphName("kadeva"); got != want {
		t.Errorf("Names[15] = %q, want %q", got, want)
	}
	if got, want := len(d.Names), 6; got != want {
		t.Errorf("len(Names) = %d, want %d", got, want)
	}

	cases := []struct {
		name GlyphName
		kind Relation
		seq  Sequence
	}{
		{"anusvaradeva", RelationDirect, Sequence{Code(0x902)}},
		{"rephdeva", RelationLigature, Sequence{Name("radeva"), Name("viramadeva")}},
		{"kadeva.alt", RelationSubstitution, Sequence{Name("kadeva")}},
	}
	for _, c := range cases {
		alts := d.Equivalents[c.name]
		if len(alts) != 1 {
			t.Errorf("%s: got %d alternatives, want 1", c.name, len(alts))
			continue
		}
		if alts[0].Kind != c.kind {
			t.Errorf("%s: kind = %s, want %s", c.name, alts[0].Kind, c.kind)
		}
		if !alts[0].Seq.Equal(c.seq) {
			t.Errorf("%s: sequence = %v, want %v", c.name, alts[0].Seq, c.seq)
		}
	}

	// The one-to-many substitution must be skipped entirely.
	if _, ok := d.Equivalents["rakaradeva.ps"]; ok {
		t.Error("one-to-many substitution was not skipped")
	}
	// The vattudeva component is ignored, so krdeva keeps no derivation.
	if _, ok := d.Equivalents["krdeva"]; ok {
		t.Error("ligature with an ignored component was not dropped")
	}
}

func TestParseDumpIgnoredLigatureComponent(t *testing.T) {
	dump := `<map code="0x915" name="kadeva"/>
<map code="0x930" name="radeva"/>
<LigatureSet glyph="radeva">
  <Ligature components="vattudeva,kadeva" glyph="krdeva"/>
</LigatureSet>`
	d, err := ParseDump(strings.NewReader(dump), nil)
	if err != nil {
		t.Fatal(err)
	}
	// Stripping only the ignored component would leave radeva kadeva, a
	// derivation the font never defines. The whole record must go.
	if alts, ok := d.Equivalents["krdeva"]; ok {
		t.Fatalf("krdeva kept %v, want no derivation at all", alts)
	}
	if _, ok := Resolve(d.Equivalents).Best("krdeva"); ok {
		t.Error("krdeva resolved to a sequence")
	}
}

func TestParseDumpAllComponentsIgnored(t *testing.T) {
	dump := `<LigatureSet glyph="vattudeva">
  <Ligature components="dummymarkdeva" glyph="joiner"/>
</LigatureSet>`
	d, err := ParseDump(strings.NewReader(dump), nil)
	if err != nil {
		t.Fatal(err)
	}
	// An all-ignored composition must not leave an empty sequence behind.
	if alts, ok := d.Equivalents["joiner"]; ok {
		t.Errorf("joiner kept %v, want no derivation", alts)
	}
}

func TestParseDumpDuplicateID(t *testing.T) {
	dump := `<GlyphID id="6" name="anusvaradeva"/>
<GlyphID id="6" name="kadeva"/>`
	_, err := ParseDump(strings.NewReader(dump), nil)
	if !errors.Is(err, ErrConsistency) {
		t.Errorf("err = %v, want ErrConsistency", err)
	}
}

func TestParseDumpRepeatedID(t *testing.T) {
	dump := `<GlyphID id="6" name="anusvaradeva"/>
<GlyphID id="6" name="anusvaradeva"/>`
	d, err := ParseDump(strings.NewReader(dump), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := d.Names[6], GlyphName("anusvaradeva"); got != want {
		t.Errorf("Names[6] = %q, want %q", got, want)
	}
}

func TestParseDumpMultiInput(t *testing.T) {
	dump := `<Substitution in="kadeva,radeva" out="krdeva"/>`
	_, err := ParseDump(strings.NewReader(dump), nil)
	if !errors.Is(err, ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParseDumpDuplicateSequence(t *testing.T) {
	dump := `<map code="0x915" name="kadeva"/>
<map code="0x915" name="kadeva"/>`
	d, err := ParseDump(strings.NewReader(dump), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(d.Equivalents["kadeva"]); got != 1 {
		t.Errorf("got %d alternatives, want 1", got)
	}
}
