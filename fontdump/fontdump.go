// Package fontdump writes the glyph order and character map of a live font
// in the symbolic record format. The output serves as a helper dump when no
// external font tooling is around; ligature and substitution records still
// require a full table dump.
package fontdump

import (
	"fmt"
	"io"
	"os"

	"github.com/speedata/glyphmap/core"
	"github.com/speedata/textlayout/fonts"
	"github.com/speedata/textlayout/fonts/truetype"
)

// DumpFile loads a TrueType font and writes its records to w.
func DumpFile(filename string, w io.Writer) error {
	r, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer r.Close()
	core.Logger.Infof("Load font %s", filename)
	fnt, err := truetype.Load(r)
	if err != nil {
		return fmt.Errorf("loading %s: %w", filename, err)
	}
	return Dump(fnt[0].(*truetype.Font), w)
}

// Dump writes the GlyphID and map records of a font face.
func Dump(face *truetype.Font, w io.Writer) error {
	num := face.NumGlyphs
	if _, err := fmt.Fprintln(w, "<GlyphOrder>"); err != nil {
		return err
	}
	for gid := 0; gid < num; gid++ {
		if _, err := fmt.Fprintf(w, "  <GlyphID id=\"%d\" name=\"%s\"/>\n", gid, glyphName(face, fonts.GID(gid))); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "</GlyphOrder>"); err != nil {
		return err
	}

	cm, _ := face.Cmap()
	if _, err := fmt.Fprintln(w, "<cmap>"); err != nil {
		return err
	}
	// The cmap interface only offers lookups, so scan the basic plane plus
	// the supplementary planes that fonts of this kind actually populate.
	for r := rune(0x20); r <= 0x1FFFF; r++ {
		gid, ok := cm.Lookup(r)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "  <map code=\"0x%x\" name=\"%s\"/>\n", r, glyphName(face, gid)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "</cmap>")
	return err
}

// glyphName returns the post table name of a glyph, or a stable synthetic
// name when the font has none.
func glyphName(face fonts.Face, gid fonts.GID) string {
	if name := face.GlyphName(gid); name != "" {
		return name
	}
	return fmt.Sprintf("gid%05d", gid)
}
