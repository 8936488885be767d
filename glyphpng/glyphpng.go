// Package glyphpng renders every glyph of a font into its own PNG file so
// the review report can show glyphs a broken font maps to nothing readable.
// The outlines are drawn in isolation, without shaping.
package glyphpng

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/speedata/glyphmap/core"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// DefaultSize is the pixel height of the rendered glyph boxes.
const DefaultSize = 64

// RenderFont renders all glyphs of the font file into dir, one PNG per
// glyph, named <stem>-glyph-<hex id>.png where stem is the font file name
// without extension. It returns the number of files written.
func RenderFont(fontfile, dir string, size int) (int, error) {
	if size <= 0 {
		size = DefaultSize
	}
	data, err := os.ReadFile(fontfile)
	if err != nil {
		return 0, err
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", fontfile, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	stem := filepath.Base(fontfile)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]

	var buf sfnt.Buffer
	ppem := fixed.I(size)
	metrics, err := f.Metrics(&buf, ppem, font.HintingNone)
	if err != nil {
		return 0, err
	}
	ascent := float32(metrics.Ascent) / 64
	height := (metrics.Ascent + metrics.Descent).Ceil() + 2

	written := 0
	for gid := 0; gid < f.NumGlyphs(); gid++ {
		segments, err := f.LoadGlyph(&buf, sfnt.GlyphIndex(gid), ppem, nil)
		if err != nil {
			core.Logger.Debugf("glyph %d: %v", gid, err)
			continue
		}
		img := render(segments, size+4, height, ascent)
		name := filepath.Join(dir, fmt.Sprintf("%s-glyph-%04X.png", stem, gid))
		if err := writePNG(name, img); err != nil {
			return written, err
		}
		written++
	}
	core.Logger.Infof("%s: rendered %d glyphs to %s", fontfile, written, dir)
	return written, nil
}

// render draws the outline segments onto a white canvas with the baseline at
// the font's ascent.
func render(segments sfnt.Segments, width, height int, ascent float32) image.Image {
	r := vector.NewRasterizer(width, height)
	const offX = 2
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			r.MoveTo(offX+f32(seg.Args[0].X), ascent+f32(seg.Args[0].Y))
		case sfnt.SegmentOpLineTo:
			r.LineTo(offX+f32(seg.Args[0].X), ascent+f32(seg.Args[0].Y))
		case sfnt.SegmentOpQuadTo:
			r.QuadTo(
				offX+f32(seg.Args[0].X), ascent+f32(seg.Args[0].Y),
				offX+f32(seg.Args[1].X), ascent+f32(seg.Args[1].Y))
		case sfnt.SegmentOpCubeTo:
			r.CubeTo(
				offX+f32(seg.Args[0].X), ascent+f32(seg.Args[0].Y),
				offX+f32(seg.Args[1].X), ascent+f32(seg.Args[1].Y),
				offX+f32(seg.Args[2].X), ascent+f32(seg.Args[2].Y))
		}
	}
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	r.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, mask, image.Point{}, draw.Over)
	return dst
}

func f32(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

func writePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
