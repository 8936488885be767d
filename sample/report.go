package sample

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/speedata/glyphmap/core"
	"github.com/speedata/glyphmap/fontmap"
	"github.com/speedata/glyphmap/ttx"
	"golang.org/x/text/unicode/runenames"
)

// Config describes one report run.
type Config struct {
	// TjsPath is the glyph usage dump of the font.
	TjsPath string
	// HelperPath is an optional symbolic dump of a helper font whose glyph
	// names suggest replacement sequences.
	HelperPath string
	// Seed makes the run sampling reproducible.
	Seed int64
	// Max is the per glyph sample capacity, DefaultMax when zero.
	Max int
	// Delim is the run delimiter glyph, DelimiterGlyph when zero.
	Delim ttx.GlyphID
}

type glyphImage struct {
	Hex   string
	File  string
	Class string
}

type glyphSection struct {
	Hex        string
	Seen       int
	Index      int
	Total      int
	PDFMapping string
	HelperLine string
	Sequences  []string
	Runs       [][]glyphImage
}

type reportData struct {
	FontID   string
	Helper   string
	Glyphs   []glyphSection
	ReportID string
}

var reportTmpl = template.Must(template.New("report").Parse(`<!doctype html>
<html>
<style>
body { background-color: #999999; }
* { box-sizing: border-box; }
.glyph-main { background-color: white; border: 1px solid red; }
.glyph-other { background-color: #888888; border: 1px dashed #111111; }
</style>
<body>
<h1>{{.FontID}}</h1>
{{if .Helper}}<p>Using helper font {{.Helper}}.</p>{{end}}
<dl>
{{range .Glyphs}}<hr>
<dt>
  <p>Glyph ID {{.Hex}} (Seen {{.Seen}} times; glyph {{.Index}} of {{.Total}})</p>
  <p>{{.PDFMapping}}</p>
  <p>{{.HelperLine}}</p>
  <ul>{{range .Sequences}}<li>{{.}}</li>
{{end}}</ul>
</dt>
{{range .Runs}}<dd>{{range .}}<img title="{{.Hex}}" src="{{.File}}" class="{{.Class}}"/>{{end}}</dd>
{{end}}{{end}}
</dl>
<footer><p>Report {{.ReportID}}</p></footer>
</body>
</html>
`))

// ReadTjs parses a glyph usage dump, one space separated run of 4 digit hex
// glyph ids per line.
func ReadTjs(r io.Reader) ([][]ttx.GlyphID, error) {
	var lines [][]ttx.GlyphID
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		line := make([]ttx.GlyphID, 0, len(fields))
		for _, f := range fields {
			id, err := strconv.ParseUint(f, 16, 16)
			if err != nil {
				return nil, fmt.Errorf("bad glyph id %q: %w", f, err)
			}
			line = append(line, ttx.GlyphID(id))
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Generate reads the usage dump named in cfg, samples runs and writes the
// HTML review page to w.
func Generate(cfg Config, w io.Writer) error {
	f, err := os.Open(cfg.TjsPath)
	if err != nil {
		return err
	}
	lines, err := ReadTjs(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfg.TjsPath, err)
	}

	// the PDF's own mapping lives next to the usage dump
	var pdfMap fontmap.Map
	cmapPath := strings.TrimSuffix(cfg.TjsPath, ".Tjs") + "-cmap.toml"
	if m, err := fontmap.Load(cmapPath); err == nil {
		pdfMap = m
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", cmapPath, err)
	}

	var helperNames map[ttx.GlyphID]ttx.GlyphName
	var helper ttx.Resolved
	if cfg.HelperPath != "" {
		hf, err := os.Open(cfg.HelperPath)
		if err != nil {
			return err
		}
		dump, err := ttx.ParseDump(hf, nil)
		hf.Close()
		if err != nil {
			return fmt.Errorf("helper font: %w", err)
		}
		helperNames = dump.Names
		helper = ttx.Resolve(dump.Equivalents)
	}

	delim := cfg.Delim
	if delim == 0 {
		delim = DelimiterGlyph
	}
	rv := NewReservoir(cfg.Max, rand.New(rand.NewSource(cfg.Seed)))
	for _, line := range lines {
		for _, run := range SplitRuns(line, delim) {
			rv.Add(run)
		}
	}

	fontID := strings.TrimSuffix(filepath.Base(cfg.TjsPath), ".Tjs")
	fontID = strings.TrimPrefix(fontID, "font-")

	data := reportData{
		FontID:   fontID,
		Helper:   cfg.HelperPath,
		ReportID: uuid.NewString(),
	}
	ids := rv.Glyphs()
	for i, id := range ids {
		sec := glyphSection{
			Hex:        fmt.Sprintf("%04X", uint16(id)),
			Seen:       rv.Seen(id),
			Index:      i + 1,
			Total:      len(ids),
			PDFMapping: pdfMapping(pdfMap, id),
		}
		sec.HelperLine, sec.Sequences = helperMapping(helperNames, helper, id)
		for _, run := range rv.Runs(id) {
			var imgs []glyphImage
			for _, g := range run {
				hex := fmt.Sprintf("%04X", uint16(g))
				class := "glyph-other"
				if g == id {
					class = "glyph-main"
				}
				imgs = append(imgs, glyphImage{
					Hex:   hex,
					File:  fmt.Sprintf("font-%s-glyph-%s.png", fontID, hex),
					Class: class,
				})
			}
			sec.Runs = append(sec.Runs, imgs)
		}
		data.Glyphs = append(data.Glyphs, sec)
	}

	core.Logger.Infof("report %s: %d glyphs from %d lines", data.ReportID, len(ids), len(lines))
	return reportTmpl.Execute(w, data)
}

func pdfMapping(m fontmap.Map, id ttx.GlyphID) string {
	repl, ok := m[id]
	if !ok || repl.Text == "" {
		return "Not mapped in the PDF."
	}
	return fmt.Sprintf("mapped in the PDF to %s (%s).", repl.Text, describeText(repl.Text))
}

func helperMapping(names map[ttx.GlyphID]ttx.GlyphName, helper ttx.Resolved, id ttx.GlyphID) (string, []string) {
	if names == nil {
		return "(no helper)", nil
	}
	name, ok := names[id]
	if !ok {
		return fmt.Sprintf("(no name in helper for %04X)", uint16(id)), nil
	}
	alts := helper[name]
	line := fmt.Sprintf("Mapped using the helper font to name %s:", name)
	if len(alts) > 1 {
		line += fmt.Sprintf(" (%d sequences)", len(alts))
	}
	var seqs []string
	for _, alt := range alts {
		text, _ := alt.Seq.Text()
		seqs = append(seqs, fmt.Sprintf("%s (%s)", text, describeText(text)))
	}
	return line, seqs
}

// describeText renders each rune of a string as hex plus Unicode name.
func describeText(s string) string {
	var parts []string
	for _, r := range s {
		parts = append(parts, fmt.Sprintf("%04X (=%s)", r, runenames.Name(r)))
	}
	return strings.Join(parts, " followed by ")
}
