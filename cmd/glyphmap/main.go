package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/speedata/glyphmap/actualtext"
	"github.com/speedata/glyphmap/core"
	"github.com/speedata/glyphmap/devanagari"
	"github.com/speedata/glyphmap/fontdump"
	"github.com/speedata/glyphmap/fontmap"
	"github.com/speedata/glyphmap/glyphpng"
	"github.com/speedata/glyphmap/pdfread"
	"github.com/speedata/glyphmap/sample"
	"github.com/speedata/glyphmap/tjdump"
	"github.com/speedata/glyphmap/ttx"
	"github.com/speedata/optionparser"
	"go.uber.org/zap/zapcore"
)

func dothings() error {
	var (
		verbose  bool
		quiet    bool
		decorate bool
		helper   string
		seed     = "0"
		size     = "0"
	)
	op := optionparser.NewOptionParser()
	op.Banner = "Usage: glyphmap [options] command [arguments]"
	op.On("--verbose", "Print debug messages", &verbose)
	op.On("--quiet", "Only print warnings and errors", &quiet)
	op.On("--decorate", "Wrap ActualText in font name and slant markers (annotate)", &decorate)
	op.On("--helper NAME", "Symbolic dump of a helper font (report)", &helper)
	op.On("--seed NUM", "Random seed for run sampling (report)", &seed)
	op.On("--size NUM", "Pixel size of the glyph images (glyphpng)", &size)
	op.Command("dumptjs", "Write glyph usage dumps and cmap mappings for each font in a PDF")
	op.Command("annotate", "Write a PDF with ActualText spans from the replacement maps")
	op.Command("resolve", "Resolve a symbolic font dump and print the glyph sequences")
	op.Command("report", "Write an HTML review page for a glyph usage dump")
	op.Command("validate", "Check replacement maps and write canonical copies")
	op.Command("tocsv", "Combine replacement maps into a CSV table on stdout")
	op.Command("fromcsv", "Convert a CSV table back into a replacement map")
	op.Command("glyphpng", "Render each glyph of a font into a PNG file")
	op.Command("fontdump", "Print symbolic dump records for a font")
	op.Command("normalize", "Normalize Devanagari text from stdin to stdout")
	err := op.Parse()
	if err != nil {
		return err
	}
	if verbose {
		core.SetLogLevel(zapcore.DebugLevel)
	} else if quiet {
		core.SetLogLevel(zapcore.WarnLevel)
	}

	if len(op.Extra) == 0 {
		op.Help()
		return nil
	}
	args := op.Extra[1:]
	switch op.Extra[0] {
	case "dumptjs":
		if len(args) != 2 {
			return fmt.Errorf("usage: glyphmap dumptjs <in.pdf> <mapsdir>")
		}
		return dumpTjs(args[0], args[1])
	case "annotate":
		if len(args) != 3 {
			return fmt.Errorf("usage: glyphmap annotate <in.pdf> <mapsdir> <out.pdf>")
		}
		return annotate(args[0], args[1], args[2], decorate)
	case "resolve":
		if len(args) != 1 {
			return fmt.Errorf("usage: glyphmap resolve <font.ttx>")
		}
		return resolve(args[0])
	case "report":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: glyphmap report <font.Tjs> [out.html]")
		}
		n, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("--seed: %w", err)
		}
		out := ""
		if len(args) == 2 {
			out = args[1]
		}
		return report(args[0], out, helper, n)
	case "validate":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: glyphmap validate <in.toml|dir> [outdir]")
		}
		outdir := ""
		if len(args) == 2 {
			outdir = args[1]
		}
		return validate(args[0], outdir)
	case "tocsv":
		if len(args) == 0 {
			return fmt.Errorf("usage: glyphmap tocsv <map.toml>...")
		}
		return toCSV(args)
	case "fromcsv":
		if len(args) != 2 {
			return fmt.Errorf("usage: glyphmap fromcsv <in.csv> <out.toml>")
		}
		return fromCSV(args[0], args[1])
	case "glyphpng":
		if len(args) != 2 {
			return fmt.Errorf("usage: glyphmap glyphpng <font.ttf> <outdir>")
		}
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("--size: %w", err)
		}
		_, err = glyphpng.RenderFont(args[0], args[1], n)
		return err
	case "fontdump":
		if len(args) != 1 {
			return fmt.Errorf("usage: glyphmap fontdump <font.ttf>")
		}
		return fontdump.DumpFile(args[0], os.Stdout)
	case "normalize":
		return normalize()
	default:
		op.Help()
	}
	return nil
}

func dumpTjs(pdffile, dir string) error {
	doc, err := pdfread.Open(pdffile)
	if err != nil {
		return err
	}
	return tjdump.Dump(doc, dir)
}

func annotate(pdffile, dir, outfile string, decorate bool) error {
	doc, err := pdfread.Open(pdffile)
	if err != nil {
		return err
	}
	n, err := actualtext.Annotate(doc, dir, actualtext.Options{Decorate: decorate})
	if err != nil {
		return err
	}
	core.Logger.Infof("annotated %d text operations", n)
	return doc.SaveFile(outfile)
}

func resolve(ttxfile string) error {
	f, err := os.Open(ttxfile)
	if err != nil {
		return err
	}
	defer f.Close()
	dump, err := ttx.ParseDump(f, nil)
	if err != nil {
		return err
	}
	resolved := ttx.Resolve(dump.Equivalents)
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, string(name))
	}
	sort.Strings(names)
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, name := range names {
		alts := resolved[ttx.GlyphName(name)]
		parts := make([]string, len(alts))
		for i, alt := range alts {
			parts[i] = alt.Seq.String()
		}
		fmt.Fprintf(w, "%s: %s\n", name, strings.Join(parts, " | "))
	}
	return nil
}

func report(tjsfile, outfile, helper string, seed int64) error {
	if outfile == "" {
		outfile = strings.TrimSuffix(tjsfile, ".Tjs") + ".html"
	}
	f, err := os.Create(outfile)
	if err != nil {
		return err
	}
	cfg := sample.Config{
		TjsPath:    tjsfile,
		HelperPath: helper,
		Seed:       seed,
	}
	if err := sample.Generate(cfg, f); err != nil {
		f.Close()
		return err
	}
	core.Logger.Infof("wrote %s", outfile)
	return f.Close()
}

func validate(in, outdir string) error {
	info, err := os.Stat(in)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		out := strings.TrimSuffix(in, ".toml") + ".fixed.toml"
		if outdir != "" {
			out = filepath.Join(outdir, filepath.Base(in))
		}
		return validateFile(in, out)
	}
	entries, err := os.ReadDir(in)
	if err != nil {
		return err
	}
	if outdir == "" {
		outdir = in
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".toml") || strings.HasSuffix(name, ".fixed.toml") {
			continue
		}
		out := filepath.Join(outdir, name)
		if outdir == in {
			out = filepath.Join(outdir, strings.TrimSuffix(name, ".toml")+".fixed.toml")
		}
		if err := validateFile(filepath.Join(in, name), out); err != nil {
			return err
		}
	}
	return nil
}

func validateFile(in, out string) error {
	m, err := fontmap.Load(in)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	fixed, err := fontmap.Validate(m)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if err := fontmap.Save(out, fixed); err != nil {
		return err
	}
	core.Logger.Infof("%s: %d glyphs ok, wrote %s", in, len(fixed), out)
	return nil
}

func toCSV(files []string) error {
	sources := make([]string, len(files))
	maps := make([]fontmap.Map, len(files))
	for i, name := range files {
		m, err := fontmap.Load(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		sources[i] = filepath.Base(name)
		maps[i] = m
	}
	w := bufio.NewWriter(os.Stdout)
	if err := fontmap.WriteCSV(w, sources, maps); err != nil {
		return err
	}
	return w.Flush()
}

func fromCSV(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	m, err := fontmap.ReadCSV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	fixed, err := fontmap.Validate(m)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	return fontmap.Save(out, fixed)
}

func normalize() error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for scanner.Scan() {
		fmt.Fprintln(w, devanagari.Normalize(scanner.Text()))
	}
	return scanner.Err()
}

func main() {
	if err := dothings(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
