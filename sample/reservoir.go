// Package sample picks representative text runs for every glyph of a font
// and renders them into an HTML review page. The page is the main tool for
// curating a replacement map by eye.
package sample

import (
	"math/rand"
	"sort"

	"github.com/speedata/glyphmap/ttx"
)

// DefaultMax is the number of sample runs kept per glyph.
const DefaultMax = 20

// DelimiterGlyph is the glyph id the fonts use for the space glyph, which
// separates runs.
const DelimiterGlyph ttx.GlyphID = 0x0003

// SplitRuns splits a line of glyph ids into runs on the delimiter glyph.
// Empty runs are dropped.
func SplitRuns(line []ttx.GlyphID, delim ttx.GlyphID) [][]ttx.GlyphID {
	var runs [][]ttx.GlyphID
	var cur []ttx.GlyphID
	for _, id := range line {
		if id == delim {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, id)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// A Reservoir keeps a bounded sample of the runs each glyph occurs in,
// together with the total occurrence counts. Sampling deviates slightly from
// textbook reservoir sampling: a full reservoir only replaces a slot when the
// random index lands inside it and the run is not already present, which
// biases mildly towards early and distinct runs. That bias is fine for a
// review page and keeps results reproducible for a given source.
type Reservoir struct {
	max  int
	rng  *rand.Rand
	seen map[ttx.GlyphID]int
	runs map[ttx.GlyphID][][]ttx.GlyphID
}

// NewReservoir creates a reservoir with the given per glyph capacity. The
// random source must be seeded by the caller so reports are reproducible.
func NewReservoir(max int, rng *rand.Rand) *Reservoir {
	if max <= 0 {
		max = DefaultMax
	}
	return &Reservoir{
		max:  max,
		rng:  rng,
		seen: make(map[ttx.GlyphID]int),
		runs: make(map[ttx.GlyphID][][]ttx.GlyphID),
	}
}

// Add records one run for every glyph it contains.
func (rv *Reservoir) Add(run []ttx.GlyphID) {
	for _, id := range run {
		rv.seen[id]++
		r := rv.runs[id]
		if len(r) < rv.max {
			if !containsRun(r, run) {
				rv.runs[id] = append(r, run)
			}
			continue
		}
		m := rv.rng.Intn(rv.seen[id])
		if m < rv.max && !containsRun(r, run) {
			r[m] = run
		}
	}
}

func containsRun(runs [][]ttx.GlyphID, run []ttx.GlyphID) bool {
	for _, r := range runs {
		if len(r) != len(run) {
			continue
		}
		same := true
		for i := range r {
			if r[i] != run[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// Seen returns the occurrence count of a glyph.
func (rv *Reservoir) Seen(id ttx.GlyphID) int { return rv.seen[id] }

// Runs returns the sampled runs of a glyph.
func (rv *Reservoir) Runs(id ttx.GlyphID) [][]ttx.GlyphID { return rv.runs[id] }

// Glyphs returns all glyph ids ordered by descending occurrence count, count
// ties broken by descending id.
func (rv *Reservoir) Glyphs() []ttx.GlyphID {
	ids := make([]ttx.GlyphID, 0, len(rv.seen))
	for id := range rv.seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if rv.seen[ids[i]] != rv.seen[ids[j]] {
			return rv.seen[ids[i]] > rv.seen[ids[j]]
		}
		return ids[i] > ids[j]
	})
	return ids
}
