package ttx

import (
	"github.com/speedata/glyphmap/core"
)

// Resolved maps glyph names to their fully resolved alternatives. All
// sequences in a Resolved map are pure.
type Resolved map[GlyphName][]Alternative

// Resolve rewrites the relation graph until every remaining alternative
// consists of code points only. Name elements are replaced with the
// alternatives of the named glyph once those are themselves fully resolved,
// one pure alternative per candidate, so a name with several derivations
// multiplies the candidate set. Names that never become fully pure, for
// example because they sit on a dependency cycle without a code-only
// derivation, are dropped from the result.
func Resolve(eq Equivalents) Resolved {
	pending := make(map[GlyphName][]Alternative, len(eq))
	for name, alts := range eq {
		cp := make([]Alternative, len(alts))
		copy(cp, alts)
		pending[name] = cp
	}

	done := make(Resolved)
	// waiting maps a glyph name to the names whose refresh is blocked on it.
	waiting := make(map[GlyphName][]GlyphName)

	queue := make([]GlyphName, 0, len(pending))
	queued := make(map[GlyphName]bool, len(pending))
	enqueue := func(name GlyphName) {
		if _, ok := pending[name]; !ok {
			return
		}
		if queued[name] {
			return
		}
		queue = append(queue, name)
		queued[name] = true
	}
	for name := range pending {
		enqueue(name)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		queued[name] = false

		alts, blocked := refresh(name, pending[name], done, waiting)
		pending[name] = alts
		if blocked {
			continue
		}
		delete(pending, name)
		done[name] = alts
		for _, dep := range waiting[name] {
			enqueue(dep)
		}
		delete(waiting, name)
	}

	if len(pending) > 0 {
		core.Logger.Debugf("dropping %d glyph names without a code-only derivation", len(pending))
	}
	return done
}

// refresh substitutes resolved names into the alternatives of name until no
// leftmost name element refers to a finished glyph. It returns the new
// alternative set and whether any name element is still unresolved.
func refresh(name GlyphName, alts []Alternative, done Resolved, waiting map[GlyphName][]GlyphName) ([]Alternative, bool) {
	blocked := false
	for {
		next := make([]Alternative, 0, len(alts))
		progress := false
		for _, alt := range alts {
			idx := -1
			for i, el := range alt.Seq {
				if el.IsName() {
					idx = i
					break
				}
			}
			if idx < 0 {
				next = addAlternative(next, alt.Kind, alt.Seq)
				continue
			}
			dep := alt.Seq[idx].Name
			repl, ok := done[dep]
			if !ok {
				blocked = true
				waiting[dep] = appendDependent(waiting[dep], name)
				next = addAlternative(next, alt.Kind, alt.Seq)
				continue
			}
			progress = true
			for _, r := range repl {
				seq := make(Sequence, 0, len(alt.Seq)+len(r.Seq)-1)
				seq = append(seq, alt.Seq[:idx]...)
				seq = append(seq, r.Seq...)
				seq = append(seq, alt.Seq[idx+1:]...)
				next = addAlternative(next, alt.Kind, seq)
			}
		}
		alts = next
		if !progress {
			return alts, blocked
		}
		blocked = false
	}
}

func addAlternative(alts []Alternative, kind Relation, seq Sequence) []Alternative {
	for i, alt := range alts {
		if alt.Seq.Equal(seq) {
			if kind < alt.Kind {
				alts[i].Kind = kind
			}
			return alts
		}
	}
	return append(alts, Alternative{Kind: kind, Seq: seq})
}

func appendDependent(deps []GlyphName, name GlyphName) []GlyphName {
	for _, d := range deps {
		if d == name {
			return deps
		}
	}
	return append(deps, name)
}

// Best returns the preferred sequence for a glyph name. Direct mappings win
// over ligatures, ligatures win over substitutions, and within a kind the
// shorter sequence wins, with code point order as the final tie break.
func (r Resolved) Best(name GlyphName) (Sequence, bool) {
	alts, ok := r[name]
	if !ok || len(alts) == 0 {
		return nil, false
	}
	best := alts[0]
	for _, alt := range alts[1:] {
		if better(alt, best) {
			best = alt
		}
	}
	return best.Seq, true
}

func better(a, b Alternative) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if len(a.Seq) != len(b.Seq) {
		return len(a.Seq) < len(b.Seq)
	}
	for i := range a.Seq {
		if a.Seq[i].Code != b.Seq[i].Code {
			return a.Seq[i].Code < b.Seq[i].Code
		}
	}
	return false
}
