// Package devanagari rewrites Devanagari text from the visual order found in
// PDF content streams back into logical Unicode order. Fonts place the vowel
// sign I before the consonant cluster it belongs to and render a leading RA +
// VIRAMA as a repha above the following cluster, so extracted text carries
// both marks on the wrong side of their cluster.
package devanagari

import "regexp"

// Sentinel markers used in glyph replacement texts. MarkSucc after a mark
// says the mark belongs to the succeeding cluster, MarkPrec before a repha
// says it belongs to the preceding cluster. The numeric codes appear in
// replacement code sequences.
const (
	MarkSucc = "<CCsucc>"
	MarkPrec = "<CCprec>"

	SuccCode rune = 1
	PrecCode rune = -1
)

var (
	// Vowel sign I before a cluster of basic consonants moves behind it.
	reMatraI = regexp.MustCompile(`ि(([क-ह]्)*[क-ह])`)
	// A repha after a cluster, including any combining marks that follow
	// the cluster, moves in front of it.
	reRepha = regexp.MustCompile(`(([क-ह]्)*[क-ह][^क-ह]*)र्`)

	// Marked variants cover the extended consonant range with optional
	// nukta and only fire on the sentinel markers.
	reMatraIMarked = regexp.MustCompile(`(.)` + MarkSucc + `(([क-हक़-य़]़?्)*[क-हक़-य़]़?)`)
	reRephaMarked  = regexp.MustCompile(`(([क-हक़-य़]़?्)*[क-हक़-य़ऋ][^क-हक़-य़ऋ]*)र्` + MarkPrec)
)

// Normalize reorders visually ordered Devanagari text into logical order. It
// repeats both rewrites until the string no longer changes, so marks travel
// across nested clusters.
func Normalize(s string) string {
	for {
		next := reMatraI.ReplaceAllString(s, `${1}ि`)
		next = reRepha.ReplaceAllString(next, `र्${1}`)
		if next == s {
			return s
		}
		s = next
	}
}

// NormalizeMarked reorders text in which the moving marks carry explicit
// sentinel markers. A marker survives the rewrite only when no cluster is
// there to absorb it; callers strip leftovers.
func NormalizeMarked(s string) string {
	for {
		next := reMatraIMarked.ReplaceAllString(s, `${2}${1}`)
		next = reRephaMarked.ReplaceAllString(next, `र्${1}`)
		if next == s {
			return s
		}
		s = next
	}
}
