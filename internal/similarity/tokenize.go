// Package similarity implements the MinHash/LSH near-duplicate engine:
// tokenization into shingles, signature construction, the banded collision
// index, transitive cluster assembly, and the result sanity checks.
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultShingleSize is the word-shingle length used when none is configured.
const DefaultShingleSize = 3

// Tokenize converts text into a sorted set of shingles for MinHash input.
//
// Normalization: NFKC, lowercase, whitespace runs collapsed to one space,
// and every character that is not an ASCII alphanumeric, whitespace, or a
// hyphen stripped. Hyphens survive deliberately: YAML frontmatter keys and
// dashed markdown slugs are the payload of many small files, and stripping
// them once produced empty shingle sets and widespread missed duplicates.
//
// For inputs shorter than shingleSize words the result falls back, in
// order, to the individual words, to character shingles of the normalized
// text, and finally to the normalized text itself, so any non-empty input
// yields a non-empty set.
func Tokenize(text string, shingleSize int) []string {
	if shingleSize <= 0 {
		shingleSize = DefaultShingleSize
	}
	if text == "" {
		return nil
	}

	normalized := normalizeText(text)
	words := strings.Fields(normalized)

	set := map[string]struct{}{}
	switch {
	case len(words) >= shingleSize:
		for i := 0; i+shingleSize <= len(words); i++ {
			set[strings.Join(words[i:i+shingleSize], " ")] = struct{}{}
		}
	case len(words) >= 1:
		for _, w := range words {
			set[w] = struct{}{}
		}
	case len(normalized) >= shingleSize:
		for i := 0; i+shingleSize <= len(normalized); i++ {
			set[normalized[i:i+shingleSize]] = struct{}{}
		}
	default:
		set[normalized] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func normalizeText(text string) string {
	t := strings.ToLower(norm.NFKC.String(text))
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
