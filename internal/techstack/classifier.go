// Package techstack maps free-text technology mentions onto canonical
// technology names using a static lookup table.
//
// The table holds two kinds of entries: object entries (a canonical display
// name with keywords and an icon, see [Technology]) and alias entries that map
// a raw spelling onto a canonical identifier. Both resolve through
// [Classifier.Classify]. Lookups lowercase the token, strip a trailing ".js"
// and remove all whitespace, so "Node.js", "nodejs" and "node" resolve to the
// same identifier.
//
// Aliases that contain a space or a dot cannot survive whitespace
// tokenisation, so [Classifier.Phrases] scans whole utterances for them.
package techstack

import (
	"sort"
	"strings"
	"unicode"
)

// Classifier resolves tokens against the lookup table. It is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	index    map[string]string
	phrases  []phrase
	phonetic *phoneticIndex
}

// phrase is a multi-word or dotted spelling searched for as a substring.
type phrase struct {
	text      string
	canonical string
}

// Option is a functional option for [New].
type Option func(*Classifier)

// WithPhoneticFallback enables matching of near-miss spellings (as produced by
// speech-to-text) against single-word table keys. threshold is the minimum
// Jaro-Winkler score a phonetically aligned key must reach; values <= 0 use
// the default of 0.85.
func WithPhoneticFallback(threshold float64) Option {
	return func(c *Classifier) {
		c.phonetic = newPhoneticIndex(c.index, threshold)
	}
}

// New builds a Classifier over the static table.
func New(opts ...Option) *Classifier {
	c := &Classifier{index: make(map[string]string, len(aliases)+len(technologies))}

	// Object entries first so that aliases sharing a normalised key win.
	for _, t := range technologies {
		c.index[Normalize(t.Name)] = t.Name
	}
	for raw, canonical := range aliases {
		c.index[Normalize(raw)] = canonical
	}

	seen := make(map[string]bool)
	addPhrase := func(text, canonical string) {
		text = strings.ToLower(text)
		if seen[text] {
			return
		}
		seen[text] = true
		c.phrases = append(c.phrases, phrase{text: text, canonical: canonical})
	}
	for _, t := range technologies {
		if strings.ContainsAny(t.Name, " .") {
			addPhrase(t.Name, c.index[Normalize(t.Name)])
		}
	}
	for raw, canonical := range aliases {
		if !strings.ContainsAny(raw, " .") {
			continue
		}
		addPhrase(raw, canonical)
		if strings.Contains(raw, ".") {
			addPhrase(strings.ReplaceAll(raw, ".", " "), canonical)
		}
	}
	// Longest first so "digital marketing" is preferred over shorter overlaps.
	sort.Slice(c.phrases, func(i, j int) bool {
		if len(c.phrases[i].text) != len(c.phrases[j].text) {
			return len(c.phrases[i].text) > len(c.phrases[j].text)
		}
		return c.phrases[i].text < c.phrases[j].text
	})

	for _, o := range opts {
		o(c)
	}
	return c
}

// Normalize returns the lookup key for token: lowercased, trailing ".js"
// removed and all whitespace stripped.
func Normalize(token string) string {
	key := strings.ToLower(strings.TrimSpace(token))
	key = strings.TrimSuffix(key, ".js")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, key)
}

// Classify returns the canonical name for token and true, or "" and false
// when the table has no entry for it.
func (c *Classifier) Classify(token string) (string, bool) {
	key := Normalize(token)
	if key == "" {
		return "", false
	}
	if canonical, ok := c.index[key]; ok {
		return canonical, true
	}
	if c.phonetic != nil {
		return c.phonetic.match(key)
	}
	return "", false
}

// Phrases returns the canonical names of every multi-word or dotted alias
// found in text, ordered by first occurrence. Matches must sit on word
// boundaries. The result contains no duplicates.
func (c *Classifier) Phrases(text string) []string {
	lower := strings.ToLower(text)

	type hit struct {
		pos       int
		canonical string
	}
	var hits []hit
	for _, p := range c.phrases {
		if pos := indexWord(lower, p.text); pos >= 0 {
			hits = append(hits, hit{pos: pos, canonical: p.canonical})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var out []string
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if seen[h.canonical] {
			continue
		}
		seen[h.canonical] = true
		out = append(out, h.canonical)
	}
	return out
}

// indexWord returns the first index of needle in s where the match is not
// embedded in a longer word, or -1.
func indexWord(s, needle string) int {
	offset := 0
	for {
		i := strings.Index(s[offset:], needle)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return start
		}
		offset = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}
