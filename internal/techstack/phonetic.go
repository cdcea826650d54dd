package techstack

import (
	"sort"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.85

	// minPhoneticLen keeps short tokens ("go", "ts", "ui") out of fuzzy
	// matching; their metaphone codes collide with ordinary speech.
	minPhoneticLen = 4
)

// phoneticIndex holds precomputed Double Metaphone codes for single-word keys.
type phoneticIndex struct {
	threshold float64
	keys      []phoneticKey
}

type phoneticKey struct {
	key       string
	canonical string
	codes     [2]string
}

func newPhoneticIndex(index map[string]string, threshold float64) *phoneticIndex {
	if threshold <= 0 {
		threshold = defaultPhoneticThreshold
	}
	pi := &phoneticIndex{threshold: threshold}
	for key, canonical := range index {
		if len(key) < minPhoneticLen || !isAlpha(key) {
			continue
		}
		p, s := matchr.DoubleMetaphone(key)
		pi.keys = append(pi.keys, phoneticKey{key: key, canonical: canonical, codes: [2]string{p, s}})
	}
	// Sorted so ties resolve the same way on every run.
	sort.Slice(pi.keys, func(i, j int) bool { return pi.keys[i].key < pi.keys[j].key })
	return pi
}

// match returns the canonical name of the key that both shares a metaphone
// code with token and scores highest on Jaro-Winkler similarity.
func (pi *phoneticIndex) match(token string) (string, bool) {
	if len(token) < minPhoneticLen || !isAlpha(token) {
		return "", false
	}
	p, s := matchr.DoubleMetaphone(token)

	var (
		best      string
		bestScore float64
	)
	for _, k := range pi.keys {
		if !codesOverlap(p, s, k.codes) {
			continue
		}
		score := matchr.JaroWinkler(token, k.key, false)
		if score >= pi.threshold && score > bestScore {
			best, bestScore = k.canonical, score
		}
	}
	return best, best != ""
}

func codesOverlap(p, s string, codes [2]string) bool {
	for _, c := range codes {
		if c == "" {
			continue
		}
		if c == p || c == s {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
