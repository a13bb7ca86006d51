// Package textmatch provides Unicode-folded, word-boundary phrase matching.
// All keyword detection in wisdomgate goes through this package so that
// case, diacritics and punctuation never change a decision.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips combining marks and collapses every run of
// non-word characters into a single space. "Māori_Spiritual-Growth" folds
// to "maori spiritual growth".
func Fold(s string) string {
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	lower := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(lower))
	pendingSpace := false
	for _, r := range lower {
		if r == '’' || r == '‘' {
			r = '\''
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Contains reports whether folded text contains folded phrase on word
// boundaries. Both arguments must already be folded.
func Contains(folded, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+folded+" ", " "+phrase+" ")
}

// stemSuffixes are stripped longest first, at most once per word.
var stemSuffixes = []string{
	"izations", "ization", "isations", "isation", "ations", "ation", "ating", "ated", "ates", "ate",
	"ings", "ing", "ments", "ment", "ally", "al", "ed", "es", "s",
}

const minStem = 4

// Stem reduces a folded word to a crude prefix so that inflected forms
// share it: "appropriation" and "appropriating" both start with "appropri".
func Stem(word string) string {
	for _, suf := range stemSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= minStem {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}

// ContainsStems reports whether consecutive words of folded text start
// with the given stems, in order.
func ContainsStems(folded string, stems []string) bool {
	if len(stems) == 0 {
		return false
	}
	words := strings.Fields(folded)
	for i := 0; i+len(stems) <= len(words); i++ {
		hit := true
		for j, st := range stems {
			if !strings.HasPrefix(words[i+j], st) {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

// PhraseSet is an ordered, immutable set of folded phrases.
type PhraseSet struct {
	folded []string
	raw    []string
	stems  [][]string
}

// NewPhraseSet folds and deduplicates phrases, keeping declaration order.
// Empty phrases are dropped.
func NewPhraseSet(phrases ...string) PhraseSet {
	var ps PhraseSet
	seen := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		f := Fold(p)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		ps.folded = append(ps.folded, f)
		ps.raw = append(ps.raw, p)
		words := strings.Fields(f)
		stems := make([]string, len(words))
		for i, w := range words {
			stems[i] = Stem(w)
		}
		ps.stems = append(ps.stems, stems)
	}
	return ps
}

// Extend returns a new set with extra phrases appended. The receiver is unchanged.
func (ps PhraseSet) Extend(phrases ...string) PhraseSet {
	if len(phrases) == 0 {
		return ps
	}
	all := make([]string, 0, len(ps.raw)+len(phrases))
	all = append(all, ps.raw...)
	all = append(all, phrases...)
	return NewPhraseSet(all...)
}

// Match returns the first phrase (as declared) found in already-folded text.
func (ps PhraseSet) Match(folded string) (string, bool) {
	for i, p := range ps.folded {
		if Contains(folded, p) {
			return ps.raw[i], true
		}
	}
	return "", false
}

// MatchStems is Match with inflection tolerance: every phrase word matches
// any text word starting with its stem. Use it where a missed match is
// worse than a spurious one.
func (ps PhraseSet) MatchStems(folded string) (string, bool) {
	for i, stems := range ps.stems {
		if ContainsStems(folded, stems) {
			return ps.raw[i], true
		}
	}
	return "", false
}

// MatchText folds text and calls Match.
func (ps PhraseSet) MatchText(text string) (string, bool) {
	return ps.Match(Fold(text))
}

// Len returns the number of phrases.
func (ps PhraseSet) Len() int { return len(ps.folded) }

// Phrases returns a copy of the declared phrases.
func (ps PhraseSet) Phrases() []string {
	return append([]string(nil), ps.raw...)
}
