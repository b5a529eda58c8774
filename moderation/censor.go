// Package moderation masks configured words in outgoing message content.
// The command layer applies it before a message is appended or sent, so
// the stored log only ever contains the masked form.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// leet maps common character substitutions back to their alphabet
// counterparts so "s3cr3t" matches "secret".
var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// Censor replaces configured words in free text with a mask character.
// A Censor built from an empty word list is a no-op, which keeps the
// feature optional without conditional wiring at call sites.
type Censor struct {
	machine *goahocorasick.Machine
	mask    rune
}

// NewCensor builds the Aho-Corasick automaton over the normalized word
// list. Words that normalize to nothing are skipped.
func NewCensor(words []string, mask rune) (*Censor, error) {
	var patterns [][]rune
	for _, w := range words {
		if p := normalize([]rune(w), nil); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return &Censor{mask: mask}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Censor{machine: m, mask: mask}, nil
}

func (c *Censor) Enabled() bool {
	return c != nil && c.machine != nil
}

// Apply returns the content with every configured word masked. Spacing and
// punctuation of the original text are preserved.
func (c *Censor) Apply(content string) string {
	if !c.Enabled() {
		return content
	}

	original := []rune(content)
	positions := make([]int, 0, len(original))
	needle := normalize(original, func(i int) {
		positions = append(positions, i)
	})
	if len(needle) == 0 {
		return content
	}

	hits := c.machine.MultiPatternSearch(needle, false)
	for _, hit := range hits {
		start := hit.Pos
		end := start + len(hit.Word)
		if start < 0 || end > len(positions) {
			continue
		}
		for i := positions[start]; i <= positions[end-1]; i++ {
			original[i] = c.mask
		}
	}
	return string(original)
}

// normalize lowercases, folds leet substitutions and drops punctuation,
// whitespace and symbols. When keep is non-nil it receives the original
// index of every rune that survives, so matches in the normalized text can
// be mapped back onto the original.
func normalize(in []rune, keep func(i int)) []rune {
	out := make([]rune, 0, len(in))
	for i, r := range in {
		if folded, ok := leet[r]; ok {
			r = folded
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
		if keep != nil {
			keep(i)
		}
	}
	return out
}
