package transcript

import (
	"strings"

	"github.com/voxkit-ai/voxkit/internal/transcript/phonetic"
)

// Corrector rewrites recognised speech against a fixed lexicon of domain
// terms, fixing the words the recogniser predictably mangles (product names,
// jargon, proper nouns the agent's knowledge bases talk about).
//
// Corrector is read-only after construction and safe for concurrent use.
type Corrector struct {
	matcher *phonetic.Matcher
	lexicon []string
	maxN    int
}

// NewCorrector builds a Corrector over the given lexicon. A nil or empty
// lexicon yields a Corrector whose Correct is the identity.
func NewCorrector(lexicon []string, opts ...phonetic.Option) *Corrector {
	maxN := 1
	for _, term := range lexicon {
		if n := len(strings.Fields(term)); n > maxN {
			maxN = n
		}
	}
	return &Corrector{
		matcher: phonetic.New(opts...),
		lexicon: lexicon,
		maxN:    maxN,
	}
}

// Correct returns text with lexicon matches substituted in place.
//
// The text is tokenised on whitespace and scanned left to right. At each
// position, n-gram windows from the widest lexicon term down to a single
// token are tested; the longest window that matches wins, so multi-word
// terms take precedence over partial single-word matches.
func (c *Corrector) Correct(text string) string {
	if c == nil || len(c.lexicon) == 0 {
		return text
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text
	}

	var output []string

	i := 0
	for i < len(tokens) {
		maxN := c.maxN
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			term, _, ok := c.matcher.Match(window, c.lexicon)
			if !ok {
				continue
			}
			output = append(output, strings.Fields(term)...)
			i += n
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	return strings.Join(output, " ")
}
