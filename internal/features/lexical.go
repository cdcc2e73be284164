package features

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "from": {},
	"want": {}, "would": {}, "like": {}, "have": {}, "about": {}, "into": {}, "more": {},
	"how": {}, "what": {}, "who": {}, "are": {}, "was": {}, "you": {}, "our": {}, "their": {},
	"to": {}, "of": {}, "in": {}, "on": {}, "at": {}, "is": {}, "an": {}, "as": {}, "be": {},
	"by": {}, "it": {}, "or": {}, "we": {}, "my": {}, "me": {}, "do": {}, "so": {}, "up": {},
	"if": {}, "no": {}, "us": {}, "am": {},
}

// minTokenRunes keeps two-letter topics such as "go", "ai" or "ml".
const minTokenRunes = 2

// LexicalSimilarity is the Jaccard index of the normalized token sets of a and b.
func LexicalSimilarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}

	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// Tokens splits text into NFKC-normalized, case-folded words, dropping short and stop words.
func Tokens(text string) map[string]struct{} {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	folded := cases.Fold().String(norm.NFKC.String(text))
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}
