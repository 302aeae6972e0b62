package lexical

import (
	"regexp"
	"strings"
)

// The exact same tokenizer runs at index build time and at query time;
// a mismatch breaks lexical retrieval silently.
var tokenPattern = regexp.MustCompile(`[a-z']{2,}|\d+(?:\.\d+)?%?|[€$£¥₹]?\d+[kKmMbB]?`)

// Tokenize case-folds text and extracts alphabetic runs of two or more
// characters (apostrophes allowed), integers and decimals with an
// optional % suffix, and currency-prefixed magnitude shorthand ("$5k").
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
