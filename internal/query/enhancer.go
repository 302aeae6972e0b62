package query

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxVariants      = 3
	splitPartMinLen  = 10
	longQueryWords   = 20
	maxCapTerms      = 5
	simplifiedMinLen = 5

	originalWeight   = 1.0
	splitWeight      = 0.7
	simplifiedWeight = 0.5
)

var (
	conjunctionSplit = regexp.MustCompile(`(?i)\s+and\s+|,\s*`)
	quotedPhrase     = regexp.MustCompile(`"([^"]+)"`)
	numericToken     = regexp.MustCompile(`\b\d+\.?\d*%?\b`)
)

// Variant is one weighted expansion of a user question.
type Variant struct {
	Text   string
	Weight float64
}

// Expand derives up to three weighted variants from one question: the
// original at full weight, compound-question splits, and a keyword
// simplification for very long questions. The original is always first.
func Expand(question string) []Variant {
	variants := []Variant{{Text: question, Weight: originalWeight}}

	lower := strings.ToLower(question)
	if strings.Contains(lower, " and ") || strings.Contains(lower, ", ") {
		parts := conjunctionSplit.Split(question, -1)
		if len(parts) > 1 && len(parts) <= 3 {
			for _, part := range parts {
				part = strings.TrimSpace(part)
				if len(part) > splitPartMinLen {
					variants = append(variants, Variant{Text: part, Weight: splitWeight})
				}
			}
		}
	}

	if len(strings.Fields(question)) > longQueryWords {
		if simplified := simplify(question); simplified != "" {
			variants = append(variants, Variant{Text: simplified, Weight: simplifiedWeight})
		}
	}

	if len(variants) > maxVariants {
		variants = variants[:maxVariants]
	}
	return variants
}

// simplify extracts quoted phrases, likely proper nouns (capped to avoid
// noise) and numeric tokens from a long question.
func simplify(question string) string {
	var keyTerms []string

	for _, m := range quotedPhrase.FindAllStringSubmatch(question, -1) {
		keyTerms = append(keyTerms, m[1])
	}

	caps := 0
	for _, word := range strings.Fields(question) {
		if caps >= maxCapTerms {
			break
		}
		runes := []rune(word)
		if len(runes) > 2 && unicode.IsUpper(runes[0]) {
			keyTerms = append(keyTerms, word)
			caps++
		}
	}

	keyTerms = append(keyTerms, numericToken.FindAllString(question, -1)...)

	if len(keyTerms) == 0 {
		return ""
	}
	simplified := strings.Join(keyTerms, " ")
	if simplified == question || len(simplified) <= simplifiedMinLen {
		return ""
	}
	return simplified
}
