package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	embedReplacer = strings.NewReplacer(
		"\uFEFF", "",
		"\u200B", "",
		"\u200C", "",
		"\u200D", "",
		"\u00A0", " ",
		"–", "-",
		"—", "-",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
	chunkReplacer = strings.NewReplacer(
		"\uFEFF", "",
		"\x00", "",
		"\r\n", "\n",
	)

	spaceRuns = regexp.MustCompile(` +`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
	tabRuns   = regexp.MustCompile(`\t+`)
)

// NormalizeForChunking does the minimal cleanup needed before structural
// splitting: byte-order marks, NUL bytes and CRLF line endings.
func NormalizeForChunking(raw string) string {
	return chunkReplacer.Replace(raw)
}

// NormalizeForEmbedding canonicalizes text before fingerprinting and
// embedding: strips zero-width characters, maps dash and smart-quote
// variants to ASCII, applies NFKC, replaces non-printable runes with a
// space and collapses whitespace runs. Empty input yields empty output.
func NormalizeForEmbedding(raw string) string {
	if raw == "" {
		return ""
	}
	text := embedReplacer.Replace(raw)
	text = norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	text = spaceRuns.ReplaceAllString(b.String(), " ")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = tabRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
