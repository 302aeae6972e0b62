package pipeline

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"
)

// Document formats recognized by DetectFormat. Binary formats are
// decoded only when a decoder has been registered for them, so builds
// without the heavy parsers degrade with a clear error instead of
// garbage text.
const (
	FormatText = "text"
	FormatHTML = "html"
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

// DecodeFunc turns raw document bytes into plain text.
type DecodeFunc func(data []byte) (string, error)

var (
	decoderMu sync.RWMutex
	decoders  = map[string]DecodeFunc{
		FormatText: decodeText,
		FormatHTML: decodeHTML,
	}
)

// RegisterDecoder installs or replaces the decoder for a format.
func RegisterDecoder(format string, fn DecodeFunc) {
	decoderMu.Lock()
	defer decoderMu.Unlock()
	decoders[format] = fn
}

// DetectFormat sniffs magic bytes first and falls back to the source
// suffix, so a misnamed URL still decodes by content.
func DetectFormat(data []byte, source string) string {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatDOCX
	}
	head := strings.ToLower(string(data[:min(len(data), 512)]))
	if strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") {
		return FormatHTML
	}
	// Some origins prepend junk bytes before the PDF header.
	if bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF")) {
		return FormatPDF
	}
	lower := strings.ToLower(source)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return FormatPDF
	case strings.HasSuffix(lower, ".docx"):
		return FormatDOCX
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return FormatHTML
	}
	return FormatText
}

// Extract decodes document bytes into plain text according to the
// detected format.
func Extract(data []byte, source string) (string, error) {
	format := DetectFormat(data, source)
	decoderMu.RLock()
	fn, ok := decoders[format]
	decoderMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no decoder for format: %s, source: %s", format, source)
	}
	text, err := fn(data)
	if err != nil {
		return "", fmt.Errorf("decode %s document: %w", format, err)
	}
	return text, nil
}

func decodeText(data []byte) (string, error) {
	return string(data), nil
}

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<(script|style|noscript)\b.*?</\s*(script|style|noscript)\s*>`)
	htmlCommentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTagPattern    = regexp.MustCompile(`(?i)</?(p|div|br|li|ul|ol|h[1-6]|tr|table|section|article|header|footer)[^>]*>`)
	htmlTagPattern     = regexp.MustCompile(`(?s)<[^>]+>`)
	multiNewline       = regexp.MustCompile(`\n{3,}`)
)

func decodeHTML(data []byte) (string, error) {
	text := string(data)
	text = scriptBlockPattern.ReplaceAllString(text, " ")
	text = htmlCommentPattern.ReplaceAllString(text, " ")
	text = blockTagPattern.ReplaceAllString(text, "\n")
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
