package textproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeForEmbedding_SmartPunctuation(t *testing.T) {
	got := NormalizeForEmbedding("“quoted” ‘text’ – dash — here")
	require.Equal(t, `"quoted" 'text' - dash - here`, got)
}

func TestNormalizeForEmbedding_ZeroWidthAndBOM(t *testing.T) {
	got := NormalizeForEmbedding("\uFEFFhello\u200B world\u200C")
	require.Equal(t, "hello world", got)
}

func TestNormalizeForEmbedding_CollapsesWhitespace(t *testing.T) {
	got := NormalizeForEmbedding("a    b\t\tc\n\n\n\n\nd")
	require.Equal(t, "a b c\n\nd", got)
}

func TestNormalizeForEmbedding_Empty(t *testing.T) {
	require.Equal(t, "", NormalizeForEmbedding(""))
	require.Equal(t, "", NormalizeForEmbedding("   \n\n  "))
}

func TestNormalizeForChunking_LineEndings(t *testing.T) {
	got := NormalizeForChunking("\uFEFFline1\r\nline2\x00")
	require.Equal(t, "line1\nline2", got)
}
