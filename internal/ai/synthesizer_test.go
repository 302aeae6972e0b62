package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	responses []string
	calls     int
	fail      error
	prompts   []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.calls++
	if f.fail != nil {
		return "", f.fail
	}
	if len(f.responses) == 0 {
		return "answer", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func TestAnswer_ReturnsGeneratedText(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"The prize is $500."}}
	s := NewSynthesizer(gen, "test-model", 0)
	got := s.Answer(context.Background(), "What is the prize?", "The prize is $500.")
	require.Equal(t, "The prize is $500.", got)
	require.Contains(t, gen.prompts[0], "What is the prize?")
	require.Contains(t, gen.prompts[0], "Not specified in the provided context")
}

func TestAnswer_SentinelOnFailure(t *testing.T) {
	gen := &fakeGenerator{fail: fmt.Errorf("backend down")}
	s := NewSynthesizer(gen, "test-model", 0)
	got := s.Answer(context.Background(), "q", "ctx")
	require.Equal(t, AnswerErrSentinel, got)
}

func TestAnswer_SentinelWithoutGenerator(t *testing.T) {
	s := NewSynthesizer(nil, "test-model", 0)
	got := s.Answer(context.Background(), "q", "ctx")
	require.Equal(t, AnswerErrSentinel, got)
}

func TestAnswer_StripsMarkdown(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"**Bold** and *italic* answer"}}
	s := NewSynthesizer(gen, "test-model", 0)
	got := s.Answer(context.Background(), "q", "ctx")
	require.Equal(t, "Bold and italic answer", got)
}

func TestAnswer_CachesByQuestionAndContext(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"cached answer"}}
	s := NewSynthesizer(gen, "test-model", 0)
	first := s.Answer(context.Background(), "q", "ctx")
	second := s.Answer(context.Background(), "q", "ctx")
	require.Equal(t, first, second)
	require.Equal(t, 1, gen.calls)

	s.Answer(context.Background(), "q", "different ctx")
	require.Equal(t, 2, gen.calls)
}

func TestAnswer_CompressesLongAnswer(t *testing.T) {
	long := strings.Repeat("A very long sentence about the findings. ", 20)
	gen := &fakeGenerator{responses: []string{long, "Short version."}}
	s := NewSynthesizer(gen, "test-model", 0)
	got := s.Answer(context.Background(), "q", "ctx")
	require.Equal(t, "Short version.", got)
	require.Equal(t, 2, gen.calls)
	require.Contains(t, gen.prompts[1], "100 words")
}

func TestFirstSentences_Truncates(t *testing.T) {
	text := "One. Two. Three. Four."
	require.Equal(t, "One. Two.", firstSentences(text, 2))
	require.Equal(t, "One. Two. Three. Four.", firstSentences(text, 10))
}
