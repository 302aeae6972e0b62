package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	// Returned verbatim when the primary answer call fails.
	AnswerErrSentinel = "Error processing the question. Please try again."

	compressThreshold = 300
	answerCacheSize   = 10000
	answerCacheTTL    = 2 * time.Hour
)

var (
	boldMarkup    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicMarkup  = regexp.MustCompile(`\*(.+?)\*`)
	headingMarkup = regexp.MustCompile(`(?m)^#+\s+`)
	listMarkup    = regexp.MustCompile(`(?m)^[-*]\s+`)
	tableMarkup   = regexp.MustCompile(`\|.+\|`)
)

// Synthesizer drafts a grounded answer from retrieved context and
// compresses it when the draft exceeds the length budget. Identical
// question/context pairs are memoized.
type Synthesizer struct {
	gen     IGenerator
	model   string
	timeout time.Duration
	cache   *expirable.LRU[string, string]
}

func NewSynthesizer(gen IGenerator, model string, timeout time.Duration) *Synthesizer {
	return &Synthesizer{
		gen:     gen,
		model:   model,
		timeout: timeout,
		cache:   expirable.NewLRU[string, string](answerCacheSize, nil, answerCacheTTL),
	}
}

func (s *Synthesizer) ModelName() string {
	return s.model
}

// Answer produces a 1-3 sentence answer grounded strictly in context.
// It never returns an error: a failed generation call yields the fixed
// error sentinel instead.
func (s *Synthesizer) Answer(ctx context.Context, question, contextText string) string {
	cacheKey := s.cacheKey(question, contextText)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached
	}
	prompt := fmt.Sprintf(`Provide brief, accurate answers using only the provided context.

You are an expert analyst reviewing documents to answer questions.

Rules:
- Use ONLY facts present in the Context below
- If information is missing, say "Not specified in the provided context"
- Do not infer or use external knowledge
- Quote exact numbers, dates, percentages when present
- Keep answer to 1-3 sentences maximum
- No markdown or formatting

Question: %s

Context:
%s

Answer:`, question, contextText)
	answer, err := s.generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Error("answer generation failed", zap.Error(err))
		return AnswerErrSentinel
	}
	answer = s.compressIfNeeded(ctx, question, stripMarkup(answer))
	s.cache.Add(cacheKey, answer)
	return answer
}

// compressIfNeeded issues a second call to shorten long answers; if that
// call fails the first two sentences of the draft are kept.
func (s *Synthesizer) compressIfNeeded(ctx context.Context, question, answer string) string {
	if len(answer) <= compressThreshold {
		return answer
	}
	prompt := fmt.Sprintf(`Extract only essential facts. Be extremely concise.

Compress to <= 100 words, keep only essential facts.

Q: %s
A: %s`, question, answer)
	compressed, err := s.generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Warn("answer compression failed, truncating", zap.Error(err))
		return firstSentences(answer, 2)
	}
	return compressed
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (string, error) {
	if s.gen == nil {
		return "", ErrUnavailable
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (s *Synthesizer) cacheKey(question, contextText string) string {
	hash := sha256.Sum256([]byte(question + "\x00" + contextText))
	return "answer:" + hex.EncodeToString(hash[:])
}

// stripMarkup removes markdown emphasis, headings, list markers and
// table rows the model may emit despite instructions.
func stripMarkup(answer string) string {
	answer = boldMarkup.ReplaceAllString(answer, "$1")
	answer = italicMarkup.ReplaceAllString(answer, "$1")
	answer = headingMarkup.ReplaceAllString(answer, "")
	answer = listMarkup.ReplaceAllString(answer, "")
	answer = tableMarkup.ReplaceAllString(answer, "")
	return strings.TrimSpace(answer)
}

func firstSentences(text string, n int) string {
	sentences := strings.Split(text, ". ")
	if len(sentences) <= n {
		return text
	}
	return strings.Join(sentences[:n], ". ") + "."
}
