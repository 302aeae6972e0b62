package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/embed"
	"github.com/xxxsen/docqa/internal/lexical"
	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/query"
	"github.com/xxxsen/docqa/internal/search"
	"github.com/xxxsen/docqa/internal/textproc"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

// Fallback answers returned in place of a real one. The HTTP status
// stays 200 in every case so batch callers always get one answer per
// question.
const (
	AnswerIngestFailed = "Processing error. Please try again."
	AnswerNoChunks     = "Document processing failed. No text could be extracted."
	AnswerNotFound     = "The requested information is not available in the provided documents."
)

const (
	defaultRetrievalLimit = 40
	defaultRerankTopN     = 12
	defaultContextChunks  = 8
	defaultQuestionDelay  = 200 * time.Millisecond
	defaultUpsertBatch    = 25
	defaultUpsertDelay    = 500 * time.Millisecond
)

type Options struct {
	RetrievalLimit int
	RerankTopN     int
	ContextChunks  int
	HybridSearch   bool
	QuestionDelay  time.Duration
	UpsertBatch    int
	UpsertDelay    time.Duration
	FetchWorkers   int
}

func (o *Options) fill() {
	if o.FetchWorkers <= 0 {
		o.FetchWorkers = 1
	}
	if o.RetrievalLimit <= 0 {
		o.RetrievalLimit = defaultRetrievalLimit
	}
	if o.RerankTopN <= 0 {
		o.RerankTopN = defaultRerankTopN
	}
	if o.ContextChunks <= 0 {
		o.ContextChunks = defaultContextChunks
	}
	if o.QuestionDelay <= 0 {
		o.QuestionDelay = defaultQuestionDelay
	}
	if o.UpsertBatch <= 0 {
		o.UpsertBatch = defaultUpsertBatch
	}
	if o.UpsertDelay <= 0 {
		o.UpsertDelay = defaultUpsertDelay
	}
}

// DocumentInfo summarizes one ingested document for verbose responses.
type DocumentInfo struct {
	Source string `json:"source"`
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

// QuestionResult carries per-question metadata for verbose responses.
type QuestionResult struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	ChunksUsed int      `json:"chunks_used"`
	Sources    []string `json:"sources"`
	ElapsedMS  int64    `json:"elapsed_ms"`
}

// RunMetadata summarizes one batch for verbose responses.
type RunMetadata struct {
	ChunksIndexed   int     `json:"chunks_indexed"`
	Documents       int     `json:"documents"`
	Questions       int     `json:"questions"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	AvgAnswerLength float64 `json:"avg_answer_length"`
	Pipeline        string  `json:"pipeline"`
	GenerateModel   string  `json:"generate_model"`
	EmbedModel      string  `json:"embed_model"`
}

// RunResult is the outcome of one document QA batch. Answers is always
// the same length as the incoming question list.
type RunResult struct {
	Answers   []string
	Documents []DocumentInfo
	Details   []QuestionResult
	Metadata  RunMetadata
}

// Orchestrator drives one request through the full pipeline: ingest
// every document, index all chunks, then answer the questions strictly
// in order.
type Orchestrator struct {
	fetcher  *Fetcher
	chunker  *textproc.Chunker
	embedder *embed.Client
	cache    *embed.Cache
	store    vectorstore.Store
	lexIndex *lexical.Index
	searcher *search.VectorSearcher
	reranker search.Reranker
	synth    *ai.Synthesizer
	opts     Options
}

func NewOrchestrator(
	fetcher *Fetcher,
	embedder *embed.Client,
	cache *embed.Cache,
	store vectorstore.Store,
	lexIndex *lexical.Index,
	searcher *search.VectorSearcher,
	reranker search.Reranker,
	synth *ai.Synthesizer,
	opts Options,
) *Orchestrator {
	opts.fill()
	return &Orchestrator{
		fetcher:  fetcher,
		chunker:  textproc.NewChunker(),
		embedder: embedder,
		cache:    cache,
		store:    store,
		lexIndex: lexIndex,
		searcher: searcher,
		reranker: reranker,
		synth:    synth,
		opts:     opts,
	}
}

type ingestedChunk struct {
	id      string
	payload model.ChunkPayload
}

// Run never fails the request: every error path collapses to a uniform
// fallback answer per question.
func (o *Orchestrator) Run(ctx context.Context, documents []string, questions []string) *RunResult {
	logger := logutil.GetLogger(ctx)
	runStart := time.Now()

	chunks, docs, err := o.ingest(ctx, documents)
	if err != nil {
		logger.Error("document ingestion failed", zap.Error(err))
		return o.finish(uniformResult(questions, AnswerIngestFailed, docs), documents, questions, 0, runStart)
	}
	if len(chunks) == 0 {
		logger.Warn("no text extracted from any document")
		return o.finish(uniformResult(questions, AnswerNoChunks, docs), documents, questions, 0, runStart)
	}
	if err := o.index(ctx, chunks); err != nil {
		logger.Error("chunk indexing failed", zap.Error(err))
		return o.finish(uniformResult(questions, AnswerIngestFailed, docs), documents, questions, 0, runStart)
	}

	docIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		docIDs = append(docIDs, d.DocID)
	}

	result := &RunResult{Documents: docs}
	for i, question := range questions {
		if i > 0 {
			if err := sleepCtx(ctx, o.opts.QuestionDelay); err != nil {
				for ; i < len(questions); i++ {
					result.Answers = append(result.Answers, ai.AnswerErrSentinel)
					result.Details = append(result.Details, QuestionResult{Question: questions[i], Answer: ai.AnswerErrSentinel})
				}
				break
			}
		}
		start := time.Now()
		detail, err := o.answerOne(ctx, question, docIDs)
		if err != nil {
			logger.Error("question failed", zap.String("question", question), zap.Error(err))
			detail = QuestionResult{Question: question, Answer: ai.AnswerErrSentinel}
		}
		detail.ElapsedMS = time.Since(start).Milliseconds()
		result.Answers = append(result.Answers, detail.Answer)
		result.Details = append(result.Details, detail)
	}
	return o.finish(result, documents, questions, len(chunks), runStart)
}

func (o *Orchestrator) finish(result *RunResult, documents []string, questions []string, chunks int, start time.Time) *RunResult {
	totalLen := 0
	for _, a := range result.Answers {
		totalLen += len(a)
	}
	avg := 0.0
	if len(result.Answers) > 0 {
		avg = float64(totalLen) / float64(len(result.Answers))
	}
	result.Metadata = RunMetadata{
		ChunksIndexed:   chunks,
		Documents:       len(documents),
		Questions:       len(questions),
		ElapsedSeconds:  time.Since(start).Seconds(),
		AvgAnswerLength: avg,
		Pipeline:        fmt.Sprintf("%d→%d→%d", o.opts.RetrievalLimit, o.opts.RerankTopN, o.opts.ContextChunks),
		GenerateModel:   o.synth.ModelName(),
		EmbedModel:      o.embedder.ModelName(),
	}
	return result
}

type docResult struct {
	chunks []ingestedChunk
	info   DocumentInfo
	err    error
}

func (o *Orchestrator) ingest(ctx context.Context, documents []string) ([]ingestedChunk, []DocumentInfo, error) {
	results := make([]docResult, len(documents))
	sem := make(chan struct{}, o.opts.FetchWorkers)
	var wg sync.WaitGroup
	for i, source := range documents {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, source string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = o.ingestOne(ctx, source)
		}(i, source)
	}
	wg.Wait()

	var all []ingestedChunk
	infos := make([]DocumentInfo, 0, len(documents))
	for _, r := range results {
		if r.err != nil {
			return nil, infos, r.err
		}
		all = append(all, r.chunks...)
		infos = append(infos, r.info)
	}
	return all, infos, nil
}

func (o *Orchestrator) ingestOne(ctx context.Context, source string) docResult {
	data, err := o.fetcher.Fetch(ctx, source)
	if err != nil {
		return docResult{err: err}
	}
	text, err := Extract(data, source)
	if err != nil {
		return docResult{err: err}
	}
	docID := DocID(source)
	pieces := o.chunker.Chunk(text, source)
	chunks := make([]ingestedChunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, ingestedChunk{
			id: ChunkID(docID, piece.ChunkIndex),
			payload: model.ChunkPayload{
				DocID:      docID,
				Source:     piece.Source,
				Text:       piece.Text,
				ChunkIndex: piece.ChunkIndex,
			},
		})
	}
	logutil.GetLogger(ctx).Info("document ingested", zap.String("source", source), zap.Int("chunks", len(pieces)))
	return docResult{chunks: chunks, info: DocumentInfo{Source: source, DocID: docID, Chunks: len(pieces)}}
}

func (o *Orchestrator) index(ctx context.Context, chunks []ingestedChunk) error {
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	payloads := make([]model.ChunkPayload, len(chunks))
	for i, c := range chunks {
		texts[i] = c.payload.Text
		ids[i] = c.id
		payloads[i] = c.payload
	}
	vectors, err := o.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if err := o.store.Init(ctx, len(vectors[0])); err != nil {
		return err
	}
	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{ID: c.id, Vector: vectors[i], Payload: c.payload}
	}
	for start := 0; start < len(points); start += o.opts.UpsertBatch {
		if start > 0 {
			if err := sleepCtx(ctx, o.opts.UpsertDelay); err != nil {
				return err
			}
		}
		end := start + o.opts.UpsertBatch
		if end > len(points) {
			end = len(points)
		}
		if err := o.store.Upsert(ctx, points[start:end]); err != nil {
			return err
		}
	}
	o.lexIndex.Build(texts, ids, payloads)

	logger := logutil.GetLogger(ctx)
	if err := o.cache.Flush(ctx); err != nil {
		logger.Warn("embedding cache flush failed", zap.Error(err))
	}
	if err := o.lexIndex.Flush(ctx); err != nil {
		logger.Warn("lexical index flush failed", zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) answerOne(ctx context.Context, question string, docIDs []string) (QuestionResult, error) {
	variants := query.Expand(question)
	candidates, err := o.searcher.SearchMulti(ctx, variants, docIDs, o.opts.RetrievalLimit)
	if err != nil {
		return QuestionResult{}, err
	}
	if o.opts.HybridSearch && o.lexIndex.Ready() {
		lexResults := o.lexIndex.Search(question, docIDs, o.opts.RetrievalLimit)
		candidates = search.FuseRRF(candidates, lexResults, o.opts.RetrievalLimit)
	}
	candidates = search.ApplyRerank(ctx, o.reranker, question, candidates, o.opts.RerankTopN)
	if len(candidates) == 0 {
		return QuestionResult{Question: question, Answer: AnswerNotFound}, nil
	}
	contextText := BuildContext(candidates, o.opts.ContextChunks)
	if contextText == "" {
		return QuestionResult{Question: question, Answer: AnswerNotFound}, nil
	}
	answer := o.synth.Answer(ctx, question, contextText)

	used := o.opts.ContextChunks
	if used > len(candidates) {
		used = len(candidates)
	}
	seen := make(map[string]struct{})
	var sources []string
	for _, c := range candidates[:used] {
		if _, ok := seen[c.Payload.Source]; ok {
			continue
		}
		seen[c.Payload.Source] = struct{}{}
		sources = append(sources, c.Payload.Source)
	}
	return QuestionResult{
		Question:   question,
		Answer:     answer,
		ChunksUsed: used,
		Sources:    sources,
	}, nil
}

func uniformResult(questions []string, answer string, docs []DocumentInfo) *RunResult {
	result := &RunResult{Documents: docs}
	for _, q := range questions {
		result.Answers = append(result.Answers, answer)
		result.Details = append(result.Details, QuestionResult{Question: q, Answer: answer})
	}
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
