package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/embed"
	"github.com/xxxsen/docqa/internal/lexical"
	"github.com/xxxsen/docqa/internal/pipeline"
	"github.com/xxxsen/docqa/internal/search"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

type hashEmbedder struct{}

func (hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 16)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[h.Sum32()%16]++
		}
		out[i] = vec
	}
	return out, nil
}

func (hashEmbedder) ModelName() string { return "hash-embed" }

type fixedGenerator struct{ answer string }

func (g fixedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.answer, nil
}

func newTestRouter(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := embed.NewClient(hashEmbedder{}, embed.NewCache(nil, ""), embed.ClientOptions{BatchDelay: 1})
	store := vectorstore.NewMemory()
	lexIndex := lexical.NewIndex(nil, "")
	orch := pipeline.NewOrchestrator(
		pipeline.NewFetcher(0),
		client,
		embed.NewCache(nil, ""),
		store,
		lexIndex,
		search.NewVectorSearcher(client, store, 0.12),
		nil,
		ai.NewSynthesizer(fixedGenerator{answer: "the answer"}, "test-model", 0),
		pipeline.Options{HybridSearch: true, QuestionDelay: time.Millisecond, UpsertDelay: time.Millisecond},
	)

	engine := gin.New()
	RegisterRoutes(&engine.RouterGroup, RouterDeps{
		Run: NewRunHandler(orch),
		Health: NewHealthHandler(HealthConfig{
			GenerateModel: "test-model",
			EmbedModel:    "hash-embed",
			HybridSearch:  true,
		}, embed.NewCache(nil, ""), lexIndex),
		APIKey: apiKey,
	})
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRun_RequiresAuthWhenConfigured(t *testing.T) {
	engine := newTestRouter(t, "secret")

	rec := doJSON(t, engine, "POST", "/run", "", `{"documents":"http://x","questions":["q"]}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, engine, "POST", "/run", "wrong", `{"documents":"http://x","questions":["q"]}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRun_RejectsInvalidRequests(t *testing.T) {
	engine := newTestRouter(t, "")

	rec := doJSON(t, engine, "POST", "/run", "", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, "POST", "/run", "", `{"questions":["q"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, "POST", "/run", "", `{"documents":"http://x","questions":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, "POST", "/run", "", `{"documents":"http://x","questions":[""]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRun_AcceptsSingleDocumentString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("The grand prize for the chess tournament is five hundred dollars in cash money."))
	}))
	t.Cleanup(srv.Close)
	engine := newTestRouter(t, "")

	body := fmt.Sprintf(`{"documents":%q,"questions":["What is the grand prize?"]}`, srv.URL+"/doc.txt")
	rec := doJSON(t, engine, "POST", "/run", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		Answers []string `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Equal(t, []string{"the answer"}, parsed.Answers)
}

func TestRun_AlwaysOKOnPipelineFailure(t *testing.T) {
	engine := newTestRouter(t, "")

	body := `{"documents":["http://127.0.0.1:1/unreachable.txt"],"questions":["q1","q2"]}`
	rec := doJSON(t, engine, "POST", "/run", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		Answers []string `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Equal(t, []string{pipeline.AnswerIngestFailed, pipeline.AnswerIngestFailed}, parsed.Answers)
}

func TestRun_VerboseIncludesDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("The grand prize for the chess tournament is five hundred dollars in cash money."))
	}))
	t.Cleanup(srv.Close)
	engine := newTestRouter(t, "")

	body := fmt.Sprintf(`{"documents":[%q],"questions":["What is the grand prize?"],"verbose":true}`, srv.URL+"/doc.txt")
	rec := doJSON(t, engine, "POST", "/run", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		Answers   []string                  `json:"answers"`
		Documents []pipeline.DocumentInfo   `json:"documents"`
		Details   []pipeline.QuestionResult `json:"details"`
		Metadata  pipeline.RunMetadata      `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Len(t, parsed.Answers, 1)
	require.Len(t, parsed.Documents, 1)
	require.Len(t, parsed.Details, 1)
	require.Equal(t, "What is the grand prize?", parsed.Details[0].Question)
	require.Equal(t, 1, parsed.Metadata.Documents)
	require.Equal(t, 1, parsed.Metadata.Questions)
	require.Positive(t, parsed.Metadata.ChunksIndexed)
}

func TestHealth_ReportsEffectiveConfig(t *testing.T) {
	engine := newTestRouter(t, "secret")

	rec := doJSON(t, engine, "GET", "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		Status string       `json:"status"`
		Config HealthConfig `json:"config"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Equal(t, "healthy", parsed.Status)
	require.Equal(t, "test-model", parsed.Config.GenerateModel)
}

func TestDocumentList_UnmarshalForms(t *testing.T) {
	var single documentList
	require.NoError(t, json.Unmarshal([]byte(`"http://one"`), &single))
	require.Equal(t, documentList{"http://one"}, single)

	var many documentList
	require.NoError(t, json.Unmarshal([]byte(`["http://one","http://two"]`), &many))
	require.Len(t, many, 2)

	var bad documentList
	require.Error(t, json.Unmarshal([]byte(`123`), &bad))
}
