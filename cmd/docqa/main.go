package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/embed"
	"github.com/xxxsen/docqa/internal/filestore"
	"github.com/xxxsen/docqa/internal/handler"
	"github.com/xxxsen/docqa/internal/job"
	"github.com/xxxsen/docqa/internal/lexical"
	"github.com/xxxsen/docqa/internal/middleware"
	"github.com/xxxsen/docqa/internal/pipeline"
	"github.com/xxxsen/docqa/internal/schedule"
	"github.com/xxxsen/docqa/internal/search"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

const (
	embeddingCacheKey = "embedding_cache.json"
	lexicalIndexKey   = "lexical_index.json"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docqa server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			_ = godotenv.Load()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()
	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("file_store", cfg.FileStore.Type),
	)

	store, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Args)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	cache := embed.NewCache(store, embeddingCacheKey)
	cache.Load(ctx)
	lexIndex := lexical.NewIndex(store, lexicalIndexKey)
	lexIndex.Load(ctx)

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Args)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedArgs)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	embedClient := embed.NewClient(
		ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel),
		cache,
		embed.ClientOptions{
			BatchSize:   cfg.Retrieval.EmbedBatchSize,
			BatchDelay:  time.Duration(cfg.Retrieval.EmbedBatchDelayMS) * time.Millisecond,
			MaxAttempts: cfg.Retrieval.EmbedMaxAttempts,
		},
	)

	vstore, err := vectorstore.New(cfg.VectorStore.Type, cfg.VectorStore.Args)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	searcher := search.NewVectorSearcher(embedClient, vstore, cfg.Retrieval.ScoreThreshold)

	var reranker search.Reranker
	if cfg.AI.RerankAPIKey != "" {
		reranker = search.NewCohereReranker(
			cfg.AI.RerankAPIKey,
			cfg.AI.RerankModel,
			cfg.AI.RerankEndpoint,
			time.Duration(cfg.AI.TimeoutSec)*time.Second,
		)
	}
	synth := ai.NewSynthesizer(
		ai.NewGenerator(aiProvider, cfg.AI.GenerateModel),
		cfg.AI.GenerateModel,
		time.Duration(cfg.AI.TimeoutSec)*time.Second,
	)

	orch := pipeline.NewOrchestrator(
		pipeline.NewFetcher(0),
		embedClient,
		cache,
		vstore,
		lexIndex,
		searcher,
		reranker,
		synth,
		pipeline.Options{
			RetrievalLimit: cfg.Retrieval.Limit,
			RerankTopN:     cfg.Retrieval.RerankTopN,
			ContextChunks:  cfg.Retrieval.ContextChunks,
			HybridSearch:   cfg.Retrieval.HybridEnabled(),
			QuestionDelay:  time.Duration(cfg.Retrieval.QuestionDelayMS) * time.Millisecond,
			FetchWorkers:   cfg.Retrieval.Workers,
		},
	)

	deps := handler.RouterDeps{
		Run: handler.NewRunHandler(orch),
		Health: handler.NewHealthHandler(handler.HealthConfig{
			GenerateModel:  cfg.AI.GenerateModel,
			EmbedModel:     cfg.AI.EmbedModel,
			EmbedDim:       cfg.AI.EmbedDimension(),
			VectorStore:    cfg.VectorStore.Type,
			RetrievalLimit: cfg.Retrieval.Limit,
			RerankTopN:     cfg.Retrieval.RerankTopN,
			ContextChunks:  cfg.Retrieval.ContextChunks,
			ScoreThreshold: cfg.Retrieval.ScoreThreshold,
			HybridSearch:   cfg.Retrieval.HybridEnabled(),
			RerankEnabled:  reranker != nil,
		}, cache, lexIndex),
		APIKey:     cfg.APIKey,
		RateWindow: time.Duration(cfg.RateWindowMS) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewStateFlushJob(cache, lexIndex), cfg.StateFlushCron); err != nil {
		return fmt.Errorf("schedule state flush: %w", err)
	}
	scheduler.Start(sigCtx)

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	logutil.GetLogger(ctx).Info("server stopping...")
	scheduler.Stop()
	if err := cache.Flush(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache flush failed", zap.Error(err))
	}
	if err := lexIndex.Flush(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("lexical index flush failed", zap.Error(err))
	}
	return nil
}
