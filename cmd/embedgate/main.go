package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedgate/internal/ai"
	"github.com/xxxsen/embedgate/internal/config"
	"github.com/xxxsen/embedgate/internal/embedcache"
	"github.com/xxxsen/embedgate/internal/handler"
	"github.com/xxxsen/embedgate/internal/job"
	"github.com/xxxsen/embedgate/internal/schedule"
	"github.com/xxxsen/embedgate/internal/service"
	"github.com/xxxsen/embedgate/internal/vecstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "embedgate",
		Short: "embedding/chat gateway server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run embedgate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
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
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cfg *config.Config) error {
	chatProvider, err := ai.NewChatProvider(cfg.AI.Chat.Provider, cfg.AI.Chat.Data)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embed.Provider, cfg.AI.Embed.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	chatOpts := ai.ChatOptions{
		Temperature: cfg.AI.Chat.Temperature,
		MaxTokens:   cfg.AI.Chat.MaxTokens,
	}
	chatter := ai.NewChatter(chatProvider, cfg.AI.Chat.Model, chatOpts)
	if len(cfg.AI.Chat.Fallbacks) > 0 {
		entries := []ai.ChatterEntry{{Name: cfg.AI.Chat.Provider, Chatter: chatter}}
		for _, fb := range cfg.AI.Chat.Fallbacks {
			p, err := ai.NewChatProvider(fb.Provider, fb.Data)
			if err != nil {
				return fmt.Errorf("init chat fallback %s: %w", fb.Provider, err)
			}
			modelName := fb.Model
			if modelName == "" {
				modelName = cfg.AI.Chat.Model
			}
			entries = append(entries, ai.ChatterEntry{Name: fb.Provider, Chatter: ai.NewChatter(p, modelName, chatOpts)})
		}
		chatter = ai.NewGroupChatter(entries)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.Embed.Model)
	if len(cfg.AI.Embed.Fallbacks) > 0 {
		entries := []ai.EmbedderEntry{{Name: cfg.AI.Embed.Provider, Embedder: embedder}}
		for _, fb := range cfg.AI.Embed.Fallbacks {
			p, err := ai.NewEmbedProvider(fb.Provider, fb.Data)
			if err != nil {
				return fmt.Errorf("init embed fallback %s: %w", fb.Provider, err)
			}
			modelName := fb.Model
			if modelName == "" {
				modelName = cfg.AI.Embed.Model
			}
			entries = append(entries, ai.EmbedderEntry{Name: fb.Provider, Embedder: ai.NewEmbedder(p, modelName)})
		}
		embedder = ai.NewGroupEmbedder(entries)
	}
	if cfg.AI.Embed.CacheSize > 0 {
		embedder = embedcache.WrapLRU(embedder, cfg.AI.Embed.CacheSize,
			time.Duration(cfg.AI.Embed.CacheTTLMins)*time.Minute)
	}

	store, err := vecstore.New(cfg.VectorStore, cfg.AI.Embed.Dimension)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	embedService := service.NewEmbedService(embedder, store, cfg.AI.Embed.Dimension,
		time.Duration(cfg.AI.Embed.Timeout)*time.Second)
	chatService := service.NewChatService(chatter,
		time.Duration(cfg.AI.Chat.Timeout)*time.Second)

	router := handler.NewRouter(handler.RouterDeps{
		Embed:           handler.NewEmbedHandler(embedService),
		Chat:            handler.NewChatHandler(chatService),
		Admin:           handler.NewAdminHandler(embedService),
		APIKey:          cfg.APIKey,
		CORSAllowlist:   cfg.CORSAllowlist,
		RateLimitWindow: time.Duration(cfg.RateLimitMS) * time.Millisecond,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := schedule.NewRunner()
	if store != nil && cfg.Jobs.StoreStatsSpec != "" {
		if err := runner.Schedule(cfg.Jobs.StoreStatsSpec, job.NewStoreStatsJob(store)); err != nil {
			return fmt.Errorf("schedule store stats job: %w", err)
		}
	}
	runner.Start(ctx)
	defer runner.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	logutil.GetLogger(ctx).Info("http server listening",
		zap.String("addr", addr),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("chat_provider", cfg.AI.Chat.Provider),
		zap.String("embed_provider", cfg.AI.Embed.Provider),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
