package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/brandforge/internal/config"
	"github.com/jonathan/brandforge/internal/db"
	"github.com/jonathan/brandforge/internal/documents"
	"github.com/jonathan/brandforge/internal/extraction"
	"github.com/jonathan/brandforge/internal/jobs"
	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/prompts"
	"github.com/jonathan/brandforge/internal/render"
	"github.com/jonathan/brandforge/internal/storage"
	"github.com/jonathan/brandforge/internal/templates"

	"github.com/jonathan/brandforge/internal/brands"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the job worker",
	Long:  `Start the job runner: poll the queue, claim jobs, and execute the extraction, template generation, and render pipelines until interrupted.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(&logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "brandforge",
	})

	ctx := cmd.Context()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	promptStore := prompts.NewStore(database.Pool())
	if err := promptStore.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed default prompts: %w", err)
	}

	store, err := storage.New(storage.Config{
		Provider:  cfg.StorageProvider,
		LocalPath: cfg.StorageLocalPath,
		S3: storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create storage provider: %w", err)
	}

	model, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer func() { _ = model.Close() }()

	fetcher := extraction.NewFetcher(log, cfg.ChromePath)
	extractor := extraction.NewService(fetcher, model, promptStore, store, log)
	templateGen := templates.NewService(model, promptStore, log)
	renderer := render.NewService(store, cfg.ChromePath, log)

	jobStore := jobs.NewStore(database.Pool(), log)
	brandService := brands.NewService(database.Pool(), jobStore, store, log)
	documentService := documents.NewService(database.Pool(), jobStore, store, log)

	runner := jobs.NewRunner(jobs.RunnerDeps{
		Store:     jobStore,
		Brands:    brandService,
		Documents: documentService,
		Extractor: extractor,
		Templates: templateGen,
		Renderer:  renderer,
		Storage:   store,
		Log:       log,
	}, jobs.RunnerConfig{
		Concurrency:  cfg.JobConcurrency,
		PollInterval: cfg.PollInterval,
	})

	runner.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	runner.Stop()
	return nil
}
