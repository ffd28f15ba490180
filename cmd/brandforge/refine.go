package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/brandforge/internal/brands"
	"github.com/jonathan/brandforge/internal/config"
	"github.com/jonathan/brandforge/internal/conversations"
	"github.com/jonathan/brandforge/internal/db"
	"github.com/jonathan/brandforge/internal/jobs"
	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/storage"
)

var refineStartNew bool

var refineCmd = &cobra.Command{
	Use:   "refine <brand-slug> <message>",
	Short: "Refine a brand's design system through conversation",
	Long:  `Send one round of feedback about a brand's extracted design system to the model. Updated markup returned by the model replaces the stored design system. Each conversation allows a bounded number of rounds; use --new to start a fresh one.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRefine,
}

func init() {
	refineCmd.Flags().BoolVar(&refineStartNew, "new", false, "start a new conversation before refining")
	rootCmd.AddCommand(refineCmd)
}

func runRefine(cmd *cobra.Command, args []string) error {
	slug := args[0]
	message := strings.Join(args[1:], " ")

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

	jobStore := jobs.NewStore(database.Pool(), log)
	brandService := brands.NewService(database.Pool(), jobStore, store, log)

	brand, err := brandService.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if brand == nil {
		return fmt.Errorf("brand not found: %s", slug)
	}

	convStore := conversations.NewStore(database.Pool())
	refiner := conversations.NewService(convStore, brandService, store, model, log)

	if refineStartNew {
		if _, err := refiner.StartNew(ctx, brand.ID, conversations.DefaultMaxRounds); err != nil {
			return fmt.Errorf("failed to start conversation: %w", err)
		}
	}

	result, err := refiner.Refine(ctx, brand.ID, brand.Slug, message)
	if errors.Is(err, conversations.ErrConversationComplete) {
		return fmt.Errorf("%w; rerun with --new to start another", err)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Round %d/%d\n\n%s\n", result.RoundNumber, result.MaxRounds, result.Response)
	if result.UpdatedDesignSystem {
		fmt.Println("\nDesign system updated.")
	}
	if result.IsComplete {
		fmt.Println("Conversation complete; use --new for further refinement.")
	}
	return nil
}
