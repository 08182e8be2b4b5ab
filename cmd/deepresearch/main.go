package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/pipeline"
	"github.com/kpyopark/MMU-RAG-competition/internal/planner"
	"github.com/kpyopark/MMU-RAG-competition/internal/research"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
	"github.com/kpyopark/MMU-RAG-competition/internal/storage"
	"github.com/kpyopark/MMU-RAG-competition/internal/validator"
)

var (
	rootCmd = &cobra.Command{
		Use:   "deepresearch",
		Short: "AI-powered long-form research report generator",
	}
	configPath string
	outPath    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "report.md", "Path to write the assembled report")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runsCmd)
}

// initPipeline wires the full pipeline from configuration: Gemini client,
// SQLite run store, and the embedding-backed similarity scorer when an
// embedding model is configured.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.AI.APIKey == "" {
		return nil, nil, nil, fmt.Errorf("AI API key not configured (set GEMINI_API_KEY)")
	}

	client, err := llm.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var scorer validator.Scorer
	var embedder *validator.GeminiEmbedder
	if cfg.AI.EmbeddingModel != "" {
		embedder, err = validator.NewGeminiEmbedder(ctx, cfg.AI.APIKey, cfg.AI.EmbeddingModel)
		if err != nil {
			log.Printf("⚠️ Embedder unavailable, using lexical similarity: %v", err)
		} else {
			scorer = validator.NewEmbeddingScorer(embedder)
		}
	}

	cleanup := func() {
		store.Close()
		if embedder != nil {
			embedder.Close()
		}
	}

	return pipeline.New(cfg, client, store, scorer, pipeline.ConsoleSink{}), cfg, cleanup, nil
}

func writeReport(result *pipeline.Result) {
	if err := os.WriteFile(outPath, []byte(result.Document.Markdown), 0o644); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
	fmt.Printf("💾 Report written to %s\n", outPath)
	for _, flag := range result.Document.QualityFlags {
		fmt.Printf("⚠️  %s\n", flag)
	}
}

var generateCmd = &cobra.Command{
	Use:   "generate [query]",
	Short: "Research a query and generate a full cited report",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		ctx := context.Background()

		p, _, cleanup, err := initPipeline(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer cleanup()

		fmt.Printf("🚀 Generating report: %s\n", query)
		start := time.Now()
		result, err := p.Generate(ctx, query)
		if err != nil {
			log.Fatalf("Generation failed: %v", err)
		}

		fmt.Printf("⏱️  Finished in %v.\n", time.Since(start).Round(time.Second))
		writeReport(result)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume an interrupted report from its last completed section",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		p, _, cleanup, err := initPipeline(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer cleanup()

		fmt.Printf("🔄 Resuming run %s...\n", args[0])
		result, err := p.Resume(ctx, args[0])
		if err != nil {
			log.Fatalf("Resume failed: %v", err)
		}
		writeReport(result)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [query]",
	Short: "Research a query and print the planned report structure without generating it",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		ctx := context.Background()

		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.AI.APIKey == "" {
			log.Fatalf("AI API key not configured (set GEMINI_API_KEY)")
		}
		client, err := llm.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}

		catalog := report.NewSourceCatalog()
		researcher := research.New(client, cfg.Pipeline, cfg.AI.Temperature)
		questions := researcher.Plan(ctx, query)
		fmt.Printf("🔍 Researching: %d questions...\n", len(questions))
		highlights, err := researcher.Investigate(ctx, questions, catalog)
		if err != nil {
			log.Fatalf("Research failed: %v", err)
		}

		structure, err := planner.New(client, cfg.Pipeline, cfg.AI.Temperature).Plan(ctx, query, highlights)
		if err != nil {
			log.Fatalf("Planning failed: %v", err)
		}

		fmt.Printf("\n📋 Planned structure (~%d words, %d sources found):\n\n", structure.EstimatedWordCount, catalog.Len())
		for _, ch := range structure.Chapters {
			fmt.Printf("%d. %s — %s\n", ch.ChapterNumber, ch.Title, ch.Perspective)
			for _, sec := range ch.Sections {
				fmt.Printf("   %s %s (%d words)\n", sec.FullID(), sec.Title, sec.TargetWordCount)
			}
		}
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List resumable report runs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		runs, err := store.List(context.Background())
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("✅ No pending runs.")
			return
		}
		for _, r := range runs {
			fmt.Printf("%s  [%d/%d]  %s  (%s)\n", r.RunID, r.NextIndex, r.TotalSections, r.Query, r.UpdatedAt.Format(time.RFC3339))
		}
	},
}
