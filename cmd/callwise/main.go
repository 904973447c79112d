// Command callwise ingests sales-call transcripts and answers questions
// about them. See `callwise --help` for subcommands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/callwise/callwise/pkg/config"
	"github.com/callwise/callwise/pkg/llm"
	"github.com/callwise/callwise/pkg/pipeline/ingest"
	"github.com/callwise/callwise/pkg/pipeline/reason"
	"github.com/callwise/callwise/pkg/store"
	"github.com/callwise/callwise/pkg/tool"
	"github.com/callwise/callwise/pkg/workflow"
	"github.com/callwise/callwise/pkg/workflow/observability"
)

var (
	cfgPath string
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "callwise",
		Short:         "Sales-call transcript ingestion and analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newIngestCmd(), newAskCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds the wired dependencies for one process. Everything is
// constructed here and passed down explicitly; nothing is process-global.
type app struct {
	cfg    config.Settings
	logger *slog.Logger
	docs   *store.SQLiteDocumentStore

	ingester *ingest.Engine
	asker    *reason.Engine
}

func buildApp() (*app, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	docs, err := store.NewSQLiteDocumentStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	source := store.NewDirSource(cfg.TranscriptDir)
	index := store.NewMemoryVectorIndex()
	entities := store.NewMemoryEntityStore()

	llmOpts := []llm.CLIOption{llm.WithTimeout(cfg.LLMTimeout)}
	if cfg.LLMModel != "" {
		llmOpts = append(llmOpts, llm.WithModel(cfg.LLMModel))
	}
	client := llm.NewCLIClient(llmOpts...)

	metrics := observability.NewMetricsRecorder()
	runOpts := []workflow.RunOption{
		workflow.WithMetrics(metrics),
		workflow.WithTracing(),
	}

	ingester, err := ingest.NewEngine(&ingest.Nodes{
		Source:       source,
		Docs:         docs,
		Index:        index,
		Entities:     entities,
		LLM:          client,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		LLMTimeout:   cfg.LLMTimeout,
	}, runOpts...)
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("build ingestion workflow: %w", err)
	}

	asker, err := reason.NewEngine(&reason.Nodes{
		LLM:                 client,
		Tools:               tool.Builtins(index, entities, docs),
		Metrics:             metrics,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxReplans:          cfg.MaxReplans,
		SynthesisBudget:     cfg.SynthesisBudget,
		LLMTimeout:          cfg.LLMTimeout,
	}, runOpts...)
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("build reasoning workflow: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		docs:     docs,
		ingester: ingester,
		asker:    asker,
	}, nil
}

func (a *app) Close() error {
	return a.docs.Close()
}
