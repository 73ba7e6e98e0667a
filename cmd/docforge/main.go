package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"docforge/internal/config"
	"docforge/internal/llm"
	"docforge/internal/logger"
	"docforge/internal/pipeline"
	"docforge/internal/quality"
	"docforge/internal/schema"
	"docforge/internal/storage"
	"docforge/internal/validator"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "docforge",
		Short:         "Schema-driven document generation with quality gating",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath  string
	dbPath      string
	reportPath  string
	metricsPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the SQLite database (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", "", "Write the pipeline report JSON to this path")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(runsCmd)
}

// app bundles what a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *storage.SQLiteStore
	metrics  *pipeline.Metrics
	pipeline *pipeline.Pipeline
}

// setup loads configuration, logging and storage. The model is only built
// when withModel is set so that offline commands work without API keys.
func setup(ctx context.Context, withModel bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Storage.Path, err)
	}

	a := &app{cfg: cfg, log: log, store: store, metrics: pipeline.NewMetrics()}
	if !withModel {
		return a, nil
	}

	model, err := llm.New(ctx, llm.Options{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.LLM.Provider, err)
	}
	log.Info("model ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	a.pipeline = pipeline.New(model,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithValidator(a.validator()),
		pipeline.WithThresholds(quality.Thresholds{
			MinReviewScore:  cfg.Quality.MinReviewScore,
			MinLength:       cfg.Quality.MinLength,
			MinHeadings:     cfg.Quality.MinHeadings,
			MinSectionChars: cfg.Quality.MinSectionChars,
		}),
	)
	return a, nil
}

func (a *app) validator() *validator.Validator {
	return validator.New(validator.WithMatchMode(validator.ParseMatchMode(a.cfg.Validation.HeadingMatch)))
}

func (a *app) close() {
	if a.metrics != nil && metricsPath != "" {
		if err := a.metrics.WriteTextfile(metricsPath); err != nil {
			a.log.Warn("failed to write metrics", "path", metricsPath, "error", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	a.log.Sync()
}

// input names where a command takes its schema and answers from. A
// stored schema is used when no file is given.
type input struct {
	schemaFile  string
	answersFile string
	name        string
}

func (in *input) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.schemaFile, "schema", "s", "", "Schema file (JSON or YAML)")
	cmd.Flags().StringVarP(&in.answersFile, "answers", "a", "", "Answers file (JSON or YAML)")
	cmd.Flags().StringVarP(&in.name, "name", "n", "", "Stored schema name (defaults to the schema's document name)")
}

// load resolves the schema, its storage name and the answers to use.
// Answers from a file are merged over the stored ones.
func (in *input) load(ctx context.Context, store storage.Store) (*schema.Schema, string, []schema.AnswerItem, error) {
	var (
		s   *schema.Schema
		err error
	)
	switch {
	case in.schemaFile != "":
		if s, err = schema.Load(in.schemaFile); err != nil {
			return nil, "", nil, err
		}
	case in.name != "":
		if s, err = store.GetSchema(ctx, in.name); err != nil {
			return nil, "", nil, err
		}
	default:
		return nil, "", nil, fmt.Errorf("either --schema or --name is required")
	}

	name := schemaName(in.name, s)
	answers, err := store.ListAnswers(ctx, name)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load stored answers: %w", err)
	}
	if in.answersFile != "" {
		fromFile, err := schema.LoadAnswers(in.answersFile)
		if err != nil {
			return nil, "", nil, err
		}
		answers = mergeAnswers(answers, fromFile)
	}
	return s, name, schema.FilterAnswered(answers), nil
}

func schemaName(explicit string, s *schema.Schema) string {
	if n := strings.TrimSpace(explicit); n != "" {
		return n
	}
	for _, candidate := range []string{s.DocumentName, s.DocumentType, s.TableTitle()} {
		if c := strings.TrimSpace(candidate); c != "" {
			return slug(c)
		}
	}
	return "default"
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// mergeAnswers overlays items on base by question text, keeping base order.
func mergeAnswers(base, items []schema.AnswerItem) []schema.AnswerItem {
	out := append([]schema.AnswerItem(nil), base...)
	index := make(map[string]int, len(out))
	for i, it := range out {
		index[it.Question] = i
	}
	for _, it := range items {
		if i, ok := index[it.Question]; ok {
			out[i] = it
			continue
		}
		index[it.Question] = len(out)
		out = append(out, it)
	}
	return out
}
