package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/boe-sumario-crawler/internal/api"
	"github.com/JakeFAU/boe-sumario-crawler/internal/clock/system"
	appconfig "github.com/JakeFAU/boe-sumario-crawler/internal/config"
	collyfetcher "github.com/JakeFAU/boe-sumario-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
	"github.com/JakeFAU/boe-sumario-crawler/internal/id/uuid"
	"github.com/JakeFAU/boe-sumario-crawler/internal/logging"
	"github.com/JakeFAU/boe-sumario-crawler/internal/pipeline"
	"github.com/JakeFAU/boe-sumario-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/boe-sumario-crawler/internal/sink"
	"github.com/JakeFAU/boe-sumario-crawler/internal/theme"
)

// flagKeys maps ingest flags onto configuration keys.
var flagKeys = map[string]string{
	"year":          "catalog.year",
	"out":           "output.path",
	"gzip":          "output.gzip",
	"inline-text":   "text.inline",
	"truncate-text": "text.truncate",
	"max-texts":     "text.max_items",
	"sleep-day":     "throttle.day_delay",
	"sleep-text":    "throttle.item_delay",
	"postgres-dsn":  "postgres.dsn",
	"themes":        "themes.file",
	"metrics-addr":  "metrics.addr",
}

// newIngestCmd creates the 'ingest' subcommand.
func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Builds the dataset for one year",
		Long: `Fetches the daily summary for every date of --year, keeps the items
with a title, classifies them by theme and writes one JSON object per item.
With --inline-text the clean document text is attached, preferring the
structured XML and falling back to the HTML page.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appconfig.Load(viper.GetViper())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runIngest(cmd.Context(), cfg, logging.L)
		},
	}

	flags := cmd.Flags()
	flags.Int("year", 0, "year to crawl, e.g. 2024 (required)")
	flags.String("out", "data/base.jsonl", "output JSONL path or gs://bucket/object")
	flags.Bool("gzip", false, "gzip the output and append .gz")
	flags.Bool("inline-text", false, "attach the clean document text to each item")
	flags.Int("truncate-text", 0, "keep at most N characters of text (0 keeps all)")
	flags.Int("max-texts", 0, "stop attaching text after N documents (0 means all)")
	flags.Duration("sleep-day", 100*time.Millisecond, "minimum spacing between daily summaries")
	flags.Duration("sleep-text", 200*time.Millisecond, "minimum spacing between document fetches")
	flags.String("postgres-dsn", "", "also insert rows into Postgres")
	flags.String("themes", "", "YAML theme table replacing the built-in one")
	flags.String("metrics-addr", "", "serve /metrics, /healthz and /v1/run on this address")

	bindFlags(viper.GetViper(), flags)
	return cmd
}

// bindFlags ties every flag in flagKeys to its configuration key on v.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// runIngest executes one ingest run described by cfg.
func runIngest(ctx context.Context, cfg appconfig.Config, base *zap.Logger) (err error) {
	runID := uuid.New().MustNewID()
	logger := logging.OrNop(base).With(zap.String("run_id", runID))
	run := api.NewRunState(runID, cfg.Catalog.Year, system.New().Now)
	var outputs []string
	defer func() { run.Finish(outputs, err) }()

	if cfg.Metrics.Addr != "" {
		stopServer := startOperatorServer(cfg.Metrics.Addr, run, logger.Named("api"))
		defer stopServer()
	}

	classifier, err := buildClassifier(cfg.Themes.File)
	if err != nil {
		return err
	}
	sinks, closeSinks, err := buildSinks(ctx, cfg, runID)
	if err != nil {
		return err
	}
	defer closeSinks()

	fetch := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTP.Timeout,
		MaxTries:     cfg.HTTP.MaxTries,
		BackoffBase:  cfg.HTTP.BackoffBase,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}, logger.Named("fetcher"))

	p := pipeline.New(fetch, logger.Named("pipeline"),
		pipeline.WithBaseURL(cfg.Catalog.BaseURL),
		pipeline.WithUserAgent(cfg.HTTP.UserAgent),
		pipeline.WithClassifier(classifier),
		pipeline.WithThrottles(
			ratelimit.New(ratelimit.Config{Lane: ratelimit.LaneDay, Interval: cfg.Throttle.DayDelay}),
			ratelimit.New(ratelimit.Config{Lane: ratelimit.LaneItem, Interval: cfg.Throttle.ItemDelay}),
		),
		pipeline.WithClock(system.New()),
	)

	logger.Info("Ingest started",
		zap.Int("year", cfg.Catalog.Year),
		zap.Bool("inline_text", cfg.Text.Inline),
	)

	run.SetStage(api.StageCatalog)
	items, err := p.BuildCatalog(ctx, cfg.Catalog.Year)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	run.SetItems(len(items))
	if len(items) == 0 {
		logger.Warn("No items found for the requested year", zap.Int("year", cfg.Catalog.Year))
	}

	if cfg.Text.Inline && len(items) > 0 {
		run.SetStage(api.StageText)
		items, err = p.AttachText(ctx, items, pipeline.AttachOptions{
			MaxItems: cfg.Text.MaxItems,
			Truncate: cfg.Text.Truncate,
		})
		if err != nil {
			return fmt.Errorf("attach text: %w", err)
		}
		run.SetTexts(countTexts(items))
	}

	run.SetStage(api.StageWrite)
	outputs, err = sink.Multi(ctx, items, sinks...)
	if err != nil {
		return err
	}
	logger.Info("Ingest finished",
		zap.Int("items", len(items)),
		zap.Strings("outputs", outputs),
	)
	return nil
}

func buildClassifier(path string) (*theme.Classifier, error) {
	if path == "" {
		return theme.New(theme.DefaultThemes()), nil
	}
	themes, err := theme.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return theme.New(themes), nil
}

// buildSinks returns the dataset sink followed by the optional Postgres sink,
// and a function releasing their clients.
func buildSinks(ctx context.Context, cfg appconfig.Config, runID string) ([]sink.Sink, func(), error) {
	var (
		sinks   []sink.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if sink.IsGCSURI(cfg.Output.Path) {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to create GCS client: %w", err)
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logging.L.Warn("Failed to close GCS client", zap.Error(err))
			}
		})
		gcs, err := sink.NewGCS(client, cfg.Output.Path, cfg.Output.Gzip)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, gcs)
	} else {
		file, err := sink.NewFile(cfg.Output.Path, cfg.Output.Gzip)
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, file)
	}

	if cfg.Postgres.DSN != "" {
		pg, err := sink.NewPostgres(ctx, sink.PostgresConfig{
			DSN:   cfg.Postgres.DSN,
			Table: cfg.Postgres.Table,
			RunID: runID,
		})
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, pg.Close)
		if err := pg.EnsureTable(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, pg)
	}
	return sinks, closeAll, nil
}

// startOperatorServer serves the api routes until the returned stop function
// is called.
func startOperatorServer(addr string, run *api.RunState, logger *zap.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(run, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}
}

func countTexts(items []gazette.Item) int {
	n := 0
	for i := range items {
		if items[i].Text != "" {
			n++
		}
	}
	return n
}
