package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/classify"
	"github.com/gaurav-prasanna/kbpipe/core/extract"
	"github.com/gaurav-prasanna/kbpipe/core/fetch"
	"github.com/gaurav-prasanna/kbpipe/core/gdrive"
	"github.com/gaurav-prasanna/kbpipe/core/ingest"
	"github.com/gaurav-prasanna/kbpipe/core/logging"
	"github.com/gaurav-prasanna/kbpipe/core/normalize"
	"github.com/gaurav-prasanna/kbpipe/core/output"
	"github.com/gaurav-prasanna/kbpipe/core/source"
)

// app is the wired pipeline for one command invocation.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	router   *source.Router
	runner   *ingest.Runner
	resolver *gdrive.Resolver
	closeLog func() error
}

// loadConfig reads --config over the defaults and applies the persistent
// flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return cfg, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}
	return cfg, nil
}

func newApp(cfg config.Config, userID string) (*app, error) {
	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	lo, hi := cfg.RateLimiting.DelayRange()
	opts := fetch.Options{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Timeouts.Request(),
		DownloadTimeout:   cfg.Timeouts.Download(),
		MaxRetries:        cfg.Timeouts.MaxRetries,
		DelayMin:          lo,
		DelayMax:          hi,
		RequestsPerMinute: cfg.RateLimiting.RequestsPerMinute,
		RespectRobots:     cfg.Robots.IsRespected(),
		Logger:            logger,
	}
	web := fetch.New(opts)
	// API calls and user-supplied Drive links are not crawling.
	opts.RespectRobots = false
	direct := fetch.New(opts)

	tracker := core.NewTracker(logger, cfg.ErrorHandling.MaxErrorsPerSource, cfg.ErrorHandling.Continue())
	resolver := gdrive.New(direct, "", logger)
	deps := &source.Deps{
		Fetcher:    web,
		Cleaner:    extract.New(extract.Options{ExcludeSelectors: cfg.Extractors.GenericBlog.ExcludeSelectors}),
		Normalizer: normalize.New(),
		Classifier: classify.New(),
		Tracker:    tracker,
		Log:        logger,
		MinContent: cfg.ContentFiltering.MinContentLength,
		MaxContent: cfg.ContentFiltering.MaxContentLength,
		UserID:     userID,
	}
	router, err := source.NewDefaultRouter(source.Options{
		Deps:       deps,
		Config:     cfg,
		APIFetcher: direct,
		Downloader: web,
		Resolver:   resolver,
	})
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      logger,
		router:   router,
		runner:   ingest.New(router, tracker, output.NewCollector(logger), logger),
		resolver: resolver,
		closeLog: closeLog,
	}, nil
}

// Close removes downloaded files and closes the log file.
func (a *app) Close() {
	if err := a.resolver.Cleanup(); err != nil {
		a.log.Warn().Err(err).Msg("removing downloads")
	}
	_ = a.closeLog()
}

// finish writes the output document and prints the run summary.
func (a *app) finish(w io.Writer, path string, renderer core.Renderer, meta core.RunMeta) error {
	writer, err := output.New("")
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	written, err := a.runner.Write(writer, a.cfg.ResolveOutputPath(path), renderer, meta)
	if err != nil {
		return err
	}
	printSummary(w, a.runner.Summary())
	fmt.Fprintf(w, "✓ Written: %s\n", written)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
