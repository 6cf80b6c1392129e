package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/ingest"
	"github.com/gaurav-prasanna/kbpipe/core/render"
	"github.com/gaurav-prasanna/kbpipe/core/source"
)

// Flag variables.
var (
	flagSource string
	flagAll    bool
	flagGDrive string
	flagTeamID string
	flagUserID string
	flagOutput string
	flagFormat string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the configured sources into a knowledge-base document",
	Long: `Ingest processes one source, every enabled source, and/or the book PDF,
and writes {"team_id": ..., "items": [...]} for knowledge-base import.

--source accepts a configured source name (see "kbpipe sources") or any URL
or file path. The book comes from --gdrive (or book.gdrive in the config);
when the Drive link cannot be read, book.local_path is used instead.

Examples:
  kbpipe ingest --all --gdrive https://drive.google.com/file/d/<id>/view
  kbpipe ingest --source interviewing_io_blog --team_id team1
  kbpipe ingest --source https://someone.substack.com --output substack.json
  kbpipe ingest --all --format markdown`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&flagSource, "source", "", "Source name, URL or file path")
	ingestCmd.Flags().BoolVar(&flagAll, "all", false, "Process every enabled source, then the book")
	ingestCmd.Flags().StringVar(&flagGDrive, "gdrive", "", "Google Drive link to the book PDF")
	ingestCmd.Flags().StringVar(&flagTeamID, "team_id", "", "Team ID written to the output (overrides config)")
	ingestCmd.Flags().StringVar(&flagUserID, "user_id", "", "User ID stamped on every item (overrides config)")
	ingestCmd.Flags().StringVar(&flagOutput, "output", "knowledge.json", "Output file")
	ingestCmd.Flags().StringVar(&flagFormat, "format", "json", "Output format: json, markdown or pdf")
}

// runIngest runs the fixed sources (or one source) plus the book, then writes
// the envelope once: fetch → clean → convert → classify → collect → write.
func runIngest(cmd *cobra.Command, _ []string) error {
	if flagAll && flagSource != "" {
		return errors.New("--source and --all are mutually exclusive")
	}
	if !flagAll && flagSource == "" && flagGDrive == "" {
		return errors.New("nothing to do: use --source, --all or --gdrive")
	}
	renderer, err := selectRenderer(flagFormat, false)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	meta := core.RunMeta{
		TeamID: firstNonEmpty(flagTeamID, cfg.TeamID),
		UserID: firstNonEmpty(flagUserID, cfg.UserID),
	}

	a, err := newApp(cfg, meta.UserID)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var fatal error
	switch {
	case flagAll:
		var sources []ingest.Source
		for _, s := range cfg.EnabledSources() {
			sources = append(sources, sourceFor(a.router, cfg, s.Name))
		}
		a.runner.Run(ctx, sources)
		link := firstNonEmpty(flagGDrive, cfg.Book.GDrive)
		if link != "" || cfg.Book.LocalPath != "" {
			fatal = a.runner.Book(ctx, link, cfg.Book.LocalPath)
		}
	case flagSource != "":
		_ = a.runner.RunOne(ctx, sourceFor(a.router, cfg, flagSource))
		if flagGDrive != "" {
			fatal = a.runner.Book(ctx, flagGDrive, cfg.Book.LocalPath)
		}
	default:
		fatal = a.runner.Book(ctx, flagGDrive, cfg.Book.LocalPath)
	}

	path := outputPath(flagOutput, renderer, cmd.Flags().Changed("output"))
	if err := a.finish(cmd.OutOrStdout(), path, renderer, meta); err != nil {
		return err
	}
	if fatal != nil {
		return fmt.Errorf("book could not be read: %w", fatal)
	}
	if ctx.Err() != nil {
		return errors.New("interrupted, partial output written")
	}
	return nil
}

// sourceFor turns a configured source name into its list URL and route;
// anything else is a URL or path for the router.
func sourceFor(router *source.Router, cfg config.Config, s string) ingest.Source {
	src, ok := cfg.Sources[s]
	if !ok {
		return ingest.Source{Target: s}
	}
	out := ingest.Source{Name: s, Target: src.URL}
	if _, ok := router.ByName(s); ok {
		out.Route = s
	}
	return out
}

// selectRenderer maps --format onto a renderer. flat selects the flat JSON
// array instead of the team envelope.
func selectRenderer(format string, flat bool) (core.Renderer, error) {
	switch strings.ToLower(format) {
	case "", "json":
		if flat {
			return render.NewFlatRenderer(), nil
		}
		return render.NewEnvelopeRenderer(), nil
	case "markdown", "md":
		return render.NewMarkdownRenderer(), nil
	case "pdf":
		return render.NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown format %q: use json, markdown or pdf", format)
	}
}

// outputPath swaps the default file's extension to match the renderer; an
// explicit --output is used as given.
func outputPath(path string, renderer core.Renderer, explicit bool) string {
	if explicit || filepath.Ext(path) == renderer.Extension() {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + renderer.Extension()
}
