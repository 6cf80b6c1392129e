// Package cmd implements the CLI commands for kbpipe using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Persistent flag variables.
var (
	flagConfig   string
	flagLogLevel string
	flagLogFile  string
)

var rootCmd = &cobra.Command{
	Use:   "kbpipe",
	Short: "kbpipe turns blogs, guides, books and docs into knowledge-base JSON",
	Long: `kbpipe fetches technical content (blog posts, interview guides, PDF books,
Substack newsletters, GitHub docs, markdown files), strips the boilerplate,
converts it to Markdown, classifies it, and writes one JSON document ready
for knowledge-base import.

Usage:
  kbpipe ingest --all --gdrive <link>
  kbpipe extract <url|path> -o extracted_content.json
  kbpipe sources`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Configuration file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Append JSON logs to this file (overrides config)")
}

// Execute runs the root command. Ctrl-C cancels the run; commands write
// whatever they collected before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
