package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the extractors and the configured sources",
	Long: `Sources prints the extractors in the order they are tried, followed by
the named sources that "ingest --all" processes.

Examples:
  kbpipe sources
  kbpipe sources --config kbpipe.yaml`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.LogFile = ""
	a, err := newApp(cfg, "")
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	printRoutes(out, a.router.Routes())
	fmt.Fprintln(out)
	printKnownSources(out, cfg)
	return nil
}

func printRoutes(w io.Writer, routes []source.Route) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Extractors")
	t.AppendHeader(table.Row{"#", "Name", "Handles"})
	for i, r := range routes {
		t.AppendRow(table.Row{i + 1, r.Name, r.Description})
	}
	t.Render()
}

func printKnownSources(w io.Writer, cfg config.Config) {
	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Sources")
	t.AppendHeader(table.Row{"Name", "URL", "Enabled"})
	for _, name := range names {
		src := cfg.Sources[name]
		enabled := "✓"
		if !src.IsEnabled() {
			enabled = "✗"
		}
		t.AppendRow(table.Row{name, src.URL, enabled})
	}
	t.Render()
}

// printSummary prints the per-source outcome of a run.
func printSummary(w io.Writer, s core.Summary) {
	if len(s.Sources) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Source", "Items", "Errors", ""})
		for _, src := range s.Sources {
			note := ""
			if src.Halted {
				note = "halted"
			}
			t.AppendRow(table.Row{src.Name, src.Items, src.Errors, note})
		}
		t.AppendFooter(table.Row{"Total", s.Items, s.Errors, ""})
		t.Render()
	}
	if s.Dropped > 0 {
		fmt.Fprintf(w, "✗ dropped items without source_url: %d\n", s.Dropped)
	}
	if s.Errors > 0 {
		stages := make([]string, 0, len(s.ByStage))
		for stage := range s.ByStage {
			stages = append(stages, string(stage))
		}
		sort.Strings(stages)
		for _, stage := range stages {
			fmt.Fprintf(w, "✗ %s errors: %d\n", stage, s.ByStage[core.Stage(stage)])
		}
	}
}
