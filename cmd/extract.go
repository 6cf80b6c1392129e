package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/ingest"
)

var (
	extractOutput      string
	extractList        bool
	extractInteractive bool
	extractUserID      string
	extractFormat      string
)

var extractCmd = &cobra.Command{
	Use:   "extract [url|path]",
	Short: "Extract one URL, PDF, Drive link or markdown file",
	Long: `Extract runs a single source through the matching extractor and writes
the items as a flat JSON array.

Examples:
  kbpipe extract https://interviewing.io/blog
  kbpipe extract ./book.pdf -o book.json
  kbpipe extract https://github.com/owner/repo
  kbpipe extract --list-sources
  kbpipe extract --interactive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "extracted_content.json", "Output file")
	extractCmd.Flags().BoolVarP(&extractList, "list-sources", "l", false, "List the supported source types and exit")
	extractCmd.Flags().BoolVarP(&extractInteractive, "interactive", "i", false, "Prompt for the source")
	extractCmd.Flags().StringVar(&extractUserID, "user_id", "", "User ID stamped on every item (overrides config)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "json", "Output format: json, markdown or pdf")
}

func runExtract(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	renderer, err := selectRenderer(extractFormat, true)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if extractList {
		cfg.LogFile = ""
	}
	userID := firstNonEmpty(extractUserID, cfg.UserID)

	a, err := newApp(cfg, userID)
	if err != nil {
		return err
	}
	defer a.Close()

	if extractList {
		printRoutes(out, a.router.Routes())
		return nil
	}

	target := ""
	if len(args) == 1 {
		target = args[0]
	}
	if extractInteractive && target == "" {
		if target, err = prompt(cmd.InOrStdin(), out); err != nil {
			return err
		}
	}
	if target == "" {
		return cmd.Help()
	}

	route := a.router.Select(target)
	fmt.Fprintf(out, "Extracting %s with %s\n", target, route.Name)
	runErr := a.runner.RunOne(cmd.Context(), ingest.Source{Target: target})
	if runErr != nil {
		fmt.Fprintf(out, "✗ %v\n", runErr)
	}

	path := outputPath(extractOutput, renderer, cmd.Flags().Changed("output"))
	if err := a.finish(out, path, renderer, core.RunMeta{UserID: userID}); err != nil {
		return err
	}
	return extractFailure(target, runErr)
}

// extractFailure turns a source that could not be located (a Drive link
// with nothing to download, a missing file) into the command's error.
// Other failures were counted in the summary and are not fatal.
func extractFailure(target string, err error) error {
	if !ingest.Unresolved(err) {
		return nil
	}
	return fmt.Errorf("could not read %s: %w", target, err)
}

// prompt reads one source from r.
func prompt(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter a URL, Drive link or file path: ")
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", nil
	}
	return strings.TrimSpace(sc.Text()), nil
}
