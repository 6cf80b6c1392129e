package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/kbpipe/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate or generate configuration files",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a configuration file",
	Long: `Validate loads a configuration file over the defaults and reports every
problem it finds: bad URLs, invalid regular expressions, negative limits.

Examples:
  kbpipe config validate kbpipe.yaml
  kbpipe --config kbpipe.json config validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Print the default configuration as YAML",
	Long: `Init prints the default configuration. Redirect it to a file and edit it.

Examples:
  kbpipe config init > kbpipe.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configValidateCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := flagConfig
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no configuration file given")
	}
	if _, err := config.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", path)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	b, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}
