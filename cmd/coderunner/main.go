package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isdmx/coderunner/config"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "coderunner",
	Short: "Run untrusted code in isolated sandboxes",
	Long: `coderunner runs untrusted programs in throwaway containers with CPU,
memory, process and network limits, and reports stdout, stderr and the exit code.

Configuration is read from config.yaml in the working directory or ./config,
and can be overridden with CODERUNNER_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if configFlag != "" {
			return os.Setenv(config.EnvConfigFile, configFlag)
		}
		return nil
	},
}

// exitCodeError carries a process exit status out of a command
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to the config file (overrides "+config.EnvConfigFile+")")
}

func main() {
	os.Exit(execute(rootCmd))
}

func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	return 1
}
