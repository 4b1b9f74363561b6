package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/isdmx/coderunner/chat"
	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/logger"
	"github.com/isdmx/coderunner/sandbox"
)

var (
	languageFlag string
	jsonFlag     bool
)

var runCmd = &cobra.Command{
	Use:   "run [file|-]",
	Short: "Execute one program and print the result",
	Long: `Execute a source file (or stdin when the file is "-" or omitted) in a
fresh sandbox. The language is taken from --language or guessed from the file
extension. The command exits with the program's exit status.

Examples:
  coderunner run hello.py
  echo 'print(42)' | coderunner run --language python
  coderunner run --json main.cpp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Language identifier (see `coderunner languages`)")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the raw result as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level, logger.WithOutputPaths("stderr"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	code, err := readSource(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	language := languageFlag
	if language == "" {
		language, err = languageForFile(cfg, path)
		if err != nil {
			return err
		}
	}

	executor, err := sandbox.NewExecutor(log, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := executor.Execute(ctx, sandbox.ExecuteRequest{Language: language, Code: code})
	if err != nil {
		if jsonFlag {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), chat.RenderError(err).String())
		return &exitCodeError{code: 1}
	}

	if jsonFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), chat.Render(language, result).String())
	}

	return resultError(result)
}

// resultError turns a non-zero or missing exit status into an exitCodeError
func resultError(result sandbox.ExecuteResult) error {
	switch {
	case result.ExitCode == nil:
		return &exitCodeError{code: 1}
	case *result.ExitCode != 0:
		return &exitCodeError{code: *result.ExitCode}
	default:
		return nil
	}
}

func readSource(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}
	return string(data), nil
}

// languageForFile picks the language whose file extension matches path
func languageForFile(cfg *config.Config, path string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if path == "-" || ext == "" {
		return "", fmt.Errorf("--language is required when the language cannot be guessed from the file name")
	}

	recipes, err := sandbox.RecipesFromConfig(cfg.Languages)
	if err != nil {
		return "", err
	}
	for _, recipe := range recipes {
		if strings.EqualFold(recipe.FileExtension, ext) {
			return recipe.ID, nil
		}
	}
	return "", fmt.Errorf("no language for .%s files, use --language", ext)
}
