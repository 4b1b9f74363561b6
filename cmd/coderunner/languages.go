package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/sandbox"
)

var languagesCmd = &cobra.Command{
	Use:     "languages",
	Aliases: []string{"langs"},
	Short:   "List supported languages",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		recipes, err := sandbox.RecipesFromConfig(cfg.Languages)
		if err != nil {
			return err
		}
		registry, err := sandbox.NewRegistry(recipes...)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LANGUAGE\tIMAGE\tKIND")
		for _, id := range registry.List() {
			recipe, _ := registry.Lookup(id)
			kind := "interpreted"
			if recipe.Compiled {
				kind = "compiled"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", recipe.ID, recipe.Image, kind)
		}
		return w.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(configCmd)
}
