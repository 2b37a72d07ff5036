package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/mdbook"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mdbook-trace",
	Short: "mdbook preprocessor for trace footnotes and trace matrices",
	Long: `mdbook-trace numbers {{#trace target:record}} markers, renders them as
footnotes and fills {{#tracematrix target}} tables. Without a subcommand it
runs as an mdbook preprocessor on stdin and stdout.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPreprocess,
}

var settings config.Settings

func main() {
	rootCmd.Version = version

	rootCmd.AddCommand(supportsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)

	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().Int("workers", 0, "pages rendered in parallel, overrides RENDER_WORKERS")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		settings = config.LoadSettings()
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			parsed, err := config.ParseLevel(lvl)
			if err != nil {
				return err
			}
			settings.LogLevel = parsed
		}
		if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
			settings.RenderWorkers = n
		}
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("error:"), err)
		os.Exit(1)
	}
}

// stderrLogger is used outside the server: stdout may carry protocol output.
func stderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.LogLevel}))
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	return mdbook.Preprocess(cmd.Context(), os.Stdin, os.Stdout, stderrLogger(), settings.RenderWorkers)
}
