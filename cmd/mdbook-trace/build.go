package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/dgallion1/mdtrace/internal/book"
)

var buildCmd = &cobra.Command{
	Use:   "build [book-dir]",
	Short: "Process a book directory and write the transformed pages",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	addConfigFlag(buildCmd)
	buildCmd.Flags().StringP("out", "o", "", "output directory (required)")
	_ = buildCmd.MarkFlagRequired("out")
}

func runBuild(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	outDir, _ := cmd.Flags().GetString("out")

	p, err := loadProject(bookDir(args), configPath)
	if err != nil {
		return err
	}
	res, err := p.run(cmd.Context())
	if err != nil {
		return err
	}

	summary, err := os.ReadFile(filepath.Join(p.src, book.SummaryFile))
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}
	if err := writeFile(outDir, book.SummaryFile, string(summary)); err != nil {
		return err
	}

	written := 0
	for _, ch := range res.Book.All() {
		if ch.Draft() {
			continue
		}
		if err := writeFile(outDir, ch.Path, ch.Content); err != nil {
			return err
		}
		written++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %d pages (%d traces) to %s\n",
		okColor.Sprint("done:"), written, res.Registry.TraceCount(), outDir)
	return nil
}

// writeFile atomically writes content to rel under dir.
func writeFile(dir, rel, content string) error {
	dest := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}
	if err := atomic.WriteFile(dest, strings.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
