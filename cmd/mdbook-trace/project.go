package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdtrace/internal/book"
	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/pipeline"
)

// project is a book directory on disk.
type project struct {
	root string
	src  string
	cfg  config.Config
	book *book.Book
}

// loadProject reads book.toml (if any), the trace configuration and the
// chapters listed in SUMMARY.md. Without a book.toml the directory itself
// is the source directory.
func loadProject(root, configPath string) (*project, error) {
	p := &project{root: root, src: root, cfg: config.Default()}

	manifest := filepath.Join(root, "book.toml")
	if _, err := os.Stat(manifest); err == nil {
		m, err := config.LoadBookToml(manifest)
		if err != nil {
			return nil, err
		}
		p.src = filepath.Join(root, filepath.FromSlash(m.Src))
		p.cfg = m.Trace
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", manifest, err)
	}

	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		p.cfg = cfg
	}

	b, err := book.LoadDir(p.src)
	if err != nil {
		return nil, err
	}
	p.book = b
	return p, nil
}

func (p *project) run(ctx context.Context) (*pipeline.Result, error) {
	orch := pipeline.NewOrchestrator(p.cfg, stderrLogger(),
		pipeline.WithWorkers(settings.RenderWorkers),
		pipeline.WithSourceRoot(p.root),
	)
	return orch.Run(ctx, p.book)
}

func bookDir(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "trace configuration file (.toml, .yaml, .json, .jsonc); overrides book.toml")
}
