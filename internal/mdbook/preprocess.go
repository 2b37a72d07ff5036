package mdbook

import (
	"context"
	"io"
	"log/slog"

	"github.com/dgallion1/mdtrace/internal/pipeline"
)

// Preprocess reads mdbook's input from r, runs both passes and writes the
// processed book to w. Nothing is written when the run fails.
func Preprocess(ctx context.Context, r io.Reader, w io.Writer, log *slog.Logger, workers int) error {
	mctx, b, err := ParseInput(r)
	if err != nil {
		return err
	}
	if !CompatibleVersion(mctx.MdbookVersion) {
		log.Warn("mdbook version mismatch",
			"built_against", SupportedVersion,
			"called_from", mctx.MdbookVersion)
	}

	cfg, err := mctx.TraceConfig()
	if err != nil {
		return err
	}

	run := pipeline.NewRun(mctx.Config.Book.Title)
	orch := pipeline.NewOrchestrator(cfg, log,
		pipeline.WithWorkers(workers),
		pipeline.WithSourceRoot(mctx.Root),
		pipeline.WithRun(run),
	)
	res, err := orch.Run(ctx, ToBook(mctx.Config.Book.Title, b))
	if err != nil {
		return err
	}

	Apply(b, res.Book)
	return WriteBook(w, b)
}
