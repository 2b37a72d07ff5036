package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/mdtrace/internal/catalog"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
)

var checkCmd = &cobra.Command{
	Use:   "check [book-dir]",
	Short: "Validate markers and links and report target coverage",
	Long: `check processes a book without writing anything. It fails on unknown
targets, malformed markers and broken trace links, and prints, for every
target with a source document, the records no trace references.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	addConfigFlag(checkCmd)
	checkCmd.Flags().Bool("strict", false, "fail when a target has untraced records")
}

func runCheck(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	strict, _ := cmd.Flags().GetBool("strict")

	p, err := loadProject(bookDir(args), configPath)
	if err != nil {
		return err
	}
	p.cfg.CheckLinks = true

	res, err := p.run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d chapters, %d traces, links ok\n",
		okColor.Sprint("ok:"), len(res.Book.All()), res.Registry.TraceCount())

	complete := printCoverage(out, res.Coverage)
	if strict && !complete {
		return fmt.Errorf("untraced records found")
	}
	return nil
}

// printCoverage writes one block per target and reports whether every
// target is fully traced.
func printCoverage(w io.Writer, reports []catalog.Coverage) bool {
	complete := true
	for _, cov := range reports {
		status := okColor.Sprint("complete")
		if !cov.Complete() {
			status = warnColor.Sprint("incomplete")
			complete = false
		}
		fmt.Fprintf(w, "\n%s (%s): %d/%d records traced, %s\n",
			cov.Target, cov.Source, cov.Covered, cov.Records, status)
		for _, e := range cov.Uncovered {
			where := strings.Join(e.Breadcrumb, " > ")
			if e.Page > 0 {
				where = fmt.Sprintf("%s (page %d)", where, e.Page)
			}
			fmt.Fprintf(w, "  %s %s %s\n", warnColor.Sprint("untraced"), e.ID, dimColor.Sprint(where))
		}
		for _, id := range cov.Unlisted {
			fmt.Fprintf(w, "  %s %s %s\n", warnColor.Sprint("unlisted"), id, dimColor.Sprint("not found in source"))
		}
	}
	return complete
}
