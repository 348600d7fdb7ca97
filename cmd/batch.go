package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bookmeta/internal/fetcher"
	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/reconcile"
)

var (
	batchFormat      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <file|->",
	Short: "Reconcile every ISBN in a CSV or JSON file",
	Long:  "Reads ISBNs from a CSV file (an \"isbn\" column or the first column) or a JSON array and prints one JSON line per ISBN.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrent = batchConcurrency
		}

		env, err := initEnv(cmd.Context(), "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrapf(err, "open %s", args[0])
			}
			defer f.Close() //nolint:errcheck
			r = f
		}

		format := batchFormat
		if format == "" {
			format = formatFromPath(args[0])
		}

		sum, err := runBatch(cmd.Context(), env.Engine, r, format, cfg.Batch.MaxConcurrent, cmd.OutOrStdout())
		zap.L().Info("batch complete",
			zap.Int("total", sum.Total),
			zap.Int("found", sum.Found),
			zap.Int("not_found", sum.NotFound),
			zap.Int("failed", sum.Failed),
		)
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFormat, "format", "", "input format: csv or json (default from file extension)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel lookups (default from config)")
	rootCmd.AddCommand(batchCmd)
}

type batchLine struct {
	ISBN    string            `json:"isbn"`
	Outcome reconcile.Outcome `json:"outcome,omitempty"`
	Book    *model.Book       `json:"book,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type batchSummary struct {
	Total    int
	Found    int
	NotFound int
	Failed   int
}

// isbnReconciler is the part of the engine batch needs.
type isbnReconciler interface {
	ReconcileByISBN(ctx context.Context, code string) (*reconcile.Result, error)
}

// runBatch reconciles every ISBN read from r with at most limit lookups in
// flight and writes one JSON line per ISBN to w. A failed lookup is recorded
// in its line and does not stop the run.
func runBatch(ctx context.Context, e isbnReconciler, r io.Reader, format string, limit int, w io.Writer) (batchSummary, error) {
	codes, errCh := fetcher.StreamISBNs(ctx, r, format)

	var (
		mu  sync.Mutex
		sum batchSummary
		enc = json.NewEncoder(w)
	)
	emit := func(line batchLine) error {
		mu.Lock()
		defer mu.Unlock()
		sum.Total++
		switch {
		case line.Error != "":
			sum.Failed++
		case line.Book != nil:
			sum.Found++
		default:
			sum.NotFound++
		}
		return enc.Encode(line)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for code := range codes {
		g.Go(func() error {
			line := batchLine{ISBN: code}
			res, err := e.ReconcileByISBN(gctx, code)
			if err != nil {
				zap.L().Warn("batch: lookup failed", zap.String("isbn", code), zap.Error(err))
				line.Error = err.Error()
			} else {
				line.Outcome = res.Outcome
				line.Book = res.Book
			}
			return emit(line)
		})
	}

	werr := g.Wait()
	if err := <-errCh; err != nil {
		return sum, eris.Wrap(err, "batch: read input")
	}
	if werr != nil {
		return sum, eris.Wrap(werr, "batch: write output")
	}
	return sum, nil
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return fetcher.FormatJSON
	}
	return fetcher.FormatCSV
}
