package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/reconcile"
)

var (
	searchMax    int
	refreshForce bool
	refreshFile  string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <isbn>",
	Short: "Reconcile one ISBN across enabled sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "lookup")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.ReconcileByISBN(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrapf(err, "lookup %s", args[0])
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <title>",
	Short: "Search enabled sources by title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "lookup")
		if err != nil {
			return err
		}
		defer env.Close()

		books, err := env.Engine.ReconcileByTitle(cmd.Context(), args[0], cfg.Reconcile.ClampResults(searchMax))
		if err != nil {
			return eris.Wrapf(err, "search %q", args[0])
		}
		zap.L().Info("search complete", zap.String("query", args[0]), zap.Int("results", len(books)))
		if books == nil {
			books = []model.Book{}
		}
		return printJSON(cmd.OutOrStdout(), books)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <isbn>",
	Short: "Re-reconcile a stored book",
	Long:  "Re-reconciles an ISBN. With --stored, the fresh record is laid over the stored JSON record and the stored ISBN is kept.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "lookup")
		if err != nil {
			return err
		}
		defer env.Close()

		var stored *model.Book
		if refreshFile != "" {
			stored, err = readBookFile(refreshFile)
			if err != nil {
				return err
			}
		}

		return runRefresh(cmd, env, args[0], stored)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "maximum results (default from config)")
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "drop the cached record first")
	refreshCmd.Flags().StringVar(&refreshFile, "stored", "", "JSON file holding the stored record")
	rootCmd.AddCommand(lookupCmd, searchCmd, refreshCmd)
}

type refreshOutput struct {
	Result *reconcile.Result `json:"result"`
	Book   *model.Book       `json:"book,omitempty"`
}

func runRefresh(cmd *cobra.Command, env *appEnv, code string, stored *model.Book) error {
	if refreshForce {
		env.Cache.Delete(cmd.Context(), code)
	}

	res, err := env.Engine.RefreshExisting(cmd.Context(), code)
	if err != nil {
		return eris.Wrapf(err, "refresh %s", code)
	}

	out := refreshOutput{Result: res}
	if stored != nil && res.Found() {
		b := reconcile.ApplyRefresh(*stored, *res.Book)
		out.Book = &b
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func readBookFile(path string) (*model.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	var b model.Book
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	return &b, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
