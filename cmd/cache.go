package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/cache"
	"github.com/sells-group/bookmeta/internal/store"
)

var purgeAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Record cache maintenance",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries, or every entry in the namespace with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), "admin")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := purgeCache(cmd, st, purgeAll)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d cache entries\n", n)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), "admin")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("schema up to date",
			zap.String("driver", cfg.Store.Driver),
		)
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	cachePurgeCmd.Flags().BoolVar(&purgeAll, "all", false, "remove every entry in the configured namespace")
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd, migrateCmd)
}

func purgeCache(cmd *cobra.Command, rc store.RecordCache, all bool) (int, error) {
	if !all {
		n, err := rc.DeleteExpiredRecords(cmd.Context())
		if err != nil {
			return 0, eris.Wrap(err, "purge expired")
		}
		return n, nil
	}
	sc := cache.NewStoreCache(rc, cfg.Cache.Namespace, cfg.Cache.TTL())
	n, err := sc.Purge(cmd.Context())
	if err != nil {
		return 0, eris.Wrapf(err, "purge namespace %s", sc.Prefix())
	}
	return n, nil
}
