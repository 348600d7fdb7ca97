package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/registry"
	"github.com/sells-group/bookmeta/internal/store"
)

var (
	seedFile      string
	seedOverwrite bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage configured catalog sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources in priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), "admin")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srcs, err := st.ListSources(cmd.Context())
		if err != nil {
			return err
		}
		return printSources(cmd.OutOrStdout(), srcs)
	},
}

var sourcesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the default sources or those in a YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := registry.DefaultSeed()
		if seedFile != "" {
			var err error
			seed, err = registry.LoadSeedFile(seedFile)
			if err != nil {
				return err
			}
		}

		st, err := openStore(cmd.Context(), "admin")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := registry.Apply(cmd.Context(), st, seed, seedOverwrite)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, skipped %d\n", res.Created, res.Updated, res.Skipped)
		return nil
	},
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

var sourcesPriorityCmd = &cobra.Command{
	Use:   "set-priority <name> <priority>",
	Short: "Change a source's priority (lower wins)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := strconv.Atoi(args[1])
		if err != nil || p < 0 {
			return eris.Errorf("priority must be a non-negative integer, got %q", args[1])
		}

		st, err := openStore(cmd.Context(), "admin")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SetSourcePriority(cmd.Context(), args[0], p); err != nil {
			return describeSourceErr(err, args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s priority set to %d\n", args[0], p)
		return nil
	},
}

func init() {
	sourcesSeedCmd.Flags().StringVar(&seedFile, "file", "", "YAML seed file (default: google_books and open_library)")
	sourcesSeedCmd.Flags().BoolVar(&seedOverwrite, "overwrite", false, "update sources that already exist")
	sourcesCmd.AddCommand(sourcesListCmd, sourcesSeedCmd, sourcesEnableCmd, sourcesDisableCmd, sourcesPriorityCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func setEnabled(cmd *cobra.Command, name string, enabled bool) error {
	st, err := openStore(cmd.Context(), "admin")
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.SetSourceEnabled(cmd.Context(), name, enabled); err != nil {
		return describeSourceErr(err, name)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, state)
	return nil
}

func describeSourceErr(err error, name string) error {
	if eris.Is(err, store.ErrNotFound) {
		return eris.Errorf("unknown source %q (run `bookmeta sources seed` or check the name)", name)
	}
	return err
}

func printSources(w io.Writer, srcs []model.SourceConfig) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tNAME\tDISPLAY NAME\tENABLED\tKEY\tBASE URL")
	for _, s := range srcs {
		key := "-"
		if s.HasCredential() {
			key = "set"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\t%s\n", s.Priority, s.Name, s.DisplayName, s.Enabled, key, s.BaseURL)
	}
	return tw.Flush()
}
