package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bookmeta/internal/series"
)

var seriesJSON bool

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Series name utilities",
}

var seriesNormalizeCmd = &cobra.Command{
	Use:   "normalize [name...]",
	Short: "Normalize series names and report how they group",
	Long:  "Normalizes each name given as an argument, or one name per line on stdin, then prints every change and the grouped counts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			var err error
			names, err = readLines(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}
		if len(names) == 0 {
			return eris.New("no series names given")
		}

		changes, groups := normalizeNames(names)
		out := cmd.OutOrStdout()
		if seriesJSON {
			return json.NewEncoder(out).Encode(normalizeResponse{Results: changes, Groups: groups})
		}
		return printSeriesReport(out, changes, groups)
	},
}

func init() {
	seriesNormalizeCmd.Flags().BoolVar(&seriesJSON, "json", false, "print JSON instead of tables")
	seriesCmd.AddCommand(seriesNormalizeCmd)
	rootCmd.AddCommand(seriesCmd)
}

type seriesChange struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized"`
	Changed    bool   `json:"changed"`
}

type seriesGroup struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Variants []string `json:"variants"`
}

// normalizeNames runs series.Normalize over names. Groups are ordered by
// count, largest first, then by name. Names that normalize to nothing are
// reported but not grouped.
func normalizeNames(names []string) ([]seriesChange, []seriesGroup) {
	changes := make([]seriesChange, 0, len(names))
	byName := make(map[string]*seriesGroup)
	var order []string

	for _, in := range names {
		norm, ok := series.Normalize(in)
		changes = append(changes, seriesChange{Input: in, Normalized: norm, Changed: norm != in})
		if !ok {
			continue
		}
		g, seen := byName[norm]
		if !seen {
			g = &seriesGroup{Name: norm}
			byName[norm] = g
			order = append(order, norm)
		}
		g.Count++
		if !slices.Contains(g.Variants, in) {
			g.Variants = append(g.Variants, in)
		}
	}

	groups := make([]seriesGroup, 0, len(order))
	for _, n := range order {
		groups = append(groups, *byName[n])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Name < groups[j].Name
	})
	return changes, groups
}

func printSeriesReport(w io.Writer, changes []seriesChange, groups []seriesGroup) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tNORMALIZED\tCHANGED")
	changed := 0
	for _, c := range changes {
		if c.Changed {
			changed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\n", c.Input, c.Normalized, c.Changed)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SERIES\tCOUNT\tVARIANTS")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", g.Name, g.Count, strings.Join(g.Variants, " | "))
	}
	fmt.Fprintf(tw, "\n%d names, %d changed, %d series\n", len(changes), changed, len(groups))
	return tw.Flush()
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read input")
	}
	return out, nil
}
