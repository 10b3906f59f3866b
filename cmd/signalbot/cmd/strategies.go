package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/strategies"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available strategies and their defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, name := range strategies.Names() {
			def, err := strategies.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-26s objective=%-13s lattice=%-5d %s\n",
				name, def.Objective, def.Lattice.Size(), formatParams(def.Defaults))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func formatParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, " ")
}
