package commands

import (
	"os"
	"strings"

	"markethealth/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(queriesCmd)
}

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Prints the configured screener queries.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		cat, err := cfg.Catalog()
		if err != nil {
			serviceutil.Fatal("invalid queries", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"", "Label", "Query"})
		for _, q := range cat.Queries() {
			t.AppendRow(table.Row{q.Icon, q.Label, strings.Join(strings.Fields(q.Query), " ")})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
