package commands

import (
	"fmt"
	"os"

	"markethealth/internal/runstore"
	"markethealth/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "The number of batches to show.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [-n <count>]",
	Short: "Prints the latest recorded batches.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		store, err := runstore.Open(cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer store.Close()

		runs, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Started", "Took", "Ok", "No data", "Failed", "Published", "Error"})
		for _, run := range runs {
			published := ""
			if run.PublishedUrl != "" {
				published = "yes"
			}
			t.AppendRow(table.Row{
				run.StartedAt.Format("02 Jan 2006 15:04:05"),
				run.FinishedAt.Sub(run.StartedAt).String(),
				run.Succeeded,
				run.NoData,
				run.Failed,
				published,
				run.Error,
			})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d batches", len(runs))})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
