package commands

import (
	"fmt"
	"os"
	"time"

	"markethealth/internal/runstore"
	"markethealth/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchPublish bool

func init() {
	fetchCmd.Flags().BoolVar(&fetchPublish, "publish", false, "Upload the workbook if at least one query returned data.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [label...] [--publish]",
	Short: "Runs one batch now regardless of market hours, optionally only for some queries.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		a, err := newApp(cfg)
		if err != nil {
			serviceutil.Fatal("failed to initialize", err)
		}
		defer a.Close()

		cat, err := cfg.Catalog()
		if err != nil {
			serviceutil.Fatal("invalid queries", err)
		}
		if len(args) > 0 {
			cat, err = cat.Select(args...)
			if err != nil {
				serviceutil.Fatal("failed to select queries", err)
			}
		}
		if fetchPublish && a.publisher == nil {
			fmt.Fprintln(os.Stderr, "github is not configured, the workbook will not be published")
		}

		report, err := a.runner(cat, fetchPublish).Run(cmd.Context())
		if err != nil {
			serviceutil.Fatal("batch failed", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Query", "Outcome", "Rows", "Time", "Error"})
		for _, q := range report.Queries {
			rows := ""
			if q.Outcome == runstore.OutcomeSucceeded {
				rows = fmt.Sprint(q.Rows)
			}
			t.AppendRow(table.Row{q.Label, q.Outcome, rows, q.Duration.Round(time.Millisecond), q.Error})
		}
		t.AppendFooter(table.Row{
			"Total",
			fmt.Sprintf("%d ok, %d no data, %d failed", report.Succeeded, report.NoData, report.Failed),
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Println("workbook:", report.WorkbookPath)
		if report.Published != nil {
			fmt.Println("published:", report.PublishedUrl)
		}
	},
}
