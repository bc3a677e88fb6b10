package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/history"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/reporter"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		show   int64
		format string
	)

	cmd := &cobra.Command{
		Use:   "history [notebook]",
		Short: "List recorded analysis runs, newest first",
		Long: `List runs recorded with "analyze --record" (or history.enabled).
The optional argument matches a notebook name, path or id.
With --show, the full report stored with that run is printed instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := history.Query{Limit: limit}
			if len(args) > 0 {
				q.Notebook = args[0]
			}

			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			if cmd.Flags().Changed("show") {
				f, err := reporter.ParseFormat(format)
				if err != nil {
					return err
				}
				report, err := store.Report(cmd.Context(), show)
				if err != nil {
					return err
				}
				return reporter.Render(cmd.OutOrStdout(), []*analyzer.Report{report}, f)
			}

			runs, err := store.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs found.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), historyTable(runs))
			if delta, ok := history.Delta(runs); ok && q.Notebook != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Change since previous run: %+.1f\n", delta)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&limit, "limit", history.DefaultLimit, "Maximum number of runs")
	f.Int64Var(&show, "show", 0, "Print the report stored with this run id")
	f.StringVar(&format, "format", string(reporter.FormatMarkdown), "Format of the --show report: "+reporter.FormatNames())
	return cmd
}

func historyTable(runs []history.Run) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := table.Row{"Run", "Generated", "Notebook", "Overall", "Level"}
	for _, c := range analyzer.Categories {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for _, r := range runs {
		row := table.Row{r.ID, r.GeneratedAt.Format("2006-01-02 15:04"), r.NotebookName, scoreText(r.OverallScore), r.OverallLevel}
		for _, c := range analyzer.Categories {
			row = append(row, scoreText(r.Categories[c]))
		}
		t.AppendRow(row)
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	return t.Render()
}

func scoreText(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}
