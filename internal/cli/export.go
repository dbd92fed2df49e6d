package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lawrag/internal/evidence"
)

var (
	exportFrom      string
	exportTo        string
	exportComponent string
	exportDecision  string
	exportSearch    string
	exportAggregate bool
	exportPage      int
	exportPageSize  int
)

var exportCmd = &cobra.Command{
	Use:   "export-evidence",
	Short: "Export audit evidence records",
	Long: `Read evidence sink files across the retention window, apply
filters, and emit either flattened CSV rows or an aggregated JSON
summary (counts by decision/component/regulation, latency percentiles).

Examples:
  lawrag export-evidence --from 2026-08-01 --to 2026-08-26
  lawrag export-evidence --component retrieval_service --decision false --aggregate`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "end date (YYYY-MM-DD), inclusive")
	exportCmd.Flags().StringVar(&exportComponent, "component", "", "filter by component name")
	exportCmd.Flags().StringVar(&exportDecision, "decision", "", "filter by decision flag (true/false)")
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "free-text filter over records")
	exportCmd.Flags().BoolVar(&exportAggregate, "aggregate", false, "emit aggregated JSON instead of CSV")
	exportCmd.Flags().IntVar(&exportPage, "page", 1, "aggregate page")
	exportCmd.Flags().IntVar(&exportPageSize, "page-size", 50, "aggregate page size")
}

func runExport(cmd *cobra.Command, args []string) error {
	filter := evidence.Filter{
		Component: exportComponent,
		Search:    exportSearch,
	}

	if exportFrom != "" {
		t, err := time.Parse("2006-01-02", exportFrom)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
		filter.From = t
	}
	if exportTo != "" {
		t, err := time.Parse("2006-01-02", exportTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if exportDecision != "" {
		d := exportDecision == "true"
		filter.Decision = &d
	}

	exporter := evidence.NewExporter(cfg.Evidence.Dir)

	if exportAggregate {
		agg, err := exporter.Aggregate(filter, exportPage, exportPageSize)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(agg, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	header, rows, err := exporter.Tabular(filter)
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
