package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetintel/core/predictionlog"
	"github.com/kilianp07/fleetintel/pkg/export"
)

var (
	sinceDays int
	limit     int
)

var accuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Compare logged predictions with resolved outcomes",
	RunE:  runAccuracy,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Export logged predictions",
	RunE:  runLog,
}

func init() {
	for _, c := range []*cobra.Command{accuracyCmd, logCmd} {
		c.Flags().StringVar(&tenantID, "tenant", "", "tenant id (all tenants when empty)")
		c.Flags().IntVar(&sinceDays, "since-days", 0, "only entries from the last N days")
		c.Flags().IntVar(&limit, "limit", 0, "keep the N most recent entries")
	}
	logCmd.Flags().StringVar(&format, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(accuracyCmd, logCmd)
}

func logQuery() predictionlog.Query {
	q := predictionlog.Query{TenantID: tenantID, Limit: limit}
	if sinceDays > 0 {
		q.Since = time.Now().AddDate(0, 0, -sinceDays)
	}
	return q
}

func runAccuracy(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeService(svc)
	sum, err := svc.Accuracy(cmd.Context(), logQuery())
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), struct {
		predictionlog.AccuracySummary
		Interpretation string `json:"interpretation"`
	}{sum, sum.Interpret()})
}

func runLog(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeService(svc)
	es, err := svc.Logs.Query(cmd.Context(), logQuery())
	if err != nil {
		return err
	}
	switch format {
	case "csv":
		return export.WritePredictionLogCSV(cmd.OutOrStdout(), es)
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), es)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
