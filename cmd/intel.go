package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetintel/app"
	"github.com/kilianp07/fleetintel/pkg/export"
)

var (
	tenantID  string
	format    string
	weeksFlag int
	daysFlag  int
)

var errHTMLOnlyTrends = errors.New("html output is only available for trends")

var intelCmd = &cobra.Command{
	Use:   "intel",
	Short: "Tenant benchmarking, trend and anomaly reports",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(export.Formats, format) {
			return fmt.Errorf("unknown format %q, want one of %v", format, export.Formats)
		}
		return nil
	},
}

func init() {
	intelCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "tenant id")
	intelCmd.PersistentFlags().StringVar(&format, "format", "json", "output format: json, csv or html (trends only)")
	_ = intelCmd.MarkPersistentFlagRequired("tenant")

	trendsCmd := intelSub("trends", "Weekly margin trend", func(cmd *cobra.Command, svc *app.Service, w io.Writer) error {
		r, err := svc.Trends(cmd.Context(), tenantID, weeksFlag)
		if err != nil {
			return err
		}
		switch format {
		case "csv":
			return export.WriteTrendCSV(w, r)
		case "html":
			return export.WriteTrendHTML(w, tenantID, r)
		}
		return export.WriteJSON(w, r)
	})
	trendsCmd.Flags().IntVar(&weeksFlag, "weeks", 0, "weeks to analyse (default from config)")

	anomaliesCmd := intelSub("anomalies", "Recent jobs deviating from the tenant baseline", func(cmd *cobra.Command, svc *app.Service, w io.Writer) error {
		if format == "html" {
			return errHTMLOnlyTrends
		}
		r, err := svc.Anomalies(cmd.Context(), tenantID, daysFlag)
		if err != nil {
			return err
		}
		if format == "csv" {
			return export.WriteAnomaliesCSV(w, r)
		}
		return export.WriteJSON(w, r)
	})
	anomaliesCmd.Flags().IntVar(&daysFlag, "days", 0, "days to scan (default from config)")

	intelCmd.AddCommand(
		intelSub("benchmark", "Rank the tenant against peers of the same size", func(cmd *cobra.Command, svc *app.Service, w io.Writer) error {
			if format == "html" {
				return errHTMLOnlyTrends
			}
			r, err := svc.Benchmark(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			if format == "csv" {
				return export.WriteBenchmarkCSV(w, r)
			}
			return export.WriteJSON(w, r)
		}),
		trendsCmd,
		anomaliesCmd,
		intelSub("summary", "Condensed dashboard of every report", func(cmd *cobra.Command, svc *app.Service, w io.Writer) error {
			if format != "json" {
				return fmt.Errorf("summary is only available as json")
			}
			s, err := svc.Dashboard(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			return export.WriteJSON(w, s)
		}),
	)
	rootCmd.AddCommand(intelCmd)
}

func intelSub(use, short string, run func(*cobra.Command, *app.Service, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeService(svc)
			return run(cmd, svc, cmd.OutOrStdout())
		},
	}
}
