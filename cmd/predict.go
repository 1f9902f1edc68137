package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetintel/app"
	"github.com/kilianp07/fleetintel/pkg/export"
)

var (
	jobFile     string
	predictRate float64

	resolveJob    string
	resolveProfit float64
	resolveCost   float64
	resolveRate   float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score a job file and log the prediction",
	RunE:  runPredict,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Record the realised outcome of a predicted job",
	RunE:  runResolve,
}

func init() {
	predictCmd.Flags().StringVarP(&jobFile, "file", "f", "", "job file (YAML or JSON)")
	predictCmd.Flags().Float64Var(&predictRate, "rate", 0, "offered rate, overrides the file")
	_ = predictCmd.MarkFlagRequired("file")

	resolveCmd.Flags().StringVar(&resolveJob, "job", "", "job id")
	resolveCmd.Flags().Float64Var(&resolveProfit, "profit", 0, "actual net profit")
	resolveCmd.Flags().Float64Var(&resolveCost, "cost", 0, "actual total cost")
	resolveCmd.Flags().Float64Var(&resolveRate, "rate", 0, "rate actually charged")
	_ = resolveCmd.MarkFlagRequired("job")
	_ = resolveCmd.MarkFlagRequired("rate")

	rootCmd.AddCommand(predictCmd, resolveCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	f, err := os.Open(jobFile)
	if err != nil {
		return err
	}
	defer f.Close()
	req, err := app.DecodeJob(f)
	if err != nil {
		return err
	}
	if predictRate > 0 {
		req.OfferedRate = predictRate
	}

	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeService(svc)
	res, err := svc.Predict(cmd.Context(), req.TenantID, req.JobID, req.Job, req.Rate())
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), res)
}

func runResolve(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeService(svc)
	e, err := svc.Resolve(cmd.Context(), resolveJob, resolveProfit, resolveCost, resolveRate)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	return export.WriteJSON(cmd.OutOrStdout(), e)
}
