package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetintel/app"
	"github.com/kilianp07/fleetintel/config"
	"github.com/kilianp07/fleetintel/core/registry"
	"github.com/kilianp07/fleetintel/infra/artifacts"
	"github.com/kilianp07/fleetintel/infra/logger"
	"github.com/kilianp07/fleetintel/pkg/export"
)

var (
	samplesFile string
	trainDesc   string
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage trained model versions",
}

var modelLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored model versions, newest first",
	RunE:  runModelLs,
}

var modelTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a model on historical samples and save it as the next version",
	RunE:  runModelTrain,
}

var modelReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Load the latest complete version and print its metadata",
	RunE:  runModelReload,
}

func init() {
	modelTrainCmd.Flags().StringVarP(&samplesFile, "file", "f", "", "samples file (YAML or JSON list of {job, net_profit})")
	modelTrainCmd.Flags().StringVar(&trainDesc, "description", "", "free text stored with the version")
	_ = modelTrainCmd.MarkFlagRequired("file")
	modelCmd.AddCommand(modelLsCmd, modelTrainCmd, modelReloadCmd)
	rootCmd.AddCommand(modelCmd)
}

func openRegistry() (*registry.Registry, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, nil, err
	}
	store, err := artifacts.NewFSStore(cfg.Registry.Dir)
	if err != nil {
		return nil, nil, err
	}
	return registry.New(store, logger.New("registry")), cfg, nil
}

func runModelLs(cmd *cobra.Command, args []string) error {
	reg, _, err := openRegistry()
	if err != nil {
		return err
	}
	versions, err := reg.Versions(cmd.Context())
	if err != nil {
		return err
	}
	reg.LoadLatest(cmd.Context())
	active, _ := reg.Active()
	for _, v := range versions {
		marker := " "
		if v == active.Version {
			marker = "*"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, v)
	}
	return nil
}

func runModelTrain(cmd *cobra.Command, args []string) error {
	reg, cfg, err := openRegistry()
	if err != nil {
		return err
	}
	f, err := os.Open(samplesFile)
	if err != nil {
		return err
	}
	defer f.Close()
	samples, err := app.DecodeSamples(f)
	if err != nil {
		return err
	}
	a, _, err := app.Train(cmd.Context(), reg, samples, cfg.Training, trainDesc)
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), a.Metadata)
}

func runModelReload(cmd *cobra.Command, args []string) error {
	reg, _, err := openRegistry()
	if err != nil {
		return err
	}
	if !reg.Reload(cmd.Context()) {
		return fmt.Errorf("no complete model version could be loaded; predictions use the fallback path")
	}
	meta, _ := reg.Metadata()
	return export.WriteJSON(cmd.OutOrStdout(), meta)
}
