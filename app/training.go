package app

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetintel/config"
	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/model"
	"github.com/kilianp07/fleetintel/core/regression"
	"github.com/kilianp07/fleetintel/core/registry"
)

// TrainingSample is one historical job with its realised net profit.
type TrainingSample struct {
	Job       model.JobInput `yaml:"job"`
	NetProfit float64        `yaml:"net_profit"`
}

// JobRequest is a job to score, as read by the CLI. OfferedRate overrides
// the rate in Job when set.
type JobRequest struct {
	TenantID    string         `yaml:"tenant_id"`
	JobID       string         `yaml:"job_id"`
	OfferedRate float64        `yaml:"offered_rate"`
	Job         model.JobInput `yaml:"job"`
}

// Rate returns the rate to score at.
func (r JobRequest) Rate() float64 {
	if r.OfferedRate > 0 {
		return r.OfferedRate
	}
	return r.Job.Economics.OfferedRate
}

// DecodeSamples reads a YAML or JSON list of samples.
func DecodeSamples(r io.Reader) ([]TrainingSample, error) {
	var out []TrainingSample
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	for i, s := range out {
		if err := s.Job.Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return out, nil
}

// DecodeJob reads a YAML or JSON job request.
func DecodeJob(r io.Reader) (JobRequest, error) {
	var req JobRequest
	if err := yaml.NewDecoder(r).Decode(&req); err != nil {
		return JobRequest{}, fmt.Errorf("decode job: %w", err)
	}
	return req, nil
}

// Train fits a model on samples and saves it as the next version, which
// becomes active.
func Train(ctx context.Context, reg *registry.Registry, samples []TrainingSample, cfg config.TrainingConfig, description string) (registry.Artifact, regression.FitReport, error) {
	if len(samples) < cfg.MinSamples {
		return registry.Artifact{}, regression.FitReport{}, fmt.Errorf("train: %d samples, need at least %d: %w",
			len(samples), cfg.MinSamples, regression.ErrTooFewSamples)
	}
	x := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = features.Build(s.Job)
		y[i] = s.NetProfit
	}
	lr, sc, rep, err := regression.Fit(x, y, regression.FitOptions{TestFraction: cfg.Holdout, Seed: cfg.Seed, Ridge: cfg.Ridge})
	if err != nil {
		return registry.Artifact{}, rep, fmt.Errorf("train: %w", err)
	}
	a, err := reg.Save(ctx, lr, sc, registry.Metadata{
		TrainingSamples: rep.Samples,
		TrainRMSE:       rep.TrainRMSE,
		TrainR2:         rep.TrainR2,
		TestRMSE:        rep.TestRMSE,
		TestR2:          rep.TestR2,
		Description:     description,
	})
	if err != nil {
		return registry.Artifact{}, rep, err
	}
	return a, rep, nil
}
