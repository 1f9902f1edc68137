// Package scenarios replays YAML job scenarios through the prediction engine
// and checks the recommendations it produces.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetintel/core/model"
)

// ModelDef describes a constant-profit model to activate before the jobs
// run. Without one the fallback path answers.
type ModelDef struct {
	Version   string  `yaml:"version"`
	NetProfit float64 `yaml:"net_profit"`
}

type JobDef struct {
	ID   string         `yaml:"id"`
	Rate float64        `yaml:"rate"`
	Job  model.JobInput `yaml:"job"`
}

// Expected bounds one job's result. Empty fields are not checked.
type Expected struct {
	Risk           string   `yaml:"risk"`
	Recommendation string   `yaml:"recommendation"`
	MarginMin      *float64 `yaml:"margin_min"`
	MarginMax      *float64 `yaml:"margin_max"`
	UsedModel      bool     `yaml:"used_model"`
}

type Scenario struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	Model       *ModelDef           `yaml:"model,omitempty"`
	Jobs        []JobDef            `yaml:"jobs"`
	Expected    map[string]Expected `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	for _, j := range sc.Jobs {
		if _, ok := sc.Expected[j.ID]; !ok {
			return nil, fmt.Errorf("scenario %s: no expectation for job %s", sc.Name, j.ID)
		}
		if err := j.Job.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %s job %s: %w", sc.Name, j.ID, err)
		}
	}
	return &sc, nil
}
