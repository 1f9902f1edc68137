package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenarios found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			reg := RunScenario(t, sc)
			n, err := testutil.GatherAndCount(reg, "fleetintel_predictions_total")
			if err != nil {
				t.Fatalf("gather: %v", err)
			}
			if n == 0 {
				t.Errorf("no prediction series recorded")
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	cases := map[string]string{
		"syntax":      ":",
		"expectation": "name: x\njobs:\n  - id: j1\n    rate: 100\n",
		"negative":    "name: x\njobs:\n  - id: j1\n    job: {route: {distance_km: -1}}\nexpected:\n  j1: {}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
