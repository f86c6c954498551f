// Package testutil provides shared test infrastructure for the LatencyLab
// core: golden dataset types and assertion helpers used across sim/ tests.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset is the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Cases []GoldenCase `json:"cases"`
}

// GoldenCase pins one model + run configuration to its expected batch
// output. Every model in the golden dataset uses Fixed distributions only,
// so expected values are exact regardless of which RNG stream drives them
// and do not depend on either engine's particular byte sequence. The
// engine a case runs on follows its model's schema_version.
type GoldenCase struct {
	Name     string          `json:"name"`
	Model    json.RawMessage `json:"model"`
	Runs     int             `json:"runs"`
	Seed     int64           `json:"seed"`
	Expected GoldenExpected  `json:"expected"`
}

// GoldenExpected is the expected per-run output, identical across every run
// in the case since the model is fully deterministic.
type GoldenExpected struct {
	MakespanMs        float64 `json:"makespan_ms"`
	HasUIEvent        bool    `json:"has_ui_event"`
	FirstUIEventMs    float64 `json:"first_ui_event_time_ms"`
	LastUIEventMs     float64 `json:"last_ui_event_time_ms"`
	CriticalPathTasks string  `json:"critical_path_tasks"`
	InstanceCount     int     `json:"instance_count"`
}

// LoadGoldenDataset loads the golden dataset from sim/testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to sim/testdata/.
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
