package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/latencylab/latencylab/modelio"
	"github.com/latencylab/latencylab/output"
	"github.com/latencylab/latencylab/sim"
)

var (
	modelPath  string
	configPath string
	outDir     string
	runs       int
	seed       int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of simulations for a model and write traces and a summary",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&modelPath, "model", "", "Path to the model JSON file (required)")
	runCmd.Flags().StringVar(&configPath, "config", "", "Optional path to a run config YAML file")
	runCmd.Flags().StringVar(&outDir, "out", ".", "Output directory for trace.csv, runs.csv, summary.json")
	runCmd.Flags().IntVar(&runs, "runs", 100, "Number of independent runs")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "Master seed")
	runCmd.MarkFlagRequired("model")
}

func runRun(cmd *cobra.Command, args []string) error {
	model, err := modelio.Load(modelPath)
	if err != nil {
		return err
	}

	runOpts := sim.RunOpts{CollectTraces: true}
	aggOpts := sim.DefaultAggregatorOptions()
	nRuns := runs
	masterSeed := seed

	if configPath != "" {
		cfg, err := sim.LoadRunConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		runOpts = cfg.ToRunOpts()
		aggOpts = cfg.ToAggregatorOptions()
		if cfg.Runs > 0 {
			nRuns = cfg.Runs
		}
		if cfg.Seed != 0 {
			masterSeed = cfg.Seed
		}
	}

	logrus.Infof("running %d simulation(s) of %s (schema_version=%d, seed=%d)", nRuns, modelPath, model.SchemaVersion, masterSeed)

	strategy := sim.NewExecutorStrategy()
	results, err := strategy.RunMany(context.Background(), model, nRuns, masterSeed, runOpts)
	if err != nil && len(results) == 0 {
		return err
	}
	if err != nil {
		logrus.Warnf("batch stopped early: %v", err)
	}

	var taskMetadata map[string]sim.TaskMeta
	if model.SchemaVersion >= 2 {
		taskMetadata = taskMetaFor(model)
	}
	summary := sim.Aggregate(results, taskMetadata, aggOpts)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outDir, "trace.csv"), func(f *os.File) error {
		return output.WriteTraceCSV(f, results)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outDir, "runs.csv"), func(f *os.File) error {
		return output.WriteRunsCSV(f, results)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outDir, "summary.json"), func(f *os.File) error {
		return output.WriteSummaryJSON(f, summary)
	}); err != nil {
		return err
	}

	logrus.Infof("wrote %d run(s) to %s", len(results), outDir)
	return nil
}

// taskMetaFor collects declared per-task metadata for a v2 model, which the
// summary carries through unchanged into summary.json's task_metadata field
// (§4.6, §6.2). Tasks with no Meta are omitted; an all-nil model yields nil
// so the field is left out of the written JSON entirely.
func taskMetaFor(model *sim.Model) map[string]sim.TaskMeta {
	meta := make(map[string]sim.TaskMeta)
	for name, task := range model.Tasks {
		if task.Meta != nil {
			meta[name] = *task.Meta
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}
