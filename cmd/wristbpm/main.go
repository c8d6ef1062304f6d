package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/heartlab/wristbpm/internal/batch"
	"github.com/heartlab/wristbpm/internal/estimator"
	"github.com/heartlab/wristbpm/internal/record"
	"github.com/heartlab/wristbpm/internal/report"
	"github.com/heartlab/wristbpm/internal/storage"
	"github.com/heartlab/wristbpm/internal/validate"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var cmdErr error
	switch cmd := os.Args[1]; cmd {
	case "process":
		cmdErr = runProcess(os.Args[2:], log)
	case "batch":
		cmdErr = runBatch(os.Args[2:], log)
	case "analyze":
		cmdErr = runAnalyze(os.Args[2:])
	case "compare":
		cmdErr = runCompare(os.Args[2:])
	case "runs":
		cmdErr = runList(os.Args[2:])
	case "delete":
		cmdErr = runDelete(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if cmdErr != nil {
		log.Fatal("command failed", zap.Error(cmdErr))
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `wristbpm - PPG heart-rate estimation with motion-artifact rejection

Usage:
  wristbpm process -dir DIR -record NAME [options]   estimate one recording
  wristbpm batch   -dir DIR [options]                estimate every recording in a directory
  wristbpm analyze -dir DIR                          summarize result CSVs
  wristbpm compare -est FILE -truth FILE             compare results against ECG ground truth
  wristbpm runs    [-db FILE]                        list persisted runs
  wristbpm delete  -run ID [-db FILE]                delete a persisted run

Run any command with -h for its options.
`)
}

// pipelineFlags registers the estimation tunables shared by process
// and batch on fs and returns a loader for the resulting config.
func pipelineFlags(fs *flag.FlagSet) func() estimator.Config {
	def := estimator.DefaultConfig()
	rate := fs.Float64("rate", def.SampleRate, "sample rate in Hz")
	windowS := fs.Float64("window", def.WindowSeconds, "analysis window length in seconds")
	stepS := fs.Float64("step", def.StepSeconds, "window step in seconds")
	strategy := fs.String("strategy", string(def.Strategy), "candidate strategy: spectral or peaks")
	policy := fs.String("policy", string(def.Policy), "artifact policy: naive or power")
	nlms := fs.Bool("nlms", false, "run the NLMS motion canceller before windowing")

	return func() estimator.Config {
		cfg := def
		cfg.SampleRate = *rate
		cfg.WindowSeconds = *windowS
		cfg.StepSeconds = *stepS
		cfg.Strategy = estimator.Strategy(*strategy)
		cfg.Policy = estimator.Policy(*policy)
		cfg.UseNLMS = *nlms
		return cfg
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runProcess(args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory holding the recording files")
	name := fs.String("record", "", "recording base name (required)")
	out := fs.String("out", "", "output CSV path (default stdout)")
	raw := fs.Bool("raw", false, "skip the conditioning filters (input already filtered)")
	cfgOf := pipelineFlags(fs)
	fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("-record is required")
	}
	cfg := cfgOf()

	rec, err := record.Load(*dir, *name, cfg.SampleRate)
	if err != nil {
		return err
	}
	if !*raw {
		if err := record.Condition(rec, record.DefaultConditionConfig()); err != nil {
			return err
		}
	}

	pipe, err := estimator.New(cfg, log)
	if err != nil {
		return err
	}
	res, err := pipe.Run(rec.PPG, rec.IMU)
	if err != nil {
		return err
	}

	if *out == "" {
		return report.WriteSeries(os.Stdout, res.Series)
	}
	if err := report.WriteSeriesFile(*out, res.Series); err != nil {
		return err
	}
	log.Info("results written", zap.String("path", *out), zap.Int("rows", len(res.Series)))
	return nil
}

func runBatch(args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory holding the recording files")
	out := fs.String("out", "results", "directory for result CSVs")
	dbPath := fs.String("db", envOrDefault("WRISTBPM_DB", ""), "SQLite database for run persistence (empty to disable)")
	cfgOf := pipelineFlags(fs)
	fs.Parse(args)

	runner := batch.Runner{
		Config:    cfgOf(),
		Condition: record.DefaultConditionConfig(),
		OutDir:    *out,
		Log:       log,
	}
	if *dbPath != "" {
		store, err := storage.Open(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runner.Store = store
	}

	results, err := runner.ProcessDir(context.Background(), *dir)
	if err != nil {
		return err
	}

	completed, skipped, failed := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case batch.StatusCompleted:
			completed++
		case batch.StatusSkipped:
			skipped++
		case batch.StatusFailed:
			failed++
		}
	}
	log.Info("batch finished",
		zap.Int("completed", completed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return nil
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	dir := fs.String("dir", "results", "directory of result CSVs")
	fs.Parse(args)

	summaries, err := report.SummarizeDir(*dir)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Printf("no result files in %s\n", *dir)
		return nil
	}
	for _, s := range summaries {
		if s.Err != nil {
			fmt.Printf("%s: unreadable (%v)\n", s.File, s.Err)
			continue
		}
		if s.Summary.Count == 0 {
			fmt.Printf("%s: no accepted windows\n", s.File)
			continue
		}
		fmt.Printf("%s: median=%.2f mean=%.2f windows=%d\n",
			s.File, s.Summary.Median, s.Summary.Mean, s.Summary.Count)
	}
	return nil
}

func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	estPath := fs.String("est", "", "estimated BPM CSV (required)")
	truthPath := fs.String("truth", "", "ground-truth BPM CSV from the ECG detector (required)")
	maxGap := fs.Float64("max-gap", 1.0, "max time distance in seconds for sample alignment")
	tol := fs.Float64("tol", 10.0, "tolerance in BPM for the within-tolerance rate")
	fs.Parse(args)

	if *estPath == "" || *truthPath == "" {
		return fmt.Errorf("-est and -truth are required")
	}
	est, err := report.ReadSeriesFile(*estPath)
	if err != nil {
		return err
	}
	truth, err := report.ReadSeriesFile(*truthPath)
	if err != nil {
		return err
	}

	m, err := validate.Compare(est, truth, *maxGap, *tol)
	if err != nil {
		return err
	}
	fmt.Printf("matched=%d unmatched=%d\n", m.Matched, m.Unmatched)
	if m.Matched > 0 {
		fmt.Printf("MAE=%.2f BPM  RMSE=%.2f BPM  within %.0f BPM: %.1f%%\n",
			m.MAE, m.RMSE, *tol, m.WithinTol*100)
	}
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", envOrDefault("WRISTBPM_DB", storage.DefaultDBFile), "SQLite database path")
	fs.Parse(args)

	store, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		mode := "validated"
		if !r.Validated {
			mode = "unvalidated"
		}
		fmt.Printf("%s  %-12s %s/%s  %s  windows=%d rejected=%d  %s\n",
			r.ID, r.Record, r.Strategy, r.Policy, mode,
			r.Windows, r.Rejected, humanize.Time(r.CreatedAt))
	}
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dbPath := fs.String("db", envOrDefault("WRISTBPM_DB", storage.DefaultDBFile), "SQLite database path")
	runID := fs.String("run", "", "run ID to delete (required)")
	fs.Parse(args)

	if *runID == "" {
		return fmt.Errorf("-run is required")
	}
	store, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.DeleteRun(*runID)
}
