// Package batch processes a directory of recordings, isolating
// per-recording failures so one bad capture never aborts the rest.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/heartlab/wristbpm/internal/bpm"
	"github.com/heartlab/wristbpm/internal/estimator"
	"github.com/heartlab/wristbpm/internal/record"
	"github.com/heartlab/wristbpm/internal/report"
	"github.com/heartlab/wristbpm/internal/storage"
)

// Status classifies one recording's outcome.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result is the per-recording outcome: a series on success, a reason
// when skipped, a diagnostic when failed.
type Result struct {
	Record    string
	Status    Status
	Series    bpm.Series
	Validated bool
	RunID     string
	Reason    string
	Err       error
}

// Runner drives the estimation pipeline over every recording in a
// directory. Store is optional; when set, each completed run is
// persisted. OutDir is optional; when set, each completed run's series
// is written there as <record>_bpm.csv.
type Runner struct {
	Config    estimator.Config
	Condition record.ConditionConfig
	Store     *storage.Store
	OutDir    string
	Log       *zap.Logger
}

// ProcessDir runs every recording found in dir. The returned error
// covers only setup problems (unreadable directory, unusable config);
// per-recording failures land in the results.
func (r *Runner) ProcessDir(ctx context.Context, dir string) ([]Result, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	pipe, err := estimator.New(r.Config, log)
	if err != nil {
		return nil, err
	}
	if r.OutDir != "" {
		if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output dir: %w", err)
		}
	}

	names, err := record.Discover(dir)
	if err != nil {
		return nil, err
	}
	log.Info("batch started",
		zap.String("dir", dir),
		zap.Int("recordings", len(names)),
		zap.String("strategy", string(r.Config.Strategy)),
		zap.String("policy", string(r.Config.Policy)))

	results := make([]Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.processOne(pipe, dir, name, log)
		switch res.Status {
		case StatusFailed:
			log.Error("recording failed", zap.String("record", name), zap.Error(res.Err))
		case StatusSkipped:
			log.Warn("recording skipped", zap.String("record", name), zap.String("reason", res.Reason))
		default:
			log.Info("recording completed",
				zap.String("record", name),
				zap.Int("accepted", len(res.Series)),
				zap.Bool("validated", res.Validated))
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) processOne(pipe *estimator.Pipeline, dir, name string, log *zap.Logger) Result {
	res := Result{Record: name}

	rec, err := record.Load(dir, name, r.Config.SampleRate)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	log.Debug("recording loaded",
		zap.String("record", name),
		zap.String("samples", humanize.Comma(int64(len(rec.PPG)))),
		zap.String("duration", fmt.Sprintf("%.1fs", rec.Duration())),
		zap.Bool("has_imu", rec.IMU != nil))

	// The NLMS pre-pass needs a motion reference over the full signal;
	// without one the variant cannot run at all.
	if r.Config.UseNLMS && rec.IMU == nil {
		res.Status = StatusSkipped
		res.Reason = "no motion reference for NLMS pre-pass"
		return res
	}

	if err := record.Condition(rec, r.Condition); err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	out, err := pipe.Run(rec.PPG, rec.IMU)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.Status = StatusCompleted
	res.Series = out.Series
	res.Validated = out.Validated

	if r.OutDir != "" {
		path := filepath.Join(r.OutDir, name+"_bpm.csv")
		if err := report.WriteSeriesFile(path, out.Series); err != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("writing %s: %w", path, err)
			return res
		}
	}
	if r.Store != nil {
		runID, err := r.Store.SaveRun(name, r.Config, out)
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			return res
		}
		res.RunID = runID
	}
	return res
}
