// Package storage persists estimation runs and their BPM series in a
// SQLite database, so batch outputs stay queryable after the fact.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heartlab/wristbpm/internal/bpm"
	"github.com/heartlab/wristbpm/internal/estimator"
)

const DefaultDBFile = "wristbpm.sqlite3"

// Run is one completed pass over one recording.
type Run struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Record    string `gorm:"index:idx_run_record"`
	Strategy  string
	Policy    string
	Validated bool
	Windows   int
	Rejected  int
	CreatedAt time.Time
}

// Measurement is one accepted window of a run.
type Measurement struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"type:varchar(36);index:idx_measurement_run"`
	TimeS float64
	BPM   float64
}

// Store wraps the gorm client.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates
// the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &Measurement{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun records a run and its series, returning the run ID.
func (s *Store) SaveRun(record string, cfg estimator.Config, out estimator.Outcome) (string, error) {
	run := Run{
		ID:        uuid.NewString(),
		Record:    record,
		Strategy:  string(cfg.Strategy),
		Policy:    string(cfg.Policy),
		Validated: out.Validated,
		Windows:   out.Windows,
		Rejected:  out.Rejected,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(out.Series) == 0 {
			return nil
		}
		rows := make([]Measurement, len(out.Series))
		for i, m := range out.Series {
			rows[i] = Measurement{RunID: run.ID, TimeS: m.TimeS, BPM: m.BPM}
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return "", fmt.Errorf("saving run for %s: %w", record, err)
	}
	return run.ID, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Series returns the stored series of a run in ascending time order.
func (s *Store) Series(runID string) (bpm.Series, error) {
	var rows []Measurement
	if err := s.db.Where("run_id = ?", runID).Order("time_s ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading series for run %s: %w", runID, err)
	}
	series := make(bpm.Series, len(rows))
	for i, r := range rows {
		series[i] = bpm.Sample{TimeS: r.TimeS, BPM: r.BPM}
	}
	return series, nil
}

// DeleteRun removes a run and its measurements.
func (s *Store) DeleteRun(runID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&Measurement{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Run{ID: runID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
