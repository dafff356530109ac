// Package store persists batch run history to SQLite.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"souschef/batch"
)

// RunRecord is one persisted recipe run.
type RunRecord struct {
	ID             uint   `gorm:"primaryKey"`
	InputID        string `gorm:"index"`
	Name           string
	Status         string `gorm:"index"`
	Iterations     int
	ViolationCount int
	ErrorMessage   string
	JSONPath       string
	CSVPath        string
	CreatedAt      time.Time
}

// RunStore reads and writes run history.
type RunStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (or creates) the SQLite history database at path and
// migrates the schema.
func Open(path string, logger *zap.Logger) (*RunStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run history at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run history: %w", err)
	}
	return &RunStore{db: db, logger: logger.With(zap.String("component", "store"))}, nil
}

// Record persists one batch result. Artifact paths come from the caller
// since the store never writes artifacts itself.
func (s *RunStore) Record(result *batch.Result, jsonPath, csvPath string) (*RunRecord, error) {
	record := &RunRecord{
		InputID:        result.InputID,
		Name:           result.Name,
		Status:         string(result.Status),
		Iterations:     result.Iterations,
		ViolationCount: len(result.Violations),
		JSONPath:       jsonPath,
		CSVPath:        csvPath,
	}
	if result.Err != nil {
		record.ErrorMessage = result.Err.Error()
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to record run for %s: %w", result.Name, err)
	}
	s.logger.Debug("run recorded",
		zap.String("input", result.Name),
		zap.String("status", record.Status))
	return record, nil
}

// Recent returns the newest records, newest first. limit <= 0 means 20.
func (s *RunStore) Recent(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []RunRecord
	if err := s.db.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load run history: %w", err)
	}
	return records, nil
}

// ByStatus returns records with the given terminal status, newest first.
func (s *RunStore) ByStatus(status string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []RunRecord
	err := s.db.Where("status = ?", status).
		Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s runs: %w", status, err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *RunStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
