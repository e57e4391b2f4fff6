// Package store persists processed fingerprints and the guard's entry equity
// in SQLite so both survive restarts. It is an optional hook: with the store
// disabled the system cold-starts, which is the documented default.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type fingerprintModel struct {
	Fingerprint string `gorm:"primaryKey;size:128"`
	LoopID      string `gorm:"index;size:64"`
	SeenAt      time.Time
}

func (fingerprintModel) TableName() string { return "processed_fingerprints" }

type guardAnchorModel struct {
	LoopID      string `gorm:"primaryKey;size:64"`
	EntryEquity string `gorm:"size:64"`
	UpdatedAt   time.Time
}

func (guardAnchorModel) TableName() string { return "guard_anchors" }

type Store struct {
	db     *gorm.DB
	loopID string
}

func Open(path, loopID string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	if err := db.AutoMigrate(&fingerprintModel{}, &guardAnchorModel{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Single writer per table; keep the pool tiny to avoid SQLite lock churn.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db, loopID: loopID}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) LoadFingerprints(ctx context.Context) ([]string, error) {
	var fps []string
	err := s.db.WithContext(ctx).
		Model(&fingerprintModel{}).
		Where("loop_id = ?", s.loopID).
		Order("seen_at asc").
		Pluck("fingerprint", &fps).Error
	if err != nil {
		return nil, fmt.Errorf("store: loading fingerprints: %w", err)
	}
	return fps, nil
}

func (s *Store) SaveFingerprint(ctx context.Context, fingerprint string) error {
	rec := fingerprintModel{
		Fingerprint: fingerprint,
		LoopID:      s.loopID,
		SeenAt:      time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}

func (s *Store) LoadEntryEquity(ctx context.Context) (decimal.Decimal, bool, error) {
	var rec guardAnchorModel
	err := s.db.WithContext(ctx).First(&rec, "loop_id = ?", s.loopID).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("store: loading entry equity: %w", err)
	}
	eq, err := decimal.NewFromString(rec.EntryEquity)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("store: corrupt entry equity %q: %w", rec.EntryEquity, err)
	}
	return eq, true, nil
}

func (s *Store) SaveEntryEquity(ctx context.Context, equity decimal.Decimal) error {
	rec := guardAnchorModel{
		LoopID:      s.loopID,
		EntryEquity: equity.String(),
		UpdatedAt:   time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "loop_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"entry_equity", "updated_at"}),
		}).
		Create(&rec).Error
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
