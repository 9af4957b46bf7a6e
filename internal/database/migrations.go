package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillPageSlugs   = "2026-09-14_backfill_page_slugs"
	migrationNormalizePageStatus = "2026-09-30_normalize_page_status"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillPageSlugs, apply: backfillPageSlugs},
		{name: migrationNormalizePageStatus, apply: normalizePageStatus},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillPageSlugs derives a slug for rows written before slugs were mandatory.
func backfillPageSlugs(db *gorm.DB) error {
	return db.Exec("UPDATE page_records SET slug = lower(replace(trim(title), ' ', '-')) WHERE slug = '' OR slug IS NULL").Error
}

// normalizePageStatus folds unknown status values to draft and clears stale publish stamps.
func normalizePageStatus(db *gorm.DB) error {
	if err := db.Model(&PageRecord{}).
		Where("status NOT IN ?", []string{"draft", "published"}).
		Update("status", "draft").Error; err != nil {
		return err
	}
	return db.Model(&PageRecord{}).
		Where("status = ? AND published_at_ms IS NOT NULL", "draft").
		Update("published_at_ms", nil).Error
}
