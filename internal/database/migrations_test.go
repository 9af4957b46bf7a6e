package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDatabase(testContext *testing.T) *gorm.DB {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&PageRecord{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

func TestApplyMigrationsBackfillsSlugs(testContext *testing.T) {
	database := openTestDatabase(testContext)

	record := PageRecord{
		PageID:          "page-1",
		Title:           "About  Us",
		Slug:            "",
		BlocksJSON:      "[]",
		Status:          "draft",
		CreatedAtMillis: 1,
		UpdatedAtMillis: 1,
	}
	if err := database.Create(&record).Error; err != nil {
		testContext.Fatalf("failed to insert page: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored PageRecord
	if err := database.Where("page_id = ?", record.PageID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload page: %v", err)
	}
	if stored.Slug != "about--us" {
		testContext.Fatalf("expected backfilled slug, got %q", stored.Slug)
	}

	var migration migrationRecord
	if err := database.Where("name = ?", migrationBackfillPageSlugs).Take(&migration).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if migration.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsNormalizesStatus(testContext *testing.T) {
	database := openTestDatabase(testContext)

	publishedAt := int64(42)
	records := []PageRecord{
		{PageID: "page-archived", Title: "Old", Slug: "old", BlocksJSON: "[]", Status: "archived", CreatedAtMillis: 1, UpdatedAtMillis: 1, PublishedAtMillis: &publishedAt},
		{PageID: "page-live", Title: "Live", Slug: "live", BlocksJSON: "[]", Status: "published", CreatedAtMillis: 1, UpdatedAtMillis: 1, PublishedAtMillis: &publishedAt},
	}
	if err := database.Create(&records).Error; err != nil {
		testContext.Fatalf("failed to insert pages: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var archived PageRecord
	if err := database.Where("page_id = ?", "page-archived").Take(&archived).Error; err != nil {
		testContext.Fatalf("failed to reload page: %v", err)
	}
	if archived.Status != "draft" || archived.PublishedAtMillis != nil {
		testContext.Fatalf("expected archived page folded to draft, got %q / %v", archived.Status, archived.PublishedAtMillis)
	}

	var live PageRecord
	if err := database.Where("page_id = ?", "page-live").Take(&live).Error; err != nil {
		testContext.Fatalf("failed to reload page: %v", err)
	}
	if live.Status != "published" || live.PublishedAtMillis == nil {
		testContext.Fatalf("expected published page untouched, got %q / %v", live.Status, live.PublishedAtMillis)
	}
}

func TestApplyMigrationsRunsOnce(testContext *testing.T) {
	database := openTestDatabase(testContext)

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}
	record := PageRecord{PageID: "page-late", Title: "Late Page", BlocksJSON: "[]", Status: "draft", CreatedAtMillis: 1, UpdatedAtMillis: 1}
	if err := database.Create(&record).Error; err != nil {
		testContext.Fatalf("failed to insert page: %v", err)
	}
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to re-apply migrations: %v", err)
	}

	var stored PageRecord
	if err := database.Where("page_id = ?", record.PageID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload page: %v", err)
	}
	if stored.Slug != "" {
		testContext.Fatalf("expected applied migration to be skipped, slug became %q", stored.Slug)
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 2 {
		testContext.Fatalf("expected 2 migration records, got %d", count)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "pages.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	if !database.Migrator().HasTable(&PageRecord{}) {
		testContext.Fatalf("expected page_records table")
	}
	if _, err := OpenSQLite("", zap.NewNop()); err == nil {
		testContext.Fatalf("expected empty path to be rejected")
	}
}

func TestApplyMigrationsRecordsIntoMigrationTable(testContext *testing.T) {
	database := openTestDatabase(testContext)

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("migrations failed: %v", err)
	}
	if !database.Migrator().HasTable("db_migrations") {
		testContext.Fatalf("expected migrations to be recorded in db_migrations")
	}

	var names []string
	if err := database.Table("db_migrations").Order("name").Pluck("name", &names).Error; err != nil {
		testContext.Fatalf("failed to read applied migrations: %v", err)
	}
	if len(names) != 2 {
		testContext.Fatalf("expected both migrations recorded, got %v", names)
	}
}
