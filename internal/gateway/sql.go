package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/database"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	opSQLNew       = "sql.new"
	opSQLList      = "sql.list"
	opSQLGet       = "sql.get"
	opSQLGetBySlug = "sql.get_by_slug"
	opSQLCreate    = "sql.create"
	opSQLUpdate    = "sql.update"
	opSQLDelete    = "sql.delete"
	opSQLPublish   = "sql.publish"
	opSQLUnpublish = "sql.unpublish"
)

var errMissingDatabase = errors.New("database handle is required")

// SQLConfig describes a gorm-backed gateway.
type SQLConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider pages.IDProvider
	Logger     *zap.Logger
}

// SQL stores pages as rows of the page_records table.
type SQL struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider pages.IDProvider
	logger     *zap.Logger
}

// NewSQL constructs a gateway over an already migrated database.
func NewSQL(cfg SQLConfig) (*SQL, error) {
	if cfg.Database == nil {
		return nil, newError(opSQLNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = pages.NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &SQL{
		db:         cfg.Database,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
	}, nil
}

func (s *SQL) List(ctx context.Context) ([]pages.Page, error) {
	var records []database.PageRecord
	if err := s.db.WithContext(ctx).Order("created_at_ms ASC, page_id ASC").Find(&records).Error; err != nil {
		logError(s.logger, opSQLList, "query_failed", err)
		return nil, newError(opSQLList, "query_failed", err)
	}
	out := make([]pages.Page, 0, len(records))
	for _, record := range records {
		page, err := pageFromRecord(record)
		if err != nil {
			logError(s.logger, opSQLList, "decode_failed", err, zap.String("page_id", record.PageID))
			return nil, newError(opSQLList, "decode_failed", err)
		}
		out = append(out, page)
	}
	return out, nil
}

func (s *SQL) Get(ctx context.Context, id string) (pages.Page, error) {
	return s.take(s.db.WithContext(ctx), opSQLGet, "page_id = ?", id)
}

func (s *SQL) GetBySlug(ctx context.Context, slug string) (pages.Page, error) {
	return s.take(s.db.WithContext(ctx).Order("created_at_ms ASC"), opSQLGetBySlug, "slug = ?", slug)
}

func (s *SQL) Create(ctx context.Context, draft PageDraft) (pages.Page, error) {
	rawID, err := s.idProvider.NewID()
	if err != nil {
		logError(s.logger, opSQLCreate, "id_generation_failed", err)
		return pages.Page{}, newError(opSQLCreate, "id_generation_failed", err)
	}
	page, err := newPageFromDraft(rawID, draft, s.now())
	if err != nil {
		return pages.Page{}, newError(opSQLCreate, "invalid_draft", err)
	}
	record, err := recordFromPage(page)
	if err != nil {
		return pages.Page{}, newError(opSQLCreate, "encode_failed", err)
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		logError(s.logger, opSQLCreate, "insert_failed", err, zap.String("page_id", page.ID))
		return pages.Page{}, newError(opSQLCreate, "insert_failed", err)
	}
	return page, nil
}

func (s *SQL) Update(ctx context.Context, id string, patch PagePatch) (pages.Page, error) {
	return s.modify(ctx, opSQLUpdate, id, func(page pages.Page) (pages.Page, error) {
		return applyPatch(page, patch, s.now())
	})
}

func (s *SQL) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("page_id = ?", id).Delete(&database.PageRecord{})
	if result.Error != nil {
		logError(s.logger, opSQLDelete, "delete_failed", result.Error, zap.String("page_id", id))
		return newError(opSQLDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(opSQLDelete, id)
	}
	return nil
}

func (s *SQL) Publish(ctx context.Context, id string) (pages.Page, error) {
	return s.modify(ctx, opSQLPublish, id, func(page pages.Page) (pages.Page, error) {
		return withStatus(page, pages.PageStatusPublished, s.now()), nil
	})
}

func (s *SQL) Unpublish(ctx context.Context, id string) (pages.Page, error) {
	return s.modify(ctx, opSQLUnpublish, id, func(page pages.Page) (pages.Page, error) {
		return withStatus(page, pages.PageStatusDraft, s.now()), nil
	})
}

func (s *SQL) take(query *gorm.DB, operation, condition, key string) (pages.Page, error) {
	var record database.PageRecord
	err := query.Where(condition, key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pages.Page{}, notFound(operation, key)
	}
	if err != nil {
		logError(s.logger, operation, "query_failed", err, zap.String("key", key))
		return pages.Page{}, newError(operation, "query_failed", err)
	}
	page, err := pageFromRecord(record)
	if err != nil {
		return pages.Page{}, newError(operation, "decode_failed", err)
	}
	return page, nil
}

func (s *SQL) modify(ctx context.Context, operation, id string, change func(pages.Page) (pages.Page, error)) (pages.Page, error) {
	var updated pages.Page
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.take(tx, operation, "page_id = ?", id)
		if err != nil {
			return err
		}
		updated, err = change(current)
		if err != nil {
			return newError(operation, "invalid_patch", err)
		}
		record, err := recordFromPage(updated)
		if err != nil {
			return newError(operation, "encode_failed", err)
		}
		if err := tx.Save(&record).Error; err != nil {
			logError(s.logger, operation, "save_failed", err, zap.String("page_id", id))
			return newError(operation, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return pages.Page{}, txErr
	}
	return updated, nil
}

func (s *SQL) now() time.Time {
	// Rows keep millisecond precision.
	return s.clock().UTC().Truncate(time.Millisecond)
}

func recordFromPage(page pages.Page) (database.PageRecord, error) {
	blocks := page.Blocks
	if blocks == nil {
		blocks = []pages.Block{}
	}
	encoded, err := json.Marshal(blocks)
	if err != nil {
		return database.PageRecord{}, err
	}
	record := database.PageRecord{
		PageID:          page.ID,
		Title:           page.Title,
		Slug:            page.Slug,
		BlocksJSON:      string(encoded),
		Status:          string(page.Status),
		CreatedAtMillis: page.CreatedAt.UnixMilli(),
		UpdatedAtMillis: page.UpdatedAt.UnixMilli(),
	}
	if page.PublishedAt != nil {
		publishedAt := page.PublishedAt.UnixMilli()
		record.PublishedAtMillis = &publishedAt
	}
	return record, nil
}

func pageFromRecord(record database.PageRecord) (pages.Page, error) {
	var blocks []pages.Block
	if err := json.Unmarshal([]byte(record.BlocksJSON), &blocks); err != nil {
		return pages.Page{}, err
	}
	status, err := pages.ParseStatus(record.Status)
	if err != nil {
		return pages.Page{}, err
	}
	page := pages.Page{
		ID:        record.PageID,
		Title:     record.Title,
		Slug:      record.Slug,
		Blocks:    normalizeBlocks(blocks),
		CreatedAt: time.UnixMilli(record.CreatedAtMillis).UTC(),
		UpdatedAt: time.UnixMilli(record.UpdatedAtMillis).UTC(),
		Status:    status,
	}
	if record.PublishedAtMillis != nil {
		publishedAt := time.UnixMilli(*record.PublishedAtMillis).UTC()
		page.PublishedAt = &publishedAt
	}
	return page, nil
}
