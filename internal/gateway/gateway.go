// Package gateway persists pages to a storage backend behind a narrow CRUD contract.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

var (
	// ErrPageNotFound indicates that no stored page has the requested id or slug.
	ErrPageNotFound = errors.New("gateway: page not found")
	// ErrInvalidDraft indicates a create request without a usable title.
	ErrInvalidDraft = errors.New("gateway: invalid page draft")

	noOpLogger = zap.NewNop()
)

// Gateway is the remote page storage contract used by the editor and the CLI.
type Gateway interface {
	List(ctx context.Context) ([]pages.Page, error)
	Get(ctx context.Context, id string) (pages.Page, error)
	GetBySlug(ctx context.Context, slug string) (pages.Page, error)
	Create(ctx context.Context, draft PageDraft) (pages.Page, error)
	Update(ctx context.Context, id string, patch PagePatch) (pages.Page, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string) (pages.Page, error)
	Unpublish(ctx context.Context, id string) (pages.Page, error)
}

// PageDraft carries the fields of a page to create. The backend assigns id and timestamps.
type PageDraft struct {
	Title  string           `json:"title" yaml:"title"`
	Slug   string           `json:"slug,omitempty" yaml:"slug,omitempty"`
	Blocks []pages.Block    `json:"blocks" yaml:"blocks"`
	Status pages.PageStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// DraftFromPage builds the draft that persists a local page for the first time.
func DraftFromPage(page pages.Page) PageDraft {
	return PageDraft{
		Title:  page.Title,
		Slug:   page.Slug,
		Blocks: page.Clone().Blocks,
		Status: page.Status,
	}
}

// PagePatch carries a partial update. Nil fields are left unchanged.
type PagePatch struct {
	Title  *string           `json:"title,omitempty" yaml:"title,omitempty"`
	Slug   *string           `json:"slug,omitempty" yaml:"slug,omitempty"`
	Blocks []pages.Block     `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Status *pages.PageStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// PatchFromPage builds the patch that saves the editable fields of a persisted page.
func PatchFromPage(page pages.Page) PagePatch {
	title := page.Title
	slug := page.Slug
	blocks := page.Clone().Blocks
	if blocks == nil {
		blocks = []pages.Block{}
	}
	return PagePatch{Title: &title, Slug: &slug, Blocks: blocks}
}

// Error is a gateway failure carrying a dotted code of the form driver.operation.reason.
type Error struct {
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Code() string {
	return e.code
}

func newError(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

func notFound(operation, key string) error {
	return newError(operation, "not_found", fmt.Errorf("%w: %s", ErrPageNotFound, key))
}

// newPageFromDraft applies the creation defaults shared by every driver.
func newPageFromDraft(id string, draft PageDraft, now time.Time) (pages.Page, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return pages.Page{}, fmt.Errorf("%w: empty title", ErrInvalidDraft)
	}
	status, err := pages.ParseStatus(string(draft.Status))
	if err != nil {
		return pages.Page{}, err
	}
	slug := strings.TrimSpace(draft.Slug)
	if slug == "" {
		slug = pages.Slugify(title)
	}
	page := pages.Page{
		ID:        id,
		Title:     title,
		Slug:      slug,
		Blocks:    normalizeBlocks(draft.Blocks),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    status,
	}
	if status == pages.PageStatusPublished {
		publishedAt := now
		page.PublishedAt = &publishedAt
	}
	return page, nil
}

// applyPatch merges patch into page and refreshes updatedAt.
func applyPatch(page pages.Page, patch PagePatch, now time.Time) (pages.Page, error) {
	updated := page.Clone()
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Slug != nil {
		updated.Slug = *patch.Slug
	}
	if patch.Blocks != nil {
		updated.Blocks = normalizeBlocks(patch.Blocks)
	}
	if patch.Status != nil {
		status, err := pages.ParseStatus(string(*patch.Status))
		if err != nil {
			return pages.Page{}, err
		}
		updated = withStatus(updated, status, now)
	}
	updated.UpdatedAt = now
	return updated, nil
}

// withStatus moves page to status. publishedAt is stamped on the transition to published
// and cleared on the way back to draft.
func withStatus(page pages.Page, status pages.PageStatus, now time.Time) pages.Page {
	updated := page.Clone()
	switch status {
	case pages.PageStatusPublished:
		publishedAt := now
		updated.PublishedAt = &publishedAt
	default:
		updated.PublishedAt = nil
	}
	updated.Status = status
	updated.UpdatedAt = now
	return updated
}

func normalizeBlocks(blocks []pages.Block) []pages.Block {
	normalized := make([]pages.Block, len(blocks))
	for index, block := range blocks {
		normalized[index] = block.Clone()
		normalized[index].Order = index
		if normalized[index].Content == nil {
			normalized[index].Content = pages.Content{}
		}
	}
	return normalized
}

func logError(logger *zap.Logger, operation, reason string, err error, fields ...zap.Field) {
	if logger == nil || err == nil {
		return
	}
	allFields := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	logger.Error("gateway operation failed", allFields...)
}
