package editor

import (
	"context"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

// ListRemote returns the pages persisted behind the gateway.
func (e *Editor) ListRemote(ctx context.Context) ([]pages.Page, error) {
	listed, err := e.gateway.List(ctx)
	if err != nil {
		e.logError("editor.list_remote", "list_failed", err)
		return nil, newError("editor.list_remote", "list_failed", err)
	}
	return listed, nil
}

// LoadRemote fetches a persisted page and makes it the current page.
func (e *Editor) LoadRemote(ctx context.Context, pageID string) (pages.Page, error) {
	const operation = "editor.load_remote"
	page, err := e.gateway.Get(ctx, pageID)
	if err != nil {
		e.logError(operation, "get_failed", err, zap.String("page_id", pageID))
		return pages.Page{}, newError(operation, "get_failed", err)
	}
	return e.store.SetCurrentPage(page), nil
}

// DeleteRemote deletes a persisted page. The local collection is left alone.
func (e *Editor) DeleteRemote(ctx context.Context, pageID string) error {
	const operation = "editor.delete_remote"
	if err := e.gateway.Delete(ctx, pageID); err != nil {
		e.logError(operation, "delete_failed", err, zap.String("page_id", pageID))
		return newError(operation, "delete_failed", err)
	}
	return nil
}

// PublishRemote publishes a persisted page and mirrors the new state onto a local copy, if any.
func (e *Editor) PublishRemote(ctx context.Context, pageID string) (pages.Page, error) {
	const operation = "editor.publish_remote"
	published, err := e.gateway.Publish(ctx, pageID)
	if err != nil {
		e.logError(operation, "publish_failed", err, zap.String("page_id", pageID))
		return pages.Page{}, newError(operation, "publish_failed", err)
	}
	e.adoptStatus(published)
	return published, nil
}

// UnpublishRemote reverts a persisted page to draft and mirrors the new state onto a local copy, if any.
func (e *Editor) UnpublishRemote(ctx context.Context, pageID string) (pages.Page, error) {
	const operation = "editor.unpublish_remote"
	unpublished, err := e.gateway.Unpublish(ctx, pageID)
	if err != nil {
		e.logError(operation, "unpublish_failed", err, zap.String("page_id", pageID))
		return pages.Page{}, newError(operation, "unpublish_failed", err)
	}
	e.adoptStatus(unpublished)
	return unpublished, nil
}

// PullRemote replaces the local collection with the persisted pages. Local pages that were never
// saved are kept after the remote ones so that pulling never discards unsaved work.
func (e *Editor) PullRemote(ctx context.Context) ([]pages.Page, error) {
	const operation = "editor.pull_remote"
	remote, err := e.gateway.List(ctx)
	if err != nil {
		e.logError(operation, "list_failed", err)
		return nil, newError(operation, "list_failed", err)
	}
	collection := make([]pages.Page, 0, len(remote)+1)
	collection = append(collection, remote...)
	for _, local := range e.store.Pages() {
		if local.IsUnsaved() {
			collection = append(collection, local)
		}
	}
	e.store.ReplacePages(collection)
	return e.store.Pages(), nil
}
