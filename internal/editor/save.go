package editor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/gateway"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

// SaveStatus is the toolbar indicator of the latest save.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)

// ChangeSaveStatus is published on the store feed whenever the save status changes.
const ChangeSaveStatus pages.ChangeKind = "save-status"

const (
	opSave    = "editor.save"
	opPublish = "editor.publish"
)

// SaveState describes the latest save attempt.
type SaveState struct {
	Status    SaveStatus `json:"status"`
	PageID    string     `json:"pageId,omitempty"`
	Error     string     `json:"error,omitempty"`
	Code      string     `json:"code,omitempty"`
	ChangedAt time.Time  `json:"changedAt"`
}

// SaveState returns the current save indicator.
func (e *Editor) SaveState() SaveState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.save
}

// Save pushes the current page to the gateway. A page that was never persisted is created
// remotely and rekeyed locally; a persisted page is updated. A failed save leaves the store
// untouched. The returned page is the local copy after the save.
func (e *Editor) Save(ctx context.Context) (pages.Page, error) {
	page := e.store.CurrentPage()
	generation := e.beginSave(page.ID)

	saved, err := e.persist(ctx, page)
	e.finishSave(generation, saved.ID, err)
	if err != nil {
		return pages.Page{}, err
	}
	return saved, nil
}

// Publish saves the current page first when it was never persisted, then publishes it
// and installs the publication state locally.
func (e *Editor) Publish(ctx context.Context) (pages.Page, error) {
	page := e.store.CurrentPage()
	if page.IsUnsaved() {
		saved, err := e.Save(ctx)
		if err != nil {
			return pages.Page{}, newError(opPublish, "save_failed", err)
		}
		page = saved
	}

	published, err := e.gateway.Publish(ctx, page.ID)
	if err != nil {
		e.logError(opPublish, "publish_failed", err, zap.String("page_id", page.ID))
		return pages.Page{}, newError(opPublish, "publish_failed", err)
	}
	return e.adoptStatus(published), nil
}

func (e *Editor) persist(ctx context.Context, page pages.Page) (pages.Page, error) {
	if page.IsUnsaved() {
		created, err := e.gateway.Create(ctx, gateway.DraftFromPage(page))
		if err != nil {
			e.logError(opSave, "create_failed", err, zap.String("page_id", page.ID))
			return pages.Page{}, newError(opSave, "create_failed", err)
		}
		return e.adoptCreated(page.ID, created), nil
	}

	if _, err := e.gateway.Update(ctx, page.ID, gateway.PatchFromPage(page)); err != nil {
		e.logError(opSave, "update_failed", err, zap.String("page_id", page.ID))
		return pages.Page{}, newError(opSave, "update_failed", err)
	}
	if latest, ok := e.store.Page(page.ID); ok {
		return latest, nil
	}
	return page, nil
}

// adoptCreated swaps a local page for its persisted identity. Edits made while the create was
// in flight are kept; only identity, timestamps and publication state come from the backend.
func (e *Editor) adoptCreated(localID string, created pages.Page) pages.Page {
	latest, ok := e.store.Page(localID)
	if !ok {
		// Deleted locally while the create was in flight.
		return created
	}
	latest.ID = created.ID
	latest.CreatedAt = created.CreatedAt
	latest.UpdatedAt = created.UpdatedAt
	latest.Status = created.Status
	latest.PublishedAt = created.PublishedAt
	if latest.Slug == "" {
		latest.Slug = created.Slug
	}
	return e.store.RekeyPage(localID, latest)
}

// adoptStatus copies publication state from a remote page onto its local counterpart.
func (e *Editor) adoptStatus(remote pages.Page) pages.Page {
	latest, ok := e.store.Page(remote.ID)
	if !ok {
		return remote
	}
	latest.Status = remote.Status
	latest.PublishedAt = remote.PublishedAt
	latest.UpdatedAt = remote.UpdatedAt
	e.store.PutPage(latest)
	if stored, ok := e.store.Page(remote.ID); ok {
		return stored
	}
	return latest
}

func (e *Editor) beginSave(pageID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	e.stopRevertLocked()
	e.setSaveLocked(SaveState{Status: SaveStatusSaving, PageID: pageID})
	return e.generation
}

// finishSave records the outcome of a save unless a newer save has started since.
func (e *Editor) finishSave(generation uint64, pageID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation {
		return
	}
	state := SaveState{Status: SaveStatusSaved, PageID: pageID}
	delay := e.savedRevert
	if err != nil {
		state = SaveState{Status: SaveStatusError, PageID: e.save.PageID, Error: err.Error(), Code: errorCode(err)}
		delay = e.errorRevert
	}
	e.setSaveLocked(state)
	e.revertTimer = e.afterFunc(delay, func() {
		e.revertToIdle(generation)
	})
}

func (e *Editor) revertToIdle(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation {
		return
	}
	if e.save.Status != SaveStatusSaved && e.save.Status != SaveStatusError {
		return
	}
	e.revertTimer = nil
	e.setSaveLocked(SaveState{Status: SaveStatusIdle, PageID: e.save.PageID})
}

func (e *Editor) stopRevertLocked() {
	if e.revertTimer != nil {
		e.revertTimer.Stop()
		e.revertTimer = nil
	}
}

func (e *Editor) setSaveLocked(state SaveState) {
	state.ChangedAt = e.now()
	e.save = state
	e.store.Feed().Publish(pages.ChangeEvent{
		Kind:      ChangeSaveStatus,
		PageID:    state.PageID,
		Timestamp: state.ChangedAt,
	})
}

// Close stops a pending status revert.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopRevertLocked()
}

func errorCode(err error) string {
	coded, ok := err.(interface{ Code() string })
	if !ok {
		return ""
	}
	return coded.Code()
}
