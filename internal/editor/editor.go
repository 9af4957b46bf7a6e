// Package editor implements the toolbar and page-manager workflows on top of the page store:
// saving and publishing through a gateway, guarded page deletion, and snapshot import/export.
package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/gateway"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/library"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	// DefaultSavedRevert is how long the saved status stays visible.
	DefaultSavedRevert = 2 * time.Second
	// DefaultErrorRevert is how long the error status stays visible.
	DefaultErrorRevert = 3 * time.Second

	opEditorNew = "editor.new"
)

var (
	// ErrLastPage rejects deleting the only page of the collection.
	ErrLastPage = errors.New("editor: cannot delete the last page")
	// ErrPageNotFound indicates a local page id that is not in the collection.
	ErrPageNotFound = errors.New("editor: page not found")
	// ErrMalformedImport indicates a snapshot that cannot be parsed or has the wrong shape.
	ErrMalformedImport = errors.New("editor: malformed import")
	// ErrUnsupportedFormat indicates an unknown export or import format.
	ErrUnsupportedFormat = errors.New("editor: unsupported format")

	errMissingStore   = errors.New("page store is required")
	errMissingGateway = errors.New("gateway is required")
	noOpLogger        = zap.NewNop()
)

// Error is an editor failure carrying a dotted code of the form editor.operation.reason.
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

// Timer is the handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

// Config describes the collaborators of an Editor.
type Config struct {
	Store   *pages.Store
	Gateway gateway.Gateway
	Library *library.Registry

	SavedRevert time.Duration
	ErrorRevert time.Duration
	// AfterFunc schedules status reverts; defaults to time.AfterFunc.
	AfterFunc func(time.Duration, func()) Timer
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Editor coordinates the store with remote persistence.
type Editor struct {
	store   *pages.Store
	gateway gateway.Gateway
	library *library.Registry

	savedRevert time.Duration
	errorRevert time.Duration
	afterFunc   func(time.Duration, func()) Timer
	clock       func() time.Time
	logger      *zap.Logger

	mu          sync.Mutex
	save        SaveState
	generation  uint64
	revertTimer Timer
}

// New validates cfg and constructs an Editor in the idle save state.
func New(cfg Config) (*Editor, error) {
	if cfg.Store == nil {
		return nil, newError(opEditorNew, "missing_store", errMissingStore)
	}
	if cfg.Gateway == nil {
		return nil, newError(opEditorNew, "missing_gateway", errMissingGateway)
	}
	registry := cfg.Library
	if registry == nil {
		registry = library.Default(nil)
	}
	savedRevert := cfg.SavedRevert
	if savedRevert <= 0 {
		savedRevert = DefaultSavedRevert
	}
	errorRevert := cfg.ErrorRevert
	if errorRevert <= 0 {
		errorRevert = DefaultErrorRevert
	}
	afterFunc := cfg.AfterFunc
	if afterFunc == nil {
		afterFunc = func(delay time.Duration, fn func()) Timer {
			return time.AfterFunc(delay, fn)
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	editor := &Editor{
		store:       cfg.Store,
		gateway:     cfg.Gateway,
		library:     registry,
		savedRevert: savedRevert,
		errorRevert: errorRevert,
		afterFunc:   afterFunc,
		clock:       clock,
		logger:      logger,
	}
	editor.save = SaveState{Status: SaveStatusIdle, ChangedAt: editor.now()}
	return editor, nil
}

// Store exposes the page store the editor operates on.
func (e *Editor) Store() *pages.Store {
	return e.store
}

// Library exposes the block-type registry.
func (e *Editor) Library() *library.Registry {
	return e.library
}

// DeletePage removes a local page, refusing to empty the collection.
func (e *Editor) DeletePage(pageID string) error {
	const operation = "editor.delete_page"
	found, deleted := e.store.DeletePageUnlessLast(pageID)
	if !found {
		return newError(operation, "not_found", fmt.Errorf("%w: %s", ErrPageNotFound, pageID))
	}
	if !deleted {
		return newError(operation, "last_page", ErrLastPage)
	}
	return nil
}

// AddFromLibrary instantiates a block type and inserts it into the current page.
// A nil index appends.
func (e *Editor) AddFromLibrary(blockType pages.BlockType, index *int) (pages.Block, error) {
	const operation = "editor.add_block"
	block, err := e.library.Instantiate(blockType)
	if err != nil {
		if errors.Is(err, library.ErrUnknownBlockType) {
			return pages.Block{}, newError(operation, "unknown_type", err)
		}
		e.logError(operation, "instantiate_failed", err)
		return pages.Block{}, newError(operation, "instantiate_failed", err)
	}
	if index == nil {
		return e.store.AddBlock(block), nil
	}
	return e.store.InsertBlock(block, *index), nil
}

func (e *Editor) now() time.Time {
	return e.clock().UTC()
}

func (e *Editor) logError(operation, reason string, err error, fields ...zap.Field) {
	if e.logger == nil || err == nil {
		return
	}
	allFields := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	e.logger.Error("editor operation failed", allFields...)
}
