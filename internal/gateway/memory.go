package gateway

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	opMemoryList      = "memory.list"
	opMemoryGet       = "memory.get"
	opMemoryGetBySlug = "memory.get_by_slug"
	opMemoryCreate    = "memory.create"
	opMemoryUpdate    = "memory.update"
	opMemoryDelete    = "memory.delete"
	opMemoryPublish   = "memory.publish"
	opMemoryUnpublish = "memory.unpublish"
)

// MemoryConfig describes an in-process gateway.
type MemoryConfig struct {
	Clock func() time.Time
	// Latency delays every call to mimic a remote backend.
	Latency time.Duration
	// Pages replaces the seeded home page when non-nil.
	Pages  []pages.Page
	Logger *zap.Logger
}

// Memory keeps pages in process memory and assigns sequential numeric ids.
type Memory struct {
	mu      sync.Mutex
	pages   []pages.Page
	nextID  int
	clock   func() time.Time
	latency time.Duration
	logger  *zap.Logger
}

// NewMemory constructs a memory gateway seeded with a published home page.
func NewMemory(cfg MemoryConfig) *Memory {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	memory := &Memory{
		clock:   clock,
		latency: cfg.Latency,
		logger:  logger,
	}
	seed := cfg.Pages
	if seed == nil {
		seed = []pages.Page{seedHomePage(memory.now())}
	}
	for _, page := range seed {
		stored := page.Clone()
		stored.Blocks = normalizeBlocks(stored.Blocks)
		memory.pages = append(memory.pages, stored)
		if numeric, err := strconv.Atoi(stored.ID); err == nil && numeric > memory.nextID {
			memory.nextID = numeric
		}
	}
	return memory
}

func seedHomePage(now time.Time) pages.Page {
	publishedAt := now
	return pages.Page{
		ID:    "1",
		Title: pages.HomePageTitle,
		Slug:  "home",
		Blocks: []pages.Block{
			{
				ID:   "block-1",
				Type: "hero",
				Content: pages.Content{
					"title":               "Welcome to Our Platform",
					"subtitle":            "Build amazing websites with our drag-and-drop page builder",
					"primaryButtonText":   "Get Started",
					"secondaryButtonText": "Learn More",
				},
			},
			{
				ID:   "block-2",
				Type: "text",
				Content: pages.Content{
					"title": "About Us",
					"text":  "We help teams publish beautiful pages without writing code.",
				},
			},
		},
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishedAt: &publishedAt,
		Status:      pages.PageStatusPublished,
	}
}

func (m *Memory) List(ctx context.Context) ([]pages.Page, error) {
	if err := m.wait(ctx); err != nil {
		return nil, newError(opMemoryList, "canceled", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]pages.Page, len(m.pages))
	for index, page := range m.pages {
		out[index] = page.Clone()
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (pages.Page, error) {
	if err := m.wait(ctx); err != nil {
		return pages.Page{}, newError(opMemoryGet, "canceled", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOf(id)
	if index < 0 {
		return pages.Page{}, notFound(opMemoryGet, id)
	}
	return m.pages[index].Clone(), nil
}

func (m *Memory) GetBySlug(ctx context.Context, slug string) (pages.Page, error) {
	if err := m.wait(ctx); err != nil {
		return pages.Page{}, newError(opMemoryGetBySlug, "canceled", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, page := range m.pages {
		if page.Slug == slug {
			return page.Clone(), nil
		}
	}
	return pages.Page{}, notFound(opMemoryGetBySlug, slug)
}

func (m *Memory) Create(ctx context.Context, draft PageDraft) (pages.Page, error) {
	if err := m.wait(ctx); err != nil {
		return pages.Page{}, newError(opMemoryCreate, "canceled", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	page, err := newPageFromDraft(strconv.Itoa(m.nextID+1), draft, m.now())
	if err != nil {
		logError(m.logger, opMemoryCreate, "invalid_draft", err)
		return pages.Page{}, newError(opMemoryCreate, "invalid_draft", err)
	}
	m.nextID++
	m.pages = append(m.pages, page)
	return page.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, id string, patch PagePatch) (pages.Page, error) {
	if err := m.wait(ctx); err != nil {
		return pages.Page{}, newError(opMemoryUpdate, "canceled", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOf(id)
	if index < 0 {
		return pages.Page{}, notFound(opMemoryUpdate, id)
	}
	updated, err := applyPatch(m.pages[index], patch, m.now())
	if err != nil {
		return pages.Page{}, newError(opMemoryUpdate, "invalid_patch", err)
	}
	m.pages[index] = updated
	return updated.Clone(), nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := m.wait(ctx); err != nil {
		return newError(opMemoryDelete, "canceled", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOf(id)
	if index < 0 {
		return notFound(opMemoryDelete, id)
	}
	m.pages = append(m.pages[:index:index], m.pages[index+1:]...)
	return nil
}

func (m *Memory) Publish(ctx context.Context, id string) (pages.Page, error) {
	return m.setStatus(ctx, opMemoryPublish, id, pages.PageStatusPublished)
}

func (m *Memory) Unpublish(ctx context.Context, id string) (pages.Page, error) {
	return m.setStatus(ctx, opMemoryUnpublish, id, pages.PageStatusDraft)
}

func (m *Memory) setStatus(ctx context.Context, operation, id string, status pages.PageStatus) (pages.Page, error) {
	if err := m.wait(ctx); err != nil {
		return pages.Page{}, newError(operation, "canceled", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOf(id)
	if index < 0 {
		return pages.Page{}, notFound(operation, id)
	}
	m.pages[index] = withStatus(m.pages[index], status, m.now())
	return m.pages[index].Clone(), nil
}

func (m *Memory) indexOf(id string) int {
	for index, page := range m.pages {
		if page.ID == id {
			return index
		}
	}
	return -1
}

func (m *Memory) now() time.Time {
	return m.clock().UTC()
}

// wait applies the simulated latency, returning early when ctx is done.
func (m *Memory) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
