package pages

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var noOpLogger = zap.NewNop()

// StoreConfig describes the collaborators of a Store.
type StoreConfig struct {
	Clock      func() time.Time
	IDProvider IDProvider
	Feed       *ChangeFeed
	Logger     *zap.Logger
	// InitialPages seeds the collection; an empty list yields a single home page.
	InitialPages []Page
}

// State is a deep-copied snapshot of everything the store owns.
type State struct {
	Pages           []Page `json:"pages"`
	CurrentPage     Page   `json:"currentPage"`
	SelectedBlockID string `json:"selectedBlockId,omitempty"`
	Mode            Mode   `json:"mode"`
}

// Store owns the page collection, the current page, the block selection and the editor mode.
// Every block mutation rewrites the order field of the whole sequence, and the current page
// is always a member of the collection, matched by id.
type Store struct {
	mu              sync.Mutex
	pages           []Page
	currentID       string
	selectedBlockID string
	mode            Mode

	clock       func() time.Time
	idProvider  IDProvider
	feed        *ChangeFeed
	logger      *zap.Logger
	fallbackSeq uint64
}

// NewStore constructs a store holding InitialPages, or a single home page.
func NewStore(cfg StoreConfig) *Store {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	feed := cfg.Feed
	if feed == nil {
		feed = NewChangeFeed()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	store := &Store{
		mode:       ModeEdit,
		clock:      clock,
		idProvider: idProvider,
		feed:       feed,
		logger:     logger,
	}
	store.pages = store.normalizeCollection(cfg.InitialPages)
	store.currentID = store.pages[0].ID
	return store
}

// Feed exposes the change feed consumers subscribe to.
func (s *Store) Feed() *ChangeFeed {
	return s.feed
}

// Snapshot returns a deep copy of the store state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]Page, len(s.pages))
	for index, page := range s.pages {
		pages[index] = page.Clone()
	}
	return State{
		Pages:           pages,
		CurrentPage:     s.pages[s.currentIndex()].Clone(),
		SelectedBlockID: s.selectedBlockID,
		Mode:            s.mode,
	}
}

// Pages returns a copy of the collection in collection order.
func (s *Store) Pages() []Page {
	return s.Snapshot().Pages
}

// CurrentPage returns a copy of the page being edited.
func (s *Store) CurrentPage() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[s.currentIndex()].Clone()
}

// PageCount returns the collection size.
func (s *Store) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// SelectedBlockID returns the selected block id, or the empty string.
func (s *Store) SelectedBlockID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedBlockID
}

// Mode returns the editor mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Page returns a copy of the collection member with the given id.
func (s *Store) Page(pageID string) (Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.pageIndex(pageID)
	if index < 0 {
		return Page{}, false
	}
	return s.pages[index].Clone(), true
}

// CreatePage appends an empty draft page, makes it current and clears the selection.
func (s *Store) CreatePage(title string) Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = DefaultPageTitle
	}
	page := s.newPage(title)
	s.pages = append(s.pages, page)
	s.currentID = page.ID
	s.selectedBlockID = ""
	s.publish(ChangePageCreated, page.ID)
	s.logger.Debug("page created", zap.String("page_id", page.ID))
	return page.Clone()
}

// DeletePage removes a page. An emptied collection is repopulated with a fresh home page,
// and deleting the current page moves the cursor to the first remaining page.
// The selection is cleared either way. It reports whether the page existed.
func (s *Store) DeletePage(pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedBlockID = ""
	index := s.pageIndex(pageID)
	if index < 0 {
		return false
	}
	s.removePageLocked(index)
	return true
}

// DeletePageUnlessLast removes the page with the given id unless it is the only page left.
// found is false for an unknown id; deleted is false when the page was kept as the last one.
func (s *Store) DeletePageUnlessLast(pageID string) (found, deleted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.pageIndex(pageID)
	if index < 0 {
		return false, false
	}
	if len(s.pages) <= 1 {
		return true, false
	}
	s.selectedBlockID = ""
	s.removePageLocked(index)
	return true, true
}

func (s *Store) removePageLocked(index int) {
	pageID := s.pages[index].ID
	s.pages = append(s.pages[:index:index], s.pages[index+1:]...)
	if len(s.pages) == 0 {
		s.pages = []Page{s.newPage(HomePageTitle)}
		s.currentID = s.pages[0].ID
	} else if s.currentID == pageID {
		s.currentID = s.pages[0].ID
	}
	s.publish(ChangePageDeleted, pageID)
	s.logger.Debug("page deleted", zap.String("page_id", pageID), zap.String("current_page_id", s.currentID))
}

// SetCurrentPage installs page as the current page. A collection member with the same id is
// overwritten in place; otherwise the page is appended. The installed copy is returned.
func (s *Store) SetCurrentPage(page Page) Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := s.normalizePage(page)
	if index := s.pageIndex(normalized.ID); index >= 0 {
		s.pages[index] = normalized
	} else {
		s.pages = append(s.pages, normalized)
	}
	s.switchCurrent(normalized)
	s.publish(ChangeCurrentPage, normalized.ID)
	return normalized.Clone()
}

// PutPage overwrites the collection member with the same id without changing the current page.
// It reports whether such a member existed.
func (s *Store) PutPage(page Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.pageIndex(page.ID)
	if index < 0 {
		return false
	}
	normalized := s.normalizePage(page)
	s.pages[index] = normalized
	if normalized.ID == s.currentID && !normalized.HasBlock(s.selectedBlockID) {
		s.selectedBlockID = ""
	}
	s.publish(ChangePageUpdated, normalized.ID)
	return true
}

// OpenPage makes an existing collection member current. It reports whether the page exists.
func (s *Store) OpenPage(pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.pageIndex(pageID)
	if index < 0 {
		return false
	}
	s.switchCurrent(s.pages[index])
	s.publish(ChangeCurrentPage, pageID)
	return true
}

// ReplacePages swaps the whole collection, keeping the current page when it is still present.
func (s *Store) ReplacePages(pages []Page) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = s.normalizeCollection(pages)
	if s.pageIndex(s.currentID) < 0 {
		s.currentID = s.pages[0].ID
		s.selectedBlockID = ""
	} else if !s.pages[s.pageIndex(s.currentID)].HasBlock(s.selectedBlockID) {
		s.selectedBlockID = ""
	}
	s.publish(ChangePagesReplaced, s.currentID)
}

// RekeyPage replaces the member identified by oldID with page, which usually carries the id
// assigned on first persistence. When oldID is unknown the call behaves like SetCurrentPage.
func (s *Store) RekeyPage(oldID string, page Page) Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := s.normalizePage(page)
	oldIndex := s.pageIndex(oldID)
	if oldIndex < 0 {
		if index := s.pageIndex(normalized.ID); index >= 0 {
			s.pages[index] = normalized
		} else {
			s.pages = append(s.pages, normalized)
		}
		s.switchCurrent(normalized)
		s.publish(ChangeCurrentPage, normalized.ID)
		return normalized.Clone()
	}

	if existing := s.pageIndex(normalized.ID); existing >= 0 && existing != oldIndex {
		s.pages = append(s.pages[:existing:existing], s.pages[existing+1:]...)
		oldIndex = s.pageIndex(oldID)
	}
	s.pages[oldIndex] = normalized
	if s.currentID == oldID {
		s.currentID = normalized.ID
		if !normalized.HasBlock(s.selectedBlockID) {
			s.selectedBlockID = ""
		}
	}
	s.publish(ChangeCurrentPage, normalized.ID)
	return normalized.Clone()
}

// AddBlock appends block to the current page.
func (s *Store) AddBlock(block Block) Block {
	return s.insertBlock(block, -1)
}

// InsertBlock inserts block at index in the current page, shifting later blocks right.
// The index is clamped to the sequence bounds.
func (s *Store) InsertBlock(block Block, index int) Block {
	if index < 0 {
		index = 0
	}
	return s.insertBlock(block, index)
}

func (s *Store) insertBlock(block Block, index int) Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted Block
	s.mutateCurrent(ChangeBlockAdded, func(page *Page) []string {
		block = block.Clone()
		if block.ID == "" || page.HasBlock(block.ID) {
			block.ID = s.mintID(BlockIDPrefix)
		}
		if block.Content == nil {
			block.Content = Content{}
		}
		if index < 0 || index > len(page.Blocks) {
			index = len(page.Blocks)
		}
		page.Blocks = append(page.Blocks, Block{})
		copy(page.Blocks[index+1:], page.Blocks[index:])
		page.Blocks[index] = block
		reindex(page.Blocks)
		inserted = page.Blocks[index].Clone()
		return []string{block.ID}
	})
	return inserted
}

// UpdateBlock shallow-merges update into the block with the given id and returns the result.
// Unknown ids and updates that blank the type tag are ignored.
func (s *Store) UpdateBlock(blockID string, update BlockUpdate) (Block, bool) {
	if update.BlanksType() {
		return Block{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated Block
	applied := s.mutateCurrent(ChangeBlockUpdated, func(page *Page) []string {
		index := page.BlockIndex(blockID)
		if index < 0 {
			return nil
		}
		page.Blocks[index] = update.apply(page.Blocks[index])
		updated = page.Blocks[index].Clone()
		return []string{blockID}
	})
	return updated, applied
}

// DeleteBlock removes the block with the given id and clears the selection if it pointed at it.
func (s *Store) DeleteBlock(blockID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.mutateCurrent(ChangeBlockDeleted, func(page *Page) []string {
		index := page.BlockIndex(blockID)
		if index < 0 {
			return nil
		}
		page.Blocks = append(page.Blocks[:index:index], page.Blocks[index+1:]...)
		reindex(page.Blocks)
		return []string{blockID}
	})
	if removed && s.selectedBlockID == blockID {
		s.selectedBlockID = ""
	}
	return removed
}

// MoveBlock relocates the block at fromIndex to toIndex. An out-of-range source is rejected;
// the destination is clamped to the sequence bounds.
func (s *Store) MoveBlock(fromIndex, toIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateCurrent(ChangeBlockMoved, func(page *Page) []string {
		count := len(page.Blocks)
		if fromIndex < 0 || fromIndex >= count {
			return nil
		}
		if toIndex < 0 {
			toIndex = 0
		}
		if toIndex >= count {
			toIndex = count - 1
		}
		moved := page.Blocks[fromIndex]
		if fromIndex < toIndex {
			copy(page.Blocks[fromIndex:toIndex], page.Blocks[fromIndex+1:toIndex+1])
		} else {
			copy(page.Blocks[toIndex+1:fromIndex+1], page.Blocks[toIndex:fromIndex])
		}
		page.Blocks[toIndex] = moved
		reindex(page.Blocks)
		return []string{moved.ID}
	})
}

// DuplicateBlock inserts a deep copy of the block right after it, under a new id.
func (s *Store) DuplicateBlock(blockID string) (Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var duplicate Block
	ok := s.mutateCurrent(ChangeBlockCopied, func(page *Page) []string {
		index := page.BlockIndex(blockID)
		if index < 0 {
			return nil
		}
		duplicate = page.Blocks[index].Clone()
		duplicate.ID = s.mintID(BlockIDPrefix)
		page.Blocks = append(page.Blocks, Block{})
		copy(page.Blocks[index+2:], page.Blocks[index+1:])
		page.Blocks[index+1] = duplicate
		reindex(page.Blocks)
		duplicate = page.Blocks[index+1].Clone()
		return []string{blockID, duplicate.ID}
	})
	return duplicate, ok
}

// SelectBlock selects a block of the current page for property editing; the empty id clears it.
func (s *Store) SelectBlock(blockID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if blockID != "" && !s.pages[s.currentIndex()].HasBlock(blockID) {
		return false
	}
	if s.selectedBlockID == blockID {
		return true
	}
	s.selectedBlockID = blockID
	s.publish(ChangeSelection, s.currentID, blockID)
	return true
}

// SetMode switches between edit and preview.
func (s *Store) SetMode(mode Mode) bool {
	if mode != ModeEdit && mode != ModePreview {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != mode {
		s.mode = mode
		s.publish(ChangeMode, s.currentID)
	}
	return true
}

// mutateCurrent applies fn to the current page. fn returns the affected block ids, or nil
// when nothing changed; only effective mutations bump updatedAt and publish an event.
func (s *Store) mutateCurrent(kind ChangeKind, fn func(page *Page) []string) bool {
	index := s.currentIndex()
	page := s.pages[index].Clone()
	affected := fn(&page)
	if affected == nil {
		return false
	}
	page.UpdatedAt = s.now()
	s.pages[index] = page
	s.publish(kind, page.ID, affected...)
	s.logger.Debug("page mutated",
		zap.String("kind", string(kind)),
		zap.String("page_id", page.ID),
		zap.Strings("block_ids", affected),
		zap.Int("block_count", len(page.Blocks)))
	return true
}

func (s *Store) switchCurrent(page Page) {
	if s.currentID != page.ID || !page.HasBlock(s.selectedBlockID) {
		s.selectedBlockID = ""
	}
	s.currentID = page.ID
}

func (s *Store) currentIndex() int {
	if index := s.pageIndex(s.currentID); index >= 0 {
		return index
	}
	return 0
}

func (s *Store) pageIndex(pageID string) int {
	if pageID == "" {
		return -1
	}
	for index, page := range s.pages {
		if page.ID == pageID {
			return index
		}
	}
	return -1
}

func (s *Store) normalizeCollection(pages []Page) []Page {
	normalized := make([]Page, 0, len(pages))
	seen := make(map[string]struct{}, len(pages))
	for _, page := range pages {
		candidate := s.normalizePage(page)
		if _, duplicate := seen[candidate.ID]; duplicate {
			continue
		}
		seen[candidate.ID] = struct{}{}
		normalized = append(normalized, candidate)
	}
	if len(normalized) == 0 {
		normalized = append(normalized, s.newPage(HomePageTitle))
	}
	return normalized
}

// normalizePage deep-copies page and restores the identity and order invariants.
func (s *Store) normalizePage(page Page) Page {
	normalized := page.Clone()
	if normalized.ID == "" {
		normalized.ID = s.mintID(LocalPageIDPrefix)
	}
	if normalized.Slug == "" {
		normalized.Slug = Slugify(normalized.Title)
	}
	if normalized.Status == "" {
		normalized.Status = PageStatusDraft
	}
	if normalized.CreatedAt.IsZero() {
		normalized.CreatedAt = s.now()
	}
	if normalized.UpdatedAt.IsZero() {
		normalized.UpdatedAt = normalized.CreatedAt
	}
	seen := make(map[string]struct{}, len(normalized.Blocks))
	for index := range normalized.Blocks {
		block := &normalized.Blocks[index]
		if _, duplicate := seen[block.ID]; block.ID == "" || duplicate {
			block.ID = s.mintID(BlockIDPrefix)
		}
		seen[block.ID] = struct{}{}
		if block.Content == nil {
			block.Content = Content{}
		}
	}
	reindex(normalized.Blocks)
	return normalized
}

func (s *Store) newPage(title string) Page {
	now := s.now()
	return Page{
		ID:        s.mintID(LocalPageIDPrefix),
		Title:     title,
		Slug:      Slugify(title),
		Blocks:    []Block{},
		CreatedAt: now,
		UpdatedAt: now,
		Status:    PageStatusDraft,
	}
}

func (s *Store) mintID(prefix string) string {
	value, err := s.idProvider.NewID()
	if err == nil && value != "" {
		return prefix + value
	}
	s.fallbackSeq++
	s.logger.Warn("id provider failed, using fallback identifier", zap.Error(err))
	return fmt.Sprintf("%s%d-%d", prefix, s.now().UnixNano(), s.fallbackSeq)
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func (s *Store) publish(kind ChangeKind, pageID string, blockIDs ...string) {
	s.feed.Publish(ChangeEvent{
		Kind:      kind,
		PageID:    pageID,
		BlockIDs:  blockIDs,
		Timestamp: s.now(),
	})
}
