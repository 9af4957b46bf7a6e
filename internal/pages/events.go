package pages

import (
	"context"
	"sync"
	"time"
)

// ChangeKind names the store mutation that produced a ChangeEvent.
type ChangeKind string

const (
	ChangePageCreated   ChangeKind = "page-created"
	ChangePageDeleted   ChangeKind = "page-deleted"
	ChangeCurrentPage   ChangeKind = "current-page"
	ChangePageUpdated   ChangeKind = "page-updated"
	ChangePagesReplaced ChangeKind = "pages-replaced"
	ChangeBlockAdded    ChangeKind = "block-added"
	ChangeBlockUpdated  ChangeKind = "block-updated"
	ChangeBlockDeleted  ChangeKind = "block-deleted"
	ChangeBlockMoved    ChangeKind = "block-moved"
	ChangeBlockCopied   ChangeKind = "block-duplicated"
	ChangeSelection     ChangeKind = "selection"
	ChangeMode          ChangeKind = "mode"
)

const defaultFeedBufferSize = 32

// ChangeEvent tells subscribers that the store state changed; they re-read Snapshot for details.
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	PageID    string     `json:"pageId,omitempty"`
	BlockIDs  []string   `json:"blockIds,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChangeFeed fans store events out to subscribers. Slow subscribers miss events instead of blocking publishers.
type ChangeFeed struct {
	mu          sync.RWMutex
	subscribers map[int64]chan ChangeEvent
	nextID      int64
	bufferSize  int
}

// NewChangeFeed constructs an empty feed.
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		subscribers: make(map[int64]chan ChangeEvent),
		bufferSize:  defaultFeedBufferSize,
	}
}

// Subscribe registers a listener until ctx is done or the returned cleanup runs.
func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	stream := make(chan ChangeEvent, f.bufferSize)

	f.mu.Lock()
	f.nextID++
	subscriberID := f.nextID
	f.subscribers[subscriberID] = stream
	f.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, subscriberID)
			f.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return stream, cleanup
}

// Publish delivers the event to every subscriber with buffer space left.
func (f *ChangeFeed) Publish(event ChangeEvent) {
	if event.Kind == "" {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, stream := range f.subscribers {
		select {
		case stream <- event:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (f *ChangeFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
