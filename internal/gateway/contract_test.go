package gateway

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

type steppingClock struct {
	mu      sync.Mutex
	current time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{current: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

type sequentialIDs struct {
	mu   sync.Mutex
	next int
}

func (s *sequentialIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return "page-" + strconv.Itoa(s.next), nil
}

func sampleBlocks() []pages.Block {
	return []pages.Block{
		{ID: "block-a", Type: "hero", Content: pages.Content{"title": "Welcome"}, Order: 7},
		{ID: "block-b", Type: "text", Content: pages.Content{"title": "About", "text": "Body"}, Order: 3},
	}
}

func requireCode(testContext *testing.T, err error, expected string) {
	testContext.Helper()
	var gatewayErr *Error
	if !errors.As(err, &gatewayErr) {
		testContext.Fatalf("expected gateway error, got %v", err)
	}
	if gatewayErr.Code() != expected {
		testContext.Fatalf("expected code %q, got %q", expected, gatewayErr.Code())
	}
}

// runContract exercises the behaviour every driver shares. newGateway must return an empty backend.
func runContract(testContext *testing.T, newGateway func(*testing.T) Gateway) {
	testContext.Run("create derives slug and draft status", func(t *testing.T) {
		gateway := newGateway(t)
		ctx := context.Background()

		created, err := gateway.Create(ctx, PageDraft{Title: "About Us", Blocks: sampleBlocks()})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == "" {
			t.Fatalf("expected an id to be assigned")
		}
		if created.Slug != "about-us" {
			t.Fatalf("expected slug about-us, got %q", created.Slug)
		}
		if created.Status != pages.PageStatusDraft || created.PublishedAt != nil {
			t.Fatalf("expected unpublished draft, got %s / %v", created.Status, created.PublishedAt)
		}
		if len(created.Blocks) != 2 || created.Blocks[0].Order != 0 || created.Blocks[1].Order != 1 {
			t.Fatalf("expected reindexed blocks, got %+v", created.Blocks)
		}

		fetched, err := gateway.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if fetched.Title != "About Us" || len(fetched.Blocks) != 2 || fetched.Blocks[1].Content["text"] != "Body" {
			t.Fatalf("unexpected fetched page %+v", fetched)
		}

		bySlug, err := gateway.GetBySlug(ctx, "about-us")
		if err != nil {
			t.Fatalf("get by slug: %v", err)
		}
		if bySlug.ID != created.ID {
			t.Fatalf("slug lookup returned %q, want %q", bySlug.ID, created.ID)
		}
	})

	testContext.Run("create published stamps publishedAt", func(t *testing.T) {
		gateway := newGateway(t)

		created, err := gateway.Create(context.Background(), PageDraft{Title: "Launch", Slug: "launch-day", Status: pages.PageStatusPublished})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.Slug != "launch-day" || created.Status != pages.PageStatusPublished || created.PublishedAt == nil {
			t.Fatalf("unexpected published page %+v", created)
		}
	})

	testContext.Run("create rejects empty title", func(t *testing.T) {
		gateway := newGateway(t)

		_, err := gateway.Create(context.Background(), PageDraft{Title: "  "})
		if !errors.Is(err, ErrInvalidDraft) {
			t.Fatalf("expected ErrInvalidDraft, got %v", err)
		}
	})

	testContext.Run("update merges provided fields", func(t *testing.T) {
		gateway := newGateway(t)
		ctx := context.Background()
		created, err := gateway.Create(ctx, PageDraft{Title: "Draft", Blocks: sampleBlocks()})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		title := "Renamed"
		updated, err := gateway.Update(ctx, created.ID, PagePatch{
			Title:  &title,
			Blocks: []pages.Block{{ID: "block-c", Type: "cta", Content: pages.Content{"buttonText": "Go"}}},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Title != "Renamed" || updated.Slug != "draft" {
			t.Fatalf("expected title change only, got %q / %q", updated.Title, updated.Slug)
		}
		if len(updated.Blocks) != 1 || updated.Blocks[0].ID != "block-c" {
			t.Fatalf("expected blocks replaced, got %+v", updated.Blocks)
		}

		untouched, err := gateway.Update(ctx, created.ID, PagePatch{})
		if err != nil {
			t.Fatalf("empty update: %v", err)
		}
		if len(untouched.Blocks) != 1 || untouched.Title != "Renamed" {
			t.Fatalf("empty patch changed the page: %+v", untouched)
		}
	})

	testContext.Run("publish and unpublish", func(t *testing.T) {
		gateway := newGateway(t)
		ctx := context.Background()
		created, err := gateway.Create(ctx, PageDraft{Title: "News"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		published, err := gateway.Publish(ctx, created.ID)
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		if published.Status != pages.PageStatusPublished || published.PublishedAt == nil {
			t.Fatalf("expected published page, got %s / %v", published.Status, published.PublishedAt)
		}

		unpublished, err := gateway.Unpublish(ctx, created.ID)
		if err != nil {
			t.Fatalf("unpublish: %v", err)
		}
		if unpublished.Status != pages.PageStatusDraft || unpublished.PublishedAt != nil {
			t.Fatalf("expected draft page, got %s / %v", unpublished.Status, unpublished.PublishedAt)
		}
	})

	testContext.Run("missing pages report not found", func(t *testing.T) {
		gateway := newGateway(t)
		ctx := context.Background()

		if _, err := gateway.Get(ctx, "999"); !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("get: expected ErrPageNotFound, got %v", err)
		}
		if _, err := gateway.GetBySlug(ctx, "nowhere"); !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("get by slug: expected ErrPageNotFound, got %v", err)
		}
		title := "x"
		if _, err := gateway.Update(ctx, "999", PagePatch{Title: &title}); !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("update: expected ErrPageNotFound, got %v", err)
		}
		if _, err := gateway.Publish(ctx, "999"); !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("publish: expected ErrPageNotFound, got %v", err)
		}
		if err := gateway.Delete(ctx, "999"); !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("delete: expected ErrPageNotFound, got %v", err)
		}
	})

	testContext.Run("delete removes page and list keeps creation order", func(t *testing.T) {
		gateway := newGateway(t)
		ctx := context.Background()
		var ids []string
		for _, title := range []string{"First", "Second", "Third"} {
			created, err := gateway.Create(ctx, PageDraft{Title: title})
			if err != nil {
				t.Fatalf("create %s: %v", title, err)
			}
			ids = append(ids, created.ID)
		}

		if err := gateway.Delete(ctx, ids[1]); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := gateway.Get(ctx, ids[1]); !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("expected deleted page to be gone, got %v", err)
		}

		listed, err := gateway.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(listed) != 2 || listed[0].ID != ids[0] || listed[1].ID != ids[2] {
			t.Fatalf("unexpected list %+v", listed)
		}
	})
}
