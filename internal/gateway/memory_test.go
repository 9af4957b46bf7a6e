package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

func TestMemoryContract(testContext *testing.T) {
	runContract(testContext, func(t *testing.T) Gateway {
		return NewMemory(MemoryConfig{Clock: newSteppingClock().Now, Pages: []pages.Page{}})
	})
}

func TestMemorySeedsPublishedHomePage(testContext *testing.T) {
	gateway := NewMemory(MemoryConfig{Clock: newSteppingClock().Now})
	ctx := context.Background()

	listed, err := gateway.List(ctx)
	if err != nil {
		testContext.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		testContext.Fatalf("expected the seeded page only, got %d pages", len(listed))
	}
	home := listed[0]
	if home.ID != "1" || home.Slug != "home" || home.Status != pages.PageStatusPublished || home.PublishedAt == nil {
		testContext.Fatalf("unexpected seed page %+v", home)
	}
	if len(home.Blocks) != 2 || home.Blocks[0].Type != "hero" || home.Blocks[1].Type != "text" {
		testContext.Fatalf("unexpected seed blocks %+v", home.Blocks)
	}

	created, err := gateway.Create(ctx, PageDraft{Title: "Contact"})
	if err != nil {
		testContext.Fatalf("create: %v", err)
	}
	if created.ID != "2" {
		testContext.Fatalf("expected sequential id 2, got %q", created.ID)
	}
}

func TestMemoryReturnsCopies(testContext *testing.T) {
	gateway := NewMemory(MemoryConfig{})
	ctx := context.Background()

	page, err := gateway.Get(ctx, "1")
	if err != nil {
		testContext.Fatalf("get: %v", err)
	}
	page.Blocks[0].Content["title"] = "Mutated"
	page.Title = "Mutated"

	again, err := gateway.Get(ctx, "1")
	if err != nil {
		testContext.Fatalf("get: %v", err)
	}
	if again.Title == "Mutated" || again.Blocks[0].Content["title"] == "Mutated" {
		testContext.Fatalf("stored page aliases caller copy")
	}
}

func TestMemoryLatencyHonoursCancellation(testContext *testing.T) {
	gateway := NewMemory(MemoryConfig{Latency: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := time.Now()
	_, err := gateway.List(ctx)
	if !errors.Is(err, context.Canceled) {
		testContext.Fatalf("expected context.Canceled, got %v", err)
	}
	requireCode(testContext, err, "memory.list.canceled")
	if time.Since(started) > time.Second {
		testContext.Fatalf("latency ignored cancellation")
	}
}

func TestMemoryNotFoundCode(testContext *testing.T) {
	gateway := NewMemory(MemoryConfig{})

	_, err := gateway.Get(context.Background(), "42")
	requireCode(testContext, err, "memory.get.not_found")
}
