package pages

import (
	"fmt"
	"testing"
	"time"
)

type sequentialIDs struct {
	next int
}

func (p *sequentialIDs) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("%d", p.next), nil
}

type steppingClock struct {
	current time.Time
}

func (c *steppingClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestStore(t *testing.T, initial ...Page) (*Store, *steppingClock) {
	t.Helper()
	clock := &steppingClock{current: time.Unix(1700000000, 0).UTC()}
	store := NewStore(StoreConfig{
		Clock:        clock.Now,
		IDProvider:   &sequentialIDs{},
		InitialPages: initial,
	})
	return store, clock
}

func textBlock(id string) Block {
	return Block{ID: id, Type: "text", Content: Content{"title": "Section " + id}}
}

func requireContiguousOrder(t *testing.T, page Page) {
	t.Helper()
	for index, block := range page.Blocks {
		if block.Order != index {
			t.Fatalf("block %s at index %d has order %d", block.ID, index, block.Order)
		}
	}
}

func blockIDs(page Page) []string {
	ids := make([]string, 0, len(page.Blocks))
	for _, block := range page.Blocks {
		ids = append(ids, block.ID)
	}
	return ids
}

func requireBlockIDs(t *testing.T, page Page, expected ...string) {
	t.Helper()
	actual := blockIDs(page)
	if len(actual) != len(expected) {
		t.Fatalf("expected blocks %v, got %v", expected, actual)
	}
	for index := range expected {
		if actual[index] != expected[index] {
			t.Fatalf("expected blocks %v, got %v", expected, actual)
		}
	}
}
