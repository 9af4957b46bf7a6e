package library

import (
	"errors"
	"strconv"
	"testing"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

var _ pages.IDProvider = (*counterIDs)(nil)

type counterIDs struct {
	next int
}

func (c *counterIDs) NewID() (string, error) {
	c.next++
	return strconv.Itoa(c.next), nil
}

type failingIDs struct{}

func (failingIDs) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

func TestDefaultRegistryOffersSixteenTypes(t *testing.T) {
	registry := Default(&counterIDs{})

	descriptors := registry.List()
	if len(descriptors) != 16 {
		t.Fatalf("expected 16 descriptors, got %d", len(descriptors))
	}

	expectedPerCategory := map[Category]int{
		CategoryLayout:      4,
		CategoryContent:     6,
		CategoryMedia:       3,
		CategoryInteractive: 3,
	}
	total := 0
	for _, category := range registry.Categories() {
		got := len(registry.ByCategory(category))
		if got != expectedPerCategory[category] {
			t.Fatalf("category %s: expected %d descriptors, got %d", category, expectedPerCategory[category], got)
		}
		total += got
	}
	if total != len(descriptors) {
		t.Fatalf("categories cover %d descriptors, want %d", total, len(descriptors))
	}
}

func TestLookupKnownAndUnknownTypes(t *testing.T) {
	registry := Default(&counterIDs{})

	descriptor, ok := registry.Lookup(TypePricing)
	if !ok {
		t.Fatalf("expected pricing descriptor")
	}
	if descriptor.DisplayName != "Pricing Table" {
		t.Fatalf("unexpected display name %q", descriptor.DisplayName)
	}
	plans, ok := descriptor.DefaultContent["plans"].([]any)
	if !ok || len(plans) != 3 {
		t.Fatalf("expected three default plans, got %#v", descriptor.DefaultContent["plans"])
	}

	if _, ok := registry.Lookup("carousel"); ok {
		t.Fatalf("expected carousel to be unknown")
	}
}

func TestInstantiateReturnsIsolatedContent(t *testing.T) {
	registry := Default(&counterIDs{})

	first, err := registry.Instantiate(TypeFAQ)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	second, err := registry.Instantiate(TypeFAQ)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if first.ID != "block-1" || second.ID != "block-2" {
		t.Fatalf("unexpected ids %q and %q", first.ID, second.ID)
	}
	if first.Type != TypeFAQ {
		t.Fatalf("unexpected type %q", first.Type)
	}

	faqs := first.Content["faqs"].([]any)
	faqs[0].(map[string]any)["question"] = "Edited"
	first.Content["title"] = "Edited"

	if second.Content["title"] == "Edited" {
		t.Fatalf("instances share top-level content")
	}
	if second.Content["faqs"].([]any)[0].(map[string]any)["question"] == "Edited" {
		t.Fatalf("instances share nested content")
	}
	descriptor, _ := registry.Lookup(TypeFAQ)
	if descriptor.DefaultContent["title"] == "Edited" {
		t.Fatalf("instantiation leaked into the registry defaults")
	}
}

func TestInstantiateUnknownType(t *testing.T) {
	registry := Default(&counterIDs{})

	_, err := registry.Instantiate("carousel")
	if !errors.Is(err, ErrUnknownBlockType) {
		t.Fatalf("expected ErrUnknownBlockType, got %v", err)
	}
}

func TestInstantiatePropagatesIDFailure(t *testing.T) {
	registry := Default(failingIDs{})

	if _, err := registry.Instantiate(TypeText); err == nil {
		t.Fatalf("expected id provider failure to surface")
	}
}

func TestNewRejectsInvalidDescriptors(t *testing.T) {
	testCases := []struct {
		name        string
		descriptors []Descriptor
	}{
		{name: "empty id", descriptors: []Descriptor{{ID: " ", Category: CategoryContent}}},
		{name: "unknown category", descriptors: []Descriptor{{ID: "text", Category: "sidebar"}}},
		{name: "duplicate id", descriptors: []Descriptor{
			{ID: "text", Category: CategoryContent},
			{ID: "text", Category: CategoryContent},
		}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := New(Config{Descriptors: testCase.descriptors})
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
			}
		})
	}
}

func TestNewFillsNilDefaultContent(t *testing.T) {
	registry, err := New(Config{
		Descriptors: []Descriptor{{ID: "spacer", DisplayName: "Spacer", Category: CategoryLayout}},
		IDProvider:  &counterIDs{},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	block, err := registry.Instantiate("spacer")
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if block.Content == nil {
		t.Fatalf("expected empty content map, got nil")
	}
}
