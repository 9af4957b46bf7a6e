package blocks_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/blocks"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/library"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) {
	return "fixed", nil
}

func TestEveryLibraryTemplateDecodes(t *testing.T) {
	registry := library.Default(fixedIDs{})
	for _, descriptor := range registry.List() {
		block, err := registry.Instantiate(descriptor.ID)
		if err != nil {
			t.Fatalf("instantiate %s: %v", descriptor.ID, err)
		}
		if !blocks.Known(block.Type) {
			t.Fatalf("expected %s to have a typed variant", block.Type)
		}
		content, err := blocks.Decode(block)
		if err != nil {
			t.Fatalf("decode %s: %v", descriptor.ID, err)
		}
		if content.Kind() != descriptor.ID.String() {
			t.Fatalf("decoded kind %q for type %q", content.Kind(), descriptor.ID)
		}
		if blocks.Headline(block) == "" {
			t.Fatalf("expected a headline for %s", descriptor.ID)
		}
	}
}

func TestDecodeNestedLists(t *testing.T) {
	block := pages.Block{
		ID:   "block-pricing",
		Type: "pricing",
		Content: pages.Content{
			"title": "Plans",
			"plans": []any{
				map[string]any{"name": "Pro", "price": "$29", "features": []any{"A", "B"}, "popular": true},
			},
		},
	}

	content, err := blocks.Decode(block)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	pricing, ok := content.(blocks.Pricing)
	if !ok {
		t.Fatalf("expected Pricing, got %T", content)
	}
	if len(pricing.Plans) != 1 || !pricing.Plans[0].Popular || len(pricing.Plans[0].Features) != 2 {
		t.Fatalf("unexpected plans %+v", pricing.Plans)
	}
}

func TestDecodeWeaklyTypedValues(t *testing.T) {
	block := pages.Block{
		ID:      "block-quote",
		Type:    "testimonial",
		Content: pages.Content{"author": "Ada", "rating": "4"},
	}

	content, err := blocks.Decode(block)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rating := content.(blocks.Testimonial).Rating; rating != 4 {
		t.Fatalf("expected rating 4, got %d", rating)
	}
}

func TestDecodeRejectsMismatchedShape(t *testing.T) {
	block := pages.Block{
		ID:      "block-faq",
		Type:    "faq",
		Content: pages.Content{"faqs": "not a list"},
	}

	_, err := blocks.Decode(block)
	if !errors.Is(err, blocks.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDecodeUnknownTypeKeepsRawContent(t *testing.T) {
	block := pages.Block{
		ID:      "block-custom",
		Type:    "carousel",
		Content: pages.Content{"title": "Slides", "slides": []any{"a", "b"}},
	}

	content, err := blocks.Decode(block)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	unknown, ok := content.(blocks.Unknown)
	if !ok {
		t.Fatalf("expected Unknown, got %T", content)
	}
	if unknown.Kind() != "carousel" || unknown.Raw["title"] != "Slides" {
		t.Fatalf("unexpected unknown variant %+v", unknown)
	}
	unknown.Raw["title"] = "Changed"
	if block.Content["title"] != "Slides" {
		t.Fatalf("raw content aliases the block")
	}
}

func TestHeadlineFallbacks(t *testing.T) {
	testCases := []struct {
		name     string
		block    pages.Block
		expected string
	}{
		{
			name:     "two column uses right title when left is blank",
			block:    pages.Block{Type: "twoColumn", Content: pages.Content{"leftTitle": " ", "rightTitle": "Right"}},
			expected: "Right",
		},
		{
			name:     "image falls back to alt",
			block:    pages.Block{Type: "image", Content: pages.Content{"alt": "Skyline"}},
			expected: "Skyline",
		},
		{
			name:     "unknown type uses name",
			block:    pages.Block{Type: "badge", Content: pages.Content{"name": "New"}},
			expected: "New",
		},
		{
			name:     "malformed content still yields title",
			block:    pages.Block{Type: "faq", Content: pages.Content{"title": "Help", "faqs": 3}},
			expected: "Help",
		},
		{
			name:     "empty content",
			block:    pages.Block{Type: "text", Content: pages.Content{}},
			expected: "",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := blocks.Headline(testCase.block); got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestHeadlineTruncatesLongText(t *testing.T) {
	block := pages.Block{Type: "text", Content: pages.Content{"text": strings.Repeat("a", 200)}}

	headline := blocks.Headline(block)
	if len([]rune(headline)) != 80 {
		t.Fatalf("expected 80 runes, got %d", len([]rune(headline)))
	}
}

func TestOutlineFollowsBlockOrder(t *testing.T) {
	page := pages.Page{
		ID: "page-1",
		Blocks: []pages.Block{
			{ID: "block-a", Type: "hero", Content: pages.Content{"title": "Welcome"}},
			{ID: "block-b", Type: "text", Content: pages.Content{"title": "About"}},
		},
	}

	outline := blocks.Outline(page)
	if len(outline) != 2 {
		t.Fatalf("expected two entries, got %d", len(outline))
	}
	if outline[0].ID != "block-a" || outline[0].Order != 0 || outline[0].Headline != "Welcome" {
		t.Fatalf("unexpected first entry %+v", outline[0])
	}
	if outline[1].ID != "block-b" || outline[1].Order != 1 || outline[1].Type != "text" {
		t.Fatalf("unexpected second entry %+v", outline[1])
	}
}
