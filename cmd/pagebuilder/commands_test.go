package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/blocks"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/editor"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/gateway"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/library"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
	"gopkg.in/yaml.v3"
)

func samplePage() pages.Page {
	created := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	return pages.Page{
		ID:     "page-1",
		Title:  "Spring Launch",
		Slug:   "spring-launch",
		Status: pages.PageStatusDraft,
		Blocks: []pages.Block{
			{ID: "block-1", Type: "hero", Content: pages.Content{"title": "Launch day"}, Order: 0},
			{ID: "block-2", Type: "text", Content: pages.Content{"text": "Body copy"}, Order: 1},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestWriteLibraryGroupsByCategory(t *testing.T) {
	var out bytes.Buffer
	if err := writeLibrary(&out, library.Default(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := out.String()
	layoutIndex := strings.Index(text, string(library.CategoryLayout))
	interactiveIndex := strings.Index(text, string(library.CategoryInteractive))
	if layoutIndex != 0 || interactiveIndex <= layoutIndex {
		t.Fatalf("expected categories in library order, got:\n%s", text)
	}
	if !strings.Contains(text, "  hero") {
		t.Fatalf("expected hero descriptor listed, got:\n%s", text)
	}
}

func TestRenderPageFormats(t *testing.T) {
	page := samplePage()

	jsonData, err := renderPage(page, "json")
	if err != nil {
		t.Fatalf("json render failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(jsonData, &decoded); err != nil || decoded["title"] != "Spring Launch" {
		t.Fatalf("unexpected json output %s (%v)", jsonData, err)
	}

	outlineData, err := renderPage(page, outlineFormat)
	if err != nil {
		t.Fatalf("outline render failed: %v", err)
	}
	var outline []blocks.OutlineEntry
	if err := yaml.Unmarshal(outlineData, &outline); err != nil {
		t.Fatalf("failed to decode outline: %v", err)
	}
	if len(outline) != 2 || outline[0].Headline != "Launch day" || outline[1].Order != 1 {
		t.Fatalf("unexpected outline %+v", outline)
	}

	if _, err := renderPage(page, "xml"); !errors.Is(err, editor.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestReadSnapshotInfersFormat(t *testing.T) {
	export, err := editor.EncodePage(samplePage(), editor.FormatYAML)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), export.Filename)
	if err := os.WriteFile(path, export.Data, 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	page, err := readSnapshot(path, "")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if page.Title != "Spring Launch" || len(page.Blocks) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := readSnapshot(filepath.Join(t.TempDir(), "page"), ""); !errors.Is(err, editor.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for missing extension, got %v", err)
	}
}

func TestFindPageFallsBackToSlug(t *testing.T) {
	memory := gateway.NewMemory(gateway.MemoryConfig{Pages: []pages.Page{samplePage()}})
	ctx := context.Background()

	byID, err := findPage(ctx, memory, "page-1")
	if err != nil || byID.Slug != "spring-launch" {
		t.Fatalf("lookup by id failed: %+v %v", byID, err)
	}
	bySlug, err := findPage(ctx, memory, "spring-launch")
	if err != nil || bySlug.ID != "page-1" {
		t.Fatalf("lookup by slug failed: %+v %v", bySlug, err)
	}
	if _, err := findPage(ctx, memory, "missing"); !errors.Is(err, gateway.ErrPageNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
