package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

// Format selects the snapshot encoding used by export and import.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"

	fallbackFilename = "page"
)

// ParseFormat validates a format name; "yml" is accepted for YAML and the empty string means JSON.
func ParseFormat(rawInput string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case "", string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, rawInput)
	}
}

// FormatFromFilename infers the format from a file extension.
func FormatFromFilename(filename string) (Format, error) {
	extension := strings.TrimPrefix(filepath.Ext(filename), ".")
	if extension == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, filename)
	}
	return ParseFormat(extension)
}

// ContentType returns the media type of the encoding.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Export is an encoded page snapshot ready to be downloaded.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export encodes the current page.
func (e *Editor) Export(format Format) (Export, error) {
	exported, err := EncodePage(e.store.CurrentPage(), format)
	if err != nil {
		return Export{}, newError("editor.export", "encode_failed", err)
	}
	return exported, nil
}

// Import decodes a snapshot and installs it as the current page. Malformed input leaves the store unchanged.
func (e *Editor) Import(data []byte, format Format) (pages.Page, error) {
	page, err := DecodePage(data, format)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return pages.Page{}, newError("editor.import", "unsupported_format", err)
		}
		return pages.Page{}, newError("editor.import", "malformed", err)
	}
	return e.store.SetCurrentPage(page), nil
}

// EncodePage renders page in the given format, named after the slug of its title.
func EncodePage(page pages.Page, format Format) (Export, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(page, "", "  ")
	case FormatYAML:
		var buffer bytes.Buffer
		encoder := yaml.NewEncoder(&buffer)
		encoder.SetIndent(2)
		err = encoder.Encode(page)
		if closeErr := encoder.Close(); err == nil {
			err = closeErr
		}
		data = buffer.Bytes()
	default:
		return Export{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Export{}, err
	}
	name := pages.Slugify(page.Title)
	if name == "" {
		name = fallbackFilename
	}
	return Export{
		Filename:    name + "." + string(format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

type pageDocument struct {
	ID          string          `json:"id" yaml:"id"`
	Title       *string         `json:"title" yaml:"title"`
	Slug        string          `json:"slug" yaml:"slug"`
	Status      string          `json:"status" yaml:"status"`
	Blocks      []blockDocument `json:"blocks" yaml:"blocks"`
	CreatedAt   string          `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   string          `json:"updatedAt" yaml:"updatedAt"`
	PublishedAt string          `json:"publishedAt" yaml:"publishedAt"`
}

type blockDocument struct {
	ID      string         `json:"id" yaml:"id"`
	Type    string         `json:"type" yaml:"type"`
	Content map[string]any `json:"content" yaml:"content"`
	Styles  map[string]any `json:"styles" yaml:"styles"`
}

// DecodePage parses a snapshot. The document must be an object with a title, and every block needs a type.
// Missing identifiers and timestamps are filled in when the page is installed in a store.
func DecodePage(data []byte, format Format) (pages.Page, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return pages.Page{}, fmt.Errorf("%w: empty document", ErrMalformedImport)
	}
	var document pageDocument
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &document); err != nil {
			return pages.Page{}, fmt.Errorf("%w: %v", ErrMalformedImport, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &document); err != nil {
			return pages.Page{}, fmt.Errorf("%w: %v", ErrMalformedImport, err)
		}
	default:
		return pages.Page{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return document.page()
}

func (d pageDocument) page() (pages.Page, error) {
	if d.Title == nil || strings.TrimSpace(*d.Title) == "" {
		return pages.Page{}, fmt.Errorf("%w: title is required", ErrMalformedImport)
	}
	status, err := pages.ParseStatus(d.Status)
	if err != nil {
		return pages.Page{}, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	page := pages.Page{
		ID:     strings.TrimSpace(d.ID),
		Title:  *d.Title,
		Slug:   d.Slug,
		Status: status,
		Blocks: make([]pages.Block, 0, len(d.Blocks)),
	}
	if page.CreatedAt, err = parseTimestamp("createdAt", d.CreatedAt); err != nil {
		return pages.Page{}, err
	}
	if page.UpdatedAt, err = parseTimestamp("updatedAt", d.UpdatedAt); err != nil {
		return pages.Page{}, err
	}
	publishedAt, err := parseTimestamp("publishedAt", d.PublishedAt)
	if err != nil {
		return pages.Page{}, err
	}
	if !publishedAt.IsZero() {
		page.PublishedAt = &publishedAt
	}

	for index, block := range d.Blocks {
		blockType := strings.TrimSpace(block.Type)
		if blockType == "" {
			return pages.Page{}, fmt.Errorf("%w: block %d has no type", ErrMalformedImport, index)
		}
		content := pages.Content(block.Content)
		if content == nil {
			content = pages.Content{}
		}
		page.Blocks = append(page.Blocks, pages.Block{
			ID:      block.ID,
			Type:    pages.BlockType(blockType),
			Content: content,
			Styles:  pages.Content(block.Styles),
			Order:   index,
		})
	}
	return page, nil
}

func parseTimestamp(field, rawInput string) (time.Time, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrMalformedImport, field, err)
	}
	return parsed.UTC(), nil
}
