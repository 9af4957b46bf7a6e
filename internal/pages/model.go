package pages

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PageStatus enumerates the publication states of a page.
type PageStatus string

const (
	// PageStatusDraft marks a page that has not been published.
	PageStatusDraft PageStatus = "draft"
	// PageStatusPublished marks a page visible to readers.
	PageStatusPublished PageStatus = "published"
)

// Mode selects whether the canvas is editable or shows a live preview.
type Mode string

const (
	// ModeEdit shows block mutation controls and suppresses interactive behaviour.
	ModeEdit Mode = "edit"
	// ModePreview renders blocks with their interactive behaviour live.
	ModePreview Mode = "preview"
)

const (
	// UnsavedPageID is the reserved identifier of a page that was never persisted.
	UnsavedPageID = "default"
	// LocalPageIDPrefix prefixes identifiers minted by the store for pages not yet persisted.
	LocalPageIDPrefix = "local-"
	// BlockIDPrefix prefixes identifiers minted for blocks.
	BlockIDPrefix = "block-"

	// DefaultPageTitle is used by CreatePage when no title is supplied.
	DefaultPageTitle = "Untitled Page"
	// HomePageTitle names the page synthesized for an empty collection.
	HomePageTitle = "Home Page"

	maxIdentifierLength = 190
)

var (
	// ErrInvalidPageID indicates that a page identifier is empty or exceeds storage bounds.
	ErrInvalidPageID = errors.New("pages: invalid page id")
	// ErrInvalidBlockID indicates that a block identifier is empty or exceeds storage bounds.
	ErrInvalidBlockID = errors.New("pages: invalid block id")
	// ErrInvalidStatus indicates an unknown page status.
	ErrInvalidStatus = errors.New("pages: invalid page status")
	// ErrInvalidMode indicates an unknown editor mode.
	ErrInvalidMode = errors.New("pages: invalid mode")
)

// BlockType tags which renderer and editor template applies to a block.
type BlockType string

// String returns the underlying tag.
func (t BlockType) String() string {
	return string(t)
}

// Content is the schema-less payload of a block, shaped by its type.
type Content map[string]any

// Clone returns a deep copy so that nested lists and records never alias the source.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	cloned := make(Content, len(c))
	for key, value := range c {
		cloned[key] = cloneValue(value)
	}
	return cloned
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case Content:
		return typed.Clone()
	case map[string]any:
		return map[string]any(Content(typed).Clone())
	case []any:
		out := make([]any, len(typed))
		for index, item := range typed {
			out[index] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(typed))
		for index, item := range typed {
			out[index] = map[string]any(Content(item).Clone())
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return value
	}
}

// Block is the atomic content unit placed on a page.
type Block struct {
	ID      string    `json:"id" yaml:"id"`
	Type    BlockType `json:"type" yaml:"type"`
	Content Content   `json:"content" yaml:"content"`
	Styles  Content   `json:"styles,omitempty" yaml:"styles,omitempty"`
	Order   int       `json:"order" yaml:"order"`
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	copied := b
	copied.Content = b.Content.Clone()
	copied.Styles = b.Styles.Clone()
	return copied
}

// BlockUpdate describes a shallow merge applied by Store.UpdateBlock. Nil fields are left untouched.
type BlockUpdate struct {
	Type    *BlockType `json:"type,omitempty" yaml:"type,omitempty"`
	Content Content    `json:"content,omitempty" yaml:"content,omitempty"`
	Styles  Content    `json:"styles,omitempty" yaml:"styles,omitempty"`
}

// BlanksType reports whether the update would leave the block without a type tag.
func (u BlockUpdate) BlanksType() bool {
	return u.Type != nil && strings.TrimSpace(string(*u.Type)) == ""
}

func (u BlockUpdate) apply(block Block) Block {
	if u.Type != nil {
		block.Type = *u.Type
	}
	if u.Content != nil {
		block.Content = u.Content.Clone()
	}
	if u.Styles != nil {
		block.Styles = u.Styles.Clone()
	}
	return block
}

// Page is an ordered collection of blocks plus metadata.
type Page struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Slug        string     `json:"slug" yaml:"slug"`
	Blocks      []Block    `json:"blocks" yaml:"blocks"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	Status      PageStatus `json:"status" yaml:"status"`
}

// Clone returns a deep copy of the page and its blocks.
func (p Page) Clone() Page {
	copied := p
	copied.Blocks = make([]Block, len(p.Blocks))
	for index, block := range p.Blocks {
		copied.Blocks[index] = block.Clone()
	}
	if p.PublishedAt != nil {
		publishedAt := *p.PublishedAt
		copied.PublishedAt = &publishedAt
	}
	return copied
}

// IsUnsaved reports whether the page has never been persisted to a gateway.
func (p Page) IsUnsaved() bool {
	return p.ID == "" || p.ID == UnsavedPageID || strings.HasPrefix(p.ID, LocalPageIDPrefix)
}

// BlockIndex returns the position of the block with the given id, or -1.
func (p Page) BlockIndex(blockID string) int {
	for index, block := range p.Blocks {
		if block.ID == blockID {
			return index
		}
	}
	return -1
}

// HasBlock reports whether a block with the given id belongs to the page.
func (p Page) HasBlock(blockID string) bool {
	return p.BlockIndex(blockID) >= 0
}

// reindex rewrites every order field to the block's position.
func reindex(blocks []Block) {
	for index := range blocks {
		blocks[index].Order = index
	}
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Slugify derives the URL-safe identifier of a title: lower-cased, whitespace runs replaced by hyphens.
func Slugify(title string) string {
	return whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
}

// NewPageID validates raw input and returns a trimmed page identifier.
func NewPageID(rawInput string) (string, error) {
	return validateIdentifier(rawInput, ErrInvalidPageID)
}

// NewBlockID validates raw input and returns a trimmed block identifier.
func NewBlockID(rawInput string) (string, error) {
	return validateIdentifier(rawInput, ErrInvalidBlockID)
}

func validateIdentifier(rawInput string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", sentinel)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", sentinel, maxIdentifierLength)
	}
	return trimmed, nil
}

// ParseStatus validates a status string; the empty string maps to draft.
func ParseStatus(rawInput string) (PageStatus, error) {
	switch PageStatus(strings.ToLower(strings.TrimSpace(rawInput))) {
	case "", PageStatusDraft:
		return PageStatusDraft, nil
	case PageStatusPublished:
		return PageStatusPublished, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
	}
}

// ParseMode validates an editor mode string.
func ParseMode(rawInput string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(rawInput))) {
	case ModeEdit:
		return ModeEdit, nil
	case ModePreview:
		return ModePreview, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, rawInput)
	}
}
