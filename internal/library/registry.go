package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

// Category groups block types in the library panel.
type Category string

const (
	CategoryLayout      Category = "layout"
	CategoryContent     Category = "content"
	CategoryMedia       Category = "media"
	CategoryInteractive Category = "interactive"
)

var (
	// ErrUnknownBlockType indicates that no descriptor is registered for a type tag.
	ErrUnknownBlockType = errors.New("library: unknown block type")
	// ErrInvalidDescriptor indicates a descriptor that cannot be registered.
	ErrInvalidDescriptor = errors.New("library: invalid descriptor")

	categoryOrder = []Category{CategoryLayout, CategoryContent, CategoryMedia, CategoryInteractive}
)

// Descriptor describes one block type and the content a fresh instance starts with.
type Descriptor struct {
	ID             pages.BlockType `json:"id" yaml:"id"`
	DisplayName    string          `json:"displayName" yaml:"displayName"`
	Icon           string          `json:"icon" yaml:"icon"`
	Category       Category        `json:"category" yaml:"category"`
	DefaultContent pages.Content   `json:"defaultContent" yaml:"defaultContent"`
}

// Config describes the inputs of a Registry.
type Config struct {
	Descriptors []Descriptor
	IDProvider  pages.IDProvider
}

// Registry is the fixed list of block types offered by the library.
type Registry struct {
	descriptors []Descriptor
	index       map[pages.BlockType]int
	idProvider  pages.IDProvider
}

// New validates descriptors and builds a registry; nil Descriptors selects the built-in set.
func New(cfg Config) (*Registry, error) {
	descriptors := cfg.Descriptors
	if descriptors == nil {
		descriptors = builtinDescriptors()
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = pages.NewUUIDProvider()
	}

	registry := &Registry{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		index:       make(map[pages.BlockType]int, len(descriptors)),
		idProvider:  idProvider,
	}
	for _, descriptor := range descriptors {
		if strings.TrimSpace(descriptor.ID.String()) == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
		}
		if !validCategory(descriptor.Category) {
			return nil, fmt.Errorf("%w: %s has unknown category %q", ErrInvalidDescriptor, descriptor.ID, descriptor.Category)
		}
		if _, exists := registry.index[descriptor.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidDescriptor, descriptor.ID)
		}
		if descriptor.DefaultContent == nil {
			descriptor.DefaultContent = pages.Content{}
		}
		registry.index[descriptor.ID] = len(registry.descriptors)
		registry.descriptors = append(registry.descriptors, descriptor)
	}
	return registry, nil
}

// Default returns the registry of built-in block types.
func Default(idProvider pages.IDProvider) *Registry {
	registry, err := New(Config{IDProvider: idProvider})
	if err != nil {
		panic(err)
	}
	return registry
}

// List returns every descriptor in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	for index, descriptor := range r.descriptors {
		out[index] = descriptor.clone()
	}
	return out
}

// Categories returns the categories in display order.
func (r *Registry) Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// ByCategory returns the descriptors of one category in registration order.
func (r *Registry) ByCategory(category Category) []Descriptor {
	var out []Descriptor
	for _, descriptor := range r.descriptors {
		if descriptor.Category == category {
			out = append(out, descriptor.clone())
		}
	}
	return out
}

// Lookup returns the descriptor registered for a type tag.
func (r *Registry) Lookup(blockType pages.BlockType) (Descriptor, bool) {
	index, ok := r.index[blockType]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[index].clone(), true
}

// Instantiate creates a block of the given type with a fresh id and a private copy of the default content.
func (r *Registry) Instantiate(blockType pages.BlockType) (pages.Block, error) {
	descriptor, ok := r.Lookup(blockType)
	if !ok {
		return pages.Block{}, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}
	rawID, err := r.idProvider.NewID()
	if err != nil {
		return pages.Block{}, fmt.Errorf("library: block id: %w", err)
	}
	return pages.Block{
		ID:      pages.BlockIDPrefix + rawID,
		Type:    descriptor.ID,
		Content: descriptor.DefaultContent,
	}, nil
}

func (d Descriptor) clone() Descriptor {
	copied := d
	copied.DefaultContent = d.DefaultContent.Clone()
	return copied
}

func validCategory(category Category) bool {
	for _, known := range categoryOrder {
		if category == known {
			return true
		}
	}
	return false
}
