package blocks

import "github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"

// OutlineEntry summarizes one block of a page.
type OutlineEntry struct {
	Order    int    `json:"order" yaml:"order"`
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	Headline string `json:"headline" yaml:"headline"`
}

// Outline lists the blocks of a page in rendering order.
func Outline(page pages.Page) []OutlineEntry {
	entries := make([]OutlineEntry, 0, len(page.Blocks))
	for index, block := range page.Blocks {
		entries = append(entries, OutlineEntry{
			Order:    index,
			ID:       block.ID,
			Type:     block.Type.String(),
			Headline: Headline(block),
		})
	}
	return entries
}
