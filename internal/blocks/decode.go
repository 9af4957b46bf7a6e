package blocks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

// ErrDecode indicates block content whose shape does not match its type.
var ErrDecode = errors.New("blocks: content does not match block type")

var decoders = map[string]func(map[string]any) (Content, error){
	"hero":        decodeAs[Hero],
	"cardGrid":    decodeAs[CardGrid],
	"cta":         decodeAs[CTA],
	"twoColumn":   decodeAs[TwoColumn],
	"text":        decodeAs[Text],
	"testimonial": decodeAs[Testimonial],
	"faq":         decodeAs[FAQ],
	"pricing":     decodeAs[Pricing],
	"team":        decodeAs[Team],
	"stats":       decodeAs[Stats],
	"image":       decodeAs[Image],
	"video":       decodeAs[Video],
	"gallery":     decodeAs[Gallery],
	"contact":     decodeAs[Contact],
	"newsletter":  decodeAs[Newsletter],
	"map":         decodeAs[Map],
}

// Decode returns the typed variant for the block's type. Types without a variant decode to Unknown.
func Decode(block pages.Block) (Content, error) {
	decode, ok := decoders[block.Type.String()]
	if !ok {
		return Unknown{Type: block.Type.String(), Raw: map[string]any(block.Content.Clone())}, nil
	}
	content, err := decode(map[string]any(block.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: block %s (%s): %v", ErrDecode, block.ID, block.Type, err)
	}
	return content, nil
}

// Known reports whether blockType has a typed variant.
func Known(blockType pages.BlockType) bool {
	_, ok := decoders[blockType.String()]
	return ok
}

func decodeAs[T Content](raw map[string]any) (Content, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return out, nil
}

// Headline returns a one-line label for a block, used by outlines and logs.
func Headline(block pages.Block) string {
	content, err := Decode(block)
	if err != nil {
		return fallbackHeadline(block.Content)
	}
	var headline string
	switch typed := content.(type) {
	case Hero:
		headline = typed.Title
	case CardGrid:
		headline = typed.Title
	case CTA:
		headline = typed.Title
	case TwoColumn:
		headline = firstNonEmpty(typed.LeftTitle, typed.RightTitle)
	case Text:
		headline = firstNonEmpty(typed.Title, typed.Text)
	case Testimonial:
		headline = typed.Author
	case FAQ:
		headline = typed.Title
	case Pricing:
		headline = typed.Title
	case Team:
		headline = typed.Title
	case Stats:
		headline = typed.Title
	case Image:
		headline = firstNonEmpty(typed.Caption, typed.Alt)
	case Video:
		headline = typed.Title
	case Gallery:
		headline = typed.Title
	case Contact:
		headline = typed.Title
	case Newsletter:
		headline = typed.Title
	case Map:
		headline = firstNonEmpty(typed.Title, typed.Address)
	case Unknown:
		headline = fallbackHeadline(typed.Raw)
	}
	return truncate(strings.TrimSpace(headline))
}

const maxHeadlineLength = 80

func fallbackHeadline(content map[string]any) string {
	for _, key := range []string{"title", "name", "text"} {
		if value, ok := content[key].(string); ok && strings.TrimSpace(value) != "" {
			return truncate(strings.TrimSpace(value))
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func truncate(value string) string {
	runes := []rune(value)
	if len(runes) <= maxHeadlineLength {
		return value
	}
	return string(runes[:maxHeadlineLength-1]) + "…"
}
