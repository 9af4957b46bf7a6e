// Package blocks provides typed views over the schema-less content of each block type.
package blocks

// Content is implemented by every typed block variant.
type Content interface {
	// Kind returns the block type tag the variant was decoded from.
	Kind() string
}

type Hero struct {
	Title               string `json:"title"`
	Subtitle            string `json:"subtitle"`
	PrimaryButtonText   string `json:"primaryButtonText"`
	SecondaryButtonText string `json:"secondaryButtonText"`
	BackgroundImage     string `json:"backgroundImage"`
}

type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type CardGrid struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Cards    []Card `json:"cards"`
}

type CTA struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	ButtonText      string `json:"buttonText"`
	BackgroundColor string `json:"backgroundColor"`
}

type TwoColumn struct {
	LeftTitle    string `json:"leftTitle"`
	LeftContent  string `json:"leftContent"`
	RightTitle   string `json:"rightTitle"`
	RightContent string `json:"rightContent"`
	ImageLeft    string `json:"imageLeft"`
	ImageRight   string `json:"imageRight"`
}

type Text struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type Testimonial struct {
	Quote    string `json:"quote"`
	Author   string `json:"author"`
	Position string `json:"position"`
	Avatar   string `json:"avatar"`
	Rating   int    `json:"rating"`
}

type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type FAQ struct {
	Title    string     `json:"title"`
	Subtitle string     `json:"subtitle"`
	FAQs     []Question `json:"faqs"`
}

type Plan struct {
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Period   string   `json:"period"`
	Features []string `json:"features"`
	Popular  bool     `json:"popular"`
}

type Pricing struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Plans    []Plan `json:"plans"`
}

type Member struct {
	Name     string            `json:"name"`
	Position string            `json:"position"`
	Bio      string            `json:"bio"`
	Image    string            `json:"image"`
	Social   map[string]string `json:"social"`
}

type Team struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Members  []Member `json:"members"`
}

type Stat struct {
	Number string `json:"number"`
	Label  string `json:"label"`
	Icon   string `json:"icon"`
}

type Stats struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Stats    []Stat `json:"stats"`
}

type Image struct {
	ImageURL string `json:"imageUrl"`
	Alt      string `json:"alt"`
	Caption  string `json:"caption"`
}

type Video struct {
	VideoURL     string `json:"videoUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

type GalleryImage struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

type Gallery struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	Images   []GalleryImage `json:"images"`
}

type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type Contact struct {
	Title      string  `json:"title"`
	Subtitle   string  `json:"subtitle"`
	Fields     []Field `json:"fields"`
	ButtonText string  `json:"buttonText"`
}

type Newsletter struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Placeholder string `json:"placeholder"`
	ButtonText  string `json:"buttonText"`
	PrivacyText string `json:"privacyText"`
}

type Map struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	MapURL  string `json:"mapUrl"`
}

// Unknown carries the raw content of a block whose type has no typed variant.
type Unknown struct {
	Type string
	Raw  map[string]any
}

func (Hero) Kind() string        { return "hero" }
func (CardGrid) Kind() string    { return "cardGrid" }
func (CTA) Kind() string         { return "cta" }
func (TwoColumn) Kind() string   { return "twoColumn" }
func (Text) Kind() string        { return "text" }
func (Testimonial) Kind() string { return "testimonial" }
func (FAQ) Kind() string         { return "faq" }
func (Pricing) Kind() string     { return "pricing" }
func (Team) Kind() string        { return "team" }
func (Stats) Kind() string       { return "stats" }
func (Image) Kind() string       { return "image" }
func (Video) Kind() string       { return "video" }
func (Gallery) Kind() string     { return "gallery" }
func (Contact) Kind() string     { return "contact" }
func (Newsletter) Kind() string  { return "newsletter" }
func (Map) Kind() string         { return "map" }
func (u Unknown) Kind() string   { return u.Type }
