package database

// PageRecord is the relational row of a stored page. Blocks are kept as a JSON document.
type PageRecord struct {
	PageID            string `gorm:"column:page_id;primaryKey;size:190;not null"`
	Title             string `gorm:"column:title;not null"`
	Slug              string `gorm:"column:slug;size:190;index;not null;default:''"`
	BlocksJSON        string `gorm:"column:blocks_json;type:text;not null"`
	Status            string `gorm:"column:status;size:16;not null;default:'draft'"`
	CreatedAtMillis   int64  `gorm:"column:created_at_ms;not null"`
	UpdatedAtMillis   int64  `gorm:"column:updated_at_ms;not null"`
	PublishedAtMillis *int64 `gorm:"column:published_at_ms"`
}

func (PageRecord) TableName() string {
	return "page_records"
}
