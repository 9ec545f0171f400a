package models

import (
	"time"
)

// Article represents a blog article managed from the back office
type Article struct {
	ID            string         `json:"id" db:"id"`
	Slug          string         `json:"slug" db:"slug"`
	Title         string         `json:"title" db:"title"`
	Author        string         `json:"author" db:"author"`
	Category      string         `json:"category" db:"category"`
	PublishedDate string         `json:"publishedDate" db:"published_date"`
	ReadingTime   string         `json:"readingTime" db:"reading_time"`
	FeaturedImage string         `json:"featuredImage" db:"featured_image"`
	Excerpt       string         `json:"excerpt" db:"excerpt"`
	Content       []ContentBlock `json:"content" db:"-"` // Stored as JSONB in DB
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}

// ArticleWithInteractions is the public read model of an article
type ArticleWithInteractions struct {
	Article
	Interactions *ArticleInteractions `json:"interactions,omitempty"`
}

// Block types accepted in article content
const (
	BlockHeading   = "heading"
	BlockParagraph = "paragraph"
	BlockList      = "list"
	BlockQuote     = "quote"
	BlockCode      = "code"
	BlockImage     = "image"
	BlockNote      = "note"
	BlockFAQ       = "faq"
	BlockTLDR      = "tldr"
	BlockTags      = "tags"
)

// ValidBlockTypes defines allowed content block types
var ValidBlockTypes = map[string]bool{
	BlockHeading:   true,
	BlockParagraph: true,
	BlockList:      true,
	BlockQuote:     true,
	BlockCode:      true,
	BlockImage:     true,
	BlockNote:      true,
	BlockFAQ:       true,
	BlockTLDR:      true,
	BlockTags:      true,
}

// ContentBlock is one typed element of an article body
type ContentBlock struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Level    int      `json:"level,omitempty"`    // heading
	Items    []string `json:"items,omitempty"`    // list, tags
	Ordered  bool     `json:"ordered,omitempty"`  // list
	Language string   `json:"language,omitempty"` // code
	Src      string   `json:"src,omitempty"`      // image
	Alt      string   `json:"alt,omitempty"`      // image
	Caption  string   `json:"caption,omitempty"`  // image, quote attribution
	Question string   `json:"question,omitempty"` // faq
	Answer   string   `json:"answer,omitempty"`   // faq
}

// ArticleInput carries the caller-supplied fields for create and update.
// Optional fields are pointers so absence can be told apart from an empty value.
type ArticleInput struct {
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Author        string         `json:"author"`
	Content       []ContentBlock `json:"content"`
	Category      *string        `json:"category,omitempty"`
	PublishedDate *string        `json:"publishedDate,omitempty"`
	ReadingTime   *string        `json:"readingTime,omitempty"`
	FeaturedImage *string        `json:"featuredImage,omitempty"`
	Excerpt       *string        `json:"excerpt,omitempty"`
}

// Article defaults applied when optional fields are absent
const (
	DefaultCategory      = "General"
	DefaultFeaturedImage = "/images/placeholder.jpg"
	PublishedDateLayout  = "2006-01-02"
	MaxExcerptRunes      = 160
	WordsPerMinute       = 200
)
