package models

import "time"

// FeedItem is a single card in the vertical feed
type FeedItem struct {
	ID          string    `json:"id" yaml:"id"`
	Type        string    `json:"type" yaml:"type"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	AISummary   string    `json:"ai_summary,omitempty" yaml:"ai_summary,omitempty"`
	VideoURL    string    `json:"video_url,omitempty" yaml:"video_url,omitempty"`
	DeckURL     string    `json:"deck_url,omitempty" yaml:"deck_url,omitempty"`
	ProductURL  string    `json:"product_url,omitempty" yaml:"product_url,omitempty"`
	BoostCount  int       `json:"boost_count" yaml:"boost_count"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// HasVideo reports whether the card carries a video reference
func (f FeedItem) HasVideo() bool {
	return f.VideoURL != ""
}

// IsRequest reports whether the card asks for builders rather than capital
func (f FeedItem) IsRequest() bool {
	return f.Type == PostTypeRequest
}

// FeedPage is one page of the feed. A nil NextCursor marks the end of the feed.
type FeedPage struct {
	Items      []FeedItem `json:"items" yaml:"items"`
	NextCursor *int       `json:"next_cursor" yaml:"next_cursor"`
}
