package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post types a pitch can be published as
const (
	PostTypeIdea    = "idea"
	PostTypeProduct = "product"
	PostTypeRequest = "request"
)

const PostStatusPublished = "published"

// Post represents a pitch stored in MongoDB
type Post struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID    uint               `json:"author_id" bson:"author_id"` // ID of the user (PostgreSQL) who published the pitch
	Type        string             `json:"type" bson:"type"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Content     string             `json:"content,omitempty" bson:"content,omitempty"`
	AISummary   string             `json:"ai_summary,omitempty" bson:"ai_summary,omitempty"`
	VideoURL    string             `json:"video_url,omitempty" bson:"video_url,omitempty"`
	DeckURL     string             `json:"deck_url,omitempty" bson:"deck_url,omitempty"`
	ProductURL  string             `json:"product_url,omitempty" bson:"product_url,omitempty"`
	Status      string             `json:"status" bson:"status"`
	BoostCount  int                `json:"boost_count" bson:"boost_count"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// ToFeedItem projects the stored post onto the card shape the feed serves
func (p *Post) ToFeedItem() FeedItem {
	return FeedItem{
		ID:          p.ID.Hex(),
		Type:        p.Type,
		Title:       p.Title,
		Description: p.Description,
		AISummary:   p.AISummary,
		VideoURL:    p.VideoURL,
		DeckURL:     p.DeckURL,
		ProductURL:  p.ProductURL,
		BoostCount:  p.BoostCount,
		CreatedAt:   p.CreatedAt,
	}
}

// CreatePostRequest defines the request body for publishing a new pitch
type CreatePostRequest struct {
	Type        string `json:"type" validate:"required,oneof=idea product request"`
	Title       string `json:"title" validate:"required,min=1,max=140"`
	Description string `json:"description" validate:"required,min=1,max=5000"`
	Content     string `json:"content,omitempty" validate:"omitempty,max=20000"`
	AISummary   string `json:"ai_summary,omitempty" validate:"omitempty,max=2000"`
	VideoURL    string `json:"video_url,omitempty" validate:"omitempty,url"`
	DeckURL     string `json:"deck_url,omitempty" validate:"omitempty,url"`
	ProductURL  string `json:"product_url,omitempty" validate:"omitempty,url"`
}
