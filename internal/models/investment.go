package models

import "time"

// DueDiligenceThreshold is the amount above which an investment needs written due diligence
const DueDiligenceThreshold = 10000.0

// Investment statuses
const (
	InvestmentStatusDraft         = "draft"          // awaiting due diligence notes
	InvestmentStatusPendingReview = "pending_review" // notes attached, review is external
	InvestmentStatusConfirmed     = "confirmed"
)

// Investment represents a commitment of capital into a post (PostgreSQL)
type Investment struct {
	ID                string    `json:"id" gorm:"primaryKey;size:36"`
	PostID            string    `json:"post_id" gorm:"index"` // MongoDB ObjectID of the post as string
	InvestorID        uint      `json:"investor_id" gorm:"index"`
	Amount            float64   `json:"amount"`
	Status            string    `json:"status" gorm:"size:20;index"`
	DueDiligenceNotes string    `json:"due_diligence_notes,omitempty"`
	CreatedAt         time.Time `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InitialInvestmentStatus returns the status a freshly created investment starts in
func InitialInvestmentStatus(amount float64) string {
	if amount > DueDiligenceThreshold {
		return InvestmentStatusDraft
	}
	return InvestmentStatusConfirmed
}

// InboundInvestment is an investment into one of the caller's posts
type InboundInvestment struct {
	Investment
	PostTitle string `json:"post_title"`
}

// CreateInvestmentRequest defines the request body for creating an investment
type CreateInvestmentRequest struct {
	PostID string  `json:"post_id" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// DueDiligenceRequest defines the request body for attaching due diligence notes
type DueDiligenceRequest struct {
	InvestmentID string `json:"investment_id" validate:"required"`
	Notes        string `json:"notes" validate:"required,min=1,max=10000"`
}
