// Package invest runs the staged investment workflow opened by a right swipe:
// amount entry, an optional due-diligence step for large amounts, submission
// and a terminal success state.
package invest

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/rs/zerolog"
)

// Stage of the workflow.
type Stage int

const (
	AmountEntry Stage = iota
	DueDiligence
	Submitting
	Success
	Cancelled
)

func (s Stage) String() string {
	switch s {
	case DueDiligence:
		return "due_diligence"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Cancelled:
		return "cancelled"
	default:
		return "amount_entry"
	}
}

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrNotesRequired = errors.New("due diligence notes are required")
	ErrWrongStage    = errors.New("action not available at this stage")
)

// Backend creates investments and attaches due diligence to them.
type Backend interface {
	CreateInvestment(ctx context.Context, postID string, amount float64) (string, error)
	AttachDueDiligence(ctx context.Context, investmentID, notes string) error
}

// Prompt is the copy shown on the amount-entry step.
type Prompt struct {
	Heading     string
	AmountLabel string
}

// Outcome is the copy shown once the workflow succeeds.
type Outcome struct {
	Title        string
	Message      string
	DueDiligence bool
	Commitment   bool
}

// Flow is one run of the workflow for a single feed item. Methods are safe
// for concurrent use; backend calls are made without the lock held.
type Flow struct {
	mu      sync.Mutex
	item    models.FeedItem
	backend Backend
	log     zerolog.Logger

	stage        Stage
	amount       float64
	dueDiligence bool
	investmentID string
	orphaned     string
	err          error
}

// NewFlow opens the workflow at AmountEntry.
func NewFlow(item models.FeedItem, backend Backend, log zerolog.Logger) *Flow {
	return &Flow{
		item:    item,
		backend: backend,
		log:     log.With().Str("post_id", item.ID).Logger(),
		stage:   AmountEntry,
	}
}

// ParseAmount validates user input as a positive amount.
func ParseAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// RequiresDueDiligence reports whether amount routes through DueDiligence.
func RequiresDueDiligence(amount float64) bool {
	return amount > models.DueDiligenceThreshold
}

func (f *Flow) Item() models.FeedItem { return f.item }

func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

func (f *Flow) Amount() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.amount
}

// Err returns the error of the last failed submission, if any. Backend errors
// are kept as returned so their text can be shown to the user unchanged.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// InvestmentID returns the id of the investment created by a successful submission.
func (f *Flow) InvestmentID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.investmentID
}

// OrphanedInvestment returns the id of an investment that was created but
// whose due diligence could not be attached.
func (f *Flow) OrphanedInvestment() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orphaned
}

// Prompt returns the amount-entry copy for the item's type.
func (f *Flow) Prompt() Prompt {
	if f.item.IsRequest() {
		return Prompt{Heading: "Commit to Build", AmountLabel: "Commitment Estimate (USD)"}
	}
	return Prompt{Heading: "Initiate Investment", AmountLabel: "Investment Amount (USD)"}
}

// Outcome returns the success copy; ok is false until the flow succeeds.
func (f *Flow) Outcome() (Outcome, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != Success {
		return Outcome{}, false
	}
	out := Outcome{DueDiligence: f.dueDiligence, Commitment: f.item.IsRequest()}
	switch {
	case out.DueDiligence:
		out.Title = "Review Submitted"
		out.Message = "Due diligence notes received. Team will follow up."
	case out.Commitment:
		out.Title = "Commitment Logged"
		out.Message = "Support recorded successfully."
	default:
		out.Title = "Investment Registered"
		out.Message = "Support recorded successfully."
	}
	return out, true
}

// SubmitAmount validates raw and either moves to DueDiligence or submits.
func (f *Flow) SubmitAmount(ctx context.Context, raw string) error {
	amount, err := ParseAmount(raw)

	f.mu.Lock()
	if f.stage != AmountEntry {
		f.mu.Unlock()
		return ErrWrongStage
	}
	if err != nil {
		f.mu.Unlock()
		return err
	}
	f.amount = amount
	f.err = nil
	if RequiresDueDiligence(amount) {
		f.stage = DueDiligence
		f.mu.Unlock()
		f.log.Debug().Float64("amount", amount).Msg("Amount requires due diligence")
		return nil
	}
	f.stage = Submitting
	f.mu.Unlock()

	return f.submit(ctx, amount, "")
}

// SubmitDueDiligence carries notes into submission.
func (f *Flow) SubmitDueDiligence(ctx context.Context, notes string) error {
	f.mu.Lock()
	if f.stage != DueDiligence {
		f.mu.Unlock()
		return ErrWrongStage
	}
	if strings.TrimSpace(notes) == "" {
		f.mu.Unlock()
		return ErrNotesRequired
	}
	amount := f.amount
	f.stage = Submitting
	f.mu.Unlock()

	return f.submit(ctx, amount, notes)
}

// Cancel leaves the workflow from AmountEntry or DueDiligence.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != AmountEntry && f.stage != DueDiligence {
		return ErrWrongStage
	}
	f.stage = Cancelled
	return nil
}

func (f *Flow) submit(ctx context.Context, amount float64, notes string) error {
	id, err := f.backend.CreateInvestment(ctx, f.item.ID, amount)
	if err != nil {
		f.log.Warn().Err(err).Float64("amount", amount).Msg("Investment creation failed")
		return f.fail(err)
	}

	if notes != "" {
		if err := f.backend.AttachDueDiligence(ctx, id, notes); err != nil {
			f.log.Warn().Err(err).Str("investment_id", id).Msg("Due diligence attach failed, investment left without notes")
			f.mu.Lock()
			f.orphaned = id
			f.mu.Unlock()
			return f.fail(err)
		}
	}

	f.mu.Lock()
	f.investmentID = id
	f.dueDiligence = notes != ""
	f.stage = Success
	f.mu.Unlock()

	f.log.Info().Str("investment_id", id).Float64("amount", amount).Bool("due_diligence", notes != "").Msg("Investment submitted")
	return nil
}

func (f *Flow) fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	f.stage = AmountEntry
	return err
}
