// Package visibility picks the single active card from per-card visibility
// ratios reported by the scrolling viewport.
package visibility

// Threshold is the fraction of a card's height that must be visible for it
// to become active.
const Threshold = 0.6

// None marks the absence of an active card.
const None = -1

// Observation reports the visible fraction of card Index.
type Observation struct {
	Index int
	Ratio float64
}

// Reduce returns the new active index given the previous ratios and a batch of
// observations. A card becomes a candidate when its ratio crosses Threshold
// from below (or from unknown); the last candidate in the batch wins. prev is
// updated in place with the batch.
func Reduce(active int, prev map[int]float64, batch []Observation) int {
	next := active
	for _, o := range batch {
		before, seen := prev[o.Index]
		prev[o.Index] = o.Ratio
		if o.Ratio >= Threshold && (!seen || before < Threshold) {
			next = o.Index
		}
	}
	return next
}

// Tracker keeps the latest ratios and the active index between batches.
type Tracker struct {
	ratios map[int]float64
	active int
}

// NewTracker creates a Tracker with no active card.
func NewTracker() *Tracker {
	return &Tracker{ratios: make(map[int]float64), active: None}
}

// Active returns the active index or None.
func (t *Tracker) Active() int { return t.active }

// Observe applies a batch and reports the active index and whether it changed.
func (t *Tracker) Observe(batch []Observation) (int, bool) {
	prev := t.active
	t.active = Reduce(t.active, t.ratios, batch)
	return t.active, t.active != prev
}

// Reset forgets every ratio and the active card.
func (t *Tracker) Reset() {
	t.ratios = make(map[int]float64)
	t.active = None
}
