// Package feed composes pagination, active-card tracking, gestures, the
// playback countdown and the investment workflow into one feed session.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anonto42/pitchfeed/internal/engine/gesture"
	"github.com/anonto42/pitchfeed/internal/engine/invest"
	"github.com/anonto42/pitchfeed/internal/engine/pagination"
	"github.com/anonto42/pitchfeed/internal/engine/playback"
	"github.com/anonto42/pitchfeed/internal/engine/visibility"
	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/rs/zerolog"
)

// DefaultPrefetchDistance is how close to the last card the active card must
// get before the next page is requested.
const DefaultPrefetchDistance = 1

var (
	ErrUnauthenticated = errors.New("feed: sign in required")
	ErrNoSuchCard      = errors.New("feed: no card at index")
)

// Options configures an Orchestrator. Backend is required.
type Options struct {
	Backend          Backend
	Identity         Identity
	Surface          Surface
	Logger           zerolog.Logger
	TimerDuration    int
	PrefetchDistance int
}

// Orchestrator owns the feed collection and the active index. All methods are
// safe for concurrent use. Network calls never run with the lock held.
type Orchestrator struct {
	mu       sync.Mutex
	backend  Backend
	identity Identity
	surface  Surface
	log      zerolog.Logger

	pager    *pagination.Manager
	items    *Collection
	tracker  *visibility.Tracker
	timer    *playback.Timer
	gestures map[int]*gesture.Recognizer
	flow     *invest.Flow
	drift    map[string]int
	err      error
	prefetch int

	wg sync.WaitGroup
}

// New creates an Orchestrator with an empty feed.
func New(opts Options) *Orchestrator {
	if opts.Surface == nil {
		opts.Surface = NopSurface{}
	}
	if opts.PrefetchDistance <= 0 {
		opts.PrefetchDistance = DefaultPrefetchDistance
	}
	o := &Orchestrator{
		backend:  opts.Backend,
		identity: opts.Identity,
		surface:  opts.Surface,
		log:      opts.Logger,
		pager:    pagination.NewManager(opts.Backend, opts.Logger),
		items:    NewCollection(),
		tracker:  visibility.NewTracker(),
		gestures: make(map[int]*gesture.Recognizer),
		drift:    make(map[string]int),
		prefetch: opts.PrefetchDistance,
	}
	o.timer = playback.New(opts.TimerDuration, o.advance)
	return o
}

// Start loads the head of the feed, replacing anything already shown.
func (o *Orchestrator) Start(ctx context.Context) error {
	_, err := o.pager.LoadPage(ctx, pagination.FirstCursor, o.applyPage)
	return o.loadResult(err)
}

// LoadMore appends the next page. ErrFeedExhausted and ErrLoadInFlight are
// returned as is and leave the feed untouched.
func (o *Orchestrator) LoadMore(ctx context.Context) error {
	_, err := o.pager.LoadNext(ctx, o.applyPage)
	return o.loadResult(err)
}

// applyPage runs while the pager still holds its in-flight guard.
func (o *Orchestrator) applyPage(page pagination.Page) {
	o.mu.Lock()
	o.err = nil
	if !page.Replace {
		o.items.Append(page.Items)
		o.mu.Unlock()
		return
	}

	prev := o.tracker.Active()
	prevItem, hadPrev := o.items.At(prev)
	o.items.Replace(page.Items)
	o.tracker.Reset()
	o.timer.Disarm()
	o.gestures = make(map[int]*gesture.Recognizer)
	o.flow = nil
	o.mu.Unlock()

	if hadPrev && prevItem.HasVideo() {
		o.surface.StopMedia(prev)
	}
}

func (o *Orchestrator) loadResult(err error) error {
	if err == nil || errors.Is(err, pagination.ErrLoadInFlight) || errors.Is(err, pagination.ErrFeedExhausted) {
		return err
	}
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
	return err
}

// Observe applies a batch of visibility ratios and returns the active index.
func (o *Orchestrator) Observe(ctx context.Context, batch []visibility.Observation) int {
	o.mu.Lock()
	valid := make([]visibility.Observation, 0, len(batch))
	for _, obs := range batch {
		if obs.Index >= 0 && obs.Index < o.items.Len() {
			valid = append(valid, obs)
		}
	}
	prev := o.tracker.Active()
	active, changed := o.tracker.Observe(valid)
	if !changed {
		o.mu.Unlock()
		return active
	}

	item, _ := o.items.At(active)
	o.timer.Arm(active, item.HasVideo())
	prevItem, hadPrev := o.items.At(prev)
	nearEnd := active >= o.items.Len()-o.prefetch
	o.mu.Unlock()

	o.log.Debug().Int("from", prev).Int("to", active).Msg("Active card changed")
	if hadPrev && prevItem.HasVideo() {
		o.surface.StopMedia(prev)
	}
	if item.HasVideo() {
		o.surface.PlayMedia(active)
	}
	if nearEnd && o.pager.HasMore() && !o.pager.Loading() {
		o.goLoadMore(ctx)
	}
	return active
}

func (o *Orchestrator) goLoadMore(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.LoadMore(ctx); err != nil && !errors.Is(err, pagination.ErrLoadInFlight) && !errors.Is(err, pagination.ErrFeedExhausted) {
			o.log.Warn().Err(err).Msg("Prefetching next feed page failed")
		}
	}()
}

// UpdateItem replaces a card's fields in place. When the active card gains or
// loses its video the countdown is reset accordingly. Server data settles any
// boost drift recorded for the card.
func (o *Orchestrator) UpdateItem(item models.FeedItem) bool {
	o.mu.Lock()
	idx, ok := o.items.IndexOf(item.ID)
	if !ok {
		o.mu.Unlock()
		return false
	}
	before, _ := o.items.At(idx)
	o.items.Update(item)
	delete(o.drift, item.ID)
	resetTimer := idx == o.tracker.Active() && before.HasVideo() != item.HasVideo()
	if resetTimer {
		o.timer.Arm(idx, item.HasVideo())
	}
	o.mu.Unlock()

	if resetTimer {
		if item.HasVideo() {
			o.surface.PlayMedia(idx)
		} else {
			o.surface.StopMedia(idx)
		}
	}
	return true
}

// advance handles countdown expiry for card from.
func (o *Orchestrator) advance(from int) {
	o.mu.Lock()
	if from != o.tracker.Active() {
		o.mu.Unlock()
		o.log.Debug().Int("from", from).Msg("Ignoring expiry for inactive card")
		return
	}
	next := from + 1
	exists := next < o.items.Len()
	o.mu.Unlock()

	if !exists {
		return
	}
	o.log.Debug().Int("from", from).Int("to", next).Msg("Advancing feed")
	o.surface.ScrollTo(next)
}

// Tick advances the playback countdown by one second.
func (o *Orchestrator) Tick() bool {
	return o.timer.Tick()
}

// RunClock ticks the countdown once per interval until ctx is done.
func (o *Orchestrator) RunClock(ctx context.Context, interval time.Duration) {
	o.timer.Run(ctx, interval)
}

func (o *Orchestrator) recognizer(index int) (*gesture.Recognizer, bool) {
	if index < 0 || index >= o.items.Len() {
		return nil, false
	}
	r, ok := o.gestures[index]
	if !ok {
		r = &gesture.Recognizer{}
		o.gestures[index] = r
	}
	return r, true
}

// PointerDown starts gesture sensing on card index.
func (o *Orchestrator) PointerDown(index int, p gesture.Pointer) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.recognizer(index)
	if !ok {
		return false
	}
	return r.Down(p)
}

// PointerMove returns drag feedback for card index.
func (o *Orchestrator) PointerMove(index int, p gesture.Pointer) gesture.Feedback {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.gestures[index]
	if !ok {
		return gesture.Feedback{}
	}
	return r.Move(p)
}

// PointerUp ends the gesture on card index and dispatches its action.
func (o *Orchestrator) PointerUp(ctx context.Context, index int, p gesture.Pointer) gesture.Action {
	return o.endGesture(ctx, index, p, (*gesture.Recognizer).Up)
}

// PointerCancel resolves an aborted gesture the same way as PointerUp.
func (o *Orchestrator) PointerCancel(ctx context.Context, index int, p gesture.Pointer) gesture.Action {
	return o.endGesture(ctx, index, p, (*gesture.Recognizer).Cancel)
}

func (o *Orchestrator) endGesture(ctx context.Context, index int, p gesture.Pointer, end func(*gesture.Recognizer, gesture.Pointer) gesture.Action) gesture.Action {
	o.mu.Lock()
	r, ok := o.gestures[index]
	if !ok {
		o.mu.Unlock()
		return gesture.ActionNone
	}
	action := end(r, p)
	if r.Phase() == gesture.Idle {
		delete(o.gestures, index)
	}
	o.mu.Unlock()

	switch action {
	case gesture.ActionInvest:
		if _, err := o.Invest(index); err != nil && !errors.Is(err, ErrUnauthenticated) {
			o.log.Warn().Err(err).Int("index", index).Msg("Opening investment failed")
		}
	case gesture.ActionBoost:
		if _, err := o.Boost(ctx, index); err != nil && !errors.Is(err, ErrUnauthenticated) {
			o.log.Warn().Err(err).Int("index", index).Msg("Boost failed")
		}
	}
	return action
}

func (o *Orchestrator) currentUser() (models.UserCompact, bool) {
	if o.identity == nil {
		return models.UserCompact{}, false
	}
	return o.identity.CurrentUser()
}

// Boost optimistically increments the card's boost count and confirms with
// the backend in the background. A failed confirmation is not rolled back;
// it is logged and counted in Drift.
func (o *Orchestrator) Boost(ctx context.Context, index int) (int, error) {
	if _, ok := o.currentUser(); !ok {
		return 0, ErrUnauthenticated
	}

	o.mu.Lock()
	item, ok := o.items.At(index)
	if !ok {
		o.mu.Unlock()
		return 0, ErrNoSuchCard
	}
	count, _ := o.items.IncrementBoost(item.ID)
	o.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.backend.BoostPost(ctx, item.ID); err != nil {
			o.mu.Lock()
			o.drift[item.ID]++
			o.mu.Unlock()
			o.log.Warn().Err(err).Str("post_id", item.ID).Msg("Boost confirmation failed, local count diverges from server")
		}
	}()
	return count, nil
}

// Invest opens the investment workflow for card index. Without a signed-in
// user the surface is redirected to authentication instead.
func (o *Orchestrator) Invest(index int) (*invest.Flow, error) {
	if _, ok := o.currentUser(); !ok {
		o.surface.RedirectToAuth()
		return nil, ErrUnauthenticated
	}

	o.mu.Lock()
	item, ok := o.items.At(index)
	if !ok {
		o.mu.Unlock()
		return nil, ErrNoSuchCard
	}
	flow := invest.NewFlow(item, o.backend, o.log)
	o.flow = flow
	o.mu.Unlock()

	o.surface.OpenInvest(flow)
	return flow, nil
}

// CloseInvest forgets the open workflow.
func (o *Orchestrator) CloseInvest() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flow = nil
}

// Flow returns the open investment workflow, if any.
func (o *Orchestrator) Flow() *invest.Flow {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flow
}

// Items returns a copy of the cards.
func (o *Orchestrator) Items() []models.FeedItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.items.Snapshot()
}

// ActiveIndex returns the active card or visibility.None.
func (o *Orchestrator) ActiveIndex() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tracker.Active()
}

func (o *Orchestrator) HasMore() bool { return o.pager.HasMore() }

func (o *Orchestrator) Loading() bool { return o.pager.Loading() }

// Err returns the last feed-load failure, cleared by the next successful load.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Drift returns, per post id, how many optimistic boosts the backend did not confirm.
func (o *Orchestrator) Drift() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]int, len(o.drift))
	for id, n := range o.drift {
		out[id] = n
	}
	return out
}

// TimerRemaining returns the ticks left on the active card's countdown.
func (o *Orchestrator) TimerRemaining() int {
	return o.timer.Remaining()
}

// Wait blocks until background confirmations and prefetches have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
