package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/pitchfeed/internal/engine/feed"
	"github.com/anonto42/pitchfeed/internal/engine/gesture"
	"github.com/anonto42/pitchfeed/internal/engine/invest"
	"github.com/anonto42/pitchfeed/internal/engine/pagination"
	"github.com/anonto42/pitchfeed/internal/engine/visibility"
	"github.com/rs/zerolog"
)

const defaultMoves = 4

// Event is one thing the session asked its surface to do, or one notable
// outcome of a step.
type Event struct {
	Step   int    `yaml:"step"`
	Kind   string `yaml:"kind"`
	Index  *int   `yaml:"index,omitempty"`
	Detail string `yaml:"detail,omitempty"`
}

// InvestReport summarizes the last investment flow.
type InvestReport struct {
	PostID       string `yaml:"post_id"`
	Stage        string `yaml:"stage"`
	InvestmentID string `yaml:"investment_id,omitempty"`
	Outcome      string `yaml:"outcome,omitempty"`
	Error        string `yaml:"error,omitempty"`
	Orphaned     string `yaml:"orphaned_investment,omitempty"`
}

// Report is the session state after a run.
type Report struct {
	Events  []Event        `yaml:"events"`
	Items   int            `yaml:"items"`
	Active  int            `yaml:"active"`
	HasMore bool           `yaml:"has_more"`
	Timer   int            `yaml:"timer_remaining"`
	Drift   map[string]int `yaml:"drift,omitempty"`
	Error   string         `yaml:"error,omitempty"`
	Invest  *InvestReport  `yaml:"invest,omitempty"`
}

// Options configures a Runner. Backend is required.
type Options struct {
	Backend       feed.Backend
	Identity      feed.Identity
	Logger        zerolog.Logger
	TimerDuration int
	// ClockInterval, when set, ticks the countdown on a real clock alongside
	// any scripted tick steps.
	ClockInterval time.Duration
}

// Runner plays scripts against a fresh Orchestrator per run.
type Runner struct {
	opts Options
}

func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts}
}

// recorder is the Surface for a replay: it only writes down what it is asked.
type recorder struct {
	mu     sync.Mutex
	step   int
	events []Event
	flow   *invest.Flow
}

func (r *recorder) add(kind string, index *int, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Step: r.step, Kind: kind, Index: index, Detail: detail})
}

func (r *recorder) setStep(n int) {
	r.mu.Lock()
	r.step = n
	r.mu.Unlock()
}

func idx(i int) *int { return &i }

func (r *recorder) ScrollTo(i int) { r.add("scroll_to", idx(i), "") }
func (r *recorder) PlayMedia(i int) { r.add("play_media", idx(i), "") }
func (r *recorder) StopMedia(i int) { r.add("stop_media", idx(i), "") }
func (r *recorder) RedirectToAuth() { r.add("redirect_to_auth", nil, "") }

func (r *recorder) OpenInvest(f *invest.Flow) {
	r.mu.Lock()
	r.flow = f
	r.mu.Unlock()
	r.add("open_invest", nil, f.Prompt().Heading)
}

func (r *recorder) lastFlow() *invest.Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flow
}

// Run starts a session, plays every step and reports the final state. A
// step that cannot be applied stops the run; the partial report is returned
// with the error.
func (r *Runner) Run(ctx context.Context, script *Script) (*Report, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}

	rec := &recorder{}
	o := feed.New(feed.Options{
		Backend:       r.opts.Backend,
		Identity:      r.opts.Identity,
		Surface:       rec,
		Logger:        r.opts.Logger,
		TimerDuration: r.opts.TimerDuration,
	})

	stopClock := func() {}
	if r.opts.ClockInterval > 0 {
		clockCtx, cancel := context.WithCancel(ctx)
		clockDone := make(chan struct{})
		go func() {
			defer close(clockDone)
			o.RunClock(clockCtx, r.opts.ClockInterval)
		}()
		stopClock = func() {
			cancel()
			<-clockDone
		}
	}

	var runErr error
	if err := o.Start(ctx); err != nil {
		rec.add("load_failed", nil, err.Error())
	}
	for i, step := range script.Steps {
		rec.setStep(i + 1)
		if err := r.apply(ctx, o, rec, step); err != nil {
			runErr = fmt.Errorf("replay: step %d: %w", i+1, err)
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	stopClock()
	o.Wait()
	return report(o, rec), runErr
}

func (r *Runner) apply(ctx context.Context, o *feed.Orchestrator, rec *recorder, step Step) error {
	switch {
	case step.Load:
		err := o.LoadMore(ctx)
		switch {
		case errors.Is(err, pagination.ErrFeedExhausted):
			rec.add("feed_exhausted", nil, "")
		case errors.Is(err, pagination.ErrLoadInFlight):
			rec.add("load_in_flight", nil, "")
		case err != nil:
			rec.add("load_failed", nil, err.Error())
		default:
			rec.add("loaded", nil, fmt.Sprintf("%d items", len(o.Items())))
		}

	case len(step.Visible) > 0:
		batch := make([]visibility.Observation, 0, len(step.Visible))
		for _, v := range step.Visible {
			batch = append(batch, visibility.Observation{Index: v.Index, Ratio: v.Ratio})
		}
		o.Observe(ctx, batch)

	case step.Drag != nil:
		return drag(ctx, o, rec, *step.Drag)

	case step.Tick != 0:
		for i := 0; i < step.Tick; i++ {
			o.Tick()
		}

	case step.Invest != nil:
		return answer(ctx, o, rec, *step.Invest)

	case step.Wait:
		o.Wait()

	case step.Sleep > 0:
		t := time.NewTimer(step.Sleep)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func drag(ctx context.Context, o *feed.Orchestrator, rec *recorder, d Drag) error {
	moves := d.Moves
	if moves <= 0 {
		moves = defaultMoves
	}
	p := gesture.Pointer{ID: 1}
	if !o.PointerDown(d.Index, p) {
		return fmt.Errorf("pointer down on card %d was not accepted", d.Index)
	}
	for k := 1; k <= moves; k++ {
		p.X = d.DX * float64(k) / float64(moves)
		p.Y = d.DY * float64(k) / float64(moves)
		o.PointerMove(d.Index, p)
	}

	var action gesture.Action
	if d.Cancel {
		action = o.PointerCancel(ctx, d.Index, p)
	} else {
		action = o.PointerUp(ctx, d.Index, p)
	}
	rec.add("gesture", idx(d.Index), action.String())
	return nil
}

func answer(ctx context.Context, o *feed.Orchestrator, rec *recorder, in Invest) error {
	flow := o.Flow()
	if flow == nil {
		return errors.New("no investment flow is open")
	}

	if in.Cancel {
		if err := flow.Cancel(); err != nil {
			return err
		}
		o.CloseInvest()
		rec.add("invest_cancelled", nil, "")
		return nil
	}

	if flow.Stage() == invest.AmountEntry {
		if err := flow.SubmitAmount(ctx, in.Amount); err != nil {
			rec.add("invest_failed", nil, err.Error())
			return nil
		}
	}
	if flow.Stage() == invest.DueDiligence {
		if in.Notes == "" {
			rec.add("due_diligence_required", nil, "")
			return nil
		}
		if err := flow.SubmitDueDiligence(ctx, in.Notes); err != nil {
			rec.add("invest_failed", nil, err.Error())
			return nil
		}
	}
	if out, ok := flow.Outcome(); ok {
		rec.add("invest_succeeded", nil, out.Title)
		o.CloseInvest()
	}
	return nil
}

func report(o *feed.Orchestrator, rec *recorder) *Report {
	rec.mu.Lock()
	events := append([]Event(nil), rec.events...)
	rec.mu.Unlock()

	rep := &Report{
		Events:  events,
		Items:   len(o.Items()),
		Active:  o.ActiveIndex(),
		HasMore: o.HasMore(),
		Timer:   o.TimerRemaining(),
	}
	if drift := o.Drift(); len(drift) > 0 {
		rep.Drift = drift
	}
	if err := o.Err(); err != nil {
		rep.Error = err.Error()
	}
	if flow := rec.lastFlow(); flow != nil {
		ir := &InvestReport{
			PostID:       flow.Item().ID,
			Stage:        flow.Stage().String(),
			InvestmentID: flow.InvestmentID(),
			Orphaned:     flow.OrphanedInvestment(),
		}
		if out, ok := flow.Outcome(); ok {
			ir.Outcome = out.Title
		}
		if err := flow.Err(); err != nil {
			ir.Error = err.Error()
		}
		rep.Invest = ir
	}
	return rep
}
