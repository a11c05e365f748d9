package replay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	items    []models.FeedItem
	boosts   []string
	created  []float64
	attached []string
	boostErr error
}

func (f *fakeBackend) ListFeed(ctx context.Context, cursor int) (models.FeedPage, error) {
	if cursor != 0 {
		return models.FeedPage{Items: []models.FeedItem{}}, nil
	}
	return models.FeedPage{Items: f.items}, nil
}

func (f *fakeBackend) BoostPost(ctx context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boosts = append(f.boosts, postID)
	return f.boostErr
}

func (f *fakeBackend) CreateInvestment(ctx context.Context, postID string, amount float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, amount)
	return "inv-1", nil
}

func (f *fakeBackend) AttachDueDiligence(ctx context.Context, investmentID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = append(f.attached, notes)
	return nil
}

type signedIn bool

func (s signedIn) CurrentUser() (models.UserCompact, bool) {
	if !s {
		return models.UserCompact{}, false
	}
	return models.UserCompact{ID: 1, Name: "Ada"}, true
}

func newBackend() *fakeBackend {
	return &fakeBackend{items: []models.FeedItem{
		{ID: "a", Type: models.PostTypeIdea, Title: "A", VideoURL: "https://cdn/a.mp4", BoostCount: 3},
		{ID: "b", Type: models.PostTypeRequest, Title: "B"},
		{ID: "c", Type: models.PostTypeProduct, Title: "C", VideoURL: "https://cdn/c.mp4"},
	}}
}

func run(t *testing.T, be *fakeBackend, identity signedIn, src string) (*Report, error) {
	t.Helper()
	script, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	r := NewRunner(Options{Backend: be, Identity: identity, Logger: zerolog.Nop(), TimerDuration: 10})
	return r.Run(context.Background(), script)
}

func kinds(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func find(events []Event, kind string) (Event, bool) {
	for _, e := range events {
		if e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}

func TestRun_InvestWithDueDiligenceAndBoost(t *testing.T) {
	be := newBackend()
	rep, err := run(t, be, true, `
steps:
  - visible: [{index: 0, ratio: 1}]
  - tick: 3
  - drag: {index: 0, dx: 120}
  - invest: {amount: "15000", notes: "Strong team"}
  - drag: {index: 0, dx: -100}
  - wait: true
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"play_media", "open_invest", "gesture", "invest_succeeded", "gesture"}, kinds(rep.Events))
	assert.Equal(t, "Initiate Investment", rep.Events[1].Detail)
	assert.Equal(t, "invest", rep.Events[2].Detail)
	assert.Equal(t, "Review Submitted", rep.Events[3].Detail)
	assert.Equal(t, "boost", rep.Events[4].Detail)
	assert.Equal(t, 5, rep.Events[4].Step)

	assert.Equal(t, 3, rep.Items)
	assert.Equal(t, 0, rep.Active)
	assert.False(t, rep.HasMore)
	assert.Empty(t, rep.Drift)

	require.NotNil(t, rep.Invest)
	assert.Equal(t, "a", rep.Invest.PostID)
	assert.Equal(t, "success", rep.Invest.Stage)
	assert.Equal(t, "inv-1", rep.Invest.InvestmentID)

	assert.Equal(t, []float64{15000}, be.created)
	assert.Equal(t, []string{"Strong team"}, be.attached)
	assert.Equal(t, []string{"a"}, be.boosts)
}

func TestRun_TimerExpiryScrollsToNextCard(t *testing.T) {
	rep, err := run(t, newBackend(), true, `
steps:
  - visible: [{index: 0, ratio: 1}]
  - tick: 10
`)
	require.NoError(t, err)

	ev, ok := find(rep.Events, "scroll_to")
	require.True(t, ok)
	require.NotNil(t, ev.Index)
	assert.Equal(t, 1, *ev.Index)
	assert.Equal(t, 2, ev.Step)
}

func TestRun_ShortDragDoesNothing(t *testing.T) {
	be := newBackend()
	rep, err := run(t, be, true, `
steps:
  - drag: {index: 1, dx: 40}
`)
	require.NoError(t, err)
	require.Len(t, rep.Events, 1)
	assert.Equal(t, "none", rep.Events[0].Detail)
	assert.Nil(t, rep.Invest)
	assert.Empty(t, be.boosts)
}

func TestRun_SignedOutInvestRedirects(t *testing.T) {
	rep, err := run(t, newBackend(), false, `
steps:
  - drag: {index: 0, dx: 150}
  - invest: {amount: "10"}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
	assert.Equal(t, []string{"redirect_to_auth", "gesture"}, kinds(rep.Events))
}

func TestRun_BoostDriftIsReported(t *testing.T) {
	be := newBackend()
	be.boostErr = errors.New("Failed to boost post")
	rep, err := run(t, be, true, `
steps:
  - drag: {index: 2, dx: -90}
  - wait: true
`)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c": 1}, rep.Drift)
}

func TestRun_InvalidAmountKeepsFlowOpen(t *testing.T) {
	rep, err := run(t, newBackend(), true, `
steps:
  - drag: {index: 1, dx: 200}
  - invest: {amount: "abc"}
  - invest: {amount: "300"}
`)
	require.NoError(t, err)

	failed, ok := find(rep.Events, "invest_failed")
	require.True(t, ok)
	assert.Equal(t, "amount must be a positive number", failed.Detail)

	done, ok := find(rep.Events, "invest_succeeded")
	require.True(t, ok)
	assert.Equal(t, "Commitment Logged", done.Detail)
}

func TestRun_LoadPastEnd(t *testing.T) {
	rep, err := run(t, newBackend(), true, `
steps:
  - load: true
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"feed_exhausted"}, kinds(rep.Events))
}

func TestRun_ClockExpiresCountdownWithoutTickSteps(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - visible: [{index: 0, ratio: 1}]
  - sleep: 200ms
`))
	require.NoError(t, err)

	r := NewRunner(Options{
		Backend:       newBackend(),
		Identity:      signedIn(true),
		Logger:        zerolog.Nop(),
		TimerDuration: 3,
		ClockInterval: 2 * time.Millisecond,
	})
	rep, err := r.Run(context.Background(), script)
	require.NoError(t, err)

	ev, ok := find(rep.Events, "scroll_to")
	require.True(t, ok, "real clock drives the countdown")
	require.NotNil(t, ev.Index)
	assert.Equal(t, 1, *ev.Index)
}

func TestRun_SleepHonoursCancellation(t *testing.T) {
	script, err := Parse(strings.NewReader("steps:\n  - sleep: 1h\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := NewRunner(Options{Backend: newBackend(), Identity: signedIn(true), Logger: zerolog.Nop()})
	rep, err := r.Run(ctx, script)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, rep)
}
