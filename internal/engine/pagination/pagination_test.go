package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	pages map[int]models.FeedPage
	errs  map[int]error
	calls []int
	gate  chan struct{}
}

func (f *fakeSource) ListFeed(ctx context.Context, cursor int) (models.FeedPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cursor)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err := f.errs[cursor]; err != nil {
		return models.FeedPage{}, err
	}
	return f.pages[cursor], nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func next(n int) *int { return &n }

func items(ids ...string) []models.FeedItem {
	out := make([]models.FeedItem, len(ids))
	for i, id := range ids {
		out[i] = models.FeedItem{ID: id, Type: models.PostTypeIdea, Title: id}
	}
	return out
}

func ids(page Page) []string {
	out := make([]string, len(page.Items))
	for i, it := range page.Items {
		out[i] = it.ID
	}
	return out
}

func TestManager_StopsAtEndOfFeed(t *testing.T) {
	src := &fakeSource{pages: map[int]models.FeedPage{
		0: {Items: items("a", "b", "c", "d", "e"), NextCursor: next(5)},
		5: {Items: items("f", "g"), NextCursor: nil},
	}}
	m := NewManager(src, zerolog.Nop())

	page, err := m.LoadNext(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, page.Replace)
	assert.Equal(t, 5, m.Cursor())
	assert.True(t, m.HasMore())

	page, err = m.LoadNext(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, page.Replace)
	assert.Equal(t, []string{"f", "g"}, ids(page))
	assert.False(t, m.HasMore())
	assert.Equal(t, 5, m.Cursor(), "cursor kept when backend returns none")

	_, err = m.LoadNext(context.Background(), nil)
	assert.ErrorIs(t, err, ErrFeedExhausted)
	assert.Equal(t, []int{0, 5}, src.calls)
}

func TestManager_DropsDuplicatesAcrossPages(t *testing.T) {
	src := &fakeSource{pages: map[int]models.FeedPage{
		0: {Items: items("a", "b"), NextCursor: next(2)},
		2: {Items: items("b", "c", "a", "d"), NextCursor: next(4)},
	}}
	m := NewManager(src, zerolog.Nop())

	_, err := m.LoadPage(context.Background(), 0, nil)
	require.NoError(t, err)
	page, err := m.LoadPage(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(page))
	assert.Equal(t, 2, page.Duplicates)
}

func TestManager_FirstPageResetsSeen(t *testing.T) {
	src := &fakeSource{pages: map[int]models.FeedPage{
		0: {Items: items("a", "b"), NextCursor: next(2)},
	}}
	m := NewManager(src, zerolog.Nop())

	_, err := m.LoadPage(context.Background(), 0, nil)
	require.NoError(t, err)
	page, err := m.LoadPage(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.True(t, page.Replace)
	assert.Equal(t, []string{"a", "b"}, ids(page))
}

func TestManager_RejectsOverlappingLoads(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{gate: gate, pages: map[int]models.FeedPage{
		0: {Items: items("a"), NextCursor: next(1)},
	}}
	m := NewManager(src, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := m.LoadNext(context.Background(), nil)
		done <- err
	}()
	require.Eventually(t, m.Loading, timeout, tick)

	_, err := m.LoadNext(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLoadInFlight)
	_, err = m.LoadPage(context.Background(), 0, nil)
	assert.ErrorIs(t, err, ErrLoadInFlight)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, src.callCount())
	assert.False(t, m.Loading())
}

func TestManager_FailureIsTerminalButRetryable(t *testing.T) {
	boom := errors.New("connection refused")
	src := &fakeSource{
		pages: map[int]models.FeedPage{0: {Items: items("a"), NextCursor: next(1)}},
		errs:  map[int]error{0: boom},
	}
	m := NewManager(src, zerolog.Nop())

	_, err := m.LoadNext(context.Background(), nil)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 0, loadErr.Cursor)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, src.callCount(), "no automatic retry")
	assert.True(t, m.HasMore())

	delete(src.errs, 0)
	page, err := m.LoadNext(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(page))
}

func TestManager_GuardHeldUntilPageApplied(t *testing.T) {
	src := &fakeSource{pages: map[int]models.FeedPage{
		0: {Items: items("a"), NextCursor: next(1)},
		1: {Items: items("b"), NextCursor: next(2)},
	}}
	m := NewManager(src, zerolog.Nop())

	applying := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := m.LoadNext(context.Background(), func(Page) {
			close(applying)
			<-release
		})
		done <- err
	}()
	<-applying

	assert.True(t, m.Loading())
	_, err := m.LoadNext(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLoadInFlight)
	assert.Equal(t, 1, src.callCount(), "next page not requested before the first is applied")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, m.Loading())

	var applied []string
	_, err = m.LoadNext(context.Background(), func(p Page) { applied = ids(p) })
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, applied)
}
