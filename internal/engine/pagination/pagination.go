// Package pagination fetches ordered pages of feed items from the backend,
// serializing requests and dropping items already delivered.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/rs/zerolog"
)

// FirstCursor requests the head of the feed and replaces the collection.
const FirstCursor = 0

var (
	// ErrLoadInFlight is returned when a page is requested while another is loading.
	ErrLoadInFlight = errors.New("pagination: page load already in flight")
	// ErrFeedExhausted is returned when the backend signalled the end of the feed.
	ErrFeedExhausted = errors.New("pagination: no more pages")
)

// Source lists one page of the feed starting at cursor.
type Source interface {
	ListFeed(ctx context.Context, cursor int) (models.FeedPage, error)
}

// LoadError is a terminal failure of a single page request.
type LoadError struct {
	Cursor int
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load feed page at cursor %d: %v", e.Cursor, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Page is the result of a successful load, with duplicates removed.
type Page struct {
	Cursor     int
	NextCursor *int
	Items      []models.FeedItem
	Replace    bool
	Duplicates int
}

// Manager tracks the cursor and end-of-feed state across page loads.
type Manager struct {
	mu      sync.Mutex
	source  Source
	log     zerolog.Logger
	seen    map[string]struct{}
	cursor  int
	hasMore bool
	loading bool
}

// NewManager creates a Manager positioned at the head of the feed.
func NewManager(source Source, log zerolog.Logger) *Manager {
	return &Manager{
		source:  source,
		log:     log,
		seen:    make(map[string]struct{}),
		hasMore: true,
	}
}

// Cursor returns the cursor the next LoadNext will request.
func (m *Manager) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// HasMore reports whether the backend may have further pages.
func (m *Manager) HasMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasMore
}

// Loading reports whether a request is outstanding.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// ApplyFunc adds a loaded page to the caller's collection. It runs before the
// in-flight guard is released, so a concurrent load cannot overtake it.
type ApplyFunc func(Page)

// LoadNext requests the page at the current cursor.
func (m *Manager) LoadNext(ctx context.Context, apply ApplyFunc) (Page, error) {
	m.mu.Lock()
	if !m.hasMore {
		m.mu.Unlock()
		return Page{}, ErrFeedExhausted
	}
	if m.loading {
		m.mu.Unlock()
		return Page{}, ErrLoadInFlight
	}
	m.loading = true
	cursor := m.cursor
	m.mu.Unlock()

	return m.fetch(ctx, cursor, apply)
}

// LoadPage requests the page at cursor. FirstCursor replaces the collection;
// any other cursor appends.
func (m *Manager) LoadPage(ctx context.Context, cursor int, apply ApplyFunc) (Page, error) {
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return Page{}, ErrLoadInFlight
	}
	if cursor != FirstCursor && !m.hasMore {
		m.mu.Unlock()
		return Page{}, ErrFeedExhausted
	}
	m.loading = true
	m.mu.Unlock()

	return m.fetch(ctx, cursor, apply)
}

func (m *Manager) fetch(ctx context.Context, cursor int, apply ApplyFunc) (Page, error) {
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	m.log.Debug().Int("cursor", cursor).Msg("Loading feed page")
	resp, err := m.source.ListFeed(ctx, cursor)
	if err != nil {
		m.log.Error().Err(err).Int("cursor", cursor).Msg("Feed page load failed")
		return Page{}, &LoadError{Cursor: cursor, Err: err}
	}

	page := m.record(cursor, resp)
	if apply != nil {
		apply(page)
	}
	return page, nil
}

// record drops already-seen items and advances the cursor.
func (m *Manager) record(cursor int, resp models.FeedPage) Page {
	m.mu.Lock()
	defer m.mu.Unlock()

	replace := cursor == FirstCursor
	if replace {
		m.seen = make(map[string]struct{}, len(resp.Items))
	}

	page := Page{Cursor: cursor, NextCursor: resp.NextCursor, Replace: replace}
	page.Items = make([]models.FeedItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		if _, dup := m.seen[item.ID]; dup {
			page.Duplicates++
			continue
		}
		m.seen[item.ID] = struct{}{}
		page.Items = append(page.Items, item)
	}

	if resp.NextCursor != nil {
		m.cursor = *resp.NextCursor
		m.hasMore = true
	} else {
		m.cursor = cursor
		m.hasMore = false
	}

	m.log.Debug().
		Int("cursor", cursor).
		Int("items", len(page.Items)).
		Int("duplicates", page.Duplicates).
		Bool("has_more", m.hasMore).
		Msg("Feed page loaded")
	return page
}
