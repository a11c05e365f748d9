package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/anonto42/pitchfeed/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// FeedHandler serves the cursor-paginated pitch feed
type FeedHandler struct {
	feedReader repositories.FeedReader
	pageSize   int
	log        zerolog.Logger
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feedReader repositories.FeedReader, pageSize int, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{feedReader: feedReader, pageSize: pageSize, log: log}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed returns the page at ?cursor (an offset into the newest-first feed).
// next_cursor is cursor+size when the page came back full, null otherwise.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	cursor := 0
	if raw := c.QueryParam("cursor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "cursor must be a non-negative integer")
		}
		cursor = n
	}

	posts, err := h.feedReader.ListFeed(c.Request().Context(), int64(cursor), int64(h.pageSize))
	if err != nil {
		h.log.Error().Err(err).Int("cursor", cursor).Msg("Failed to list feed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load feed")
	}

	page := models.FeedPage{Items: make([]models.FeedItem, 0, len(posts))}
	for i := range posts {
		page.Items = append(page.Items, posts[i].ToFeedItem())
	}
	if len(posts) == h.pageSize {
		next := cursor + h.pageSize
		page.NextCursor = &next
	}
	return c.JSON(http.StatusOK, page)
}
