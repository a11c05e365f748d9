package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/pitchfeed/internal/metrics"
	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/anonto42/pitchfeed/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository repositories.PostRepository
	metrics        *metrics.Metrics
	log            zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, m *metrics.Metrics, log zerolog.Logger) *PostHandler {
	return &PostHandler{postRepository: postRepo, metrics: m, log: log}
}

// RegisterPublicPostRoutes registers the read-only post routes
func (h *PostHandler) RegisterPublicPostRoutes(g *echo.Group) {
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
}

// RegisterPostRoutes registers the authenticated post routes. boostLimiter may be nil.
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, boostLimiter echo.MiddlewareFunc) {
	g.POST("/posts", h.CreatePost)
	if boostLimiter != nil {
		g.PATCH("/posts/:id/boost", h.BoostPost, boostLimiter)
	} else {
		g.PATCH("/posts/:id/boost", h.BoostPost)
	}
}

// CreatePost publishes a pitch authored by the caller
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post := &models.Post{
		AuthorID:    userID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		AISummary:   req.AISummary,
		VideoURL:    req.VideoURL,
		DeckURL:     req.DeckURL,
		ProductURL:  req.ProductURL,
		Status:      models.PostStatusPublished,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		h.log.Error().Err(err).Uint("author_id", userID).Msg("Failed to create post")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create post")
	}

	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return postLookupError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// GetPosts lists posts newest first, optionally by ?author_id
func (h *PostHandler) GetPosts(c echo.Context) error {
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	var (
		posts []models.Post
		err   error
	)
	if raw := c.QueryParam("author_id"); raw != "" {
		authorID, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid author ID")
		}
		posts, err = h.postRepository.GetPostsByAuthor(c.Request().Context(), uint(authorID), skip, limit)
	} else {
		posts, err = h.postRepository.ListFeed(c.Request().Context(), skip, limit)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, posts)
}

// BoostPost adds one boost to a post and returns the updated post
func (h *PostHandler) BoostPost(c echo.Context) error {
	if _, err := requireUserID(c); err != nil {
		return err
	}

	post, err := h.postRepository.IncrementBoostCount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return postLookupError(err)
	}
	h.metrics.PostBoosted()
	return c.JSON(http.StatusOK, post)
}

func postLookupError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrPostNotFound), errors.Is(err, repositories.ErrInvalidPostID):
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
