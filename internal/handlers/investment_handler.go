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

// InvestmentHandler handles HTTP requests related to investments
type InvestmentHandler struct {
	investmentRepository repositories.InvestmentRepository
	postRepository       repositories.PostRepository
	metrics              *metrics.Metrics
	log                  zerolog.Logger
}

// NewInvestmentHandler creates a new InvestmentHandler
func NewInvestmentHandler(investmentRepo repositories.InvestmentRepository, postRepo repositories.PostRepository, m *metrics.Metrics, log zerolog.Logger) *InvestmentHandler {
	return &InvestmentHandler{
		investmentRepository: investmentRepo,
		postRepository:       postRepo,
		metrics:              m,
		log:                  log,
	}
}

// RegisterInvestmentRoutes registers investment-related routes
func (h *InvestmentHandler) RegisterInvestmentRoutes(g *echo.Group) {
	g.POST("/investments", h.CreateInvestment)
	g.POST("/investments/due-diligence", h.SubmitDueDiligence)
	g.GET("/investments", h.GetInvestments)
	g.GET("/investments/inbound", h.GetInboundInvestments)
}

// CreateInvestment records the caller's investment into a post. Amounts above
// the due diligence threshold start as drafts awaiting notes.
func (h *InvestmentHandler) CreateInvestment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateInvestmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.postRepository.GetPostByID(ctx, req.PostID); err != nil {
		return postLookupError(err)
	}

	inv := &models.Investment{
		PostID:     req.PostID,
		InvestorID: userID,
		Amount:     req.Amount,
		Status:     models.InitialInvestmentStatus(req.Amount),
	}
	if err := h.investmentRepository.CreateInvestment(ctx, inv); err != nil {
		h.log.Error().Err(err).Str("post_id", req.PostID).Msg("Failed to create investment")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create investment")
	}
	h.metrics.InvestmentCreated(inv.Status)

	h.log.Info().Str("investment_id", inv.ID).Str("post_id", inv.PostID).Uint("investor_id", userID).Str("status", inv.Status).Msg("Investment created")
	return c.JSON(http.StatusCreated, inv)
}

// SubmitDueDiligence attaches notes to one of the caller's investments
func (h *InvestmentHandler) SubmitDueDiligence(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.DueDiligenceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	inv, err := h.investmentRepository.GetInvestmentByID(ctx, req.InvestmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvestmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Investment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if inv.InvestorID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}

	inv.DueDiligenceNotes = req.Notes
	inv.Status = models.InvestmentStatusPendingReview
	if err := h.investmentRepository.UpdateInvestment(ctx, inv); err != nil {
		h.log.Error().Err(err).Str("investment_id", inv.ID).Msg("Failed to attach due diligence")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to attach due diligence")
	}
	h.metrics.DueDiligenceAttached()

	return c.JSON(http.StatusOK, echo.Map{"investment_id": inv.ID, "status": inv.Status})
}

// GetInvestments lists the caller's investments. ?investor_id must name the caller.
func (h *InvestmentHandler) GetInvestments(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	raw := c.QueryParam("investor_id")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "investor_id is required")
	}
	investorID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || uint(investorID) != userID {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}

	investments, err := h.investmentRepository.GetInvestmentsByInvestor(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, investments)
}

// GetInboundInvestments lists investments into the caller's posts, each with its post title
func (h *InvestmentHandler) GetInboundInvestments(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	posts, err := h.postRepository.GetPostsByAuthor(ctx, userID, 0, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	inbound := []models.InboundInvestment{}
	if len(posts) == 0 {
		return c.JSON(http.StatusOK, inbound)
	}

	titles := make(map[string]string, len(posts))
	postIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		id := p.ID.Hex()
		titles[id] = p.Title
		postIDs = append(postIDs, id)
	}

	investments, err := h.investmentRepository.GetInvestmentsByPostIDs(ctx, postIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, inv := range investments {
		title, ok := titles[inv.PostID]
		if !ok {
			title = "Unknown"
		}
		inbound = append(inbound, models.InboundInvestment{Investment: inv, PostTitle: title})
	}
	return c.JSON(http.StatusOK, inbound)
}
