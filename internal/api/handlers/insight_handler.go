package handlers

import (
	"context"
	"time"

	"keeper/internal/dto"
	"keeper/internal/insight"
	"keeper/internal/models"
	"keeper/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InsightGenerator interface {
	Generate(ctx context.Context, accountID uuid.UUID, persist bool) (*service.GenerationReport, error)
	ListActive(ctx context.Context, accountID uuid.UUID) ([]*models.Insight, error)
}

type ConsensusRunner interface {
	Run(ctx context.Context, accountID uuid.UUID, override *insight.BusinessSummary, persist bool) (*service.ConsensusReport, error)
}

type InsightHandler struct {
	generator InsightGenerator
	consensus ConsensusRunner
	logger    *zap.Logger
}

func NewInsightHandler(generator InsightGenerator, consensus ConsensusRunner, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		generator: generator,
		consensus: consensus,
		logger:    logger,
	}
}

// GenerateInsights godoc
// @Summary Generate insights
// @Description Run the local detectors over stored history. Accepted insights are stored when persist is set.
// @Tags insights
// @Accept json
// @Produce json
// @Param request body dto.GenerateInsightsRequest false "Options"
// @Security Bearer
// @Success 200 {object} service.GenerationReport
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /insights/generate [post]
func (h *InsightHandler) GenerateInsights(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.GenerateInsightsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	report, err := h.generator.Generate(c.Context(), accountID, req.Persist)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to generate insights")
	}
	return c.JSON(report)
}

// ListInsights godoc
// @Summary List active insights
// @Description Stored insights that have not expired, highest value first
// @Tags insights
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.InsightResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /insights [get]
func (h *InsightHandler) ListInsights(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	records, err := h.generator.ListActive(c.Context(), accountID)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to list insights")
	}

	out := make([]dto.InsightResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toInsightResponse(r))
	}
	return c.JSON(out)
}

// RunConsensus godoc
// @Summary Run multi-source consensus
// @Description Ask every configured model, and the local detectors, for insights on the business summary
// @Tags insights
// @Accept json
// @Produce json
// @Param request body dto.ConsensusRequest false "Summary override and options"
// @Security Bearer
// @Success 200 {object} service.ConsensusReport
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /insights/consensus [post]
func (h *InsightHandler) RunConsensus(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ConsensusRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	report, err := h.consensus.Run(c.Context(), accountID, req.Summary, req.Persist)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to run consensus")
	}
	return c.JSON(report)
}

func toInsightResponse(r *models.Insight) dto.InsightResponse {
	resp := dto.InsightResponse{
		ID:              r.ID.String(),
		Type:            r.Type,
		Title:           r.Title,
		Description:     r.Description,
		Source:          r.Source,
		ConfidenceScore: r.ConfidenceScore,
		PotentialValue:  r.PotentialValue,
		Evidence:        r.Evidence,
		ActionItems:     r.ActionItems,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		ExpiresAt:       r.ExpiresAt.Format(time.RFC3339),
	}
	if len(resp.Evidence) == 0 {
		resp.Evidence = []byte("{}")
	}
	if len(resp.ActionItems) == 0 {
		resp.ActionItems = []byte("[]")
	}
	return resp
}
