package handlers

import (
	"context"

	"keeper/internal/dto"
	"keeper/internal/matching"
	"keeper/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBatchIdentities = 1000

type Matcher interface {
	FindMatches(ctx context.Context, accountID uuid.UUID, query matching.Identity, maxMatches int) ([]matching.Match, error)
	MatchExternal(ctx context.Context, accountID uuid.UUID, queries []matching.Identity) (*service.ExternalMatchReport, error)
}

type MatchHandler struct {
	matcher Matcher
	logger  *zap.Logger
}

func NewMatchHandler(matcher Matcher, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{
		matcher: matcher,
		logger:  logger,
	}
}

// FindMatches godoc
// @Summary Find matching customers
// @Description Rank stored customers by similarity to the given identity
// @Tags matching
// @Accept json
// @Produce json
// @Param request body dto.MatchRequest true "Identity"
// @Security Bearer
// @Success 200 {array} dto.MatchResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /matches [post]
func (h *MatchHandler) FindMatches(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.MaxMatches < 0 {
		return badRequest(c, "max_matches must not be negative")
	}

	matches, err := h.matcher.FindMatches(c.Context(), accountID, toIdentity(req.IdentityRequest), req.MaxMatches)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to find matches")
	}
	return c.JSON(toMatchResponses(matches))
}

// MatchBatch godoc
// @Summary Match external identities
// @Description Match a list of identities from another system and report tier counts
// @Tags matching
// @Accept json
// @Produce json
// @Param request body dto.BatchMatchRequest true "Identities"
// @Security Bearer
// @Success 200 {object} service.ExternalMatchReport
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /matches/batch [post]
func (h *MatchHandler) MatchBatch(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.BatchMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Identities) == 0 {
		return badRequest(c, "At least one identity is required")
	}
	if len(req.Identities) > maxBatchIdentities {
		return badRequest(c, "Too many identities")
	}

	queries := make([]matching.Identity, 0, len(req.Identities))
	for _, id := range req.Identities {
		queries = append(queries, toIdentity(id))
	}

	report, err := h.matcher.MatchExternal(c.Context(), accountID, queries)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to match identities")
	}
	return c.JSON(report)
}

func toIdentity(r dto.IdentityRequest) matching.Identity {
	return matching.Identity{
		GivenName:  r.GivenName,
		FamilyName: r.FamilyName,
		Email:      r.Email,
		Phone:      r.Phone,
	}
}

func toMatchResponses(matches []matching.Match) []dto.MatchResponse {
	out := make([]dto.MatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, dto.MatchResponse{
			CandidateID: m.CandidateID,
			Score:       m.Score,
			Tier:        string(m.Tier),
			Reasons:     m.Reasons,
		})
	}
	return out
}
