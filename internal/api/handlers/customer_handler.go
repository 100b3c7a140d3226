package handlers

import (
	"context"

	"keeper/internal/dto"
	"keeper/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Ingester interface {
	IngestCustomers(ctx context.Context, accountID uuid.UUID, inputs []service.CustomerInput) (int, error)
	IngestTransactions(ctx context.Context, accountID uuid.UUID, inputs []service.TransactionInput) (int, error)
}

type Backfiller interface {
	BackfillEmbeddings(ctx context.Context, accountID uuid.UUID, limit int) (service.BackfillResult, error)
}

type CustomerHandler struct {
	ingester   Ingester
	backfiller Backfiller
	logger     *zap.Logger
}

func NewCustomerHandler(ingester Ingester, backfiller Backfiller, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		ingester:   ingester,
		backfiller: backfiller,
		logger:     logger,
	}
}

// IngestCustomers godoc
// @Summary Ingest customers
// @Description Upsert customers from the payments source. A changed identity clears the stored embedding.
// @Tags customers
// @Accept json
// @Produce json
// @Param request body dto.IngestCustomersRequest true "Customers"
// @Security Bearer
// @Success 200 {object} dto.IngestResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /customers [post]
func (h *CustomerHandler) IngestCustomers(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.IngestCustomersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Customers) == 0 {
		return badRequest(c, "At least one customer is required")
	}

	inputs := make([]service.CustomerInput, 0, len(req.Customers))
	for _, cr := range req.Customers {
		inputs = append(inputs, service.CustomerInput{
			ExternalID: cr.ExternalID,
			GivenName:  cr.GivenName,
			FamilyName: cr.FamilyName,
			Email:      cr.Email,
			Phone:      cr.Phone,
		})
	}

	stored, err := h.ingester.IngestCustomers(c.Context(), accountID, inputs)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to ingest customers")
	}
	return c.JSON(dto.IngestResponse{Stored: stored})
}

// IngestTransactions godoc
// @Summary Ingest transactions
// @Description Upsert completed payments. Unknown customers leave the payment unlinked.
// @Tags customers
// @Accept json
// @Produce json
// @Param request body dto.IngestTransactionsRequest true "Transactions"
// @Security Bearer
// @Success 200 {object} dto.IngestResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /transactions [post]
func (h *CustomerHandler) IngestTransactions(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.IngestTransactionsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Transactions) == 0 {
		return badRequest(c, "At least one transaction is required")
	}

	inputs := make([]service.TransactionInput, 0, len(req.Transactions))
	for _, tr := range req.Transactions {
		inputs = append(inputs, service.TransactionInput{
			ExternalID:         tr.ExternalID,
			CustomerExternalID: tr.CustomerExternalID,
			AmountCents:        tr.AmountCents,
			TipCents:           tr.TipCents,
			Currency:           tr.Currency,
			OccurredAt:         tr.OccurredAt,
		})
	}

	stored, err := h.ingester.IngestTransactions(c.Context(), accountID, inputs)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to ingest transactions")
	}
	return c.JSON(dto.IngestResponse{Stored: stored})
}

// BackfillEmbeddings godoc
// @Summary Embed customers
// @Description Compute embeddings for customers that have none
// @Tags customers
// @Accept json
// @Produce json
// @Param request body dto.BackfillRequest false "Batch limit"
// @Security Bearer
// @Success 200 {object} service.BackfillResult
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /customers/embeddings [post]
func (h *CustomerHandler) BackfillEmbeddings(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.BackfillRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	if req.Limit < 0 {
		return badRequest(c, "Limit must not be negative")
	}

	res, err := h.backfiller.BackfillEmbeddings(c.Context(), accountID, req.Limit)
	if err != nil {
		return serviceError(c, h.logger, err, "Failed to backfill embeddings")
	}
	return c.JSON(res)
}
