package handlers

import (
	"errors"

	"keeper/internal/repository"
	"keeper/internal/service"
	"keeper/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func getAccountID(c *fiber.Ctx) (uuid.UUID, error) {
	accountIDStr, ok := c.Locals(middleware.AccountIDKey).(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	accountID, err := uuid.Parse(accountIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return accountID, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// serviceError maps a service failure onto a response. Internal details are
// logged, not returned.
func serviceError(c *fiber.Ctx, logger *zap.Logger, err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	case errors.Is(err, service.ErrMissingExternalID), errors.Is(err, service.ErrInvalidAmount):
		return badRequest(c, err.Error())
	}

	logger.Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
	})
}
