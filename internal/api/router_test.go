package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"keeper/internal/api/handlers"
	"keeper/pkg/auth"
	"keeper/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetupRouter(t *testing.T) {
	logger := zap.NewNop()
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	app := SetupRouter(Handlers{
		Customers: handlers.NewCustomerHandler(nil, nil, logger),
		Matches:   handlers.NewMatchHandler(nil, logger),
		Insights:  handlers.NewInsightHandler(nil, nil, logger),
	}, jwtManager, config.ServerConfig{}, logger)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/insights", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
