package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"keeper/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp(m *auth.JWTManager) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", AuthMiddleware(m, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(AccountIDKey).(string))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Hour)
	app := newApp(m)

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer nope")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := m.GenerateToken("acct-1")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "acct-1", string(body))
	})
}
