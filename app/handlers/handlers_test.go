package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/sexto-andar/auth-service/business_flow"
)

func TestClientMetadataCarriesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New(requestid.Config{Header: businessflow.RequestIDKey}))
	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString(clientMetadata(c).RequestID)
	})

	t.Run("client supplied header wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(businessflow.RequestIDKey, "client-supplied-id")

		resp, err := app.Test(req)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "client-supplied-id", string(body))
	})

	t.Run("generated id is used when the client sends none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.NotEmpty(t, string(body))
		assert.Equal(t, resp.Header.Get(businessflow.RequestIDKey), string(body))
	})
}
