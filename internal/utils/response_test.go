package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/klasse-app/klasse-api/internal/utils"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

func performRequest(t *testing.T, handler fiber.Handler) (*http.Response, envelope) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	return resp, payload
}

func TestSendSuccessDefaultsMessage(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "", map[string]string{"code": "AB12CD"})
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, "AB12CD", payload.Data["code"])
}

func TestSendSuccessWithStatusCreated(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "class created", nil)
	})

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, payload.Success)
	require.Equal(t, "class created", payload.Message)
}

func TestSendErrorOmitsData(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusConflict, "already enrolled in this class")
	})

	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.False(t, payload.Success)
	require.Equal(t, "already enrolled in this class", payload.Message)
	require.Nil(t, payload.Data)
}
