package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/klasse-app/klasse-api/internal/config"
	"github.com/klasse-app/klasse-api/internal/utils"
)

// HealthResponse is the liveness payload served without authentication.
type HealthResponse struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthCheck reports process liveness. It deliberately skips dependency
// probes so a degraded redis or database never flaps the load balancer.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", HealthResponse{
			Status:      "ok",
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Timestamp:   time.Now().UTC(),
		})
	}
}
