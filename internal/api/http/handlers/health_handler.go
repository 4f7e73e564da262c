package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	required    map[string]Pinger
	optional    map[string]Pinger
}

// NewHealthHandler returns a new handler instance. Both maps are keyed by dependency
// name. A failing required check makes the service unready; a failing optional one
// is only reported as degraded.
func NewHealthHandler(serviceName, version string, required, optional map[string]Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, required: required, optional: optional}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := pingAll(ctx, h.required, depStatus)
	healthy := pingAll(ctx, h.optional, depStatus)

	if ready {
		status := "ready"
		if !healthy {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":       status,
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

func pingAll(ctx context.Context, checks map[string]Pinger, out fiber.Map) bool {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	for _, name := range names {
		if err := checks[name].Ping(ctx); err != nil {
			out[name] = err.Error()
			ok = false
		} else {
			out[name] = "ok"
		}
	}
	return ok
}
