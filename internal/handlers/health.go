package handlers

import "github.com/gofiber/fiber/v2"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleHealth always answers 200; it does not look at configuration.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "OK", Message: "PDF relay is running!"})
}
