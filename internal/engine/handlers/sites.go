package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Site Catalog Handler
// ============================================================

// ListSites lists the seeded site catalog.
func (h *EngineHandler) ListSites(c fiber.Ctx) error {
	sites, err := h.repo.List(context.Background())
	if err != nil {
		log.Printf("[SITES] list error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"sites": sites})
}

// GetSite returns one catalog entry with its GeoJSON payload.
func (h *EngineHandler) GetSite(c fiber.Ctx) error {
	site, err := h.repo.Get(context.Background(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	// The payload is stored as a JSON document, return it inline
	// rather than as an escaped string.
	return c.JSON(fiber.Map{
		"id":          site.ID,
		"name":        site.Name,
		"description": site.Description,
		"payload":     json.RawMessage(site.Payload),
	})
}
