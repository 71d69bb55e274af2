package handlers

import (
	"log"
	"net/http"

	"site-engine/internal/engine/export"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Export Handler
// ============================================================

// ExportGrid serializes the document on the quantized site grid.
func (h *EngineHandler) ExportGrid(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	doc.Lock()
	defer doc.Unlock()

	out := export.Grid(doc.Store.Buildings(), doc.Store.Roads(), export.Options{
		Grid: doc.Grid,
		Note: c.Query("note"),
	})
	return c.JSON(out)
}

// ExportCSV serializes the document as flat per-vertex CSV rows.
func (h *EngineHandler) ExportCSV(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	doc.Lock()
	defer doc.Unlock()

	data, err := export.CSV(doc.Store.Buildings(), doc.Store.Roads())
	if err != nil {
		log.Printf("[EXPORT] csv error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "export failed"})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="buildings.csv"`)
	return c.Send(data)
}

// ExportZones serializes per-floor surface geometry for analysis tools.
func (h *EngineHandler) ExportZones(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	doc.Lock()
	defer doc.Unlock()

	return c.JSON(export.Zones(doc.Store.Buildings(), doc.Store.Roads()))
}

// ExportWKT serializes footprints and roads as WKT strings.
func (h *EngineHandler) ExportWKT(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	doc.Lock()
	defer doc.Unlock()

	out, err := export.WKT(doc.Store.Buildings(), doc.Store.Roads())
	if err != nil {
		log.Printf("[EXPORT] wkt error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "export failed"})
	}
	return c.JSON(out)
}
