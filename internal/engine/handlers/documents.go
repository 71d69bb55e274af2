package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/ingest"
	"site-engine/internal/engine/models"
	"site-engine/internal/engine/repository"
	"site-engine/internal/engine/session"
	"site-engine/internal/engine/store"
	"site-engine/internal/engine/tools"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Engine Handler
// ============================================================

type EngineHandler struct {
	docs *session.Manager
	repo *repository.Repository
}

func NewEngineHandler(docs *session.Manager, repo *repository.Repository) *EngineHandler {
	return &EngineHandler{
		docs: docs,
		repo: repo,
	}
}

type createDocumentRequest struct {
	SiteID string `json:"siteId"`
}

type snapshotResponse struct {
	ID            string            `json:"id"`
	Buildings     []models.Building `json:"buildings"`
	Roads         []models.Road     `json:"roads"`
	SelectedIndex int               `json:"selectedIndex"`
	ActiveTool    tools.Tool        `json:"activeTool"`
	State         string            `json:"state"`
	PanOffset     geometry.Point    `json:"panOffset"`
	HistoryLen    int               `json:"historyLen"`
}

type eventRequest struct {
	Kind             string         `json:"kind"`
	Ground           geometry.Point `json:"ground"`
	ViewportFraction float64        `json:"viewportFraction"`
	Key              string         `json:"key"`
	Hit              *tools.Hit     `json:"hit"`
}

type setToolRequest struct {
	Tool tools.Tool `json:"tool"`
}

type extrudeRequest struct {
	Height float64 `json:"height"`
}

type floorsRequest struct {
	Count       int     `json:"count"`
	FloorHeight float64 `json:"floorHeight"`
}

// CreateDocument opens a new drafting document, optionally preloading it
// from a site in the catalog.
func (h *EngineHandler) CreateDocument(c fiber.Ctx) error {
	var req createDocumentRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	doc := h.docs.Create()

	dropped := 0
	if req.SiteID != "" {
		site, err := h.repo.Get(context.Background(), req.SiteID)
		if err != nil {
			h.docs.Delete(doc.ID)
			return fail(c, err)
		}
		plan, err := ingest.Parse([]byte(site.Payload))
		if err != nil {
			h.docs.Delete(doc.ID)
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := doc.Store.Load(plan.Buildings, plan.Roads); err != nil {
			h.docs.Delete(doc.ID)
			return fail(c, err)
		}
		dropped = plan.Dropped
	}

	log.Printf("[ENGINE] document %s created (site=%q)", doc.ID, req.SiteID)

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"documentId": doc.ID,
		"buildings":  doc.Store.Count(),
		"dropped":    dropped,
	})
}

// DeleteDocument tears a document down.
func (h *EngineHandler) DeleteDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if !h.docs.Delete(id) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}
	return c.SendStatus(http.StatusNoContent)
}

// Snapshot returns the full document state for rendering.
func (h *EngineHandler) Snapshot(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	doc.Lock()
	defer doc.Unlock()

	return c.JSON(snapshot(doc))
}

// Event feeds a single pointer or keyboard event into the tool machine.
func (h *EngineHandler) Event(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}

	var req eventRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	doc.Lock()
	defer doc.Unlock()

	switch req.Kind {
	case "pointerdown":
		err = doc.Machine.PointerDown(req.Ground, req.Hit)
	case "pointermove":
		err = doc.Machine.PointerMove(req.Ground, req.ViewportFraction)
	case "pointerup":
		err = doc.Machine.PointerUp(req.Ground)
	case "keydown":
		err = doc.Machine.KeyDown(req.Key)
	default:
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "unknown event kind"})
	}
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(snapshot(doc))
}

// SetTool switches the active tool, cancelling any gesture in progress.
func (h *EngineHandler) SetTool(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}

	var req setToolRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	doc.Lock()
	defer doc.Unlock()

	if err := doc.Machine.SetTool(req.Tool); err != nil {
		return fail(c, err)
	}
	return c.JSON(snapshot(doc))
}

// Undo rolls the document back one snapshot.
func (h *EngineHandler) Undo(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	doc.Lock()
	defer doc.Unlock()

	undone := doc.Store.Undo()
	resp := snapshot(doc)
	return c.JSON(fiber.Map{
		"undone":   undone,
		"snapshot": resp,
	})
}

// Clear removes every building. Roads stay.
func (h *EngineHandler) Clear(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	doc.Lock()
	defer doc.Unlock()

	doc.Store.ClearAll()
	return c.JSON(snapshot(doc))
}

// Extrude sets an exact height on a flat footprint.
func (h *EngineHandler) Extrude(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	index, err := buildingIndex(c)
	if err != nil {
		return err
	}

	var req extrudeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	doc.Lock()
	defer doc.Unlock()

	if err := doc.Machine.ExtrudeTo(index, req.Height); err != nil {
		return fail(c, err)
	}
	return c.JSON(snapshot(doc))
}

// Floors stacks duplicated floors on top of a base footprint.
func (h *EngineHandler) Floors(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	index, err := buildingIndex(c)
	if err != nil {
		return err
	}

	var req floorsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	doc.Lock()
	defer doc.Unlock()

	if err := doc.Store.Select(index); err != nil {
		return fail(c, err)
	}
	if err := doc.Machine.StackFloors(req.Count, req.FloorHeight); err != nil {
		return fail(c, err)
	}
	return c.JSON(snapshot(doc))
}

// RemoveBuilding deletes one building, cascading its stacked floors.
func (h *EngineHandler) RemoveBuilding(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}
	index, err := buildingIndex(c)
	if err != nil {
		return err
	}

	doc.Lock()
	defer doc.Unlock()

	if err := doc.Store.RemoveAt(index); err != nil {
		return fail(c, err)
	}
	return c.JSON(snapshot(doc))
}

// Ingest replaces the document contents with a parsed GeoJSON payload.
func (h *EngineHandler) Ingest(c fiber.Ctx) error {
	doc, err := h.resolveDoc(c)
	if err != nil {
		return err
	}

	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}

	plan, err := ingest.Parse(c.Body())
	if err != nil {
		log.Printf("[ENGINE] ingest error: %v", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	doc.Lock()
	defer doc.Unlock()

	if err := doc.Store.Load(plan.Buildings, plan.Roads); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"buildings": len(plan.Buildings),
		"roads":     len(plan.Roads),
		"dropped":   plan.Dropped,
	})
}

// ============================================================
// Helpers
// ============================================================

func (h *EngineHandler) resolveDoc(c fiber.Ctx) (*session.Document, error) {
	doc, ok := h.docs.Get(c.Params("id"))
	if !ok {
		return nil, fiber.NewError(http.StatusNotFound, "document not found")
	}
	return doc, nil
}

func buildingIndex(c fiber.Ctx) (int, error) {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid building index")
	}
	return index, nil
}

// snapshot assembles the response while the document lock is held.
func snapshot(doc *session.Document) snapshotResponse {
	return snapshotResponse{
		ID:            doc.ID,
		Buildings:     doc.Store.Buildings(),
		Roads:         doc.Store.Roads(),
		SelectedIndex: doc.Store.Selected(),
		ActiveTool:    doc.Machine.ActiveTool(),
		State:         doc.Machine.StateName(),
		PanOffset:     doc.Machine.PanOffset(),
		HistoryLen:    doc.Store.HistoryLen(),
	}
}

func fail(c fiber.Ctx, err error) error {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	default:
		log.Printf("[ENGINE] internal error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
