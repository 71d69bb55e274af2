package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"site-engine/internal/common/config"
	"site-engine/internal/common/middleware"
	"site-engine/internal/engine/handlers"
	"site-engine/internal/engine/projection"
	"site-engine/internal/engine/repository"
	"site-engine/internal/engine/session"
	"site-engine/internal/engine/tools"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Site Engine Service
// ============================================================

func main() {
	cfg := config.Load()

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background()); err != nil {
		log.Fatalf("init db: %v", err)
	}

	grid := projection.Grid{
		TotalSize: cfg.GridSize,
		Divisions: cfg.GridDivisions,
	}
	toolCfg := tools.DefaultConfig()
	toolCfg.MaxHeight = cfg.MaxHeight

	docs := session.NewManager(grid, toolCfg)
	engineHandler := handlers.NewEngineHandler(docs, repo)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Site Engine",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		if err := db.Ping(); err != nil {
			return c.Status(503).JSON(fiber.Map{"status": "db unavailable"})
		}
		return c.JSON(fiber.Map{
			"status":    "ready",
			"documents": docs.Count(),
		})
	})

	// ============================================================
	// Document Routes
	// ============================================================

	app.Post("/documents", engineHandler.CreateDocument)
	app.Delete("/documents/:id", engineHandler.DeleteDocument)
	app.Get("/documents/:id/snapshot", engineHandler.Snapshot)
	app.Post("/documents/:id/events", engineHandler.Event)
	app.Post("/documents/:id/tool", engineHandler.SetTool)
	app.Post("/documents/:id/undo", engineHandler.Undo)
	app.Post("/documents/:id/clear", engineHandler.Clear)
	app.Post("/documents/:id/ingest", engineHandler.Ingest)

	app.Post("/documents/:id/buildings/:index/extrude", engineHandler.Extrude)
	app.Post("/documents/:id/buildings/:index/floors", engineHandler.Floors)
	app.Delete("/documents/:id/buildings/:index", engineHandler.RemoveBuilding)

	// ============================================================
	// Export Routes
	// ============================================================

	app.Get("/documents/:id/export/grid", engineHandler.ExportGrid)
	app.Get("/documents/:id/export/csv", engineHandler.ExportCSV)
	app.Get("/documents/:id/export/zones", engineHandler.ExportZones)
	app.Get("/documents/:id/export/wkt", engineHandler.ExportWKT)

	// ============================================================
	// Site Catalog Routes
	// ============================================================

	app.Get("/sites", engineHandler.ListSites)
	app.Get("/sites/:id", engineHandler.GetSite)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Site Engine on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
