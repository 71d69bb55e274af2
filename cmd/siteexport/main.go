package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"site-engine/internal/engine/export"
	"site-engine/internal/engine/ingest"
	"site-engine/internal/engine/models"
	"site-engine/internal/engine/projection"
)

// ============================================================
// Offline Export Tool
// ============================================================
//
// Reads a scene file (either a document snapshot or a raw GeoJSON
// site plan) and writes every export format into the output dir.

type scene struct {
	Buildings []models.Building `json:"buildings"`
	Roads     []models.Road     `json:"roads"`
}

func main() {
	in := flag.String("in", "", "input scene file")
	out := flag.String("out", "export", "output directory")
	geo := flag.Bool("geojson", false, "treat input as a GeoJSON site plan")
	gridSize := flag.Float64("grid-size", 200, "site grid size in meters")
	gridDivs := flag.Int("grid-divisions", 100, "cells per grid axis")
	note := flag.String("note", "", "note stored in the grid export metadata")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var sc scene
	if *geo {
		plan, err := ingest.Parse(data)
		if err != nil {
			log.Fatalf("parse geojson: %v", err)
		}
		sc = scene{Buildings: plan.Buildings, Roads: plan.Roads}
		if plan.Dropped > 0 {
			log.Printf("[EXPORT] dropped %d buildings outside the site", plan.Dropped)
		}
	} else {
		if err := json.Unmarshal(data, &sc); err != nil {
			log.Fatalf("parse scene: %v", err)
		}
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	grid := projection.Grid{TotalSize: *gridSize, Divisions: *gridDivs}

	gridDoc := export.Grid(sc.Buildings, sc.Roads, export.Options{Grid: grid, Note: *note})
	if err := writeJSON(filepath.Join(*out, "grid.json"), gridDoc); err != nil {
		log.Fatalf("write grid: %v", err)
	}

	csvData, err := export.CSV(sc.Buildings, sc.Roads)
	if err != nil {
		log.Fatalf("export csv: %v", err)
	}
	if err := os.WriteFile(filepath.Join(*out, "buildings.csv"), csvData, 0o644); err != nil {
		log.Fatalf("write csv: %v", err)
	}

	if err := writeJSON(filepath.Join(*out, "zones.json"), export.Zones(sc.Buildings, sc.Roads)); err != nil {
		log.Fatalf("write zones: %v", err)
	}

	wktDoc, err := export.WKT(sc.Buildings, sc.Roads)
	if err != nil {
		log.Fatalf("export wkt: %v", err)
	}
	if err := writeJSON(filepath.Join(*out, "scene.wkt.json"), wktDoc); err != nil {
		log.Fatalf("write wkt: %v", err)
	}

	fmt.Printf("exported %d buildings, %d roads to %s\n", len(sc.Buildings), len(sc.Roads), *out)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
