package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"site-engine/internal/engine/models"
	"site-engine/internal/engine/projection"
)

// ============================================================
// CSV export
// ============================================================

var csvHeader = []string{"Type", "ID", "X", "Y", "Z", "Additional_Info"}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// CSV writes one row per vertex: site boundary first, then buildings
// with their base z, then roads. Coordinates are centered planar.
func CSV(buildings []models.Building, roads []models.Road) ([]byte, error) {
	center := projection.SceneCenter(buildings, roads)
	groups := floorGroups(buildings)
	baseZ := make(map[string]float64)
	for _, group := range groups {
		for _, ref := range group {
			baseZ[ref.building.ID] = ref.baseZ
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, b := range buildings {
		if !b.IsMain {
			continue
		}
		for _, v := range b.Vertices {
			c := v.Sub(center)
			row := []string{"Site_Boundary", b.ID, num(c.X), num(c.Y), "0.00", "site boundary"}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write site row: %w", err)
			}
		}
	}
	for _, b := range buildings {
		if b.IsMain {
			continue
		}
		info := fmt.Sprintf("height=%.2f;floor=%d", b.Height, b.FloorLevel)
		for _, v := range b.Vertices {
			c := v.Sub(center)
			row := []string{"Building", b.ID, num(c.X), num(c.Y), num(baseZ[b.ID]), info}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write building row: %w", err)
			}
		}
	}
	for _, r := range roads {
		for _, p := range r.Points {
			c := p.Sub(center)
			row := []string{"Road", r.ID, num(c.X), num(c.Y), "0.00", "road"}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write road row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
