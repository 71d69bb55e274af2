package models

import (
	"github.com/google/uuid"

	"site-engine/internal/engine/geometry"
)

// ============================================================
// Building
// ============================================================

// FlatHeight is the sentinel height of a footprint that has been
// drawn but not yet extruded into a volume.
const FlatHeight = 0.1

// Building is a polygon footprint plus extrusion height and
// floor/grouping metadata.
type Building struct {
	ID       string           `json:"id"`
	Vertices []geometry.Point `json:"vertices"`
	Height   float64          `json:"height"`
	IsMain   bool             `json:"isMain"`

	// Buffer is an optional secondary offset polygon kept alongside
	// the footprint. Geometry operations never read it; it is cloned
	// and translated together with the vertices.
	Buffer []geometry.Point `json:"buffer,omitempty"`

	// FloorLevel is 0 for a ground/base footprint and counts upward
	// inside a floor stack.
	FloorLevel int `json:"floorLevel"`

	// BaseBuilding indexes the foundation building of a floor group.
	// It must reference a building whose own BaseBuilding is nil;
	// chains deeper than one level are invalid.
	BaseBuilding *int `json:"baseBuilding,omitempty"`
}

// NewBuilding creates a flat footprint with a fresh id.
func NewBuilding(vertices []geometry.Point) Building {
	return Building{
		ID:       uuid.NewString(),
		Vertices: append([]geometry.Point(nil), vertices...),
		Height:   FlatHeight,
	}
}

// IsFlat reports whether the building is still a 2D shape.
func (b Building) IsFlat() bool {
	return b.Height <= FlatHeight
}

// Clone returns a deep copy. Vertex and buffer slices are copied
// element-wise so the clone never aliases the original.
func (b Building) Clone() Building {
	c := b
	c.Vertices = append([]geometry.Point(nil), b.Vertices...)
	if b.Buffer != nil {
		c.Buffer = append([]geometry.Point(nil), b.Buffer...)
	}
	if b.BaseBuilding != nil {
		base := *b.BaseBuilding
		c.BaseBuilding = &base
	}
	return c
}

// CloneBuildings deep-copies a whole collection.
func CloneBuildings(buildings []Building) []Building {
	out := make([]Building, len(buildings))
	for i, b := range buildings {
		out[i] = b.Clone()
	}
	return out
}

// ============================================================
// Road
// ============================================================

// Road is an open polyline supplied by the ingestion collaborator.
type Road struct {
	ID     string           `json:"id"`
	Points []geometry.Point `json:"points"`
}

// Clone returns a deep copy of the road.
func (r Road) Clone() Road {
	c := r
	c.Points = append([]geometry.Point(nil), r.Points...)
	return c
}

// CloneRoads deep-copies a road collection.
func CloneRoads(roads []Road) []Road {
	out := make([]Road, len(roads))
	for i, r := range roads {
		out[i] = r.Clone()
	}
	return out
}
