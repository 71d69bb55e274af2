package export

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
	"site-engine/internal/engine/projection"
)

// ============================================================
// WKT export
// ============================================================

// WKTDocument carries well-known-text renditions of the scene for
// GIS tooling. Coordinates are centered planar meters.
type WKTDocument struct {
	Site      string   `json:"site,omitempty"`
	Buildings []string `json:"buildings"`
	Roads     []string `json:"roads"`
}

// WKT encodes the site boundary and every footprint as POLYGON and
// every road as LINESTRING.
func WKT(buildings []models.Building, roads []models.Road) (WKTDocument, error) {
	center := projection.SceneCenter(buildings, roads)
	doc := WKTDocument{Buildings: []string{}, Roads: []string{}}

	for _, b := range buildings {
		s, err := polygonWKT(b.Vertices, center)
		if err != nil {
			return WKTDocument{}, fmt.Errorf("building %s: %w", b.ID, err)
		}
		if b.IsMain {
			doc.Site = s
		} else {
			doc.Buildings = append(doc.Buildings, s)
		}
	}
	for _, r := range roads {
		coords := make([]geom.Coord, 0, len(r.Points))
		for _, p := range r.Points {
			coords = append(coords, geom.Coord{p.X - center.X, p.Y - center.Y})
		}
		ls := geom.NewLineString(geom.XY)
		if _, err := ls.SetCoords(coords); err != nil {
			return WKTDocument{}, fmt.Errorf("road %s: %w", r.ID, err)
		}
		s, err := wkt.Marshal(ls)
		if err != nil {
			return WKTDocument{}, fmt.Errorf("road %s: %w", r.ID, err)
		}
		doc.Roads = append(doc.Roads, s)
	}
	return doc, nil
}

// polygonWKT closes the ring explicitly; the drafting model stores
// footprints without the closing duplicate.
func polygonWKT(vertices []geometry.Point, center geometry.Point) (string, error) {
	coords := make([]geom.Coord, 0, len(vertices)+1)
	for _, v := range vertices {
		coords = append(coords, geom.Coord{v.X - center.X, v.Y - center.Y})
	}
	if len(coords) > 0 {
		coords = append(coords, coords[0])
	}
	poly := geom.NewPolygon(geom.XY)
	if _, err := poly.SetCoords([][]geom.Coord{coords}); err != nil {
		return "", fmt.Errorf("set ring: %w", err)
	}
	return wkt.Marshal(poly)
}
