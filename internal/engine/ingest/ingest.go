package ingest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
	"site-engine/internal/engine/projection"
)

// ============================================================
// Site Payload Ingestion
// ============================================================
//
// The ingestion collaborator supplies building footprints and road
// polylines in geodetic coordinates as a GeoJSON FeatureCollection.
// Polygons become buildings (properties: height, isMain), LineStrings
// become roads. Everything is projected to site-relative planar
// meters; nothing is merged into a store unless the whole payload
// parses and validates.

// dedupeEpsilon removes near-coincident consecutive vertices after
// projection (meters).
const dedupeEpsilon = 0.01

// SitePlan is a fully parsed, projected and filtered payload.
type SitePlan struct {
	Buildings []models.Building
	Roads     []models.Road
	// Dropped counts buildings rejected by the containment filter.
	Dropped int
}

// Parse converts a GeoJSON payload into a SitePlan. Any malformed
// feature aborts the whole parse; partial data never escapes.
func Parse(data []byte) (*SitePlan, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("parse geojson: no features")
	}

	origin, err := payloadOrigin(fc)
	if err != nil {
		return nil, err
	}

	plan := &SitePlan{}
	for i, f := range fc.Features {
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			b, err := buildingFromPolygon(geom, f.Properties, origin)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			plan.Buildings = append(plan.Buildings, b)
		case orb.LineString:
			r, err := roadFromLineString(geom, f.Properties, origin)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			plan.Roads = append(plan.Roads, r)
		case nil:
			return nil, fmt.Errorf("feature %d: missing geometry", i)
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry %s", i, geom.GeoJSONType())
		}
	}

	plan.filterContained()
	return plan, nil
}

// payloadOrigin picks the projection origin: the first vertex of the
// main boundary when one is present, else the first vertex seen.
func payloadOrigin(fc *geojson.FeatureCollection) (orb.Point, error) {
	var fallback *orb.Point
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok || len(poly) == 0 || len(poly[0]) == 0 {
			if fallback == nil {
				if ls, ok := f.Geometry.(orb.LineString); ok && len(ls) > 0 {
					p := ls[0]
					fallback = &p
				}
			}
			continue
		}
		p := poly[0][0]
		if boolProp(f.Properties, "isMain") {
			return p, nil
		}
		if fallback == nil {
			fallback = &p
		}
	}
	if fallback == nil {
		return orb.Point{}, fmt.Errorf("parse geojson: no coordinates in payload")
	}
	return *fallback, nil
}

func buildingFromPolygon(poly orb.Polygon, props geojson.Properties, origin orb.Point) (models.Building, error) {
	if len(poly) == 0 {
		return models.Building{}, fmt.Errorf("polygon has no rings")
	}
	ring := poly[0]
	// GeoJSON rings repeat the first coordinate; the model does not.
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	verts := make([]geometry.Point, 0, len(ring))
	for _, c := range ring {
		p := projection.Equirect(c, origin)
		verts = append(verts, geometry.Point{X: p[0], Y: p[1]})
	}
	verts = geometry.DedupeConsecutive(verts, dedupeEpsilon)
	if len(verts) < 3 {
		return models.Building{}, fmt.Errorf("polygon has %d distinct vertices, need at least 3", len(verts))
	}

	b := models.Building{
		ID:       stringProp(props, "id", uuid.NewString()),
		Vertices: verts,
		Height:   models.FlatHeight,
		IsMain:   boolProp(props, "isMain"),
	}
	if h, ok := floatProp(props, "height"); ok {
		if h <= 0 {
			return models.Building{}, fmt.Errorf("height must be positive, got %v", h)
		}
		b.Height = h
	}
	return b, nil
}

func roadFromLineString(ls orb.LineString, props geojson.Properties, origin orb.Point) (models.Road, error) {
	if len(ls) < 2 {
		return models.Road{}, fmt.Errorf("road has %d points, need at least 2", len(ls))
	}
	points := make([]geometry.Point, 0, len(ls))
	for _, c := range ls {
		p := projection.Equirect(c, origin)
		points = append(points, geometry.Point{X: p[0], Y: p[1]})
	}
	return models.Road{ID: stringProp(props, "id", uuid.NewString()), Points: points}, nil
}

// filterContained drops buildings whose centroid falls outside the
// main site boundary. Without a main boundary everything is kept.
func (p *SitePlan) filterContained() {
	var main *models.Building
	for i := range p.Buildings {
		if p.Buildings[i].IsMain {
			main = &p.Buildings[i]
			break
		}
	}
	if main == nil {
		return
	}
	kept := p.Buildings[:0]
	for _, b := range p.Buildings {
		if b.IsMain || geometry.PointInPolygon(geometry.Centroid(b.Vertices), main.Vertices) {
			kept = append(kept, b)
			continue
		}
		p.Dropped++
	}
	p.Buildings = kept
}

// ============================================================
// Property helpers
// ============================================================

func boolProp(props geojson.Properties, key string) bool {
	if props == nil {
		return false
	}
	v, ok := props[key].(bool)
	return ok && v
}

func stringProp(props geojson.Properties, key, fallback string) string {
	if props == nil {
		return fallback
	}
	if s, ok := props[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func floatProp(props geojson.Properties, key string) (float64, bool) {
	if props == nil {
		return 0, false
	}
	v, ok := props[key].(float64)
	return v, ok
}
