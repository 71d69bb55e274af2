package projection

import (
	"math"

	"github.com/paulmach/orb"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
)

// ============================================================
// Geodetic -> planar
// ============================================================

const (
	// EarthRadius is the spherical Mercator radius in meters.
	EarthRadius = 6378137.0

	fromDegree  = math.Pi / 180.0
	fromDegree2 = math.Pi / 360.0
	piFour      = math.Pi / 4
)

// Mercate projects a lon/lat point to spherical Web-Mercator meters.
// Used for absolute positioning of a site on the world plane.
func Mercate(p orb.Point) orb.Point {
	p[0] = EarthRadius * fromDegree * p[0]
	p[1] = EarthRadius * math.Log(math.Tan(piFour+(p[1]*fromDegree2)))
	return p
}

// Equirect projects a lon/lat point to meters relative to origin
// using the local equirectangular approximation. Accurate enough for
// site-scale extents; the scale factor is fixed at the origin latitude.
func Equirect(p, origin orb.Point) orb.Point {
	cos := math.Cos(origin[1] * fromDegree)
	return orb.Point{
		(p[0] - origin[0]) * fromDegree * EarthRadius * cos,
		(p[1] - origin[1]) * fromDegree * EarthRadius,
	}
}

// ============================================================
// Scene centering
// ============================================================

// SceneCenter returns the arithmetic mean over every vertex of every
// building and every road point. Recentring the scene near the origin
// keeps the renderer and the grid math numerically stable.
func SceneCenter(buildings []models.Building, roads []models.Road) geometry.Point {
	var sum geometry.Point
	count := 0
	for _, b := range buildings {
		for _, v := range b.Vertices {
			sum = sum.Add(v)
			count++
		}
	}
	for _, r := range roads {
		for _, p := range r.Points {
			sum = sum.Add(p)
			count++
		}
	}
	if count == 0 {
		return geometry.Point{}
	}
	return sum.Scale(1.0 / float64(count))
}

// ============================================================
// Grid quantization
// ============================================================

// Grid is the fixed export grid: a square of TotalSize meters split
// into Divisions cells per axis.
type Grid struct {
	TotalSize float64
	Divisions int
}

// CellSize returns TotalSize / Divisions.
func (g Grid) CellSize() float64 {
	if g.Divisions == 0 {
		return 0
	}
	return g.TotalSize / float64(g.Divisions)
}

// Cell quantizes a centered planar point to integer grid coordinates:
// round((p - center) / cellSize).
func (g Grid) Cell(p, center geometry.Point) (int, int) {
	cell := g.CellSize()
	if cell == 0 {
		return 0, 0
	}
	gx := math.Round((p.X - center.X) / cell)
	gy := math.Round((p.Y - center.Y) / cell)
	return int(gx), int(gy)
}
