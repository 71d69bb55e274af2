package projection

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
)

func TestMercateOrigin(t *testing.T) {
	p := Mercate(orb.Point{0, 0})
	if math.Abs(p[0]) > 1e-9 || math.Abs(p[1]) > 1e-9 {
		t.Fatalf("Mercate(0,0) = %v, want origin", p)
	}
}

func TestMercateKnownPoint(t *testing.T) {
	// Greenwich longitude slice: x = lambda * R.
	p := Mercate(orb.Point{1, 0})
	wantX := EarthRadius * math.Pi / 180
	if math.Abs(p[0]-wantX) > 1e-6 {
		t.Fatalf("x = %v, want %v", p[0], wantX)
	}
	// 45N: y = R * ln(tan(pi/4 + phi/2)).
	p = Mercate(orb.Point{0, 45})
	wantY := EarthRadius * math.Log(math.Tan(math.Pi/4+45*math.Pi/360))
	if math.Abs(p[1]-wantY) > 1e-6 {
		t.Fatalf("y = %v, want %v", p[1], wantY)
	}
}

func TestEquirectOriginRelative(t *testing.T) {
	origin := orb.Point{37.6175, 55.7520}
	if p := Equirect(origin, origin); p[0] != 0 || p[1] != 0 {
		t.Fatalf("origin must project to (0,0), got %v", p)
	}
	// One degree of latitude is ~111.3 km regardless of origin.
	p := Equirect(orb.Point{37.6175, 56.7520}, origin)
	wantY := EarthRadius * math.Pi / 180
	if math.Abs(p[1]-wantY) > 1e-6 {
		t.Fatalf("dy = %v, want %v", p[1], wantY)
	}
	// Longitude shrinks with cos(originLat).
	p = Equirect(orb.Point{38.6175, 55.7520}, origin)
	wantX := EarthRadius * math.Pi / 180 * math.Cos(55.7520*math.Pi/180)
	if math.Abs(p[0]-wantX) > 1e-6 {
		t.Fatalf("dx = %v, want %v", p[0], wantX)
	}
}

func TestSceneCenter(t *testing.T) {
	buildings := []models.Building{
		{Vertices: []geometry.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}},
	}
	roads := []models.Road{
		{Points: []geometry.Point{{X: 4, Y: 4}, {X: 4, Y: 0}}},
	}
	c := SceneCenter(buildings, roads)
	// Mean of (0,0),(2,0),(2,2),(0,2),(4,4),(4,0) = (2, 8/6).
	if math.Abs(c.X-2) > 1e-12 || math.Abs(c.Y-8.0/6.0) > 1e-12 {
		t.Fatalf("center = %v", c)
	}
}

func TestSceneCenterEmpty(t *testing.T) {
	if c := SceneCenter(nil, nil); c != (geometry.Point{}) {
		t.Fatalf("empty scene center = %v, want origin", c)
	}
}

func TestGridCell(t *testing.T) {
	g := Grid{TotalSize: 100, Divisions: 50} // cell = 2m
	if got := g.CellSize(); got != 2 {
		t.Fatalf("cell size = %v, want 2", got)
	}
	center := geometry.Point{X: 10, Y: 10}
	cases := []struct {
		p      geometry.Point
		gx, gy int
	}{
		{geometry.Point{X: 10, Y: 10}, 0, 0},
		{geometry.Point{X: 14, Y: 10}, 2, 0},
		{geometry.Point{X: 10.9, Y: 9.1}, 0, 0},  // rounds toward zero cell
		{geometry.Point{X: 13.1, Y: 6.9}, 2, -2}, // rounds outward
	}
	for _, tc := range cases {
		gx, gy := g.Cell(tc.p, center)
		if gx != tc.gx || gy != tc.gy {
			t.Errorf("Cell(%v) = (%d,%d), want (%d,%d)", tc.p, gx, gy, tc.gx, tc.gy)
		}
	}
}

func TestGridZeroDivisions(t *testing.T) {
	g := Grid{TotalSize: 100}
	if gx, gy := g.Cell(geometry.Point{X: 5, Y: 5}, geometry.Point{}); gx != 0 || gy != 0 {
		t.Fatal("zero-division grid must quantize everything to the origin cell")
	}
}
