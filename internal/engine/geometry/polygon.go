package geometry

import "math"

// ============================================================
// Polygon operations
// ============================================================
//
// Polygons are ordered vertex lists without a closing duplicate.
// Every edge wraps, including last -> first.

// Side describes one polygon edge and its length.
type Side struct {
	Length     float64 `json:"length"`
	StartIndex int     `json:"startIndex"`
	EndIndex   int     `json:"endIndex"`
}

// PointInPolygon reports whether pt lies inside poly using an
// even-odd ray cast toward +X.
//
// Boundary convention: a point on a "left" edge (the ray would exit
// through it going left) counts as inside, a point on a "right" edge
// counts as outside. Vertices follow the strict straddle rule below.
func PointInPolygon(pt Point, poly []Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi := poly[i]
		vj := poly[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PolygonArea returns the unsigned area via the shoelace formula.
func PolygonArea(poly []Point) float64 {
	n := len(poly)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[i].X * poly[j].Y
		sum -= poly[j].X * poly[i].Y
	}
	return math.Abs(sum) / 2
}

// SideLengths returns one Side per edge, wrapping last -> first,
// plus the total perimeter.
func SideLengths(poly []Point) ([]Side, float64) {
	n := len(poly)
	if n < 2 {
		return nil, 0
	}
	sides := make([]Side, 0, n)
	total := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		l := poly[i].Distance(poly[j])
		sides = append(sides, Side{Length: l, StartIndex: i, EndIndex: j})
		total += l
	}
	return sides, total
}

// Centroid returns the arithmetic mean of the vertices.
// This is the drag anchor for the move tool, not the area centroid.
func Centroid(poly []Point) Point {
	if len(poly) == 0 {
		return Point{}
	}
	var sum Point
	for _, p := range poly {
		sum = sum.Add(p)
	}
	return sum.Scale(1.0 / float64(len(poly)))
}

// DedupeConsecutive drops every point that lies within eps of its
// successor, wrap-around included, so no zero-length edges survive.
func DedupeConsecutive(points []Point, eps float64) []Point {
	n := len(points)
	if n == 0 {
		return nil
	}
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		next := points[(i+1)%n]
		if points[i].Distance(next) <= eps {
			continue
		}
		out = append(out, points[i])
	}
	return out
}

// BoundingBox returns the axis-aligned bounding box as (min, max).
func BoundingBox(poly []Point) (Point, Point) {
	if len(poly) == 0 {
		return Point{}, Point{}
	}
	minP, maxP := poly[0], poly[0]
	for _, p := range poly[1:] {
		minP.X = math.Min(minP.X, p.X)
		minP.Y = math.Min(minP.Y, p.Y)
		maxP.X = math.Max(maxP.X, p.X)
		maxP.Y = math.Max(maxP.Y, p.Y)
	}
	return minP, maxP
}

// EdgeNormal returns the outward unit normal of edge i (from vertex i
// to vertex i+1 mod n), sign-corrected to point away from the polygon
// centroid. ok is false for an out-of-range index or a zero-length
// edge, in which case the caller must treat the edge as untouchable.
func EdgeNormal(poly []Point, i int) (Point, bool) {
	n := len(poly)
	if n < 3 || i < 0 || i >= n {
		return Point{}, false
	}
	a := poly[i]
	b := poly[(i+1)%n]
	dir := b.Sub(a)
	if dir.Length() == 0 {
		return Point{}, false
	}
	normal := dir.Normalize().Perp()

	// Flip if the normal points toward the interior.
	mid := a.Add(b).Scale(0.5)
	toCenter := Centroid(poly).Sub(mid)
	if normal.Dot(toCenter) > 0 {
		normal = normal.Scale(-1)
	}
	return normal, true
}
