package export

import (
	"fmt"
	"sort"
	"time"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
	"site-engine/internal/engine/projection"
)

// ============================================================
// Export Serializer
// ============================================================
//
// Buildings are grouped per base footprint, sorted by floor level,
// and each floor's vertical span is the running sum of the heights
// below it. Every floor contributes 2V corner records: V "base"
// corners at the floor's current z and V "top" corners at its next z.

// Options configures an export run.
type Options struct {
	Grid projection.Grid
	Note string
}

// floorRef keeps a building together with its index in the store at
// export time. The index exists only inside the serializer.
type floorRef struct {
	building      models.Building
	originalIndex int
	baseZ         float64
	topZ          float64
}

// floorGroups clusters buildings by base index and computes each
// member's vertical span. Base first, then floors by level ascending.
func floorGroups(buildings []models.Building) map[int][]floorRef {
	groups := make(map[int][]floorRef)
	for i, b := range buildings {
		base := i
		if b.BaseBuilding != nil {
			base = *b.BaseBuilding
		}
		groups[base] = append(groups[base], floorRef{building: b, originalIndex: i})
	}
	for base, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].building.FloorLevel < group[j].building.FloorLevel
		})
		z := 0.0
		for i := range group {
			group[i].baseZ = z
			z += group[i].building.Height
			group[i].topZ = z
		}
		groups[base] = group
	}
	return groups
}

// ============================================================
// Grid-coordinates document
// ============================================================

type XYZ struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Area   float64 `json:"area"`
}

type GridInfo struct {
	CellSize      float64 `json:"cellSize"`
	GridSize      float64 `json:"gridSize"`
	GridDivisions int     `json:"gridDivisions"`
}

type SiteInfo struct {
	Boundary   []XYZ      `json:"boundary"`
	Dimensions Dimensions `json:"dimensions"`
	GridInfo   GridInfo   `json:"gridInfo"`
}

type Corner struct {
	Index    int     `json:"index"`
	Position string  `json:"position"` // "base" or "top"
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Z        float64 `json:"z"`
}

type ZPosition struct {
	Base        float64 `json:"base"`
	Top         float64 `json:"top"`
	TotalHeight float64 `json:"totalHeight"`
}

type BuildingRecord struct {
	ID           string    `json:"id"`
	Height       float64   `json:"height"`
	IsFloor      bool      `json:"isFloor"`
	FloorLevel   int       `json:"floorLevel"`
	BaseBuilding *int      `json:"baseBuilding,omitempty"`
	Corners      []Corner  `json:"corners"`
	ZPosition    ZPosition `json:"zPosition"`
}

type Metadata struct {
	CoordinateSystem string `json:"coordinateSystem"`
	Timestamp        string `json:"timestamp"`
	Note             string `json:"note"`
}

type GridDocument struct {
	Site      SiteInfo         `json:"site"`
	Buildings []BuildingRecord `json:"buildings"`
	Metadata  Metadata         `json:"metadata"`
}

// Grid produces the grid-coordinates document: the site boundary in
// centered planar meters, every building as quantized corner records.
func Grid(buildings []models.Building, roads []models.Road, opts Options) GridDocument {
	center := projection.SceneCenter(buildings, roads)
	groups := floorGroups(buildings)

	doc := GridDocument{
		Metadata: Metadata{
			CoordinateSystem: "local-grid",
			Timestamp:        time.Now().UTC().Format(time.RFC3339),
			Note:             opts.Note,
		},
	}
	doc.Site.GridInfo = GridInfo{
		CellSize:      opts.Grid.CellSize(),
		GridSize:      opts.Grid.TotalSize,
		GridDivisions: opts.Grid.Divisions,
	}

	for _, b := range buildings {
		if !b.IsMain {
			continue
		}
		for _, v := range b.Vertices {
			c := v.Sub(center)
			doc.Site.Boundary = append(doc.Site.Boundary, XYZ{X: c.X, Y: c.Y})
		}
		minP, maxP := geometry.BoundingBox(b.Vertices)
		doc.Site.Dimensions = Dimensions{
			Width:  maxP.X - minP.X,
			Height: maxP.Y - minP.Y,
			Area:   geometry.PolygonArea(b.Vertices),
		}
		break
	}

	// Deterministic order: walk groups by base index, members are
	// already level-sorted.
	bases := make([]int, 0, len(groups))
	for base := range groups {
		bases = append(bases, base)
	}
	sort.Ints(bases)

	for _, base := range bases {
		group := groups[base]
		total := group[len(group)-1].topZ
		for _, ref := range group {
			b := ref.building
			if b.IsMain {
				continue
			}
			rec := BuildingRecord{
				ID:           b.ID,
				Height:       b.Height,
				IsFloor:      b.BaseBuilding != nil,
				FloorLevel:   b.FloorLevel,
				BaseBuilding: b.BaseBuilding,
				ZPosition:    ZPosition{Base: ref.baseZ, Top: ref.topZ, TotalHeight: total},
			}
			rec.Corners = make([]Corner, 0, 2*len(b.Vertices))
			for i, v := range b.Vertices {
				gx, gy := opts.Grid.Cell(v, center)
				rec.Corners = append(rec.Corners, Corner{
					Index: i, Position: "base", X: gx, Y: gy, Z: ref.baseZ,
				})
			}
			for i, v := range b.Vertices {
				gx, gy := opts.Grid.Cell(v, center)
				rec.Corners = append(rec.Corners, Corner{
					Index: i, Position: "top", X: gx, Y: gy, Z: ref.topZ,
				})
			}
			doc.Buildings = append(doc.Buildings, rec)
		}
	}
	return doc
}

// ============================================================
// Zone/surface document
// ============================================================

type Surface struct {
	Name        string   `json:"name"`
	Coordinates []string `json:"coordinates"`
}

type Surfaces struct {
	Floor   Surface   `json:"floor"`
	Ceiling Surface   `json:"ceiling"`
	Walls   []Surface `json:"walls"`
}

type Zone struct {
	FloorName   string   `json:"floorName"`
	FloorLevel  int      `json:"floorLevel"`
	FloorHeight float64  `json:"floorHeight"`
	Surfaces    Surfaces `json:"surfaces"`
}

type BuildingZones struct {
	BuildingID string `json:"buildingId"`
	Zones      []Zone `json:"zones"`
}

type ZonesDocument struct {
	Buildings []BuildingZones `json:"buildings"`
}

func coord(p geometry.Point, z float64) string {
	return fmt.Sprintf("(%.2f,%.2f,%.2f)", p.X, p.Y, z)
}

// Zones produces one zone per floor per base building, each with a
// floor surface, a ceiling surface and V wall surfaces. Wall i winds
// base(i), base(i+1), top(i+1), top(i).
func Zones(buildings []models.Building, roads []models.Road) ZonesDocument {
	center := projection.SceneCenter(buildings, roads)
	groups := floorGroups(buildings)

	bases := make([]int, 0, len(groups))
	for base := range groups {
		bases = append(bases, base)
	}
	sort.Ints(bases)

	var doc ZonesDocument
	for _, base := range bases {
		group := groups[base]
		if group[0].building.IsMain {
			continue
		}
		bz := BuildingZones{BuildingID: group[0].building.ID}
		for _, ref := range group {
			b := ref.building
			verts := make([]geometry.Point, len(b.Vertices))
			for i, v := range b.Vertices {
				verts[i] = v.Sub(center)
			}
			n := len(verts)

			zone := Zone{
				FloorName:   fmt.Sprintf("Floor_%d", b.FloorLevel),
				FloorLevel:  b.FloorLevel,
				FloorHeight: b.Height,
			}
			floor := Surface{Name: fmt.Sprintf("Floor_%d_floor", b.FloorLevel)}
			ceiling := Surface{Name: fmt.Sprintf("Floor_%d_ceiling", b.FloorLevel)}
			for _, v := range verts {
				floor.Coordinates = append(floor.Coordinates, coord(v, ref.baseZ))
				ceiling.Coordinates = append(ceiling.Coordinates, coord(v, ref.topZ))
			}
			zone.Surfaces.Floor = floor
			zone.Surfaces.Ceiling = ceiling

			for i := 0; i < n; i++ {
				j := (i + 1) % n
				wall := Surface{
					Name: fmt.Sprintf("Floor_%d_wall_%d", b.FloorLevel, i),
					Coordinates: []string{
						coord(verts[i], ref.baseZ),
						coord(verts[j], ref.baseZ),
						coord(verts[j], ref.topZ),
						coord(verts[i], ref.topZ),
					},
				}
				zone.Surfaces.Walls = append(zone.Surfaces.Walls, wall)
			}
			bz.Zones = append(bz.Zones, zone)
		}
		doc.Buildings = append(doc.Buildings, bz)
	}
	return doc
}
