package store

import (
	"fmt"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
)

// ============================================================
// Building Store
// ============================================================
//
// The store is the only owner of the building collection. Every
// mutation pushes a deep-copied history snapshot first and then
// swaps the backing slice wholesale, so a reader never observes a
// half-applied change. The store itself is single-threaded; callers
// serialize access at the document level.

// MinFloorCount and MaxFloorCount bound a floor-stack request.
const (
	MinFloorCount = 2
	MaxFloorCount = 50
)

// ValidationError reports an operation rejected before any mutation.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func invalid(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// Patch is a partial building update. Nil fields are left untouched.
type Patch struct {
	Vertices   []geometry.Point
	Buffer     []geometry.Point
	Height     *float64
	IsMain     *bool
	FloorLevel *int
}

// Store owns the ordered building collection, the roads and the
// undo history.
type Store struct {
	buildings []models.Building
	roads     []models.Road
	history   [][]models.Building
	selected  int
}

// New creates an empty store with no selection.
func New() *Store {
	return &Store{selected: -1}
}

// ============================================================
// Read access
// ============================================================

// Buildings returns a deep copy of the collection.
func (s *Store) Buildings() []models.Building {
	return models.CloneBuildings(s.buildings)
}

// Roads returns a deep copy of the road collection.
func (s *Store) Roads() []models.Road {
	return models.CloneRoads(s.roads)
}

// Building returns a deep copy of the building at index.
func (s *Store) Building(index int) (models.Building, error) {
	if index < 0 || index >= len(s.buildings) {
		return models.Building{}, invalid("get", "index %d out of range [0,%d)", index, len(s.buildings))
	}
	return s.buildings[index].Clone(), nil
}

// Count returns the number of buildings.
func (s *Store) Count() int { return len(s.buildings) }

// Selected returns the selected index, -1 for none.
func (s *Store) Selected() int { return s.selected }

// Select sets the selection. -1 clears it.
func (s *Store) Select(index int) error {
	if index < -1 || index >= len(s.buildings) {
		return invalid("select", "index %d out of range", index)
	}
	s.selected = index
	return nil
}

// MainIndex returns the index of the site boundary, if one exists.
func (s *Store) MainIndex() (int, bool) {
	for i, b := range s.buildings {
		if b.IsMain {
			return i, true
		}
	}
	return -1, false
}

// HistoryLen returns the undo stack depth.
func (s *Store) HistoryLen() int { return len(s.history) }

// ============================================================
// History
// ============================================================

// Snapshot pushes a deep copy of the current collection onto the
// history stack. Mutating operations call it themselves; the tool
// layer calls it once at the start of a drag gesture.
func (s *Store) Snapshot() {
	s.history = append(s.history, models.CloneBuildings(s.buildings))
}

// Undo pops the latest snapshot and replaces the collection with it.
// Returns false on an empty history (no-op).
func (s *Store) Undo() bool {
	if len(s.history) == 0 {
		return false
	}
	top := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.buildings = top
	if s.selected >= len(s.buildings) {
		s.selected = -1
	}
	return true
}

// ============================================================
// Mutations (snapshot pushed before every change)
// ============================================================

// Add validates and appends a building, returning its index.
func (s *Store) Add(b models.Building) (int, error) {
	if len(b.Vertices) < 3 {
		return 0, invalid("add", "polygon needs at least 3 vertices, got %d", len(b.Vertices))
	}
	if b.IsMain {
		if _, ok := s.MainIndex(); ok {
			return 0, invalid("add", "a main site boundary already exists")
		}
	}
	s.Snapshot()
	next := append(models.CloneBuildings(s.buildings), b.Clone())
	s.buildings = next
	return len(next) - 1, nil
}

// UpdateAt applies a partial update to the building at index.
func (s *Store) UpdateAt(index int, patch Patch) error {
	if index < 0 || index >= len(s.buildings) {
		return invalid("update", "index %d out of range [0,%d)", index, len(s.buildings))
	}
	if patch.Vertices != nil && len(patch.Vertices) < 3 {
		return invalid("update", "polygon needs at least 3 vertices, got %d", len(patch.Vertices))
	}
	if patch.Height != nil && *patch.Height <= 0 {
		return invalid("update", "height must be positive, got %v", *patch.Height)
	}
	if patch.IsMain != nil && *patch.IsMain {
		if main, ok := s.MainIndex(); ok && main != index {
			return invalid("update", "a main site boundary already exists")
		}
	}
	if patch.FloorLevel != nil && *patch.FloorLevel < 0 {
		return invalid("update", "floor level must be non-negative, got %d", *patch.FloorLevel)
	}

	s.Snapshot()
	next := models.CloneBuildings(s.buildings)
	b := &next[index]
	if patch.Vertices != nil {
		b.Vertices = append([]geometry.Point(nil), patch.Vertices...)
	}
	if patch.Buffer != nil {
		b.Buffer = append([]geometry.Point(nil), patch.Buffer...)
	}
	if patch.Height != nil {
		b.Height = *patch.Height
	}
	if patch.IsMain != nil {
		b.IsMain = *patch.IsMain
	}
	if patch.FloorLevel != nil {
		b.FloorLevel = *patch.FloorLevel
	}
	s.buildings = next
	return nil
}

// RemoveAt deletes the building at index. Stacked floors referencing
// it as their base are deleted with it, and base references to later
// buildings are reindexed.
func (s *Store) RemoveAt(index int) error {
	if index < 0 || index >= len(s.buildings) {
		return invalid("remove", "index %d out of range [0,%d)", index, len(s.buildings))
	}
	s.Snapshot()
	next := make([]models.Building, 0, len(s.buildings)-1)
	for i, b := range s.buildings {
		if i == index {
			continue
		}
		if b.BaseBuilding != nil && *b.BaseBuilding == index {
			continue
		}
		c := b.Clone()
		if c.BaseBuilding != nil && *c.BaseBuilding > index {
			shifted := *c.BaseBuilding - 1
			c.BaseBuilding = &shifted
		}
		next = append(next, c)
	}
	s.buildings = next
	if s.selected == index || s.selected >= len(next) {
		s.selected = -1
	}
	return nil
}

// StackFloors clones the base footprint into count-1 stacked floors
// of the given per-floor height and tags the base as ground level.
func (s *Store) StackFloors(baseIndex, count int, floorHeight float64) error {
	if baseIndex < 0 || baseIndex >= len(s.buildings) {
		return invalid("stackFloors", "index %d out of range [0,%d)", baseIndex, len(s.buildings))
	}
	if count < MinFloorCount || count > MaxFloorCount {
		return invalid("stackFloors", "floor count %d outside [%d,%d]", count, MinFloorCount, MaxFloorCount)
	}
	if floorHeight <= 0 {
		return invalid("stackFloors", "floor height must be positive, got %v", floorHeight)
	}
	base := s.buildings[baseIndex]
	if base.BaseBuilding != nil {
		return invalid("stackFloors", "building %d is itself a stacked floor", baseIndex)
	}

	s.Snapshot()
	next := models.CloneBuildings(s.buildings)
	next[baseIndex].FloorLevel = 0
	for level := 1; level < count; level++ {
		floor := base.Clone()
		floor.ID = models.NewBuilding(nil).ID
		floor.Height = floorHeight
		floor.FloorLevel = level
		floor.IsMain = false
		idx := baseIndex
		floor.BaseBuilding = &idx
		next = append(next, floor)
	}
	s.buildings = next
	return nil
}

// ClearAll removes every building. Roads are collaborator data and
// survive the clear.
func (s *Store) ClearAll() {
	s.Snapshot()
	s.buildings = nil
	s.selected = -1
}

// Load atomically replaces buildings and roads with ingested data.
func (s *Store) Load(buildings []models.Building, roads []models.Road) error {
	for i, b := range buildings {
		if len(b.Vertices) < 3 {
			return invalid("load", "building %d has %d vertices, need at least 3", i, len(b.Vertices))
		}
	}
	mains := 0
	for _, b := range buildings {
		if b.IsMain {
			mains++
		}
	}
	if mains > 1 {
		return invalid("load", "%d main site boundaries, at most 1 allowed", mains)
	}
	s.Snapshot()
	s.buildings = models.CloneBuildings(buildings)
	s.roads = models.CloneRoads(roads)
	s.selected = -1
	return nil
}

// ============================================================
// Live drag updates (no snapshot; the gesture snapshots once)
// ============================================================

// SetVertices replaces the vertex and buffer arrays of a building
// mid-gesture. The caller has already pushed the gesture snapshot.
func (s *Store) SetVertices(index int, vertices, buffer []geometry.Point) error {
	if index < 0 || index >= len(s.buildings) {
		return invalid("setVertices", "index %d out of range [0,%d)", index, len(s.buildings))
	}
	if len(vertices) < 3 {
		return invalid("setVertices", "polygon needs at least 3 vertices, got %d", len(vertices))
	}
	next := models.CloneBuildings(s.buildings)
	next[index].Vertices = append([]geometry.Point(nil), vertices...)
	if buffer != nil {
		next[index].Buffer = append([]geometry.Point(nil), buffer...)
	}
	s.buildings = next
	return nil
}

// SetHeight replaces a building's height mid-gesture.
func (s *Store) SetHeight(index int, height float64) error {
	if index < 0 || index >= len(s.buildings) {
		return invalid("setHeight", "index %d out of range [0,%d)", index, len(s.buildings))
	}
	if height <= 0 {
		return invalid("setHeight", "height must be positive, got %v", height)
	}
	next := models.CloneBuildings(s.buildings)
	next[index].Height = height
	s.buildings = next
	return nil
}
