package tools

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
	"site-engine/internal/engine/store"
)

func newMachine(t *testing.T) (*Machine, *store.Store) {
	t.Helper()
	s := store.New()
	return New(s, DefaultConfig()), s
}

func mustTool(t *testing.T, m *Machine, tool Tool) {
	t.Helper()
	if err := m.SetTool(tool); err != nil {
		t.Fatal(err)
	}
}

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func TestRectangleToolScenario(t *testing.T) {
	m, s := newMachine(t)
	mustTool(t, m, ToolRectangle)

	if err := m.PointerDown(pt(0, 0), nil); err != nil {
		t.Fatal(err)
	}
	if m.StateName() != "DrawingRectangle" {
		t.Fatalf("state = %s", m.StateName())
	}
	if err := m.PointerUp(pt(4, 3)); err != nil {
		t.Fatal(err)
	}

	if s.Count() != 1 {
		t.Fatalf("buildings = %d, want 1", s.Count())
	}
	b, _ := s.Building(0)
	want := []geometry.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}, {X: 0, Y: 3}}
	if !reflect.DeepEqual(b.Vertices, want) {
		t.Fatalf("vertices = %v, want %v", b.Vertices, want)
	}
	if b.Height != models.FlatHeight {
		t.Fatalf("height = %v, want %v", b.Height, models.FlatHeight)
	}
	if s.Selected() != 0 {
		t.Fatalf("selected = %d, want 0", s.Selected())
	}
	if m.StateName() != "Select" {
		t.Fatalf("state after finalize = %s", m.StateName())
	}
}

func TestRectangleSubThresholdDiscarded(t *testing.T) {
	m, s := newMachine(t)
	mustTool(t, m, ToolRectangle)
	m.PointerDown(pt(0, 0), nil)
	if err := m.PointerUp(pt(0.1, 0.1)); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 0 {
		t.Fatal("sub-threshold rectangle must be discarded")
	}
	if s.HistoryLen() != 0 {
		t.Fatal("discarded gesture must not push history")
	}
}

func TestCircleToolFinalizesOnSecondClick(t *testing.T) {
	m, s := newMachine(t)
	mustTool(t, m, ToolCircle)
	m.PointerDown(pt(0, 0), nil)
	if m.StateName() != "DrawingCircle" {
		t.Fatalf("state = %s", m.StateName())
	}
	if err := m.PointerDown(pt(5, 0), nil); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 1 {
		t.Fatalf("buildings = %d, want 1", s.Count())
	}
	b, _ := s.Building(0)
	if len(b.Vertices) != DefaultConfig().CircleSegments {
		t.Fatalf("segments = %d", len(b.Vertices))
	}
	for _, v := range b.Vertices {
		if math.Abs(v.Distance(pt(0, 0))-5) > 1e-9 {
			t.Fatalf("vertex %v not on radius 5", v)
		}
	}
}

func TestPolygonCloseByProximity(t *testing.T) {
	m, s := newMachine(t)
	mustTool(t, m, ToolPolygon)
	m.PointerDown(pt(0, 0), nil)
	m.PointerDown(pt(10, 0), nil)
	m.PointerDown(pt(10, 10), nil)
	m.PointerDown(pt(0, 10), nil)
	// Within the close radius of the first point: closes, not appends.
	if err := m.PointerDown(pt(0.2, 0.2), nil); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 1 {
		t.Fatalf("buildings = %d, want 1", s.Count())
	}
	b, _ := s.Building(0)
	if len(b.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4", len(b.Vertices))
	}
}

func TestPolygonEnterAndBackspace(t *testing.T) {
	m, s := newMachine(t)
	mustTool(t, m, ToolPolygon)
	m.PointerDown(pt(0, 0), nil)
	m.PointerDown(pt(10, 0), nil)

	// Too few points to finalize.
	if err := m.KeyDown("Enter"); err == nil {
		t.Fatal("Enter with 2 points must be rejected")
	}

	m.PointerDown(pt(10, 10), nil)
	m.PointerDown(pt(5, 20), nil)
	if err := m.KeyDown("Backspace"); err != nil {
		t.Fatal(err)
	}
	if err := m.KeyDown("Enter"); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Building(0)
	if len(b.Vertices) != 3 {
		t.Fatalf("vertices = %d, want 3 after backspace", len(b.Vertices))
	}
}

func TestPolygonBackspaceKeepsFirstPoint(t *testing.T) {
	m, _ := newMachine(t)
	mustTool(t, m, ToolPolygon)
	m.PointerDown(pt(0, 0), nil)
	m.KeyDown("Backspace")
	m.KeyDown("Backspace")
	st, ok := m.st.(drawingPolygonState)
	if !ok {
		t.Fatalf("state = %s", m.StateName())
	}
	if len(st.points) != 1 {
		t.Fatalf("points = %d, want 1", len(st.points))
	}
}

func TestEscapeCancelsDrawAndResetsTool(t *testing.T) {
	m, s := newMachine(t)
	mustTool(t, m, ToolPolygon)
	m.PointerDown(pt(0, 0), nil)
	m.PointerDown(pt(10, 0), nil)
	if err := m.KeyDown("Escape"); err != nil {
		t.Fatal(err)
	}
	if m.StateName() != "Select" || m.ActiveTool() != ToolSelect {
		t.Fatalf("state=%s tool=%s after Escape", m.StateName(), m.ActiveTool())
	}
	if s.Count() != 0 {
		t.Fatal("cancelled draw must not create a building")
	}
}

func drawSquare(t *testing.T, m *Machine, x, y, size float64) {
	t.Helper()
	mustTool(t, m, ToolRectangle)
	if err := m.PointerDown(pt(x, y), nil); err != nil {
		t.Fatal(err)
	}
	if err := m.PointerUp(pt(x+size, y+size)); err != nil {
		t.Fatal(err)
	}
}

func TestMoveDragIsSnapshotRelative(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4) // centroid (2,2), selected
	mustTool(t, m, ToolMove)

	if err := m.PointerDown(pt(2, 2), nil); err != nil {
		t.Fatal(err)
	}
	if m.StateName() != "Move" {
		t.Fatalf("state = %s", m.StateName())
	}
	// Wander, then settle: only the final point matters.
	m.PointerMove(pt(50, 50), 0)
	m.PointerMove(pt(-3, 7), 0)
	if err := m.PointerMove(pt(12, 2), 0); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Building(0)
	want := []geometry.Point{{X: 10, Y: 0}, {X: 14, Y: 0}, {X: 14, Y: 4}, {X: 10, Y: 4}}
	if !reflect.DeepEqual(b.Vertices, want) {
		t.Fatalf("vertices = %v, want %v", b.Vertices, want)
	}

	// Second click commits.
	if err := m.PointerDown(pt(12, 2), nil); err != nil {
		t.Fatal(err)
	}
	if m.StateName() != "Select" {
		t.Fatalf("state after commit = %s", m.StateName())
	}
}

func TestMoveRequiresSelection(t *testing.T) {
	m, _ := newMachine(t)
	mustTool(t, m, ToolMove)
	err := m.PointerDown(pt(0, 0), nil)
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestMoveUndoRestoresOriginal(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	before := s.Buildings()
	histBefore := s.HistoryLen()

	mustTool(t, m, ToolMove)
	m.PointerDown(pt(2, 2), nil)
	m.PointerMove(pt(20, 20), 0)
	m.PointerDown(pt(20, 20), nil) // commit

	if s.HistoryLen() != histBefore+1 {
		t.Fatalf("drag must push exactly one snapshot, pushed %d", s.HistoryLen()-histBefore)
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if !reflect.DeepEqual(before, s.Buildings()) {
		t.Fatal("undo did not restore the pre-drag state")
	}
}

func TestPushPullDisplacesSingleEdge(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	mustTool(t, m, ToolPushPull)

	// Edge 1 is the right edge (4,0)-(4,4), outward normal +X.
	if err := m.PointerDown(pt(4, 2), &Hit{BuildingIndex: 0, FaceIndex: 1}); err != nil {
		t.Fatal(err)
	}
	if m.StateName() != "PushPulling" {
		t.Fatalf("state = %s", m.StateName())
	}
	// Drag 3m along +X with some off-axis noise: only the normal
	// component displaces the edge.
	if err := m.PointerMove(pt(7, 5), 0); err != nil {
		t.Fatal(err)
	}
	if err := m.PointerUp(pt(7, 5)); err != nil {
		t.Fatal(err)
	}

	b, _ := s.Building(0)
	want := []geometry.Point{{X: 0, Y: 0}, {X: 7, Y: 0}, {X: 7, Y: 4}, {X: 0, Y: 4}}
	if !reflect.DeepEqual(b.Vertices, want) {
		t.Fatalf("vertices = %v, want %v", b.Vertices, want)
	}
}

func TestPushPullZeroLengthEdgeIsNoop(t *testing.T) {
	m, s := newMachine(t)
	s.Add(models.Building{
		ID:       "b",
		Vertices: []geometry.Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 4, Y: 0}, {X: 2, Y: 3}},
		Height:   models.FlatHeight,
	})
	histBefore := s.HistoryLen()
	mustTool(t, m, ToolPushPull)
	if err := m.PointerDown(pt(0, 0), &Hit{BuildingIndex: 0, FaceIndex: 0}); err != nil {
		t.Fatal(err)
	}
	if m.StateName() != "Select" {
		t.Fatal("degenerate edge must not start a gesture")
	}
	if s.HistoryLen() != histBefore {
		t.Fatal("no-op must not push history")
	}
}

func TestExtrudeDragClickToToggle(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	mustTool(t, m, ToolExtrude)

	if err := m.PointerDown(pt(2, 2), &Hit{BuildingIndex: 0}); err != nil {
		t.Fatal(err)
	}
	if m.StateName() != "ExtrudeDragging" {
		t.Fatalf("state = %s", m.StateName())
	}
	// Pointer at 25% from the top: height = maxHeight * 0.75.
	if err := m.PointerMove(pt(2, 2), 0.25); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Building(0)
	want := DefaultConfig().MaxHeight * 0.75
	if math.Abs(b.Height-want) > 1e-9 {
		t.Fatalf("height = %v, want %v", b.Height, want)
	}

	// Release does not commit; a second click does.
	m.PointerUp(pt(2, 2))
	if m.StateName() != "ExtrudeDragging" {
		t.Fatal("extrude must be click-to-toggle, not drag-release")
	}
	m.PointerDown(pt(2, 2), nil)
	if m.StateName() != "Select" {
		t.Fatalf("state after toggle = %s", m.StateName())
	}
}

func TestExtrudeHeightClampedPositive(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	mustTool(t, m, ToolExtrude)
	m.PointerDown(pt(2, 2), &Hit{BuildingIndex: 0})
	if err := m.PointerMove(pt(2, 2), 1.0); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Building(0)
	if b.Height != DefaultConfig().MinHeight {
		t.Fatalf("height = %v, want clamp %v", b.Height, DefaultConfig().MinHeight)
	}
}

func TestExtrudeToScenario(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)

	if err := m.ExtrudeTo(0, 12); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Building(0)
	if b.Height != 12 {
		t.Fatalf("height = %v, want 12", b.Height)
	}

	err := m.ExtrudeTo(0, 20)
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("re-extruding a 3D building: want ValidationError, got %v", err)
	}
	b, _ = s.Building(0)
	if b.Height != 12 {
		t.Fatal("rejected extrude must not change the height")
	}
}

func TestExtrudeRejectsAlreadyExtrudedOnClick(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	if err := m.ExtrudeTo(0, 12); err != nil {
		t.Fatal(err)
	}
	mustTool(t, m, ToolExtrude)
	err := m.PointerDown(pt(2, 2), &Hit{BuildingIndex: 0})
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if s.HistoryLen() != 2 { // draw + extrudeTo only
		t.Fatalf("history = %d, want 2", s.HistoryLen())
	}
}

func TestStackFloorsThroughMachine(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	if err := m.StackFloors(3, 3.0); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 3 {
		t.Fatalf("buildings = %d, want 3", s.Count())
	}
	if m.StateName() != "Select" {
		t.Fatalf("state = %s", m.StateName())
	}
}

func TestStackFloorsRequiresSelection(t *testing.T) {
	m, _ := newMachine(t)
	err := m.StackFloors(3, 3.0)
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestSelectByContainmentFallback(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	drawSquare(t, m, 10, 10, 4)
	mustTool(t, m, ToolSelect)

	if err := m.PointerDown(pt(11, 11), nil); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != 1 {
		t.Fatalf("selected = %d, want 1", s.Selected())
	}
	if err := m.PointerDown(pt(100, 100), nil); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != -1 {
		t.Fatalf("miss must clear the selection, got %d", s.Selected())
	}
}

func TestPanAccumulatesOffset(t *testing.T) {
	m, _ := newMachine(t)
	mustTool(t, m, ToolPan)
	m.PointerDown(pt(0, 0), nil)
	if m.StateName() != "Pan" {
		t.Fatalf("state = %s", m.StateName())
	}
	m.PointerMove(pt(3, 1), 0)
	m.PointerMove(pt(5, 2), 0)
	m.PointerUp(pt(5, 2))
	if off := m.PanOffset(); off.X != 5 || off.Y != 2 {
		t.Fatalf("pan offset = %v, want (5,2)", off)
	}
	if m.StateName() != "Select" {
		t.Fatalf("state after release = %s", m.StateName())
	}
}

func TestEscapeRollsBackLiveDrag(t *testing.T) {
	m, s := newMachine(t)
	drawSquare(t, m, 0, 0, 4)
	before := s.Buildings()

	mustTool(t, m, ToolMove)
	m.PointerDown(pt(2, 2), nil)
	m.PointerMove(pt(40, 40), 0)
	if err := m.KeyDown("Escape"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, s.Buildings()) {
		t.Fatal("Escape must roll the drag back to the snapshot")
	}
}

func TestSetToolRejectsUnknown(t *testing.T) {
	m, _ := newMachine(t)
	if err := m.SetTool(Tool("lasso")); err == nil {
		t.Fatal("unknown tool must be rejected")
	}
}
