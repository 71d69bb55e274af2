package tools

import (
	"math"

	"site-engine/internal/engine/geometry"
	"site-engine/internal/engine/models"
	"site-engine/internal/engine/store"
)

// ============================================================
// Tool State Machine
// ============================================================
//
// Exactly one tool state is active at a time. The current state is a
// single tagged value (one type per state, payload inside), so mutual
// exclusivity is structural. Every mutating transition pushes a store
// snapshot before the first change it applies; drag gestures snapshot
// once at gesture start and then stream live updates.

// Tool identifies the active tool selected by the collaborator.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolMove      Tool = "move"
	ToolPan       Tool = "pan"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolPolygon   Tool = "polygon"
	ToolPushPull  Tool = "pushpull"
	ToolExtrude   Tool = "extrude"
)

func validTool(t Tool) bool {
	switch t {
	case ToolSelect, ToolMove, ToolPan, ToolRectangle, ToolCircle,
		ToolPolygon, ToolPushPull, ToolExtrude:
		return true
	}
	return false
}

// Hit is a pick result reported by the rendering collaborator.
type Hit struct {
	BuildingIndex int `json:"buildingIndex"`
	FaceIndex     int `json:"faceIndex"`
}

// Config holds the interaction thresholds.
type Config struct {
	// MinShapeSize is the minimum extent (meters) below which a
	// rectangle or circle gesture is silently discarded.
	MinShapeSize float64
	// CloseRadius is the proximity (meters) to the first polygon
	// point that closes the polygon instead of appending.
	CloseRadius float64
	// CircleSegments is the vertex count of a finalized circle.
	CircleSegments int
	// MaxHeight is the extrude height at the top of the viewport.
	MaxHeight float64
	// MinHeight is the strictly positive lower clamp for extrusion.
	MinHeight float64
	// DedupeEpsilon removes near-coincident consecutive points
	// before a drawn polygon is finalized.
	DedupeEpsilon float64
}

// DefaultConfig returns the thresholds used by the drafting UI.
func DefaultConfig() Config {
	return Config{
		MinShapeSize:   0.5,
		CloseRadius:    1.0,
		CircleSegments: 24,
		MaxHeight:      120.0,
		MinHeight:      0.5,
		DedupeEpsilon:  0.01,
	}
}

// ============================================================
// States
// ============================================================

type state interface{ name() string }

type selectState struct{}

type movingState struct {
	index        int
	origVertices []geometry.Point
	origBuffer   []geometry.Point
	origCentroid geometry.Point
}

type panningState struct {
	last geometry.Point
}

type drawingRectState struct {
	anchor geometry.Point
}

type drawingCircleState struct {
	center geometry.Point
}

type drawingPolygonState struct {
	points []geometry.Point
}

type pushPullingState struct {
	index        int
	edge         int
	normal       geometry.Point
	start        geometry.Point
	origVertices []geometry.Point
}

type extrudeDraggingState struct {
	index int
}

type floorStackPendingState struct {
	base int
}

func (selectState) name() string            { return "Select" }
func (movingState) name() string            { return "Move" }
func (panningState) name() string           { return "Pan" }
func (drawingRectState) name() string       { return "DrawingRectangle" }
func (drawingCircleState) name() string     { return "DrawingCircle" }
func (drawingPolygonState) name() string    { return "DrawingPolygon" }
func (pushPullingState) name() string       { return "PushPulling" }
func (extrudeDraggingState) name() string   { return "ExtrudeDragging" }
func (floorStackPendingState) name() string { return "FloorStackPending" }

// ============================================================
// Machine
// ============================================================

// Machine interprets pointer/keyboard events into store mutations.
type Machine struct {
	store *store.Store
	cfg   Config

	tool      Tool
	st        state
	panOffset geometry.Point
}

// New creates a machine in the Select state.
func New(s *store.Store, cfg Config) *Machine {
	return &Machine{store: s, cfg: cfg, tool: ToolSelect, st: selectState{}}
}

// ActiveTool returns the selected tool.
func (m *Machine) ActiveTool() Tool { return m.tool }

// StateName returns the current FSM state name.
func (m *Machine) StateName() string { return m.st.name() }

// PanOffset returns the accumulated pan translation for the renderer.
func (m *Machine) PanOffset() geometry.Point { return m.panOffset }

// SetTool switches the active tool, cancelling any in-progress
// gesture the way Escape does.
func (m *Machine) SetTool(t Tool) error {
	if !validTool(t) {
		return &store.ValidationError{Op: "setTool", Reason: "unknown tool " + string(t)}
	}
	m.cancelGesture()
	m.tool = t
	return nil
}

// ============================================================
// Pointer events
// ============================================================

// PointerDown handles a pointer press at the given ground point.
// hit is the collaborator's pick result, nil when nothing was picked;
// a nil hit falls back to topmost-containment over the footprints.
func (m *Machine) PointerDown(ground geometry.Point, hit *Hit) error {
	switch st := m.st.(type) {
	case drawingCircleState:
		return m.finalizeCircle(st.center, ground)
	case drawingPolygonState:
		return m.polygonPoint(st, ground)
	case movingState:
		// Second activation click stops the drag and commits.
		m.st = selectState{}
		return nil
	case extrudeDraggingState:
		// Click-to-toggle: second click commits the current height.
		m.st = selectState{}
		return nil
	case drawingRectState, pushPullingState, panningState:
		// Finalized by pointer-up; a press mid-gesture is noise.
		return nil
	}

	switch m.tool {
	case ToolSelect:
		return m.selectAt(ground, hit)
	case ToolMove:
		return m.beginMove(ground)
	case ToolPan:
		m.st = panningState{last: ground}
		return nil
	case ToolRectangle:
		m.st = drawingRectState{anchor: ground}
		return nil
	case ToolCircle:
		m.st = drawingCircleState{center: ground}
		return nil
	case ToolPolygon:
		m.st = drawingPolygonState{points: []geometry.Point{ground}}
		return nil
	case ToolPushPull:
		return m.beginPushPull(ground, hit)
	case ToolExtrude:
		return m.beginExtrude(ground, hit)
	}
	return nil
}

// PointerMove handles pointer motion. viewportFraction is the
// vertical position of the pointer within the viewport, 0 at the top
// edge and 1 at the bottom; only the extrude drag consumes it.
func (m *Machine) PointerMove(ground geometry.Point, viewportFraction float64) error {
	switch st := m.st.(type) {
	case movingState:
		// Always relative to the gesture-start snapshot, never
		// incremental, so repeated moves cannot drift.
		delta := ground.Sub(st.origCentroid)
		verts := translate(st.origVertices, delta)
		var buffer []geometry.Point
		if st.origBuffer != nil {
			buffer = translate(st.origBuffer, delta)
		}
		return m.store.SetVertices(st.index, verts, buffer)
	case panningState:
		m.panOffset = m.panOffset.Add(ground.Sub(st.last))
		m.st = panningState{last: ground}
		return nil
	case pushPullingState:
		d := ground.Sub(st.start).Dot(st.normal)
		verts := append([]geometry.Point(nil), st.origVertices...)
		n := len(verts)
		verts[st.edge] = verts[st.edge].Add(st.normal.Scale(d))
		verts[(st.edge+1)%n] = verts[(st.edge+1)%n].Add(st.normal.Scale(d))
		return m.store.SetVertices(st.index, verts, nil)
	case extrudeDraggingState:
		frac := math.Max(0, math.Min(1, viewportFraction))
		h := m.cfg.MaxHeight * (1 - frac)
		h = math.Max(m.cfg.MinHeight, math.Min(m.cfg.MaxHeight, h))
		return m.store.SetHeight(st.index, h)
	}
	return nil
}

// PointerUp handles a pointer release.
func (m *Machine) PointerUp(ground geometry.Point) error {
	switch st := m.st.(type) {
	case drawingRectState:
		return m.finalizeRectangle(st.anchor, ground)
	case panningState:
		m.st = selectState{}
		return nil
	case pushPullingState:
		// The live vertex array is already in the store; release
		// just ends the gesture.
		m.st = selectState{}
		return nil
	}
	return nil
}

// ============================================================
// Keyboard events
// ============================================================

// KeyDown handles Escape, Enter and Backspace.
func (m *Machine) KeyDown(key string) error {
	switch key {
	case "Escape":
		m.cancelGesture()
		m.tool = ToolSelect
		return nil
	case "Enter":
		st, ok := m.st.(drawingPolygonState)
		if !ok {
			return nil
		}
		if len(st.points) < 3 {
			return &store.ValidationError{Op: "polygon", Reason: "needs at least 3 points to finalize"}
		}
		return m.finalizePolygon(st.points)
	case "Backspace":
		st, ok := m.st.(drawingPolygonState)
		if !ok {
			return nil
		}
		if len(st.points) > 1 {
			m.st = drawingPolygonState{points: st.points[:len(st.points)-1]}
		}
		return nil
	}
	return nil
}

// cancelGesture aborts whatever is in progress. Gestures that already
// streamed live updates roll back through the snapshot they pushed;
// draw buffers are simply discarded.
func (m *Machine) cancelGesture() {
	switch m.st.(type) {
	case movingState, pushPullingState, extrudeDraggingState:
		m.store.Undo()
	}
	m.st = selectState{}
}

// ============================================================
// Operations
// ============================================================

// ExtrudeTo sets the height of a flat building in one step. A
// building that is already extruded is rejected.
func (m *Machine) ExtrudeTo(index int, height float64) error {
	b, err := m.store.Building(index)
	if err != nil {
		return err
	}
	if !b.IsFlat() {
		return &store.ValidationError{Op: "extrude", Reason: "building is already extruded"}
	}
	if height <= models.FlatHeight {
		return &store.ValidationError{Op: "extrude", Reason: "height must exceed the flat sentinel"}
	}
	return m.store.UpdateAt(index, store.Patch{Height: &height})
}

// StackFloors stacks count floors of floorHeight onto the selected
// building, passing through the FloorStackPending state.
func (m *Machine) StackFloors(count int, floorHeight float64) error {
	base := m.store.Selected()
	if base < 0 {
		return &store.ValidationError{Op: "stackFloors", Reason: "no building selected"}
	}
	m.st = floorStackPendingState{base: base}
	err := m.store.StackFloors(base, count, floorHeight)
	m.st = selectState{}
	return err
}

// ============================================================
// Gesture internals
// ============================================================

func (m *Machine) selectAt(ground geometry.Point, hit *Hit) error {
	if idx, ok := m.resolveHit(ground, hit); ok {
		return m.store.Select(idx)
	}
	return m.store.Select(-1)
}

func (m *Machine) beginMove(ground geometry.Point) error {
	idx := m.store.Selected()
	if idx < 0 {
		return &store.ValidationError{Op: "move", Reason: "no building selected"}
	}
	b, err := m.store.Building(idx)
	if err != nil {
		return err
	}
	m.store.Snapshot()
	m.st = movingState{
		index:        idx,
		origVertices: b.Vertices,
		origBuffer:   b.Buffer,
		origCentroid: geometry.Centroid(b.Vertices),
	}
	// The press point becomes the first drag sample.
	return m.PointerMove(ground, 0)
}

func (m *Machine) beginPushPull(ground geometry.Point, hit *Hit) error {
	if hit == nil {
		return nil
	}
	b, err := m.store.Building(hit.BuildingIndex)
	if err != nil {
		return err
	}
	normal, ok := geometry.EdgeNormal(b.Vertices, hit.FaceIndex)
	if !ok {
		// Degenerate edge: ignore the click entirely.
		return nil
	}
	m.store.Snapshot()
	m.st = pushPullingState{
		index:        hit.BuildingIndex,
		edge:         hit.FaceIndex,
		normal:       normal,
		start:        ground,
		origVertices: b.Vertices,
	}
	return nil
}

func (m *Machine) beginExtrude(ground geometry.Point, hit *Hit) error {
	idx, ok := m.resolveHit(ground, hit)
	if !ok {
		return nil
	}
	b, err := m.store.Building(idx)
	if err != nil {
		return err
	}
	if !b.IsFlat() {
		return &store.ValidationError{Op: "extrude", Reason: "building is already extruded"}
	}
	m.store.Snapshot()
	if err := m.store.Select(idx); err != nil {
		return err
	}
	m.st = extrudeDraggingState{index: idx}
	return nil
}

// resolveHit prefers the collaborator's pick; without one it walks
// the footprints topmost-first and tests containment.
func (m *Machine) resolveHit(ground geometry.Point, hit *Hit) (int, bool) {
	if hit != nil {
		if hit.BuildingIndex >= 0 && hit.BuildingIndex < m.store.Count() {
			return hit.BuildingIndex, true
		}
		return 0, false
	}
	buildings := m.store.Buildings()
	for i := len(buildings) - 1; i >= 0; i-- {
		if buildings[i].IsMain {
			continue
		}
		if geometry.PointInPolygon(ground, buildings[i].Vertices) {
			return i, true
		}
	}
	return 0, false
}

func (m *Machine) finalizeRectangle(anchor, current geometry.Point) error {
	m.st = selectState{}
	if math.Abs(current.X-anchor.X) < m.cfg.MinShapeSize ||
		math.Abs(current.Y-anchor.Y) < m.cfg.MinShapeSize {
		return nil // sub-threshold, silently discarded
	}
	verts := []geometry.Point{
		{X: anchor.X, Y: anchor.Y},
		{X: current.X, Y: anchor.Y},
		{X: current.X, Y: current.Y},
		{X: anchor.X, Y: current.Y},
	}
	return m.addAndSelect(verts)
}

func (m *Machine) finalizeCircle(center, current geometry.Point) error {
	m.st = selectState{}
	radius := center.Distance(current)
	if radius < m.cfg.MinShapeSize {
		return nil
	}
	segments := m.cfg.CircleSegments
	if segments < 3 {
		segments = 3
	}
	verts := make([]geometry.Point, 0, segments)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		verts = append(verts, geometry.Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		})
	}
	return m.addAndSelect(verts)
}

func (m *Machine) polygonPoint(st drawingPolygonState, ground geometry.Point) error {
	if len(st.points) >= 3 && ground.Distance(st.points[0]) <= m.cfg.CloseRadius {
		return m.finalizePolygon(st.points)
	}
	m.st = drawingPolygonState{points: append(st.points, ground)}
	return nil
}

func (m *Machine) finalizePolygon(points []geometry.Point) error {
	verts := geometry.DedupeConsecutive(points, m.cfg.DedupeEpsilon)
	if len(verts) < 3 {
		return &store.ValidationError{Op: "polygon", Reason: "fewer than 3 distinct points"}
	}
	m.st = selectState{}
	return m.addAndSelect(verts)
}

func (m *Machine) addAndSelect(verts []geometry.Point) error {
	idx, err := m.store.Add(models.NewBuilding(verts))
	if err != nil {
		return err
	}
	return m.store.Select(idx)
}

func translate(points []geometry.Point, delta geometry.Point) []geometry.Point {
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		out[i] = p.Add(delta)
	}
	return out
}
