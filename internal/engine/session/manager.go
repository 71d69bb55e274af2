package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"site-engine/internal/engine/projection"
	"site-engine/internal/engine/store"
	"site-engine/internal/engine/tools"
)

// ============================================================
// Document Sessions
// ============================================================
//
// One Document per open drafting session: it owns the store, the
// tool machine and the grid configuration, and is torn down as a
// unit. The engine core is single-threaded; the embedded mutex
// serializes HTTP access to a document.

type Document struct {
	sync.Mutex

	ID        string
	Store     *store.Store
	Machine   *tools.Machine
	Grid      projection.Grid
	CreatedAt time.Time
}

type Manager struct {
	mu   sync.Mutex
	docs map[string]*Document

	grid    projection.Grid
	toolCfg tools.Config
}

func NewManager(grid projection.Grid, toolCfg tools.Config) *Manager {
	return &Manager{
		docs:    make(map[string]*Document),
		grid:    grid,
		toolCfg: toolCfg,
	}
}

// Create opens a new empty document.
func (m *Manager) Create() *Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := store.New()
	doc := &Document{
		ID:        uuid.NewString(),
		Store:     s,
		Machine:   tools.New(s, m.toolCfg),
		Grid:      m.grid,
		CreatedAt: time.Now(),
	}
	m.docs[doc.ID] = doc
	return doc
}

// Get resolves a document id.
func (m *Manager) Get(id string) (*Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	return doc, ok
}

// Delete tears a document down. All of its state is in memory, so
// dropping the reference is the whole teardown.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return false
	}
	delete(m.docs, id)
	return true
}

// Count returns the number of open documents.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}
