package sourcefs

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/phanxgames/zoml"
)

// Memory is an in-memory source tree. It is a SourceReader, a
// SourceLocationWalker and a FileMonitor: every Write and Delete queues a
// file event. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	files  map[zoml.Location]string
	events []zoml.FileEvent
	closed bool
}

// NewMemory creates a tree holding files. Initial files queue no events.
func NewMemory(files map[zoml.Location]string) *Memory {
	m := &Memory{files: make(map[zoml.Location]string, len(files))}
	maps.Copy(m.files, files)
	return m
}

var (
	_ zoml.SourceReader         = (*Memory)(nil)
	_ zoml.SourceLocationWalker = (*Memory)(nil)
	_ zoml.FileMonitor          = (*Memory)(nil)
)

// Read returns the content at loc.
func (m *Memory) Read(loc zoml.Location) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[loc]
	if !ok {
		return "", fmt.Errorf("read %s: %w", loc, zoml.ErrSourceNotFound)
	}
	return content, nil
}

// ResolveRelative joins rel onto the directory of base.
func (m *Memory) ResolveRelative(base zoml.Location, rel string) (zoml.Location, error) {
	return resolve(base, rel)
}

// Locations yields every location in lexical order.
func (m *Memory) Locations() iter.Seq[zoml.Location] {
	m.mu.Lock()
	locs := slices.Sorted(maps.Keys(m.files))
	m.mu.Unlock()
	return slices.Values(locs)
}

// Write creates or replaces the content at loc.
func (m *Memory) Write(loc zoml.Location, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kind := zoml.FileModified
	if _, ok := m.files[loc]; !ok {
		kind = zoml.FileCreated
	}
	m.files[loc] = content
	m.queue(zoml.FileEvent{Kind: kind, Location: loc})
}

// Delete removes loc. Deleting a missing location is a no-op.
func (m *Memory) Delete(loc zoml.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[loc]; !ok {
		return
	}
	delete(m.files, loc)
	m.queue(zoml.FileEvent{Kind: zoml.FileDeleted, Location: loc})
}

// Touch queues a modification event for loc without changing it.
func (m *Memory) Touch(loc zoml.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue(zoml.FileEvent{Kind: zoml.FileModified, Location: loc})
}

func (m *Memory) queue(ev zoml.FileEvent) {
	if m.closed {
		return
	}
	m.events = append(m.events, ev)
}

// TryNext pops the oldest queued event.
func (m *Memory) TryNext() (zoml.FileEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		if m.closed {
			return zoml.FileEvent{}, zoml.ErrNoLongerMonitoring
		}
		return zoml.FileEvent{}, zoml.ErrNoFileChanges
	}
	ev := m.events[0]
	m.events = slices.Delete(m.events, 0, 1)
	return ev, nil
}

// Close stops monitoring. Events queued before Close are still delivered.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
