package zoml

import (
	"errors"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/phanxgames/zoml/ast"
	"github.com/phanxgames/zoml/ecs"
)

// Lifecycle is the per-tick state of a source entity.
type Lifecycle uint8

const (
	LifecycleInitialRead Lifecycle = iota + 1
	LifecycleCreation
	LifecycleChange
	LifecycleRemoval
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleInitialRead:
		return "InitialRead"
	case LifecycleCreation:
		return "Creation"
	case LifecycleChange:
		return "Change"
	case LifecycleRemoval:
		return "Removal"
	}
	return "None"
}

type sourceEntry struct {
	loc         Location
	content     string
	fingerprint uint64
	tokens      []ast.Result
	parsed      bool
	imports     []Location
	removed     bool
}

// SourceGraph maps source locations to source entities and keeps their
// content, parsed tokens and import edges. Like RelationshipMap it is the
// in-tick truth; lifecycle markers on the entities mirror it.
type SourceGraph struct {
	log    *zap.Logger
	reader SourceReader
	root   Location

	byLoc    map[Location]ecs.Entity
	entries  map[ecs.Entity]*sourceEntry
	sources  []ecs.Entity // creation order
	dirty    map[ecs.Entity]Lifecycle
	dirtySeq []ecs.Entity
	retries  []pendingRead
}

// readAttempts bounds how often a source read is tried before its event is
// dropped.
const readAttempts = 3

type pendingRead struct {
	ev       FileEvent
	attempts int
}

// NewSourceGraph creates a graph whose entry point is root.
func NewSourceGraph(reader SourceReader, root Location, log *zap.Logger) *SourceGraph {
	if log == nil {
		log = zap.NewNop()
	}
	return &SourceGraph{
		log:     log,
		reader:  reader,
		root:    root,
		byLoc:   make(map[Location]ecs.Entity),
		entries: make(map[ecs.Entity]*sourceEntry),
		dirty:   make(map[ecs.Entity]Lifecycle),
	}
}

// RootLocation returns the entry point location.
func (g *SourceGraph) RootLocation() Location { return g.root }

// Len returns the number of tracked sources.
func (g *SourceGraph) Len() int { return len(g.entries) }

// --- Lookups ---

// Lookup returns the live source entity at loc. Sources pending removal are
// reported as missing.
func (g *SourceGraph) Lookup(loc Location) (ecs.Entity, bool) {
	e, ok := g.byLoc[loc]
	if !ok || g.entries[e].removed {
		return ecs.Null, false
	}
	return e, true
}

// Location returns the location of source entity e.
func (g *SourceGraph) Location(e ecs.Entity) (Location, bool) {
	entry, ok := g.entries[e]
	if !ok {
		return "", false
	}
	return entry.loc, true
}

// Tokens returns the parsed AST stream of e.
func (g *SourceGraph) Tokens(e ecs.Entity) ([]ast.Result, bool) {
	entry, ok := g.entries[e]
	if !ok || !entry.parsed {
		return nil, false
	}
	return entry.tokens, true
}

// Content returns the last content read for e.
func (g *SourceGraph) Content(e ecs.Entity) string {
	if entry, ok := g.entries[e]; ok {
		return entry.content
	}
	return ""
}

// IsRoot reports whether e is the entry point source.
func (g *SourceGraph) IsRoot(e ecs.Entity) bool {
	entry, ok := g.entries[e]
	return ok && entry.loc == g.root
}

// --- Lifecycle ---

// Discover registers a source found at startup and marks it InitialRead.
func (g *SourceGraph) Discover(w *ecs.World, loc Location, content string) ecs.Entity {
	if e, ok := g.byLoc[loc]; ok {
		return e
	}
	e := g.add(w, loc, content)
	g.mark(e, LifecycleInitialRead)
	g.log.Info("source discovered", zap.String("location", string(loc)))
	return e
}

// Apply records one file event. Markers coalesce: each source ends the tick
// with a single lifecycle state. A source that cannot be read is retried on
// the next ticks, see Retry.
func (g *SourceGraph) Apply(w *ecs.World, ev FileEvent) {
	g.apply(w, ev, 0)
}

// Retry re-applies the events whose read failed on an earlier tick.
func (g *SourceGraph) Retry(w *ecs.World) {
	pending := g.retries
	g.retries = nil
	for _, r := range pending {
		g.apply(w, r.ev, r.attempts)
	}
}

// ReadFailed schedules ev for a retry after its read failed with err. A
// source that no longer exists is not retried.
func (g *SourceGraph) ReadFailed(ev FileEvent, err error) {
	g.readFailed(ev, 0, err)
}

// Retrying returns the locations waiting for a retried read.
func (g *SourceGraph) Retrying() []Location {
	locs := make([]Location, len(g.retries))
	for i, r := range g.retries {
		locs[i] = r.ev.Location
	}
	return locs
}

func (g *SourceGraph) readFailed(ev FileEvent, attempts int, err error) {
	loc := zap.String("location", string(ev.Location))
	switch {
	case errors.Is(err, ErrSourceNotFound):
		g.log.Warn("changed source vanished before it was read", loc, zap.Error(err))
	case attempts+1 >= readAttempts:
		g.log.Error("giving up on unreadable source", loc, zap.Int("attempts", attempts+1), zap.Error(err))
	default:
		g.log.Warn("source read failed, retrying next tick", loc, zap.Error(err))
		g.retries = append(g.retries, pendingRead{ev: ev, attempts: attempts + 1})
	}
}

func (g *SourceGraph) dropRetries(loc Location) {
	g.retries = slices.DeleteFunc(g.retries, func(r pendingRead) bool {
		return r.ev.Location == loc
	})
}

func (g *SourceGraph) apply(w *ecs.World, ev FileEvent, attempts int) {
	switch ev.Kind {
	case FileCreated, FileModified:
		content, err := g.reader.Read(ev.Location)
		if err != nil {
			g.readFailed(ev, attempts, err)
			return
		}
		e, known := g.byLoc[ev.Location]
		if !known {
			e = g.add(w, ev.Location, content)
			g.mark(e, LifecycleCreation)
			g.log.Info("source created", zap.String("location", string(ev.Location)))
			return
		}
		entry := g.entries[e]
		pending := g.dirty[e]
		fp := xxhash.Sum64String(content)
		if !entry.removed && pending == 0 && fp == entry.fingerprint {
			g.log.Debug("source unchanged", zap.String("location", string(ev.Location)))
			return
		}
		entry.content, entry.fingerprint = content, fp
		entry.tokens, entry.parsed = nil, false
		entry.removed = false
		if pending != LifecycleInitialRead && pending != LifecycleCreation {
			g.mark(e, LifecycleChange)
		}
		g.log.Info("source changed", zap.String("location", string(ev.Location)))
	case FileDeleted:
		g.dropRetries(ev.Location)
		e, known := g.byLoc[ev.Location]
		if !known {
			return
		}
		g.entries[e].removed = true
		g.mark(e, LifecycleRemoval)
		g.log.Info("source removed", zap.String("location", string(ev.Location)))
	}
}

// Dirty returns the sources with a lifecycle state this tick, in the order
// they were first marked.
func (g *SourceGraph) Dirty() []ecs.Entity {
	return slices.Clone(g.dirtySeq)
}

// State returns the lifecycle state of e this tick, or 0.
func (g *SourceGraph) State(e ecs.Entity) Lifecycle {
	return g.dirty[e]
}

// WriteMarkers records the lifecycle marker of every dirty source.
func (g *SourceGraph) WriteMarkers(buf *ecs.CommandBuffer) {
	for _, e := range g.dirtySeq {
		for _, m := range lifecycleMarkers {
			buf.Remove(e, m)
		}
		switch g.dirty[e] {
		case LifecycleInitialRead:
			buf.Tag(e, SourceFileInitialRead)
		case LifecycleCreation:
			buf.Tag(e, SourceFileCreation)
		case LifecycleChange:
			buf.Tag(e, SourceFileChange)
		case LifecycleRemoval:
			buf.Tag(e, SourceFileRemoval)
		}
	}
}

// DropTokens forgets the parsed stream of e.
func (g *SourceGraph) DropTokens(e ecs.Entity) {
	if entry, ok := g.entries[e]; ok {
		entry.tokens, entry.parsed = nil, false
	}
}

// Parse tokenizes e if it has no parsed stream. It reports whether a parse
// happened.
func (g *SourceGraph) Parse(e ecs.Entity) bool {
	entry, ok := g.entries[e]
	if !ok || entry.parsed || entry.removed {
		return false
	}
	entry.tokens = ast.All(entry.content)
	entry.parsed = true
	return true
}

// EndTick clears the per-tick lifecycle states.
func (g *SourceGraph) EndTick() {
	clear(g.dirty)
	g.dirtySeq = g.dirtySeq[:0]
}

// Forget drops e entirely.
func (g *SourceGraph) Forget(e ecs.Entity) {
	entry, ok := g.entries[e]
	if !ok {
		return
	}
	if g.byLoc[entry.loc] == e {
		delete(g.byLoc, entry.loc)
	}
	delete(g.entries, e)
	delete(g.dirty, e)
	if i := slices.Index(g.sources, e); i >= 0 {
		g.sources = slices.Delete(g.sources, i, i+1)
	}
}

// --- Imports ---

// SetImports replaces the import edges of source e.
func (g *SourceGraph) SetImports(e ecs.Entity, locs []Location) {
	if entry, ok := g.entries[e]; ok {
		entry.imports = locs
	}
}

// Imports returns the locations source e imports.
func (g *SourceGraph) Imports(e ecs.Entity) []Location {
	if entry, ok := g.entries[e]; ok {
		return entry.imports
	}
	return nil
}

// Dependents returns the sources that import loc, in creation order.
func (g *SourceGraph) Dependents(loc Location) []ecs.Entity {
	var out []ecs.Entity
	for _, e := range g.sources {
		if slices.Contains(g.entries[e].imports, loc) {
			out = append(out, e)
		}
	}
	return out
}

// --- Helpers ---

// add spawns the source entity with its SourceFile tags in place, so the
// entity and its index entry exist together even if the tick aborts before
// the buffers flush.
func (g *SourceGraph) add(w *ecs.World, loc Location, content string) ecs.Entity {
	e := w.Spawn()
	w.Tag(e, SourceFile)
	if loc == g.root {
		w.Tag(e, SourceFileRoot)
	}
	g.byLoc[loc] = e
	g.entries[e] = &sourceEntry{loc: loc, content: content, fingerprint: xxhash.Sum64String(content)}
	g.sources = append(g.sources, e)
	return e
}

func (g *SourceGraph) mark(e ecs.Entity, l Lifecycle) {
	if _, ok := g.dirty[e]; !ok {
		g.dirtySeq = append(g.dirtySeq, e)
	}
	g.dirty[e] = l
}
