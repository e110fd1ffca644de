package zoml

import (
	"errors"
	"fmt"
	"slices"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/zoml/ecs"
)

var (
	changedSourcesQuery = donburi.NewQuery(filter.Or(
		filter.Contains(SourceFileChange),
		filter.Contains(SourceFileCreation),
	))
	unparsedSourcesQuery = donburi.NewQuery(filter.And(
		filter.Contains(SourceFile),
		filter.Not(filter.Contains(SourceFileParsed)),
		filter.Not(filter.Contains(SourceFileRemoval)),
	))
	removedSourcesQuery = donburi.NewQuery(filter.Contains(SourceFileRemoval))
	markedSourcesQuery  = donburi.NewQuery(filter.And(
		filter.Contains(SourceFile),
		filter.Or(
			filter.Contains(SourceFileInitialRead),
			filter.Contains(SourceFileCreation),
			filter.Contains(SourceFileChange),
			filter.Contains(SourceFileRemoval),
		),
	))

	rootsQuery         = donburi.NewQuery(filter.Contains(Root))
	unmappedRootsQuery = donburi.NewQuery(filter.And(
		filter.Contains(Root),
		filter.Not(filter.Contains(Mapped)),
	))
	unmappedQuery = donburi.NewQuery(filter.And(
		filter.Contains(Relationship),
		filter.Not(filter.Contains(Mapped)),
		filter.Not(filter.Contains(Removed)),
	))
	removedQuery       = donburi.NewQuery(filter.Contains(Removed))
	layoutRequestQuery = donburi.NewQuery(filter.Contains(LayoutRequest))
	layoutChangeQuery  = donburi.NewQuery(filter.Contains(LayoutChange))
	resizedQuery       = donburi.NewQuery(filter.Contains(Resized))
	rebuildQuery       = donburi.NewQuery(filter.Contains(Rebuild))
)

// stages returns the tick pipeline in execution order.
func (a *App) stages() []Stage {
	return []Stage{
		{Name: "input", Systems: []System{
			{Name: "pointer-events", Run: a.processPointerEvents},
		}},
		{Name: "discover", Systems: []System{
			{Name: "source-discovery", Run: a.discoverSources},
			{Name: "file-watcher", Run: a.watchFiles},
		}},
		{Name: "invalidate", Systems: []System{
			{Name: "token-removal", Run: a.removeTokens},
		}},
		{Name: "parse", Systems: []System{
			{Name: "parse-sources", Run: a.parseSources},
		}},
		{Name: "build", Systems: []System{
			{Name: "apply-sources", Run: a.applySources},
			{Name: "world-build", Run: a.buildWorld},
		}},
		{Name: "resize", Systems: []System{
			{Name: "resize-screen", Run: a.resizeScreen},
			{Name: "resize-after-rebuild", Run: a.resizeAfterRebuild},
		}},
		{Name: "relationships", Systems: []System{
			{Name: "relationship-index", Run: a.indexRelationships},
		}},
		{Name: "maps", Systems: []System{
			{Name: "map-layout-type", Run: a.mapEach((*Maps).BuildLayoutType)},
			{Name: "map-offsets", Run: a.mapEach((*Maps).BuildOffsets)},
			{Name: "map-sizes", Run: a.mapEach((*Maps).BuildSizes)},
			{Name: "map-minimums", Run: a.mapEach((*Maps).BuildMinimums)},
			{Name: "map-text", Run: a.mapEach((*Maps).BuildText)},
			{Name: "map-paint", Run: a.mapEach((*Maps).BuildPaint)},
		}},
		{Name: "reap", Systems: []System{
			{Name: "reap-removed", Run: a.reapRemoved},
		}},
		{Name: "measure", Systems: []System{
			{Name: "mark-as-mapped", Run: a.markAsMapped},
			{Name: "measure", Run: a.measure},
		}},
		{Name: "layout", Systems: []System{
			{Name: "layout", Run: a.runLayout},
		}},
		{Name: "render", Systems: []System{
			{Name: "render", Run: a.render},
		}},
		{Name: "cleanup", Systems: []System{
			{Name: "strip-transient", Run: a.stripTransient},
			{Name: "source-cleanup", Run: a.cleanupSources},
			{Name: "end-tick", Run: a.endTick},
		}},
	}
}

// --- Input ---

func (a *App) processPointerEvents(*ecs.CommandBuffer) error {
	ecs.PointerEventType.ProcessEvents(a.world.World)
	return nil
}

// --- Sources ---

type discoveredSource struct {
	loc     Location
	content string
	err     error
}

// discoverSources reads every walked location once, concurrently, and
// registers the results in walk order. Failed reads are left to the source
// graph's retries.
func (a *App) discoverSources(*ecs.CommandBuffer) error {
	if a.discovered {
		return nil
	}

	var locs []Location
	if a.walker != nil {
		for loc := range a.walker.Locations() {
			locs = append(locs, loc)
		}
	}
	if !slices.Contains(locs, a.graph.RootLocation()) {
		locs = append(locs, a.graph.RootLocation())
	}

	found := make([]discoveredSource, len(locs))
	var g errgroup.Group
	g.SetLimit(a.readConcurrency)
	for i, loc := range locs {
		g.Go(func() error {
			content, err := a.reader.Read(loc)
			found[i] = discoveredSource{loc: loc, content: content, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range found {
		if s.err != nil {
			a.graph.ReadFailed(FileEvent{Kind: FileCreated, Location: s.loc}, s.err)
			continue
		}
		a.graph.Discover(a.world, s.loc, s.content)
	}
	a.discovered = true
	return nil
}

// watchFiles retries failed reads, drains the monitor and writes one
// lifecycle marker per dirty source. Only a failing monitor is an error.
func (a *App) watchFiles(buf *ecs.CommandBuffer) error {
	a.graph.Retry(a.world)
	for a.monitor != nil {
		ev, err := a.monitor.TryNext()
		if errors.Is(err, ErrNoFileChanges) {
			break
		}
		if errors.Is(err, ErrNoLongerMonitoring) {
			a.log.Info("file monitor stopped")
			a.monitor = nil
			break
		}
		if err != nil {
			return fmt.Errorf("file monitor: %w", err)
		}
		a.log.Debug("file event", zap.Stringer("kind", ev.Kind), zap.String("location", string(ev.Location)))
		a.graph.Apply(a.world, ev)
	}
	a.graph.WriteMarkers(buf)
	return nil
}

func (a *App) removeTokens(buf *ecs.CommandBuffer) error {
	for _, e := range a.world.Query(changedSourcesQuery) {
		a.graph.DropTokens(e)
		buf.Remove(e, SourceFileParsed)
	}
	return nil
}

func (a *App) parseSources(buf *ecs.CommandBuffer) error {
	for _, e := range a.world.Query(unparsedSourcesQuery) {
		if a.graph.Parse(e) {
			loc, _ := a.graph.Location(e)
			a.log.Debug("source parsed", zap.String("location", string(loc)))
		}
		buf.Tag(e, SourceFileParsed)
	}
	return nil
}

// --- Build ---

// buildQueue is the work the source lifecycle asks of the builder this tick.
type buildQueue struct {
	removeTree bool
	buildRoot  ecs.Entity
	impls      []ecs.Entity
}

func (q *buildQueue) reset() {
	q.removeTree = false
	q.buildRoot = ecs.Null
	q.impls = q.impls[:0]
}

func (q *buildQueue) rebuild(impls ...ecs.Entity) {
	for _, e := range impls {
		if !slices.Contains(q.impls, e) {
			q.impls = append(q.impls, e)
		}
	}
}

func (a *App) applySources(*ecs.CommandBuffer) error {
	q := &a.queue
	q.reset()
	_, hasRoot := a.builder.Root()
	for _, e := range a.graph.Dirty() {
		isRoot := a.graph.IsRoot(e)
		loc, _ := a.graph.Location(e)
		switch a.graph.State(e) {
		case LifecycleInitialRead:
			if isRoot {
				q.buildRoot = e
			}
		case LifecycleCreation:
			if isRoot && !hasRoot {
				q.buildRoot = e
				continue
			}
			for _, d := range a.graph.Dependents(loc) {
				q.rebuild(a.builder.Implementations(d)...)
			}
		case LifecycleChange:
			if isRoot && !hasRoot {
				q.buildRoot = e
				continue
			}
			q.rebuild(a.builder.Implementations(e)...)
		case LifecycleRemoval:
			if isRoot {
				q.removeTree = true
				continue
			}
			for _, d := range a.graph.Dependents(loc) {
				q.rebuild(a.builder.Implementations(d)...)
			}
		}
	}
	return nil
}

func (a *App) buildWorld(buf *ecs.CommandBuffer) error {
	q := &a.queue
	if q.removeTree {
		a.builder.RemoveTree(buf)
		a.cleared = true
	}
	if q.buildRoot != ecs.Null {
		a.builder.BuildRoot(buf, q.buildRoot)
	}
	impls := slices.Clone(q.impls)
	slices.SortStableFunc(impls, func(x, y ecs.Entity) int {
		return a.rels.Depth(x) - a.rels.Depth(y)
	})
	for _, impl := range impls {
		a.builder.Rebuild(buf, impl)
	}
	return nil
}

// --- Resize ---

func (a *App) onSystemEvent(w donburi.World, ev ecs.SystemEvent) {
	if ev.Kind != ecs.RootWindowResized {
		return
	}
	a.window = [2]uint16{ev.Width, ev.Height}
	a.windowKnown = true
	a.screenResized = true
}

func (a *App) resizeScreen(buf *ecs.CommandBuffer) error {
	a.screenResized = false
	ecs.SystemEventType.ProcessEvents(a.world.World)
	if !a.screenResized {
		return nil
	}
	req := Rect{Width: a.window[0], Height: a.window[1]}
	for _, e := range a.world.Query(rootsQuery) {
		if a.world.Has(e, Removed) {
			continue
		}
		ecs.Insert(buf, e, LayoutRequest, req)
	}
	a.log.Debug("window resized", zap.Stringer("size", req))
	return nil
}

func (a *App) resizeAfterRebuild(buf *ecs.CommandBuffer) error {
	for _, root := range a.builder.TakeTouchedRoots() {
		if a.screenResized || !a.world.Alive(root) {
			continue
		}
		req, ok := ecs.Get(a.world, root, CurrentLayoutConstraints)
		if !ok {
			w, h := a.windowSize()
			req = Rect{Width: w, Height: h}
		}
		ecs.Insert(buf, root, LayoutRequest, req)
	}
	return nil
}

// windowSize returns the last resized window, or what the renderer reports
// before the first resize.
func (a *App) windowSize() (uint16, uint16) {
	if a.windowKnown {
		return a.window[0], a.window[1]
	}
	return a.renderer.WindowDimensions()
}

// --- Indexing ---

func (a *App) indexRelationships(*ecs.CommandBuffer) error {
	for _, e := range a.world.Query(unmappedQuery) {
		if a.rels.Contains(e) {
			continue
		}
		if rel, ok := ecs.Get(a.world, e, Relationship); ok {
			a.rels.Set(e, rel)
		}
	}
	return nil
}

func (a *App) mapEach(build func(*Maps, *ecs.World, ecs.Entity)) SystemFunc {
	return func(*ecs.CommandBuffer) error {
		for _, e := range a.world.Query(unmappedQuery) {
			build(a.maps, a.world, e)
		}
		return nil
	}
}

func (a *App) reapRemoved(buf *ecs.CommandBuffer) error {
	removed := a.world.Query(removedQuery)
	for _, e := range removed {
		a.rels.Remove(buf, e)
		a.maps.Forget(e)
		a.layout.Forget(e)
		a.builder.Forget(e)
		buf.Despawn(e)
	}
	if len(removed) > 0 {
		a.log.Debug("reaped removed entities", zap.Int("count", len(removed)))
	}
	return nil
}

// --- Measure, layout, render ---

func (a *App) markAsMapped(buf *ecs.CommandBuffer) error {
	for _, e := range a.world.Query(unmappedQuery) {
		buf.Tag(e, Mapped)
		if a.debug {
			debugCheckTreeDepth(a.log, a.rels, e)
		}
	}
	return nil
}

func (a *App) measure(buf *ecs.CommandBuffer) error {
	for _, root := range a.world.Query(unmappedRootsQuery) {
		MeasureRoot(buf, a.rels, a.maps, root, AxisWidth)
		MeasureRoot(buf, a.rels, a.maps, root, AxisHeight)
	}
	return nil
}

func (a *App) runLayout(buf *ecs.CommandBuffer) error {
	for _, e := range a.world.Query(layoutRequestQuery) {
		req, _ := ecs.Get(a.world, e, LayoutRequest)
		a.layout.Resize(buf, e, req)
	}
	return nil
}

func (a *App) render(*ecs.CommandBuffer) error {
	roots := a.layout.TakeLaidOut()
	if len(roots) == 0 {
		if !a.cleared {
			return nil
		}
		a.frame = nil
		return a.submit()
	}
	var frame []Primitive
	for _, root := range roots {
		frame = append(frame, a.renderQueue.Frame(root)...)
	}
	a.frame = frame
	return a.submit()
}

func (a *App) submit() error {
	a.cleared = false
	if err := a.renderer.Submit(a.frame); err != nil {
		a.log.Error("renderer rejected frame", zap.Error(err))
		return err
	}
	return nil
}

// --- Cleanup ---

func (a *App) stripTransient(buf *ecs.CommandBuffer) error {
	for _, e := range a.world.Query(layoutChangeQuery) {
		buf.Remove(e, LayoutChange)
	}
	for _, e := range a.world.Query(resizedQuery) {
		buf.Remove(e, Resized)
	}
	for _, e := range a.world.Query(rebuildQuery) {
		buf.Remove(e, Rebuild)
	}
	return nil
}

func (a *App) cleanupSources(buf *ecs.CommandBuffer) error {
	for _, e := range a.world.Query(markedSourcesQuery) {
		for _, m := range lifecycleMarkers {
			buf.Remove(e, m)
		}
	}
	for _, e := range a.world.Query(removedSourcesQuery) {
		a.graph.Forget(e)
		buf.Despawn(e)
	}
	return nil
}

func (a *App) endTick(*ecs.CommandBuffer) error {
	a.graph.EndTick()
	a.builder.EndTick()
	return nil
}
