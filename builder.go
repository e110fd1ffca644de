package zoml

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/phanxgames/zoml/ast"
	"github.com/phanxgames/zoml/ecs"
)

// --- Element schemas ---

type schema struct {
	required []ast.Kind
	optional []ast.Kind
	// container elements accept child elements
	container bool
}

func (s schema) allows(k ast.Kind) bool {
	return slices.Contains(s.required, k) || slices.Contains(s.optional, k)
}

var box = []ast.Kind{ast.Left, ast.Top, ast.Width, ast.Height}

var schemas = map[ast.Kind]schema{
	ast.Root:                  {optional: []ast.Kind{ast.Left, ast.Top}, container: true},
	ast.Control:               {optional: box, container: true},
	ast.Canvas:                {optional: box, container: true},
	ast.HorizontalStack:       {optional: box, container: true},
	ast.VerticalStack:         {optional: box, container: true},
	ast.ControlImplementation: {optional: box},
	ast.Import:                {required: []ast.Kind{ast.Name, ast.Path}},
	ast.Rect: {optional: append(slices.Clone(box),
		ast.Colour, ast.StrokeColour, ast.StrokeWidth, ast.CornerRadii)},
	ast.Circle: {
		required: []ast.Kind{ast.Radius},
		optional: []ast.Kind{ast.Left, ast.Top, ast.Colour, ast.StrokeColour, ast.StrokeWidth},
	},
	ast.Text: {
		required: []ast.Kind{ast.Content},
		optional: append(slices.Clone(box), ast.Colour, ast.FontSize),
	},
}

// elementNames gives the source spelling of element kinds for messages.
var elementNames = map[ast.Kind]string{
	ast.Root:            "root",
	ast.Control:         "control",
	ast.Import:          "import",
	ast.Canvas:          "canvas",
	ast.HorizontalStack: "horizontal-stack",
	ast.VerticalStack:   "vertical-stack",
	ast.Rect:            "rect",
	ast.Circle:          "circle",
	ast.Text:            "text",
}

var attributeNames = map[ast.Kind]string{
	ast.Left:         "left",
	ast.Top:          "top",
	ast.Width:        "width",
	ast.Height:       "height",
	ast.Radius:       "radius",
	ast.StrokeWidth:  "stroke-width",
	ast.CornerRadii:  "corner-radii",
	ast.Colour:       "colour",
	ast.StrokeColour: "stroke-colour",
	ast.Content:      "content",
	ast.FontSize:     "font-size",
	ast.Name:         "name",
	ast.Path:         "path",
}

// --- Build context ---

// sourceBuildState is the per-source part of a build: which source is being
// materialized, its import scope and the chain of sources above it.
type sourceBuildState struct {
	source   ecs.Entity
	location Location
	scope    map[string]Location
	imports  []Location
	chain    []ecs.Entity
}

// nodeBuildCache remembers which attribute kinds each source applied to each
// entity, so a rebuild can strip attributes that disappeared.
type nodeBuildCache struct {
	attrs map[ecs.Entity]map[ecs.Entity][]ast.Kind // entity -> source -> kinds
}

func newNodeBuildCache() *nodeBuildCache {
	return &nodeBuildCache{attrs: make(map[ecs.Entity]map[ecs.Entity][]ast.Kind)}
}

// nodeChanges is the attribute diff between two builds of one entity.
type nodeChanges struct {
	added   []ast.Token
	removed []ast.Kind
}

// changes diffs the attributes source last applied to e against next. A
// removed kind is kept if another source still applies it.
func (c *nodeBuildCache) changes(e, source ecs.Entity, next []ast.Token) nodeChanges {
	var ch nodeChanges
	ch.added = next
	bySource := c.attrs[e]
	for _, k := range bySource[source] {
		if slices.ContainsFunc(next, func(t ast.Token) bool { return t.Kind == k }) {
			continue
		}
		shared := false
		for other, kinds := range bySource {
			if other != source && slices.Contains(kinds, k) {
				shared = true
				break
			}
		}
		if !shared {
			ch.removed = append(ch.removed, k)
		}
	}
	return ch
}

func (c *nodeBuildCache) store(e, source ecs.Entity, applied []ast.Token) {
	kinds := make([]ast.Kind, len(applied))
	for i, t := range applied {
		kinds[i] = t.Kind
	}
	if c.attrs[e] == nil {
		c.attrs[e] = make(map[ecs.Entity][]ast.Kind)
	}
	c.attrs[e][source] = kinds
}

func (c *nodeBuildCache) forget(e ecs.Entity) { delete(c.attrs, e) }

// buildContext is passed explicitly through a build. Nested control builds
// get a fresh state and share the cache.
type buildContext struct {
	state *sourceBuildState
	cache *nodeBuildCache
}

// frame is an element under construction.
type frame struct {
	entity ecs.Entity
	kind   ast.Kind
	name   string
	pos    int
	attrs  []ast.Token
	errs   []BuildError
	top    bool
}

// --- Builder ---

// Builder materializes parsed sources into the scene tree. It owns the map
// from implementation entities (the Root and every control instance) to the
// source they were built from.
type Builder struct {
	world  *ecs.World
	log    *zap.Logger
	rels   *RelationshipMap
	graph  *SourceGraph
	reader SourceReader
	cache  *nodeBuildCache

	root    ecs.Entity
	impls   map[ecs.Entity]ecs.Entity
	errs    map[ecs.Entity][]BuildError
	touched []ecs.Entity
	removed map[ecs.Entity]struct{}
}

// NewBuilder creates a builder over the given indexes.
func NewBuilder(w *ecs.World, rels *RelationshipMap, graph *SourceGraph, reader SourceReader, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		world:   w,
		log:     log,
		rels:    rels,
		graph:   graph,
		reader:  reader,
		cache:   newNodeBuildCache(),
		root:    ecs.Null,
		impls:   make(map[ecs.Entity]ecs.Entity),
		errs:    make(map[ecs.Entity][]BuildError),
		removed: make(map[ecs.Entity]struct{}),
	}
}

// Root returns the live Root entity.
func (b *Builder) Root() (ecs.Entity, bool) {
	if b.root == ecs.Null || !b.world.Alive(b.root) {
		return ecs.Null, false
	}
	if _, gone := b.removed[b.root]; gone {
		return ecs.Null, false
	}
	return b.root, true
}

// Implementations returns the implementation entities built from source, in
// tree order.
func (b *Builder) Implementations(source ecs.Entity) []ecs.Entity {
	var out []ecs.Entity
	root, ok := b.Root()
	if !ok {
		return nil
	}
	if b.impls[root] == source {
		out = append(out, root)
	}
	for e := range b.rels.Descendants(root) {
		if src, ok := b.impls[e]; ok && src == source {
			out = append(out, e)
		}
	}
	return out
}

// SourceOf returns the source an implementation entity was built from.
func (b *Builder) SourceOf(impl ecs.Entity) (ecs.Entity, bool) {
	src, ok := b.impls[impl]
	return src, ok
}

// Errors returns the build errors recorded on e.
func (b *Builder) Errors(e ecs.Entity) []BuildError {
	return b.errs[e]
}

// TakeTouchedRoots returns the roots rebuilt since the last call.
func (b *Builder) TakeTouchedRoots() []ecs.Entity {
	out := b.touched
	b.touched = nil
	return out
}

// EndTick forgets the entities removed this tick.
func (b *Builder) EndTick() {
	clear(b.removed)
}

// BuildRoot creates the Root entity for source and builds it. It is a no-op
// when a live root exists.
func (b *Builder) BuildRoot(buf *ecs.CommandBuffer, source ecs.Entity) ecs.Entity {
	if r, ok := b.Root(); ok {
		return r
	}
	loc, _ := b.graph.Location(source)
	r := b.world.Spawn()
	buf.Tag(r, Root)
	ecs.Insert(buf, r, SourceImplementation, SourceImplementationData{Source: source})
	ecs.Insert(buf, r, LayoutContent, LayoutCanvas)
	b.rels.AddRoot(buf, r)
	b.root = r
	b.impls[r] = source

	ctx := buildContext{
		state: &sourceBuildState{source: source, location: loc, scope: map[string]Location{}, chain: []ecs.Entity{source}},
		cache: b.cache,
	}
	b.build(ctx, buf, r, ast.Root)
	b.touch(buf, r)
	b.log.Info("root built", zap.String("location", string(loc)))
	return r
}

// Rebuild replaces the subtree of an implementation entity with a fresh
// build of its source. The old descendants are marked Removed.
func (b *Builder) Rebuild(buf *ecs.CommandBuffer, impl ecs.Entity) {
	if _, gone := b.removed[impl]; gone || !b.world.Alive(impl) {
		return
	}
	source, ok := b.impls[impl]
	if !ok {
		return
	}
	loc, _ := b.graph.Location(source)
	b.markRemoved(buf, slices.Collect(b.rels.Descendants(impl)))
	b.rels.ClearChildren(buf, impl)
	buf.Remove(impl, Mapped)
	b.dropErrors(buf, impl, loc)
	buf.Tag(impl, Rebuild)

	top := ast.Control
	if impl == b.root {
		top = ast.Root
	}
	ctx := buildContext{
		state: &sourceBuildState{source: source, location: loc, scope: map[string]Location{}, chain: b.chainOf(impl)},
		cache: b.cache,
	}
	b.build(ctx, buf, impl, top)
	b.touch(buf, b.rels.RootOf(impl))
	b.log.Debug("implementation rebuilt", zap.String("location", string(loc)))
}

// RemoveTree marks the root and every descendant Removed.
func (b *Builder) RemoveTree(buf *ecs.CommandBuffer) {
	root, ok := b.Root()
	if !ok {
		return
	}
	b.markRemoved(buf, append([]ecs.Entity{root}, slices.Collect(b.rels.Descendants(root))...))
	b.root = ecs.Null
	b.log.Info("root removed")
}

// Forget drops every record of e.
func (b *Builder) Forget(e ecs.Entity) {
	delete(b.impls, e)
	delete(b.errs, e)
	b.cache.forget(e)
}

// --- Build ---

func (b *Builder) build(ctx buildContext, buf *ecs.CommandBuffer, impl ecs.Entity, top ast.Kind) {
	st := ctx.state
	b.graph.Parse(st.source)
	tokens, _ := b.graph.Tokens(st.source)

	implFrame := &frame{entity: impl, kind: top, pos: -1, top: true}
	var stack []*frame
	seenTop, finished, warned := false, false, false
	skip := 0

	for _, r := range tokens {
		if skip > 0 {
			if r.Err == nil {
				switch {
				case r.Token.Kind == ast.CompleteControl:
					skip--
				case r.Token.Kind.IsElement():
					skip++
				}
			}
			continue
		}
		if r.Err != nil {
			target := implFrame
			if len(stack) > 0 {
				target = stack[len(stack)-1]
			}
			target.errs = append(target.errs, tokenBuildError(st.location, r.Err))
			continue
		}

		tok := r.Token
		switch {
		case tok.Kind.IsElement():
			if len(stack) == 0 {
				if seenTop {
					if !warned {
						b.log.Warn("ignoring elements after the top-level element",
							zap.String("location", string(st.location)), zap.Int("pos", tok.Pos))
						warned = true
					}
					skip = 1
					continue
				}
				seenTop = true
				if tok.Kind != top {
					implFrame.errs = append(implFrame.errs, BuildError{
						Kind: UnexpectedToken, Location: st.location, Pos: tok.Pos,
						Detail: fmt.Sprintf("expected <%s>, found %s", elementNames[top], describe(tok)),
					})
					skip = 1
					continue
				}
				implFrame.pos = tok.Pos
				stack = append(stack, implFrame)
				continue
			}
			parent := stack[len(stack)-1]
			if !schemas[parent.kind].container || tok.Kind == ast.Root || tok.Kind == ast.Control {
				parent.errs = append(parent.errs, BuildError{
					Kind: UnexpectedToken, Location: st.location, Pos: tok.Pos,
					Detail: fmt.Sprintf("%s cannot appear here", describe(tok)),
				})
				skip = 1
				continue
			}
			e := b.world.Spawn()
			b.rels.Insert(buf, parent.entity, e)
			stack = append(stack, &frame{entity: e, kind: tok.Kind, name: tok.Str, pos: tok.Pos})

		case tok.Kind == ast.CompleteControl:
			if len(stack) == 0 {
				continue
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b.finish(ctx, buf, f)
			if f.top {
				finished = true
			}

		default:
			if len(stack) > 0 {
				f := stack[len(stack)-1]
				f.attrs = append(f.attrs, tok)
			}
		}
	}

	// Unclosed elements were already reported by the tokenizer.
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b.finish(ctx, buf, f)
		if f.top {
			finished = true
		}
	}
	if !seenTop {
		implFrame.errs = append(implFrame.errs, BuildError{
			Kind: MissingRequiredTokens, Location: st.location, Pos: -1,
			Missing: []string{elementNames[top]},
		})
	}
	if !finished {
		b.finish(ctx, buf, implFrame)
	}
	b.graph.SetImports(st.source, st.imports)
}

// finish validates the attributes of f and records its components.
func (b *Builder) finish(ctx buildContext, buf *ecs.CommandBuffer, f *frame) {
	st := ctx.state
	sch := schemas[f.kind]

	var applied []ast.Token
	for _, tok := range f.attrs {
		if !sch.allows(tok.Kind) {
			f.errs = append(f.errs, BuildError{
				Kind: UnexpectedToken, Location: st.location, Pos: tok.Pos,
				Detail: fmt.Sprintf("attribute %s on %s", attributeNames[tok.Kind], describeFrame(f)),
			})
			continue
		}
		if i := slices.IndexFunc(applied, func(t ast.Token) bool { return t.Kind == tok.Kind }); i >= 0 {
			applied[i] = tok
			continue
		}
		applied = append(applied, tok)
	}
	var missing []string
	for _, k := range sch.required {
		if !slices.ContainsFunc(applied, func(t ast.Token) bool { return t.Kind == k }) {
			missing = append(missing, attributeNames[k])
		}
	}
	if len(missing) > 0 {
		f.errs = append(f.errs, BuildError{
			Kind: MissingRequiredTokens, Location: st.location, Pos: f.pos,
			Detail: "on " + describeFrame(f), Missing: missing,
		})
	}

	if !f.top {
		switch f.kind {
		case ast.Canvas:
			ecs.Insert(buf, f.entity, LayoutContent, LayoutCanvas)
		case ast.HorizontalStack:
			ecs.Insert(buf, f.entity, LayoutContent, LayoutHorizontal)
		case ast.VerticalStack:
			ecs.Insert(buf, f.entity, LayoutContent, LayoutVertical)
		case ast.Rect:
			ecs.Insert(buf, f.entity, Renderable, RenderRectangle)
		case ast.Circle:
			ecs.Insert(buf, f.entity, Renderable, RenderCircle)
		case ast.Text:
			ecs.Insert(buf, f.entity, Renderable, RenderText)
		case ast.Import:
			buf.Tag(f.entity, Import)
		case ast.ControlImplementation:
			buf.Tag(f.entity, Control)
			ecs.Insert(buf, f.entity, LayoutContent, LayoutCanvas)
		}
	}

	changes := ctx.cache.changes(f.entity, st.source, applied)
	for _, k := range changes.removed {
		buf.Remove(f.entity, attributeComponents[k])
	}
	for _, tok := range changes.added {
		insertAttribute(buf, f.entity, tok)
	}
	ctx.cache.store(f.entity, st.source, applied)

	switch {
	case f.top:
	case f.kind == ast.Import:
		b.resolveImport(ctx, f, applied)
	case f.kind == ast.ControlImplementation:
		// The usage-site name is the element name; it is stored as Name.
		ecs.Insert(buf, f.entity, Name, f.name)
		b.instantiate(ctx, buf, f)
	}

	b.attachErrors(buf, f.entity, f.errs)
}

// resolveImport adds the control named by an <import> to the source scope.
func (b *Builder) resolveImport(ctx buildContext, f *frame, applied []ast.Token) {
	st := ctx.state
	var name, path string
	for _, t := range applied {
		switch t.Kind {
		case ast.Name:
			name = t.Str
		case ast.Path:
			path = t.Str
		}
	}
	if name == "" || path == "" {
		return
	}
	loc, err := b.reader.ResolveRelative(st.location, path)
	if err != nil {
		f.errs = append(f.errs, BuildError{
			Kind: RelativeSourceNotResolvable, Location: st.location, Pos: f.pos, Detail: path, Err: err,
		})
		return
	}
	st.scope[name] = loc
	if !slices.Contains(st.imports, loc) {
		st.imports = append(st.imports, loc)
	}
}

// instantiate builds the control source named by f into f's entity.
func (b *Builder) instantiate(ctx buildContext, buf *ecs.CommandBuffer, f *frame) {
	st := ctx.state
	loc, ok := st.scope[f.name]
	if !ok {
		f.errs = append(f.errs, BuildError{Kind: ControlDoesNotExist, Location: st.location, Pos: f.pos, Detail: f.name})
		return
	}
	source, ok := b.graph.Lookup(loc)
	if !ok {
		f.errs = append(f.errs, BuildError{Kind: ControlSourceDoesNotExist, Location: st.location, Pos: f.pos, Detail: string(loc)})
		return
	}
	if slices.Contains(st.chain, source) {
		f.errs = append(f.errs, BuildError{Kind: RecursiveControl, Location: st.location, Pos: f.pos, Detail: f.name})
		return
	}
	ecs.Insert(buf, f.entity, SourceImplementation, SourceImplementationData{Source: source})
	b.impls[f.entity] = source
	inner := buildContext{
		state: &sourceBuildState{
			source:   source,
			location: loc,
			scope:    map[string]Location{},
			chain:    append(slices.Clone(st.chain), source),
		},
		cache: ctx.cache,
	}
	b.build(inner, buf, f.entity, ast.Control)
}

// --- Helpers ---

func (b *Builder) attachErrors(buf *ecs.CommandBuffer, e ecs.Entity, errs []BuildError) {
	if len(errs) == 0 {
		return
	}
	for _, err := range errs {
		b.log.Warn("build error", zap.Error(err))
	}
	all := append(b.errs[e], errs...)
	b.errs[e] = all
	ecs.Insert(buf, e, BuildErrorOccurrence, slices.Clone(all))
}

// dropErrors removes the errors a source recorded on e.
func (b *Builder) dropErrors(buf *ecs.CommandBuffer, e ecs.Entity, loc Location) {
	kept := slices.DeleteFunc(slices.Clone(b.errs[e]), func(err BuildError) bool { return err.Location == loc })
	if len(kept) == 0 {
		delete(b.errs, e)
		buf.Remove(e, BuildErrorOccurrence)
		return
	}
	b.errs[e] = kept
	ecs.Insert(buf, e, BuildErrorOccurrence, slices.Clone(kept))
}

func (b *Builder) markRemoved(buf *ecs.CommandBuffer, entities []ecs.Entity) {
	for _, e := range entities {
		buf.Tag(e, Removed)
		b.removed[e] = struct{}{}
		b.Forget(e)
	}
}

// chainOf returns the sources of every implementation from the root down to
// impl.
func (b *Builder) chainOf(impl ecs.Entity) []ecs.Entity {
	var chain []ecs.Entity
	for cur := impl; cur != ecs.Null; {
		if src, ok := b.impls[cur]; ok {
			chain = append(chain, src)
		}
		rel, ok := b.rels.Get(cur)
		if !ok {
			break
		}
		cur = rel.Parent
	}
	slices.Reverse(chain)
	return chain
}

func (b *Builder) touch(buf *ecs.CommandBuffer, root ecs.Entity) {
	buf.Remove(root, Mapped)
	if !slices.Contains(b.touched, root) {
		b.touched = append(b.touched, root)
	}
}

func tokenBuildError(loc Location, err error) BuildError {
	be := BuildError{Kind: SemanticError, Location: loc, Pos: -1, Err: err}
	var ae *ast.Error
	if errors.As(err, &ae) {
		be.Pos = ae.Pos
		if ae.Kind == ast.SourceTokenError {
			be.Kind = SourceTokenError
		}
	}
	return be
}

func describe(tok ast.Token) string {
	if name, ok := elementNames[tok.Kind]; ok {
		return "<" + name + ">"
	}
	return "<" + tok.Str + ">"
}

func describeFrame(f *frame) string {
	if f.kind == ast.ControlImplementation {
		return "<" + f.name + ">"
	}
	return "<" + elementNames[f.kind] + ">"
}
