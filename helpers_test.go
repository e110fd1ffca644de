package zoml

import (
	"fmt"
	"path"
	"slices"
	"testing"

	"github.com/phanxgames/zoml/ast"
	"github.com/phanxgames/zoml/ecs"
)

// memReader is a SourceReader over a map.
type memReader map[Location]string

func (m memReader) Read(loc Location) (string, error) {
	content, ok := m[loc]
	if !ok {
		return "", fmt.Errorf("read %s: %w", loc, ErrSourceNotFound)
	}
	return content, nil
}

func (m memReader) ResolveRelative(base Location, rel string) (Location, error) {
	if rel == "" || path.IsAbs(rel) {
		return "", ErrDoesNotExist
	}
	return Location(path.Join(path.Dir(string(base)), rel)), nil
}

// buildFixture wires a builder over an in-memory source tree whose root is
// main.zod.
type buildFixture struct {
	w      *ecs.World
	buf    *ecs.CommandBuffer
	rels   *RelationshipMap
	graph  *SourceGraph
	b      *Builder
	reader memReader
}

func newBuildFixture(t *testing.T, files map[Location]string) *buildFixture {
	t.Helper()
	w := ecs.NewWorld(nil)
	reader := memReader(files)
	f := &buildFixture{
		w:      w,
		buf:    ecs.NewCommandBuffer(w, "test"),
		rels:   NewRelationshipMap(),
		reader: reader,
	}
	f.graph = NewSourceGraph(reader, "main.zod", nil)
	f.b = NewBuilder(w, f.rels, f.graph, reader, nil)
	locs := make([]Location, 0, len(files))
	for loc := range files {
		locs = append(locs, loc)
	}
	slices.Sort(locs)
	for _, loc := range locs {
		f.graph.Discover(w, loc, files[loc])
	}
	f.buf.Flush()
	return f
}

func (f *buildFixture) source(t *testing.T, loc Location) ecs.Entity {
	t.Helper()
	e, ok := f.graph.Lookup(loc)
	if !ok {
		t.Fatalf("no source %s", loc)
	}
	return e
}

func (f *buildFixture) buildRoot(t *testing.T) ecs.Entity {
	t.Helper()
	r := f.b.BuildRoot(f.buf, f.source(t, "main.zod"))
	f.buf.Flush()
	return r
}

// modify replaces the content of loc the way the file watcher would.
func (f *buildFixture) modify(t *testing.T, loc Location, content string) {
	t.Helper()
	f.reader[loc] = content
	f.graph.Apply(f.w, FileEvent{Kind: FileModified, Location: loc})
}

func (f *buildFixture) children(e ecs.Entity) []ecs.Entity {
	return slices.Collect(f.rels.Children(e))
}

func (f *buildFixture) errorKinds(e ecs.Entity) []BuildErrorKind {
	var kinds []BuildErrorKind
	errs, _ := ecs.Get(f.w, e, BuildErrorOccurrence)
	for _, err := range errs {
		kinds = append(kinds, err.Kind)
	}
	return kinds
}

func tok(kind ast.Kind, u16 uint16) ast.Token {
	return ast.Token{Kind: kind, U16: u16}
}
