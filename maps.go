package zoml

import (
	"github.com/yohamta/donburi"

	"github.com/phanxgames/zoml/ecs"
)

// TextStyle is the text payload of a Text renderable.
type TextStyle struct {
	Content  string
	FontSize uint8
}

// Paint collects the colour attributes of a renderable. The Has flags tell
// an absent colour from a transparent one.
type Paint struct {
	Colour          RGBA
	HasColour       bool
	StrokeColour    RGBA
	HasStrokeColour bool
	StrokeWidth     uint16
	CornerRadii     [4]uint16
}

// Maps are the derived indices read by measurement, layout and the render
// queue. They are rebuilt from components for every entity without Mapped;
// an absent component deletes the stale key.
type Maps struct {
	LayoutType    map[ecs.Entity]LayoutKind
	Renderables   map[ecs.Entity]RenderableKind
	Left          map[ecs.Entity]uint16
	Top           map[ecs.Entity]uint16
	Width         map[ecs.Entity]uint16
	Height        map[ecs.Entity]uint16
	MinimumWidth  map[ecs.Entity]uint16
	MinimumHeight map[ecs.Entity]uint16
	Text          map[ecs.Entity]TextStyle
	Paint         map[ecs.Entity]Paint
}

// NewMaps returns empty maps.
func NewMaps() *Maps {
	return &Maps{
		LayoutType:    make(map[ecs.Entity]LayoutKind),
		Renderables:   make(map[ecs.Entity]RenderableKind),
		Left:          make(map[ecs.Entity]uint16),
		Top:           make(map[ecs.Entity]uint16),
		Width:         make(map[ecs.Entity]uint16),
		Height:        make(map[ecs.Entity]uint16),
		MinimumWidth:  make(map[ecs.Entity]uint16),
		MinimumHeight: make(map[ecs.Entity]uint16),
		Text:          make(map[ecs.Entity]TextStyle),
		Paint:         make(map[ecs.Entity]Paint),
	}
}

// Participates reports whether e takes part in layout.
func (m *Maps) Participates(e ecs.Entity) bool {
	if _, ok := m.LayoutType[e]; ok {
		return true
	}
	_, ok := m.Renderables[e]
	return ok
}

// Forget drops e from every map.
func (m *Maps) Forget(e ecs.Entity) {
	delete(m.LayoutType, e)
	delete(m.Renderables, e)
	delete(m.Left, e)
	delete(m.Top, e)
	delete(m.Width, e)
	delete(m.Height, e)
	delete(m.MinimumWidth, e)
	delete(m.MinimumHeight, e)
	delete(m.Text, e)
	delete(m.Paint, e)
}

// --- Builders, one per map group ---

// BuildLayoutType indexes the layout and renderable kinds of e.
func (m *Maps) BuildLayoutType(w *ecs.World, e ecs.Entity) {
	syncValue(m.LayoutType, w, e, LayoutContent)
	syncValue(m.Renderables, w, e, Renderable)
}

// BuildOffsets indexes Left and Top of e.
func (m *Maps) BuildOffsets(w *ecs.World, e ecs.Entity) {
	syncValue(m.Left, w, e, Left)
	syncValue(m.Top, w, e, Top)
}

// BuildSizes indexes Width and Height of e. A circle's size is its
// diameter.
func (m *Maps) BuildSizes(w *ecs.World, e ecs.Entity) {
	if kind, ok := ecs.Get(w, e, Renderable); ok && kind == RenderCircle {
		if r, ok := ecs.Get(w, e, Radius); ok {
			d := addSat(r, r)
			m.Width[e], m.Height[e] = d, d
			return
		}
	}
	syncValue(m.Width, w, e, Width)
	syncValue(m.Height, w, e, Height)
}

// BuildMinimums indexes previously measured minimums of e.
func (m *Maps) BuildMinimums(w *ecs.World, e ecs.Entity) {
	syncValue(m.MinimumWidth, w, e, MinimumWidth)
	syncValue(m.MinimumHeight, w, e, MinimumHeight)
}

// BuildText indexes the text payload of e.
func (m *Maps) BuildText(w *ecs.World, e ecs.Entity) {
	content, ok := ecs.Get(w, e, Content)
	if !ok {
		delete(m.Text, e)
		return
	}
	size, _ := ecs.Get(w, e, FontSize)
	m.Text[e] = TextStyle{Content: content, FontSize: size}
}

// BuildPaint indexes the colour attributes of e.
func (m *Maps) BuildPaint(w *ecs.World, e ecs.Entity) {
	if _, ok := ecs.Get(w, e, Renderable); !ok {
		delete(m.Paint, e)
		return
	}
	var p Paint
	p.Colour, p.HasColour = ecs.Get(w, e, Colour)
	p.StrokeColour, p.HasStrokeColour = ecs.Get(w, e, StrokeColour)
	p.StrokeWidth, _ = ecs.Get(w, e, StrokeWidth)
	p.CornerRadii, _ = ecs.Get(w, e, CornerRadii)
	m.Paint[e] = p
}

func syncValue[T any](dst map[ecs.Entity]T, w *ecs.World, e ecs.Entity, c *donburi.ComponentType[T]) {
	if v, ok := ecs.Get(w, e, c); ok {
		dst[e] = v
		return
	}
	delete(dst, e)
}
