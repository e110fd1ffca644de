package zoml

import (
	"github.com/phanxgames/zoml/ecs"
)

// PrimitiveKind identifies the kind of draw primitive.
type PrimitiveKind uint8

const (
	PrimitiveRectangle PrimitiveKind = iota
	PrimitiveCircle
	PrimitiveText
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveRectangle:
		return "Rectangle"
	case PrimitiveCircle:
		return "Circle"
	case PrimitiveText:
		return "Text"
	}
	return "Unknown"
}

// DefaultFontSize applies to text without a font-size attribute.
const DefaultFontSize = 16

// Primitive is a single draw instruction handed to the Renderer. A single
// flat struct is used for all kinds; colours are floats in [0, 1].
type Primitive struct {
	Kind         PrimitiveKind
	Entity       ecs.Entity
	Position     [2]float32
	Dimensions   [2]float32
	Radius       float32
	Colour       [4]float32
	StrokeColour [4]float32
	StrokeWidth  float32
	CornerRadii  [4]float32

	// Text-only fields.
	Text     string
	FontSize float32
}

// RenderQueue turns laid out trees into frames of primitives.
type RenderQueue struct {
	world       *ecs.World
	rels        *RelationshipMap
	maps        *Maps
	errorColour RGBA
}

// NewRenderQueue creates a queue. Trees with build errors render as a
// single rectangle of errorColour.
func NewRenderQueue(w *ecs.World, rels *RelationshipMap, maps *Maps, errorColour RGBA) *RenderQueue {
	return &RenderQueue{world: w, rels: rels, maps: maps, errorColour: errorColour}
}

// Frame returns the primitives of the tree under root, in tree order.
func (q *RenderQueue) Frame(root ecs.Entity) []Primitive {
	if q.hasErrors(root) {
		cx, _ := ecs.Get(q.world, root, CurrentLayoutConstraints)
		return []Primitive{{
			Kind:       PrimitiveRectangle,
			Entity:     root,
			Position:   [2]float32{float32(cx.Left), float32(cx.Top)},
			Dimensions: [2]float32{float32(cx.Width), float32(cx.Height)},
			Colour:     q.errorColour.Floats(),
		}}
	}
	var frame []Primitive
	for e := range q.rels.Descendants(root) {
		if p, ok := q.primitive(e); ok {
			frame = append(frame, p)
		}
	}
	return frame
}

func (q *RenderQueue) hasErrors(root ecs.Entity) bool {
	if q.world.Has(root, BuildErrorOccurrence) {
		return true
	}
	for e := range q.rels.Descendants(root) {
		if q.world.Has(e, BuildErrorOccurrence) {
			return true
		}
	}
	return false
}

func (q *RenderQueue) primitive(e ecs.Entity) (Primitive, bool) {
	kind, ok := q.maps.Renderables[e]
	if !ok {
		return Primitive{}, false
	}
	r, ok := ecs.Get(q.world, e, LayoutChange)
	if !ok {
		return Primitive{}, false
	}
	paint := q.maps.Paint[e]
	p := Primitive{
		Entity:      e,
		Position:    [2]float32{float32(r.Left), float32(r.Top)},
		Dimensions:  [2]float32{float32(r.Width), float32(r.Height)},
		Colour:      paint.Colour.Floats(),
		StrokeWidth: float32(paint.StrokeWidth),
	}
	if paint.HasStrokeColour {
		p.StrokeColour = paint.StrokeColour.Floats()
	}
	switch kind {
	case RenderRectangle:
		p.Kind = PrimitiveRectangle
		for i, c := range paint.CornerRadii {
			p.CornerRadii[i] = float32(c)
		}
	case RenderCircle:
		p.Kind = PrimitiveCircle
		radius, _ := ecs.Get(q.world, e, Radius)
		p.Radius = float32(radius)
	case RenderText:
		p.Kind = PrimitiveText
		style := q.maps.Text[e]
		p.Text = style.Content
		p.FontSize = DefaultFontSize
		if style.FontSize > 0 {
			p.FontSize = float32(style.FontSize)
		}
		if !paint.HasColour {
			p.Colour = [4]float32{1, 1, 1, 1}
		}
	}
	return p, true
}
