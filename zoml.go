package zoml

import (
	"fmt"

	"github.com/phanxgames/zoml/ast"
)

// RGBA is a colour with 8-bit channels. Floats appear only at the renderer
// boundary, see [RGBA.Floats].
type RGBA = ast.RGBA

// ColourRed is the default error placeholder colour.
var ColourRed = RGBA{R: 255, A: 255}

// Rect is an axis-aligned rectangle in window pixels. The origin is the
// top-left, with Top increasing downward.
type Rect struct {
	Left, Top, Width, Height uint16
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= float64(r.Left) && x <= float64(r.Left)+float64(r.Width) &&
		y >= float64(r.Top) && y <= float64(r.Top)+float64(r.Height)
}

// Offset returns r moved by (dx, dy), saturating at the uint16 range.
func (r Rect) Offset(dx, dy uint16) Rect {
	r.Left = addSat(r.Left, dx)
	r.Top = addSat(r.Top, dy)
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.Left, r.Top, r.Width, r.Height)
}

// LayoutKind selects how a container positions its children.
type LayoutKind uint8

const (
	LayoutCanvas     LayoutKind = iota // children at their own left/top
	LayoutHorizontal                   // children side by side
	LayoutVertical                     // children stacked top to bottom
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutCanvas:
		return "Canvas"
	case LayoutHorizontal:
		return "Horizontal"
	case LayoutVertical:
		return "Vertical"
	}
	return fmt.Sprintf("LayoutKind(%d)", uint8(k))
}

// RenderableKind identifies the primitive a leaf draws as.
type RenderableKind uint8

const (
	RenderRectangle RenderableKind = iota
	RenderCircle
	RenderText
)

func (k RenderableKind) String() string {
	switch k {
	case RenderRectangle:
		return "Rectangle"
	case RenderCircle:
		return "Circle"
	case RenderText:
		return "Text"
	}
	return fmt.Sprintf("RenderableKind(%d)", uint8(k))
}

func addSat(a, b uint16) uint16 {
	if s := uint32(a) + uint32(b); s <= 0xFFFF {
		return uint16(s)
	}
	return 0xFFFF
}

func subSat(a, b uint16) uint16 {
	if a < b {
		return 0
	}
	return a - b
}
