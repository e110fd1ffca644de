// Package ast lifts the lexical token stream of package token into semantic
// tokens: element kinds, typed attributes and CompleteControl markers.
//
// The stream is resilient. A bad attribute yields one error item and the fold
// carries on with the next token, so a single typo never hides the rest of a
// source file from the builder.
package ast

import (
	"fmt"
	"strconv"
)

// Kind identifies an AST token. Element kinds come first, then
// CompleteControl, then attribute kinds.
type Kind uint8

const (
	Root Kind = iota
	Control
	Import
	Canvas
	HorizontalStack
	VerticalStack
	Rect
	Circle
	Text
	ControlImplementation // reference to a user-defined control by name
	CompleteControl       // end of the most recently opened element

	Left
	Top
	Width
	Height
	Radius
	StrokeWidth
	CornerRadii
	Colour
	StrokeColour
	Content
	FontSize
	Name
	Path
)

var kindNames = [...]string{
	Root:                  "Root",
	Control:               "Control",
	Import:                "Import",
	Canvas:                "Canvas",
	HorizontalStack:       "HorizontalStack",
	VerticalStack:         "VerticalStack",
	Rect:                  "Rect",
	Circle:                "Circle",
	Text:                  "Text",
	ControlImplementation: "ControlImplementation",
	CompleteControl:       "CompleteControl",
	Left:                  "Left",
	Top:                   "Top",
	Width:                 "Width",
	Height:                "Height",
	Radius:                "Radius",
	StrokeWidth:           "StrokeWidth",
	CornerRadii:           "CornerRadii",
	Colour:                "Colour",
	StrokeColour:          "StrokeColour",
	Content:               "Content",
	FontSize:              "FontSize",
	Name:                  "Name",
	Path:                  "Path",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsElement reports whether k opens an element.
func (k Kind) IsElement() bool { return k <= ControlImplementation }

// IsAttribute reports whether k is a typed attribute.
func (k Kind) IsAttribute() bool { return k >= Left }

// elements maps source element names to kinds. Any other name is a
// ControlImplementation.
var elements = map[string]Kind{
	"root":             Root,
	"control":          Control,
	"import":           Import,
	"canvas":           Canvas,
	"horizontal-stack": HorizontalStack,
	"vertical-stack":   VerticalStack,
	"rect":             Rect,
	"circle":           Circle,
	"text":             Text,
}

// ElementKind returns the kind for an element name.
func ElementKind(name string) Kind {
	if k, ok := elements[name]; ok {
		return k
	}
	return ControlImplementation
}

// RGBA is a colour with 8-bit channels.
type RGBA struct {
	R, G, B, A uint8
}

// Floats returns the channels scaled to [0, 1].
func (c RGBA) Floats() [4]float32 {
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

// Token is a semantic token. A single flat struct carries every payload;
// only the fields relevant to Kind are set:
//
//	ControlImplementation, Content, Name, Path -> Str
//	Left, Top, Width, Height, Radius, StrokeWidth -> U16
//	FontSize -> U8
//	Colour, StrokeColour -> Colour
//	CornerRadii -> Radii
type Token struct {
	Kind   Kind
	Str    string
	U16    uint16
	U8     uint8
	Colour RGBA
	Radii  [4]uint16
	Pos    int
}

// String returns the debug form, e.g. Radius(1) or ControlImplementation(big).
func (t Token) String() string {
	switch t.Kind {
	case ControlImplementation, Content, Name, Path:
		return t.Kind.String() + "(" + strconv.Quote(t.Str) + ")"
	case Left, Top, Width, Height, Radius, StrokeWidth:
		return t.Kind.String() + "(" + strconv.Itoa(int(t.U16)) + ")"
	case FontSize:
		return t.Kind.String() + "(" + strconv.Itoa(int(t.U8)) + ")"
	case Colour, StrokeColour:
		return fmt.Sprintf("%s(%d,%d,%d,%d)", t.Kind, t.Colour.R, t.Colour.G, t.Colour.B, t.Colour.A)
	case CornerRadii:
		return fmt.Sprintf("%s(%d,%d,%d,%d)", t.Kind, t.Radii[0], t.Radii[1], t.Radii[2], t.Radii[3])
	default:
		return t.Kind.String()
	}
}

// Result is one item of an AST stream: a token or an error.
type Result struct {
	Token Token
	Err   error
}
