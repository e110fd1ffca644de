package zoml

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/component"

	"github.com/phanxgames/zoml/ast"
	"github.com/phanxgames/zoml/ecs"
)

// --- Structural ---

// RelationshipData links an entity into the scene tree. [ecs.Null] means
// "none" for every field.
type RelationshipData struct {
	Parent      ecs.Entity
	PrevSibling ecs.Entity
	NextSibling ecs.Entity
	FirstChild  ecs.Entity
	LastChild   ecs.Entity
}

// SourceImplementationData points an implementation entity (a Root or a
// control instance) at the source file it is built from.
type SourceImplementationData struct {
	Source ecs.Entity
}

var (
	Root           = donburi.NewTag()
	Control        = donburi.NewTag()
	SourceFile     = donburi.NewTag()
	SourceFileRoot = donburi.NewTag()
	// Import marks the entity built for an <import> element.
	Import = donburi.NewTag()

	SourceImplementation = donburi.NewComponentType[SourceImplementationData]()
	Relationship         = donburi.NewComponentType[RelationshipData]()
	LayoutContent        = donburi.NewComponentType[LayoutKind]()
	Renderable           = donburi.NewComponentType[RenderableKind]()
)

// --- Attributes ---

var (
	Left         = donburi.NewComponentType[uint16]()
	Top          = donburi.NewComponentType[uint16]()
	Width        = donburi.NewComponentType[uint16]()
	Height       = donburi.NewComponentType[uint16]()
	Radius       = donburi.NewComponentType[uint16]()
	StrokeWidth  = donburi.NewComponentType[uint16]()
	CornerRadii  = donburi.NewComponentType[[4]uint16]()
	Colour       = donburi.NewComponentType[RGBA]()
	StrokeColour = donburi.NewComponentType[RGBA]()
	Content      = donburi.NewComponentType[string]()
	FontSize     = donburi.NewComponentType[uint8]()
	Name         = donburi.NewComponentType[string]()
	Path         = donburi.NewComponentType[string]()
)

// --- Derived ---

var (
	MinimumWidth             = donburi.NewComponentType[uint16]()
	MinimumHeight            = donburi.NewComponentType[uint16]()
	LayoutRequest            = donburi.NewComponentType[Rect]()
	LayoutChange             = donburi.NewComponentType[Rect]()
	CurrentLayoutConstraints = donburi.NewComponentType[Rect]()
)

// --- Markers ---

var (
	Rebuild               = donburi.NewTag()
	Mapped                = donburi.NewTag()
	Resized               = donburi.NewTag()
	Removed               = donburi.NewTag()
	SourceFileInitialRead = donburi.NewTag()
	SourceFileChange      = donburi.NewTag()
	SourceFileCreation    = donburi.NewTag()
	SourceFileRemoval     = donburi.NewTag()
	SourceFileParsed      = donburi.NewTag()

	// BuildErrorOccurrence holds every build error attached to an entity.
	BuildErrorOccurrence = donburi.NewComponentType[[]BuildError]()
)

// lifecycleMarkers are the per-tick source markers, at most one per source
// entity.
var lifecycleMarkers = []component.IComponentType{
	SourceFileInitialRead,
	SourceFileChange,
	SourceFileCreation,
	SourceFileRemoval,
}

// attributeComponents maps attribute token kinds to the component that
// stores them.
var attributeComponents = map[ast.Kind]component.IComponentType{
	ast.Left:         Left,
	ast.Top:          Top,
	ast.Width:        Width,
	ast.Height:       Height,
	ast.Radius:       Radius,
	ast.StrokeWidth:  StrokeWidth,
	ast.CornerRadii:  CornerRadii,
	ast.Colour:       Colour,
	ast.StrokeColour: StrokeColour,
	ast.Content:      Content,
	ast.FontSize:     FontSize,
	ast.Name:         Name,
	ast.Path:         Path,
}

// insertAttribute records the component for one attribute token.
func insertAttribute(buf *ecs.CommandBuffer, e ecs.Entity, tok ast.Token) {
	switch tok.Kind {
	case ast.Left:
		ecs.Insert(buf, e, Left, tok.U16)
	case ast.Top:
		ecs.Insert(buf, e, Top, tok.U16)
	case ast.Width:
		ecs.Insert(buf, e, Width, tok.U16)
	case ast.Height:
		ecs.Insert(buf, e, Height, tok.U16)
	case ast.Radius:
		ecs.Insert(buf, e, Radius, tok.U16)
	case ast.StrokeWidth:
		ecs.Insert(buf, e, StrokeWidth, tok.U16)
	case ast.CornerRadii:
		ecs.Insert(buf, e, CornerRadii, tok.Radii)
	case ast.Colour:
		ecs.Insert(buf, e, Colour, tok.Colour)
	case ast.StrokeColour:
		ecs.Insert(buf, e, StrokeColour, tok.Colour)
	case ast.Content:
		ecs.Insert(buf, e, Content, tok.Str)
	case ast.FontSize:
		ecs.Insert(buf, e, FontSize, tok.U8)
	case ast.Name:
		ecs.Insert(buf, e, Name, tok.Str)
	case ast.Path:
		ecs.Insert(buf, e, Path, tok.Str)
	default:
		panic("zoml: " + tok.Kind.String() + " is not an attribute")
	}
}
