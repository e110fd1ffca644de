package ebitenrender

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"

	"github.com/phanxgames/zoml"
	"github.com/phanxgames/zoml/ecs"
)

// ErrClosed is returned by Submit once the window has gone away.
var ErrClosed = errors.New("ebitenrender: renderer closed")

// Config configures a Renderer.
type Config struct {
	// Width and Height are the window dimensions reported before the first
	// layout.
	Width, Height int
	// Transition is how long, in seconds, a moved primitive takes to reach
	// its new rect. 0 snaps.
	Transition float32
	// Ease shapes transitions. Defaults to ease.OutQuad.
	Ease ease.TweenFunc
	// Background fills the screen before every draw. Defaults to black.
	Background color.Color
	// Font is TTF or OTF data for text. Defaults to Go regular.
	Font []byte
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// item is a primitive together with the rect it is currently drawn at.
type item struct {
	zoml.Primitive
	rect [4]float32
}

// Renderer retains the last submitted frame and draws it every Draw.
type Renderer struct {
	log        *zap.Logger
	width      uint16
	height     uint16
	background color.Color
	transition float32
	easing     ease.TweenFunc
	fonts      *fontCache

	items  []item
	index  map[ecs.Entity]int
	tweens map[ecs.Entity]*rectTween
	frames uint64
	closed bool

	vertices []ebiten.Vertex
	indices  []uint16
}

// New creates a renderer.
func New(cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Width > math.MaxUint16 || cfg.Height <= 0 || cfg.Height > math.MaxUint16 {
		return nil, errors.New("ebitenrender: invalid window size")
	}
	if cfg.Transition < 0 {
		return nil, errors.New("ebitenrender: negative transition")
	}
	fonts, err := newFontCache(cfg.Font)
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		log:        cfg.Logger,
		width:      uint16(cfg.Width),
		height:     uint16(cfg.Height),
		background: cfg.Background,
		transition: cfg.Transition,
		easing:     cfg.Ease,
		fonts:      fonts,
		index:      make(map[ecs.Entity]int),
		tweens:     make(map[ecs.Entity]*rectTween),
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.background == nil {
		r.background = color.Black
	}
	if r.easing == nil {
		r.easing = ease.OutQuad
	}
	return r, nil
}

// WindowDimensions returns the size of the drawable area.
func (r *Renderer) WindowDimensions() (width, height uint16) {
	return r.width, r.height
}

// Submit replaces the retained frame. Primitives that were already on screen
// tween from where they are drawn now to their new rect.
func (r *Renderer) Submit(frame []zoml.Primitive) error {
	if r.closed {
		return ErrClosed
	}
	items := make([]item, len(frame))
	index := make(map[ecs.Entity]int, len(frame))
	tweens := make(map[ecs.Entity]*rectTween)
	for i, p := range frame {
		target := [4]float32{p.Position[0], p.Position[1], p.Dimensions[0], p.Dimensions[1]}
		it := item{Primitive: p, rect: target}
		if prev, ok := r.index[p.Entity]; ok && r.transition > 0 {
			from := r.items[prev].rect
			if from != target {
				it.rect = from
				tweens[p.Entity] = newRectTween(from, target, r.transition, r.easing)
			}
		}
		items[i] = it
		index[p.Entity] = i
	}
	r.items, r.index, r.tweens = items, index, tweens
	r.frames++
	r.log.Debug("frame submitted", zap.Int("primitives", len(frame)), zap.Uint64("frame", r.frames))
	return nil
}

// Close makes every later Submit fail.
func (r *Renderer) Close() { r.closed = true }

// Animating reports whether any transition is still running.
func (r *Renderer) Animating() bool { return len(r.tweens) > 0 }

// Update advances transitions by dt seconds.
func (r *Renderer) Update(dt float32) {
	for e, tw := range r.tweens {
		if tw.update(dt, &r.items[r.index[e]].rect) {
			delete(r.tweens, e)
		}
	}
}

// setSize records the drawable area and reports whether it changed.
func (r *Renderer) setSize(width, height int) bool {
	w := uint16(min(max(width, 1), math.MaxUint16))
	h := uint16(min(max(height, 1), math.MaxUint16))
	if w == r.width && h == r.height {
		return false
	}
	r.width, r.height = w, h
	return true
}

// --- Drawing ---

// Draw paints the retained frame onto screen.
func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Fill(r.background)
	for i := range r.items {
		it := &r.items[i]
		switch it.Kind {
		case zoml.PrimitiveRectangle:
			r.drawRectangle(screen, it)
		case zoml.PrimitiveCircle:
			r.drawCircle(screen, it)
		case zoml.PrimitiveText:
			r.drawText(screen, it)
		}
	}
}

func (r *Renderer) drawRectangle(screen *ebiten.Image, it *item) {
	x, y, w, h := it.rect[0], it.rect[1], it.rect[2], it.rect[3]
	if it.CornerRadii == ([4]float32{}) {
		if visible(it.Colour) {
			vector.DrawFilledRect(screen, x, y, w, h, toColor(it.Colour), true)
		}
		if it.StrokeWidth > 0 && visible(it.StrokeColour) {
			vector.StrokeRect(screen, x, y, w, h, it.StrokeWidth, toColor(it.StrokeColour), true)
		}
		return
	}
	path := roundedRect(x, y, w, h, it.CornerRadii)
	if visible(it.Colour) {
		r.vertices, r.indices = path.AppendVerticesAndIndicesForFilling(r.vertices[:0], r.indices[:0])
		r.drawPath(screen, it.Colour)
	}
	if it.StrokeWidth > 0 && visible(it.StrokeColour) {
		r.vertices, r.indices = path.AppendVerticesAndIndicesForStroke(r.vertices[:0], r.indices[:0],
			&vector.StrokeOptions{Width: it.StrokeWidth})
		r.drawPath(screen, it.StrokeColour)
	}
}

func (r *Renderer) drawCircle(screen *ebiten.Image, it *item) {
	radius := it.Radius
	if radius == 0 {
		radius = min(it.rect[2], it.rect[3]) / 2
	}
	cx, cy := it.rect[0]+it.rect[2]/2, it.rect[1]+it.rect[3]/2
	if visible(it.Colour) {
		vector.DrawFilledCircle(screen, cx, cy, radius, toColor(it.Colour), true)
	}
	if it.StrokeWidth > 0 && visible(it.StrokeColour) {
		vector.StrokeCircle(screen, cx, cy, radius, it.StrokeWidth, toColor(it.StrokeColour), true)
	}
}

func (r *Renderer) drawText(screen *ebiten.Image, it *item) {
	face := r.fonts.face(it.FontSize)
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(it.rect[0]), float64(it.rect[1]))
	op.ColorScale.Scale(it.Colour[0]*it.Colour[3], it.Colour[1]*it.Colour[3], it.Colour[2]*it.Colour[3], it.Colour[3])
	op.LineSpacing = lineHeight(face)
	text.Draw(screen, it.Text, face, op)
}

func (r *Renderer) drawPath(screen *ebiten.Image, c [4]float32) {
	for i := range r.vertices {
		v := &r.vertices[i]
		v.SrcX, v.SrcY = 1, 1
		v.ColorR, v.ColorG, v.ColorB, v.ColorA = c[0], c[1], c[2], c[3]
	}
	screen.DrawTriangles(r.vertices, r.indices, whitePixel(), &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

// roundedRect traces a rect with per-corner radii in the order top-left,
// top-right, bottom-right, bottom-left. Radii are clamped to half the
// shorter side.
func roundedRect(x, y, w, h float32, radii [4]float32) *vector.Path {
	limit := min(w, h) / 2
	var rad [4]float32
	for i, c := range radii {
		rad[i] = min(max(c, 0), limit)
	}
	var p vector.Path
	p.MoveTo(x+rad[0], y)
	p.LineTo(x+w-rad[1], y)
	p.ArcTo(x+w, y, x+w, y+rad[1], rad[1])
	p.LineTo(x+w, y+h-rad[2])
	p.ArcTo(x+w, y+h, x+w-rad[2], y+h, rad[2])
	p.LineTo(x+rad[3], y+h)
	p.ArcTo(x, y+h, x, y+h-rad[3], rad[3])
	p.LineTo(x, y+rad[0])
	p.ArcTo(x, y, x+rad[0], y, rad[0])
	p.Close()
	return &p
}

var whitePixelImage *ebiten.Image

// whitePixel returns the centre of a 3x3 white image, used as the source of
// untextured triangles.
func whitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		whitePixelImage = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return whitePixelImage
}

func visible(c [4]float32) bool { return c[3] > 0 }

func toColor(c [4]float32) color.NRGBA {
	q := func(f float32) uint8 { return uint8(math.Round(float64(min(max(f, 0), 1)) * 255)) }
	return color.NRGBA{R: q(c[0]), G: q(c[1]), B: q(c[2]), A: q(c[3])}
}
