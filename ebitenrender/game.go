package ebitenrender

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"

	"github.com/phanxgames/zoml"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title     string
	Resizable bool
	// ShowFPS prints the frame and tick rates in the top-left corner.
	ShowFPS bool
}

// Game adapts an App and its Renderer to ebiten.Game. Use it directly when
// the host owns the game loop; Run wraps it for the common case.
type Game struct {
	app      *zoml.App
	renderer *Renderer
	showFPS  bool
	pressed  bool
}

// NewGame binds app to the renderer it was created with.
func NewGame(app *zoml.App, r *Renderer) *Game {
	return &Game{app: app, renderer: r}
}

// Update forwards a left click to the app, runs one tick and advances
// transitions. A tick error stops the loop.
func (g *Game) Update() error {
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if pressed && !g.pressed {
		mx, my := ebiten.CursorPosition()
		g.app.Pointer(float64(mx), float64(my))
	}
	g.pressed = pressed

	if err := g.app.Tick(); err != nil {
		g.renderer.Close()
		return err
	}
	g.renderer.Update(float32(1.0 / float64(ebiten.TPS())))
	return nil
}

// Draw paints the retained frame.
func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
	if g.showFPS {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("FPS: %.0f  TPS: %.0f",
			ebiten.ActualFPS(), ebiten.ActualTPS()), 4, 4)
	}
}

// Layout lays the app out at the outside size of the window.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.renderer.setSize(outsideWidth, outsideHeight) {
		w, h := g.renderer.WindowDimensions()
		g.renderer.log.Debug("window resized", zap.Uint16("width", w), zap.Uint16("height", h))
		g.app.Resize(w, h)
	}
	return outsideWidth, outsideHeight
}

// Run opens a window and drives app until the window is closed or a tick
// fails.
func Run(app *zoml.App, r *Renderer, cfg RunConfig) error {
	w, h := r.WindowDimensions()
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	ebiten.SetWindowSize(int(w), int(h))
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	g := NewGame(app, r)
	g.showFPS = cfg.ShowFPS
	defer r.Close()
	return ebiten.RunGame(g)
}
