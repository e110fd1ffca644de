package zoml

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/phanxgames/zoml/ecs"
)

// Options configures an App. Root, Reader and Renderer are required.
type Options struct {
	// Root is the entry point source.
	Root Location
	// Reader reads sources and resolves import paths.
	Reader SourceReader
	// Walker lists the sources read at startup. When nil only Root is read.
	Walker SourceLocationWalker
	// Monitor reports source changes. When nil sources are read once.
	Monitor FileMonitor
	// Renderer receives a frame whenever a tree is laid out.
	Renderer Renderer
	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorColour fills trees with build errors. The zero value means
	// ColourRed.
	ErrorColour RGBA
	// ReadConcurrency bounds concurrent reads during discovery. Defaults
	// to 8.
	ReadConcurrency int
	Debug           bool
}

// OptionsFromConfig fills the configurable parts of Options from cfg.
func OptionsFromConfig(cfg *Config, root Location) Options {
	return Options{
		Root:            root,
		ErrorColour:     cfg.ErrorRGBA(),
		ReadConcurrency: cfg.ReadConcurrency,
		Debug:           cfg.Debug,
	}
}

// App owns the world and the tick pipeline that keeps it in sync with the
// sources.
type App struct {
	world *ecs.World
	log   *zap.Logger
	debug bool

	reader          SourceReader
	walker          SourceLocationWalker
	monitor         FileMonitor
	renderer        Renderer
	readConcurrency int

	rels        *RelationshipMap
	graph       *SourceGraph
	builder     *Builder
	maps        *Maps
	layout      *Layout
	renderQueue *RenderQueue
	scheduler   *Scheduler

	// Per-tick state.
	discovered    bool
	queue         buildQueue
	window        [2]uint16
	windowKnown   bool
	screenResized bool
	cleared       bool
	frame         []Primitive
}

// New creates an App. Sources are first read on the first Tick.
func New(opts Options) (*App, error) {
	if opts.Root == "" {
		return nil, errors.New("zoml: no root source")
	}
	if opts.Reader == nil {
		return nil, errors.New("zoml: no source reader")
	}
	if opts.Renderer == nil {
		return nil, errors.New("zoml: no renderer")
	}
	if opts.ReadConcurrency < 0 {
		return nil, fmt.Errorf("zoml: invalid read concurrency %d", opts.ReadConcurrency)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ReadConcurrency == 0 {
		opts.ReadConcurrency = 8
	}
	if opts.ErrorColour == (RGBA{}) {
		opts.ErrorColour = ColourRed
	}

	w := ecs.NewWorld(log)
	a := &App{
		world:           w,
		log:             log,
		reader:          opts.Reader,
		walker:          opts.Walker,
		monitor:         opts.Monitor,
		renderer:        opts.Renderer,
		readConcurrency: opts.ReadConcurrency,
		rels:            NewRelationshipMap(),
		maps:            NewMaps(),
		queue:           buildQueue{buildRoot: ecs.Null},
	}
	a.graph = NewSourceGraph(opts.Reader, opts.Root, log.Named("sources"))
	a.builder = NewBuilder(w, a.rels, a.graph, opts.Reader, log.Named("builder"))
	a.layout = NewLayout(a.rels, a.maps)
	a.renderQueue = NewRenderQueue(w, a.rels, a.maps, opts.ErrorColour)
	a.scheduler = NewScheduler(w, log.Named("scheduler"), a.stages()...)
	ecs.SystemEventType.Subscribe(w.World, a.onSystemEvent)
	a.SetDebugMode(opts.Debug)
	return a, nil
}

// World returns the entity store.
func (a *App) World() *ecs.World { return a.world }

// Logger returns the app's logger.
func (a *App) Logger() *zap.Logger { return a.log }

// Scheduler returns the tick scheduler.
func (a *App) Scheduler() *Scheduler { return a.scheduler }

// Relationships returns the relationship index.
func (a *App) Relationships() *RelationshipMap { return a.rels }

// Root returns the live Root entity, if the root source has been built.
func (a *App) Root() (ecs.Entity, bool) { return a.builder.Root() }

// Frame returns the last frame handed to the renderer.
func (a *App) Frame() []Primitive { return a.frame }

// SetDebugMode enables per-system timings and tree depth warnings.
func (a *App) SetDebugMode(enabled bool) {
	a.debug = enabled
	a.scheduler.SetDebugMode(enabled)
}

// Tick runs the pipeline once. Build and read problems never fail a tick:
// build errors are recorded on entities and unreadable sources are retried
// on the next ticks. Tick returns an error only when the file monitor or the
// renderer fails; both are fatal.
func (a *App) Tick() error {
	return a.scheduler.Tick()
}

// Resize queues a window resize; the next Tick lays every root out at the
// new size.
func (a *App) Resize(width, height uint16) {
	ecs.PublishResize(a.world.World, width, height)
}

// EntityError is a build error together with the entity it is recorded on.
type EntityError struct {
	Entity ecs.Entity
	Err    BuildError
}

// Errors returns every build error in the current tree, in tree order.
func (a *App) Errors() []EntityError {
	root, ok := a.builder.Root()
	if !ok {
		return nil
	}
	var out []EntityError
	collect := func(e ecs.Entity) {
		for _, err := range a.builder.Errors(e) {
			out = append(out, EntityError{Entity: e, Err: err})
		}
	}
	collect(root)
	for e := range a.rels.Descendants(root) {
		collect(e)
	}
	return out
}
