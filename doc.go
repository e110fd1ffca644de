// Package zoml builds and lays out user interfaces declared in .zod source
// files, keeping the result in sync as the sources change.
//
// Sources are read through a [SourceReader], tokenized, lifted into semantic
// tokens and built into a tree of entities in an ECS world. Every tick the
// [App] picks up file events, rebuilds only the implementations whose source
// changed, measures and lays out the tree, and hands the renderer a frame of
// [Primitive] values.
//
// # Quick start
//
//	sources := sourcefs.NewMemory(map[zoml.Location]string{
//		"main.zod": `<root><circle left=10 top=10 radius=20 colour=(1,0,0,1)/></root>`,
//	})
//	app, err := zoml.New(zoml.Options{
//		Root:     "main.zod",
//		Reader:   sources,
//		Walker:   sources,
//		Monitor:  sources,
//		Renderer: renderer,
//	})
//	...
//	for {
//		if err := app.Tick(); err != nil {
//			return err
//		}
//	}
//
// The ebitenrender package supplies a windowed renderer and game loop.
//
// # Sources
//
// A source is either the root file, whose top element is <root>, or a
// control file, whose top element is <control>. A root or control imports
// other controls by name:
//
//	<import name="card" path="card.zod"/>
//
// and instantiates them like built-in elements. Import paths are relative to
// the importing file. Editing a control rebuilds every place it is used.
//
// # Layout
//
// Containers are canvas, horizontal-stack and vertical-stack. Stacks give
// children with a fixed size exactly that size and share the rest equally
// among the others. Canvases place children at their left and top offsets.
// Renderables are rect, circle and text.
//
// # Errors
//
// Malformed properties and elements never abort a build. They are recorded
// as [BuildError] values on the entity being built, see [App.Errors]; a tree
// with errors renders as a single rectangle of the configured error colour.
package zoml
