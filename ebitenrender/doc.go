// Package ebitenrender draws zoml frames with Ebitengine.
//
// A [Renderer] implements zoml.Renderer: each submitted frame replaces the
// retained one, and primitives whose rect changed tween from their previous
// place. [Run] opens the window and drives the app from the game loop:
//
//	r := ebitenrender.New(ebitenrender.Config{Width: 800, Height: 600})
//	app, err := zoml.New(zoml.Options{Root: root, Reader: dir, Renderer: r})
//	...
//	err = ebitenrender.Run(app, r, ebitenrender.RunConfig{Title: "zoml"})
//
// Rectangles and circles are drawn with the vector package. Text uses the Go
// regular font at the primitive's font size.
package ebitenrender
