// Package sourcefs provides the source collaborators of a zoml App: readers
// that load .zod sources, walkers that list them at startup and monitors that
// report their changes.
//
// Dir serves a directory on disk and watches it with fsnotify. Memory keeps
// sources in a map and is what tests and embedded apps use.
package sourcefs
