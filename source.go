package zoml

import "iter"

// Location identifies a source file. Its format belongs to the SourceReader
// that produced it (a slash path for the bundled readers).
type Location string

// SourceReader loads sources and resolves import paths.
type SourceReader interface {
	// Read returns the content at loc, or an error wrapping ErrSourceNotFound.
	Read(loc Location) (string, error)
	// ResolveRelative resolves rel against the location of the importing
	// source, or returns an error wrapping ErrDoesNotExist.
	ResolveRelative(base Location, rel string) (Location, error)
}

// SourceLocationWalker enumerates the sources present at startup.
type SourceLocationWalker interface {
	Locations() iter.Seq[Location]
}

// FileEventKind is the kind of change a FileMonitor reports.
type FileEventKind uint8

const (
	FileCreated FileEventKind = iota + 1
	FileModified
	FileDeleted
)

func (k FileEventKind) String() string {
	switch k {
	case FileCreated:
		return "Create"
	case FileModified:
		return "Modify"
	case FileDeleted:
		return "Delete"
	}
	return "Unknown"
}

// FileEvent is one change to a source location.
type FileEvent struct {
	Kind     FileEventKind
	Location Location
}

// FileMonitor reports source changes without blocking.
type FileMonitor interface {
	// TryNext returns the next pending event. It returns ErrNoFileChanges when
	// nothing is pending and ErrNoLongerMonitoring once the monitor is closed.
	TryNext() (FileEvent, error)
}

// Renderer consumes frames of primitives.
type Renderer interface {
	WindowDimensions() (width, height uint16)
	// Submit replaces the displayed frame. An error is fatal for the window.
	Submit(frame []Primitive) error
}
