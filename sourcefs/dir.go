package sourcefs

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/phanxgames/zoml"
)

// Dir serves the .zod sources under a directory. Locations are slash
// separated paths relative to the directory.
type Dir struct {
	root string
	log  *zap.Logger
}

var (
	_ zoml.SourceReader         = (*Dir)(nil)
	_ zoml.SourceLocationWalker = (*Dir)(nil)
)

// NewDir creates a Dir over root. A nil logger is replaced with a no-op one.
func NewDir(root string, log *zap.Logger) (*Dir, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source dir %s is not a directory", abs)
	}
	return &Dir{root: abs, log: log}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string { return d.root }

// Path returns the file path of loc.
func (d *Dir) Path(loc zoml.Location) string {
	return filepath.Join(d.root, filepath.FromSlash(string(loc)))
}

// Location returns the location of a file path under the directory.
func (d *Dir) Location(path string) (zoml.Location, bool) {
	rel, err := filepath.Rel(d.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return zoml.Location(filepath.ToSlash(rel)), true
}

// Read returns the content of loc.
func (d *Dir) Read(loc zoml.Location) (string, error) {
	data, err := os.ReadFile(d.Path(loc))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", loc, zoml.ErrSourceNotFound)
		}
		return "", fmt.Errorf("failed to read source %s: %w", loc, err)
	}
	return string(data), nil
}

// ResolveRelative joins rel onto the directory of base.
func (d *Dir) ResolveRelative(base zoml.Location, rel string) (zoml.Location, error) {
	return resolve(base, rel)
}

// Locations yields every .zod file under the directory in lexical order.
// Unreadable subdirectories are skipped with a warning.
func (d *Dir) Locations() iter.Seq[zoml.Location] {
	return func(yield func(zoml.Location) bool) {
		stop := errors.New("stop")
		err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				d.log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if entry.IsDir() || filepath.Ext(path) != Extension {
				return nil
			}
			loc, ok := d.Location(path)
			if !ok {
				return nil
			}
			if !yield(loc) {
				return stop
			}
			return nil
		})
		if err != nil && !errors.Is(err, stop) {
			d.log.Warn("source walk failed", zap.Error(err))
		}
	}
}
