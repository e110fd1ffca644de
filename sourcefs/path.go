package sourcefs

import (
	"fmt"
	"path"
	"strings"

	"github.com/phanxgames/zoml"
)

// Extension is the file extension of zoml sources.
const Extension = ".zod"

// resolve joins rel onto the directory of base. Locations are slash
// separated and may not leave the source root.
func resolve(base zoml.Location, rel string) (zoml.Location, error) {
	if rel == "" {
		return "", fmt.Errorf("empty import path: %w", zoml.ErrDoesNotExist)
	}
	if path.IsAbs(rel) {
		return "", fmt.Errorf("import path %q is absolute: %w", rel, zoml.ErrDoesNotExist)
	}
	joined := path.Join(path.Dir(string(base)), rel)
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", fmt.Errorf("import path %q leaves the source root: %w", rel, zoml.ErrDoesNotExist)
	}
	return zoml.Location(joined), nil
}
