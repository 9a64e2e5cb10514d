package images

import (
	"crypto/md5"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Checksum generates a deterministic checksum of a raster's pixels and dimensions.
// Used to verify that a transform round-trip reproduces the original pixels.
//
// Arguments:
// - r: The raster to compute the checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string, or "empty" for a zero-sized raster.
//
// Example:
//
// ```go
//
//	before := Checksum(raster)
//	after := Checksum(Invert(Invert(raster)))
//	fmt.Println(before == after) // true
//
// ```
func Checksum(r *Raster) string {
	if r == nil || r.Bounds().Empty() {
		return "empty"
	}

	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:", r.Width(), r.Height())
	hash.Write(r.img.Pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// InvertFunc inverts a raster in place.
type InvertFunc func(r *Raster) error

// BackendNative is the pure Go inverter, always available.
const BackendNative = "native"

var (
	backendsMu sync.RWMutex
	backends   = map[string]InvertFunc{
		BackendNative: func(r *Raster) error {
			InvertInPlace(r)
			return nil
		},
	}
)

// RegisterBackend makes an alternative inverter selectable by name.
// Registering an existing name replaces it.
func RegisterBackend(name string, fn InvertFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = fn
}

// Backend returns the inverter registered under name. An empty name selects the
// native inverter.
func Backend(name string) (InvertFunc, error) {
	if name == "" {
		name = BackendNative
	}
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	fn, ok := backends[name]
	if !ok {
		return nil, errors.Errorf("unknown inverter backend %q (available: %v)", name, backendNames())
	}
	return fn, nil
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
