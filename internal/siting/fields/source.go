// Package fields provides wind and solar field sources over a bounding box.
// Sources are pluggable so measured or forecast providers can replace the
// synthetic generator without touching ranking logic.
package fields

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// Source produces scalar/vector fields over a bounding box.
type Source interface {
	// Name returns the source name for logging purposes.
	Name() string

	// Wind returns a gridSize x gridSize lattice of wind samples covering bbox.
	Wind(ctx context.Context, bbox provider.BoundingBox, gridSize int) ([]provider.WindSample, error)

	// Solar returns n radiation samples scattered over bbox.
	Solar(ctx context.Context, bbox provider.BoundingBox, n int) ([]provider.SolarSample, error)

	// SolarAt returns one radiation sample for each of the given points, in order.
	SolarAt(ctx context.Context, points []provider.Point) ([]provider.SolarSample, error)
}

var (
	registryMu     sync.RWMutex
	sourceRegistry = make(map[string]func(provider.Config) (Source, error))
)

// RegisterSource registers a source constructor under name.
// This should be called from init() in the package providing the source.
func RegisterSource(name string, constructor func(provider.Config) (Source, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	sourceRegistry[name] = constructor
}

// NewSource creates the source selected by cfg.FieldSource.
func NewSource(cfg provider.Config) (Source, error) {
	name := cfg.FieldSource
	if name == "" {
		name = provider.DefaultFieldSource
	}

	registryMu.RLock()
	constructor, ok := sourceRegistry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrUnknownSource, name)
	}
	return constructor(cfg)
}

// Sources lists registered source names.
func Sources() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(sourceRegistry))
	for name := range sourceRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
