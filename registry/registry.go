package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rediwo/redi-eager/types"
)

// ErrDriverNotRegistered is returned when no driver handles a type or scheme.
var ErrDriverNotRegistered = errors.New("driver not registered")

// DriverFactory opens a backend from the native DSN its URI parser produced.
type DriverFactory func(ctx context.Context, nativeURI string) (types.Backend, error)

var (
	mu      sync.RWMutex
	drivers = make(map[types.DriverType]DriverFactory)
	parsers = make(map[string]types.URIParser)
)

// Register registers a driver factory. Registering a type twice panics.
func Register(driverType types.DriverType, factory DriverFactory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := drivers[driverType]; exists {
		panic(fmt.Sprintf("driver %s already registered", driverType))
	}
	drivers[driverType] = factory
}

// Get retrieves a registered driver factory.
func Get(driverType types.DriverType) (DriverFactory, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, exists := drivers[driverType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDriverNotRegistered, driverType)
	}
	return factory, nil
}

// RegisterURIParser makes parser handle every scheme it reports.
func RegisterURIParser(parser types.URIParser) {
	mu.Lock()
	defer mu.Unlock()

	for _, scheme := range parser.GetSupportedSchemes() {
		parsers[scheme] = parser
	}
}

// GetURIParser returns the parser for a URI scheme.
func GetURIParser(scheme string) (types.URIParser, error) {
	mu.RLock()
	defer mu.RUnlock()

	parser, exists := parsers[scheme]
	if !exists {
		return nil, fmt.Errorf("%w: no parser for scheme %q", ErrDriverNotRegistered, scheme)
	}
	return parser, nil
}

// Drivers lists registered driver types in name order.
func Drivers() []types.DriverType {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]types.DriverType, 0, len(drivers))
	for t := range drivers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Schemes lists every registered URI scheme in order.
func Schemes() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(parsers))
	for s := range parsers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
