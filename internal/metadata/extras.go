package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// WideScalar names a chain-specific unsigned integer type that the standard
// registry has no primitive for, e.g. a 512-bit balance. A composite type
// whose path tail matches Name decodes as a little-endian unsigned integer
// of Bytes bytes.
type WideScalar struct {
	Name  string
	Bytes int
}

// extraScalars maps a chain's genesis hash to the wide scalars its runtime
// needs. Consulted once when metadata is parsed for that chain.
var (
	extrasMu     sync.RWMutex
	extraScalars = make(map[string][]WideScalar)
)

// RegisterExtras records the wide scalars a chain requires, keyed by genesis
// hash. Registration replaces any previous set for the chain.
func RegisterExtras(genesisHash string, scalars []WideScalar) {
	extrasMu.Lock()
	extraScalars[strings.ToLower(genesisHash)] = scalars
	extrasMu.Unlock()
}

// ExtrasFor returns the wide scalars registered for a chain, or nil.
func ExtrasFor(genesisHash string) []WideScalar {
	extrasMu.RLock()
	scalars := extraScalars[strings.ToLower(genesisHash)]
	extrasMu.RUnlock()
	return scalars
}

// ParseWideScalar parses a "Name=bytes" specification, e.g. "U512=64".
func ParseWideScalar(spec string) (WideScalar, error) {
	name, width, ok := strings.Cut(spec, "=")
	if !ok {
		return WideScalar{}, fmt.Errorf("wide scalar %q: want name=bytes", spec)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return WideScalar{}, fmt.Errorf("wide scalar %q: empty name", spec)
	}
	bytes, err := strconv.Atoi(strings.TrimSpace(width))
	if err != nil || bytes <= 0 || bytes > 512 {
		return WideScalar{}, fmt.Errorf("wide scalar %q: invalid byte width", spec)
	}
	return WideScalar{Name: name, Bytes: bytes}, nil
}
