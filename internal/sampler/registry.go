package sampler

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknownService is returned when a service key is not registered.
var ErrUnknownService = errors.New("unknown service")

// Definition describes a registered service.
type Definition struct {
	Key             string
	Name            string
	DefaultEndpoint string
	// Shorthand is the one-letter flag alias for the endpoint override.
	Shorthand string
	// Rank fixes the order samplers run in for each URL.
	Rank int
	New  func(endpoint string) Sampler
}

// Build creates the sampler, falling back to the default endpoint.
func (d Definition) Build(endpoint string) Sampler {
	if endpoint == "" {
		endpoint = d.DefaultEndpoint
	}
	return d.New(endpoint)
}

var registry = map[string]Definition{}

func Register(d Definition) {
	registry[strings.ToLower(d.Key)] = d
}

func Lookup(key string) (Definition, bool) {
	d, ok := registry[strings.ToLower(key)]
	return d, ok
}

// Definitions returns every registered service in run order.
func Definitions() []Definition {
	defs := make([]Definition, 0, len(registry))
	for _, d := range registry {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Rank != defs[j].Rank {
			return defs[i].Rank < defs[j].Rank
		}
		return defs[i].Key < defs[j].Key
	})
	return defs
}

// Keys returns the registered service keys in run order.
func Keys() []string {
	defs := Definitions()
	keys := make([]string, len(defs))
	for i, d := range defs {
		keys[i] = d.Key
	}
	return keys
}
