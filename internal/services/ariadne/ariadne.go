// Package ariadne samples the Ariadne link resolver.
package ariadne

import "resolversampler/internal/sampler"

const (
	Key             = "ariadne"
	DefaultEndpoint = "http://localhost:3000/"

	// LoaderSelector is the spinner shown until the links are rendered.
	LoaderSelector = "div.loader"
)

func init() {
	sampler.Register(sampler.Definition{
		Key:             Key,
		Name:            "Ariadne",
		DefaultEndpoint: DefaultEndpoint,
		Shorthand:       "a",
		Rank:            30,
		New:             func(endpoint string) sampler.Sampler { return New(endpoint) },
	})
}

// New creates an Ariadne sampler. Development builds inline source maps that
// add close to a megabyte per page, so they are stripped before storage.
func New(endpoint string) *sampler.Service {
	return sampler.NewService(
		"Ariadne",
		Key,
		endpoint,
		sampler.MarkerWait{Selector: LoaderSelector, State: sampler.MarkerHidden},
		sampler.StripSourceMaps,
	)
}
