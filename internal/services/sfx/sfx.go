// Package sfx samples the SFX link resolver.
package sfx

import "resolversampler/internal/sampler"

const (
	Key             = "sfx"
	DefaultEndpoint = "http://sfx.library.nyu.edu/sfxlcl41"
)

func init() {
	sampler.Register(sampler.Definition{
		Key:             Key,
		Name:            "SFX",
		DefaultEndpoint: DefaultEndpoint,
		Shorthand:       "s",
		Rank:            20,
		New:             func(endpoint string) sampler.Sampler { return New(endpoint) },
	})
}

// New creates an SFX sampler. SFX renders on the server; a single-object menu
// and a multiple-object menu share no reliable marker, so only the load event
// is awaited.
func New(endpoint string) *sampler.Service {
	return sampler.NewService("SFX", Key, endpoint, sampler.LoadWait{}, nil)
}
