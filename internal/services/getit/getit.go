// Package getit samples the GetIt (Umlaut) OpenURL resolver.
//
// Cached GetIt responses arrive fully rendered. Uncached ones embed an
// Umlaut.HtmlUpdater script that polls partial_html_sections until the
// server reports every section complete, so the sampler has to tell the two
// apart before deciding what to wait for.
package getit

import (
	"regexp"
	"strings"
	"time"

	"resolversampler/internal/sampler"
)

const (
	Key             = "getit"
	DefaultEndpoint = "https://dev.getit.library.nyu.edu/resolve"

	// UpdaterScriptSelector locates the script uncached responses embed.
	UpdaterScriptSelector = "div.umlaut-resolve-container script"
	// ProbeTimeout bounds the search for the updater script. By the load
	// event it is either attached or it never will be.
	ProbeTimeout = 100 * time.Millisecond

	partialSectionsPath = "/partial_html_sections"
	completePath        = "partial_html_sections.complete"
)

// updaterPattern identifies the updater; the request id inside varies.
var updaterPattern = regexp.MustCompile(`Umlaut\.HtmlUpdater`)

func init() {
	sampler.Register(sampler.Definition{
		Key:             Key,
		Name:            "GetIt",
		DefaultEndpoint: DefaultEndpoint,
		Shorthand:       "g",
		Rank:            10,
		New:             func(endpoint string) sampler.Sampler { return New(endpoint) },
	})
}

// New creates a GetIt sampler for endpoint.
func New(endpoint string) *sampler.Service {
	return sampler.NewService("GetIt", Key, endpoint, Waiter(endpoint), nil)
}

// Waiter returns the cached/uncached disambiguating wait for endpoint.
func Waiter(endpoint string) sampler.ProbeWait {
	return sampler.ProbeWait{
		ScriptSelector: UpdaterScriptSelector,
		Pattern:        updaterPattern,
		ProbeTimeout:   ProbeTimeout,
		Then: sampler.NetworkWait{
			URLPrefix:    PartialSectionsURL(endpoint),
			CompletePath: completePath,
		},
	}
}

// PartialSectionsURL is the prefix of the updater's follow-up requests.
func PartialSectionsURL(endpoint string) string {
	return strings.TrimRight(endpoint, "/") + partialSectionsPath
}
