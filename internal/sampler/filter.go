package sampler

import "regexp"

// sourceMapComment matches the sourceMappingURL comments development builds
// inline into stylesheets.
var sourceMapComment = regexp.MustCompile(`/\*#\ssourceMappingURL=\s*\S+\s\*/`)

// StripSourceMaps removes every inline source map comment from html.
func StripSourceMaps(html string) string {
	return sourceMapComment.ReplaceAllString(html, "")
}
