package sampler_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolversampler/internal/sampler"
	"resolversampler/internal/sampler/samplertest"
)

const partialURL = "https://dev.getit.library.nyu.edu/resolve/partial_html_sections"

func stream(responses ...sampler.Response) chan sampler.Response {
	ch := make(chan sampler.Response, len(responses)+1)
	for _, r := range responses {
		ch <- r
	}
	return ch
}

func TestNetworkWaitResolvesOnSecondMatchingCall(t *testing.T) {
	var reads []string
	track := func(url string, status int, body string) sampler.Response {
		return sampler.NewResponse(url, status, func() ([]byte, error) {
			reads = append(reads, body)
			return []byte(body), nil
		})
	}

	ch := stream(
		track("https://dev.getit.library.nyu.edu/assets/app.js", 200, "not json"),
		track(partialURL+"?umlaut.request_id=1", 200, `{"partial_html_sections":{"complete":"false"}}`),
		track(partialURL+"?umlaut.request_id=1", 200, `{"partial_html_sections":{"complete":"true"}}`),
		track(partialURL+"?umlaut.request_id=1", 200, `{"partial_html_sections":{"complete":"true"}}`),
	)

	w := sampler.NetworkWait{URLPrefix: partialURL, CompletePath: "partial_html_sections.complete"}
	require.NoError(t, w.Wait(context.Background(), nil, ch))

	assert.Equal(t, []string{
		`{"partial_html_sections":{"complete":"false"}}`,
		`{"partial_html_sections":{"complete":"true"}}`,
	}, reads, "only matching responses up to the completing one are read")
	assert.Len(t, ch, 1, "responses after completion stay unconsumed")
}

func TestNetworkWaitSkipsNonMatching(t *testing.T) {
	tests := []struct {
		name string
		resp sampler.Response
	}{
		{"wrong status", samplertest.JSONResponse(partialURL, 500, `{"partial_html_sections":{"complete":"true"}}`)},
		{"wrong prefix", samplertest.JSONResponse("https://example.org/partial_html_sections", 200, `{"partial_html_sections":{"complete":"true"}}`)},
		{"invalid json", samplertest.JSONResponse(partialURL, 200, `<html>`)},
		{"missing flag", samplertest.JSONResponse(partialURL, 200, `{"partial_html_sections":{}}`)},
		{"body error", sampler.NewResponse(partialURL, 200, func() ([]byte, error) { return nil, errors.New("no resource") })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := stream(tt.resp)
			close(ch)
			w := sampler.NetworkWait{URLPrefix: partialURL, CompletePath: "partial_html_sections.complete"}
			err := w.Wait(context.Background(), nil, ch)
			assert.ErrorIs(t, err, sampler.ErrStreamClosed)
		})
	}
}

func TestNetworkWaitAcceptsBooleanFlag(t *testing.T) {
	ch := stream(samplertest.JSONResponse(partialURL, 200, `{"partial_html_sections":{"complete":true}}`))
	w := sampler.NetworkWait{URLPrefix: partialURL, CompletePath: "partial_html_sections.complete"}
	assert.NoError(t, w.Wait(context.Background(), nil, ch))
}

func TestNetworkWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w := sampler.NetworkWait{URLPrefix: partialURL, CompletePath: "partial_html_sections.complete"}
	err := w.Wait(ctx, nil, make(chan sampler.Response))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func probe(then sampler.Waiter) sampler.ProbeWait {
	return sampler.ProbeWait{
		ScriptSelector: "div.umlaut-resolve-container script",
		Pattern:        regexp.MustCompile(`Umlaut\.HtmlUpdater`),
		ProbeTimeout:   50 * time.Millisecond,
		Then:           then,
	}
}

func TestProbeWaitTreatsMissingScriptAsCached(t *testing.T) {
	page := samplertest.NewPage()
	w := probe(sampler.NetworkWait{URLPrefix: partialURL, CompletePath: "x"})

	start := time.Now()
	err := w.Wait(context.Background(), page, make(chan sampler.Response))
	require.NoError(t, err, "probe timeout must not surface")
	assert.Less(t, time.Since(start), time.Second)
}

func TestProbeWaitIgnoresOtherScripts(t *testing.T) {
	page := samplertest.NewPage()
	page.Elements["div.umlaut-resolve-container script"] = `console.log("analytics")`
	w := probe(sampler.NetworkWait{URLPrefix: partialURL, CompletePath: "x"})

	assert.NoError(t, w.Wait(context.Background(), page, make(chan sampler.Response)))
}

func TestProbeWaitFollowsUpdater(t *testing.T) {
	page := samplertest.NewPage()
	page.Elements["div.umlaut-resolve-container script"] = `updater = new Umlaut.HtmlUpdater(umlaut_base, context_object);`

	ch := stream(
		samplertest.JSONResponse(partialURL, 200, `{"partial_html_sections":{"complete":"false"}}`),
		samplertest.JSONResponse(partialURL, 200, `{"partial_html_sections":{"complete":"true"}}`),
	)
	w := probe(sampler.NetworkWait{URLPrefix: partialURL, CompletePath: "partial_html_sections.complete"})
	require.NoError(t, w.Wait(context.Background(), page, ch))
	assert.Empty(t, ch)

	close(ch)
	assert.ErrorIs(t, w.Wait(context.Background(), page, ch), sampler.ErrStreamClosed)
}

func TestProbeWaitPropagatesLoadFailure(t *testing.T) {
	page := samplertest.NewPage()
	require.NoError(t, page.Navigate(context.Background(), "http://resolver/broken"))
	page.LoadErr["http://resolver/broken"] = errors.New("net::ERR_CONNECTION_RESET")

	err := probe(sampler.LoadWait{}).Wait(context.Background(), page, nil)
	assert.ErrorContains(t, err, "ERR_CONNECTION_RESET")
}

func TestProbeWaitPropagatesCancellation(t *testing.T) {
	page := samplertest.NewPage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := probe(sampler.LoadWait{}).Wait(ctx, page, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarkerWait(t *testing.T) {
	page := samplertest.NewPage()
	page.Elements["#links"] = ""
	page.Visible["div.loader"] = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.NoError(t, sampler.MarkerWait{Selector: "#links", State: sampler.MarkerAttached}.Wait(ctx, page, nil))
	assert.NoError(t, sampler.MarkerWait{Selector: "div.spinner", State: sampler.MarkerHidden}.Wait(ctx, page, nil))
	assert.ErrorIs(t, sampler.MarkerWait{Selector: "div.loader", State: sampler.MarkerHidden}.Wait(ctx, page, nil), context.DeadlineExceeded)
	assert.Error(t, sampler.MarkerWait{Selector: "div.loader", State: "gone"}.Wait(ctx, page, nil))
}

func TestMarkerWaitRequiresLoad(t *testing.T) {
	const target = "http://ariadne.test/?id=1"
	page := samplertest.NewPage()
	require.NoError(t, page.Navigate(context.Background(), target))

	loadErr := errors.New("page still loading")
	page.LoadErr[target] = loadErr

	for _, state := range []sampler.MarkerState{sampler.MarkerHidden, sampler.MarkerAttached} {
		page.Elements["div.loader"] = ""
		err := sampler.MarkerWait{Selector: "div.loader", State: state}.Wait(context.Background(), page, nil)
		assert.ErrorIs(t, err, loadErr, "state %s", state)
	}
}
