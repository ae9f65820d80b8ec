package browser

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"resolversampler/internal/sampler"
)

// responseBuffer bounds the responses queued for a slow consumer. Beyond it
// the oldest queued response is dropped.
const responseBuffer = 256

const contentJS = `() => {
	const doctype = document.doctype;
	const prefix = doctype ? new XMLSerializer().serializeToString(doctype) + "\n" : "";
	return prefix + document.documentElement.outerHTML;
}`

// hiddenJS mirrors the usual visibility rule: absent, display:none,
// visibility:hidden, or an empty box (zero width or zero height).
const hiddenJS = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return true;
	const style = window.getComputedStyle(el);
	if (style.display === "none" || style.visibility === "hidden") return true;
	const rect = el.getBoundingClientRect();
	return rect.width === 0 || rect.height === 0;
}`

// Page adapts a rod.Page to sampler.Page.
type Page struct {
	page *rod.Page
}

var _ sampler.Page = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	return nil
}

func (p *Page) WaitLoad(ctx context.Context) error {
	return p.page.Context(ctx).WaitLoad()
}

func (p *Page) ElementText(ctx context.Context, selector string) (string, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return "", err
	}
	text, err := el.Property("textContent")
	if err != nil {
		return "", fmt.Errorf("failed to read '%s': %w", selector, err)
	}
	return text.Str(), nil
}

func (p *Page) WaitHidden(ctx context.Context, selector string) error {
	return p.page.Context(ctx).Wait(rod.Eval(hiddenJS, selector))
}

// Responses reports each response once its body has finished loading, so
// bodies can be read as soon as a Response is received. The subscription is
// live when Responses returns; rod enables the Network domain for as long as
// it lasts.
func (p *Page) Responses(ctx context.Context) (<-chan sampler.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := p.page.Context(ctx)

	pending := map[proto.NetworkRequestID]*proto.NetworkResponse{}
	ch := make(chan sampler.Response, responseBuffer)

	wait := page.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			pending[e.RequestID] = e.Response
		},
		func(e *proto.NetworkLoadingFailed) {
			delete(pending, e.RequestID)
		},
		func(e *proto.NetworkLoadingFinished) {
			resp, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)
			offer(ch, sampler.NewResponse(resp.URL, resp.Status, p.body(ctx, e.RequestID)))
		},
	)

	go func() {
		wait()
		close(ch)
	}()

	return ch, nil
}

// offer queues r without blocking, evicting the oldest queued response when
// ch is full. ch must have a single sender.
func offer(ch chan sampler.Response, r sampler.Response) {
	select {
	case ch <- r:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- r
}

func (p *Page) body(ctx context.Context, id proto.NetworkRequestID) func() ([]byte, error) {
	return func() ([]byte, error) {
		res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(p.page.Context(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to get response body: %w", err)
		}
		if res.Base64Encoded {
			return base64.StdEncoding.DecodeString(res.Body)
		}
		return []byte(res.Body), nil
	}
}

// Content returns the whole document, doctype included.
func (p *Page) Content(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(contentJS)
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return res.Value.Str(), nil
}
