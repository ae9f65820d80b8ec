// Package samplertest provides a scripted sampler.Page for tests.
package samplertest

import (
	"context"
	"fmt"

	"resolversampler/internal/sampler"
)

// Page is a scripted sampler.Page. Responses scripted for a URL are delivered
// to the most recent subscription when that URL is navigated to, after which
// the subscription is closed.
type Page struct {
	// Elements maps selectors to the text of attached elements. Selectors
	// not present never appear.
	Elements map[string]string
	// Visible lists selectors that never become hidden.
	Visible map[string]bool
	// HTML maps URLs to captured content.
	HTML map[string]string
	// Scripted maps URLs to the responses their navigation produces.
	Scripted map[string][]sampler.Response
	// NavigateErr and LoadErr fail the matching calls for a URL.
	NavigateErr map[string]error
	LoadErr     map[string]error

	Navigated []string

	current string
	sub     chan sampler.Response
}

// NewPage creates an empty scripted page.
func NewPage() *Page {
	return &Page{
		Elements:    map[string]string{},
		Visible:     map[string]bool{},
		HTML:        map[string]string{},
		Scripted:    map[string][]sampler.Response{},
		NavigateErr: map[string]error{},
		LoadErr:     map[string]error{},
	}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.Navigated = append(p.Navigated, url)
	p.current = url
	if err := p.NavigateErr[url]; err != nil {
		return err
	}
	if p.sub != nil {
		for _, r := range p.Scripted[url] {
			p.sub <- r
		}
		close(p.sub)
		p.sub = nil
	}
	return nil
}

func (p *Page) WaitLoad(ctx context.Context) error {
	if err := p.LoadErr[p.current]; err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Page) ElementText(ctx context.Context, selector string) (string, error) {
	if text, ok := p.Elements[selector]; ok {
		return text, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (p *Page) WaitHidden(ctx context.Context, selector string) error {
	if p.Visible[selector] {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *Page) Responses(ctx context.Context) (<-chan sampler.Response, error) {
	p.sub = make(chan sampler.Response, 64)
	return p.sub, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	if html, ok := p.HTML[p.current]; ok {
		return html, nil
	}
	return fmt.Sprintf("<html><head><title>%s</title></head><body></body></html>", p.current), nil
}

// JSONResponse builds a response with a fixed body.
func JSONResponse(url string, status int, body string) sampler.Response {
	return sampler.NewResponse(url, status, func() ([]byte, error) { return []byte(body), nil })
}
