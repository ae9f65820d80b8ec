// Package browser runs the single Chromium page the samplers share.
package browser

import (
	"errors"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
)

// Session owns the browser and its one page for the length of a run.
type Session struct {
	browser *Browser
	page    *Page
}

// Open launches a browser and opens the shared page. The caller must Close
// the session on every path.
func Open(cfg Config) (*Session, error) {
	b, err := New(cfg)
	if err != nil {
		return nil, err
	}

	rp, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if cfg.BypassCSP {
		if err := (proto.PageSetBypassCSP{Enabled: true}).Call(rp); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to bypass CSP: %w", err)
		}
	}

	return &Session{browser: b, page: &Page{page: rp}}, nil
}

// Page returns the shared page.
func (s *Session) Page() *Page {
	return s.page
}

// Close closes the page and the browser.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
	}
	return errors.Join(errs...)
}
