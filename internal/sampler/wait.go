package sampler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrStreamClosed is returned when the response stream ends before the
// awaited response arrived.
var ErrStreamClosed = errors.New("response stream closed")

// Waiter decides when a navigated page is complete.
type Waiter interface {
	Wait(ctx context.Context, page Page, responses <-chan Response) error
}

// MarkerState is the DOM state a MarkerWait waits for.
type MarkerState string

const (
	MarkerAttached MarkerState = "attached" // element present in the DOM
	MarkerHidden   MarkerState = "hidden"   // element absent or not rendered
)

// LoadWait resolves on the page load event.
type LoadWait struct{}

func (LoadWait) Wait(ctx context.Context, page Page, _ <-chan Response) error {
	if err := page.WaitLoad(ctx); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// MarkerWait resolves when the element matching Selector reaches State.
// The marker is checked after the load event.
type MarkerWait struct {
	Selector string
	State    MarkerState
}

func (w MarkerWait) Wait(ctx context.Context, page Page, _ <-chan Response) error {
	if err := page.WaitLoad(ctx); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}

	switch w.State {
	case MarkerHidden:
		if err := page.WaitHidden(ctx, w.Selector); err != nil {
			return fmt.Errorf("failed to wait for '%s' to be hidden: %w", w.Selector, err)
		}
	case MarkerAttached:
		if _, err := page.ElementText(ctx, w.Selector); err != nil {
			return fmt.Errorf("failed to wait for element '%s': %w", w.Selector, err)
		}
	default:
		return fmt.Errorf("unsupported marker state: %s", w.State)
	}
	return nil
}

// NetworkWait resolves on the first 200 response under URLPrefix whose JSON
// body holds true at CompletePath.
type NetworkWait struct {
	URLPrefix    string
	CompletePath string
}

func (w NetworkWait) Wait(ctx context.Context, _ Page, responses <-chan Response) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to wait for %s: %w", w.URLPrefix, ctx.Err())
		case resp, ok := <-responses:
			if !ok {
				return fmt.Errorf("failed to wait for %s: %w", w.URLPrefix, ErrStreamClosed)
			}
			if w.complete(resp) {
				return nil
			}
		}
	}
}

func (w NetworkWait) complete(resp Response) bool {
	if resp.Status != 200 || !strings.HasPrefix(resp.URL, w.URLPrefix) {
		return false
	}
	body, err := resp.Body()
	if err != nil {
		zap.L().Debug("skipping response without body", zap.String("url", resp.URL), zap.Error(err))
		return false
	}
	if !gjson.ValidBytes(body) {
		return false
	}
	return gjson.GetBytes(body, w.CompletePath).String() == "true"
}

// ProbeWait tells cached pages from pages that are still being populated.
// After the load event it looks for ScriptSelector for at most ProbeTimeout.
// A page without the script, or with a script not matching Pattern, is
// already complete; otherwise Then decides.
type ProbeWait struct {
	ScriptSelector string
	Pattern        *regexp.Regexp
	ProbeTimeout   time.Duration
	Then           Waiter
}

func (w ProbeWait) Wait(ctx context.Context, page Page, responses <-chan Response) error {
	if err := page.WaitLoad(ctx); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, w.ProbeTimeout)
	script, err := page.ElementText(probeCtx, w.ScriptSelector)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		zap.L().Debug("no updater script, treating page as cached", zap.String("selector", w.ScriptSelector))
		return nil
	}

	if !w.Pattern.MatchString(script) {
		zap.L().Warn("script is not the updater, treating page as complete", zap.String("selector", w.ScriptSelector))
		return nil
	}

	return w.Then.Wait(ctx, page, responses)
}
