package sampler

import (
	"context"
	"fmt"
	"net/url"
)

// Sampler fetches representative HTML from one resolver service.
type Sampler interface {
	// Name is the display name, e.g. "GetIt".
	Name() string
	// Key identifies the service in sample paths and the index.
	Key() string
	// RequestURL derives the service request for a test-case URL.
	RequestURL(testCaseURL string) (string, error)
	// AwaitCompletion blocks until the navigated page is complete enough to
	// capture. responses carries everything observed since before navigation.
	AwaitCompletion(ctx context.Context, page Page, responses <-chan Response) error
	// FilterHTML prepares captured HTML for storage.
	FilterHTML(html string) string
}

// Filter transforms captured HTML before it is stored.
type Filter func(html string) string

// Identity stores HTML unchanged.
func Identity(html string) string { return html }

// Service is a Sampler assembled from a waiter and a filter.
type Service struct {
	name     string
	key      string
	endpoint string
	waiter   Waiter
	filter   Filter
}

// NewService creates a Service. A nil filter means Identity.
func NewService(name, key, endpoint string, waiter Waiter, filter Filter) *Service {
	if filter == nil {
		filter = Identity
	}
	return &Service{
		name:     name,
		key:      key,
		endpoint: endpoint,
		waiter:   waiter,
		filter:   filter,
	}
}

func (s *Service) Name() string     { return s.name }
func (s *Service) Key() string      { return s.key }
func (s *Service) Endpoint() string { return s.endpoint }

// RequestURL appends the test case's query string to the service endpoint.
func (s *Service) RequestURL(testCaseURL string) (string, error) {
	query, err := QueryString(testCaseURL)
	if err != nil {
		return "", err
	}
	return s.endpoint + query, nil
}

func (s *Service) AwaitCompletion(ctx context.Context, page Page, responses <-chan Response) error {
	return s.waiter.Wait(ctx, page, responses)
}

func (s *Service) FilterHTML(html string) string {
	return s.filter(html)
}

// QueryString returns the "?"-prefixed query of a test-case URL, or "" when it
// has none. Test-case URLs usually lack a scheme, so one is assumed.
func QueryString(testCaseURL string) (string, error) {
	u, err := url.Parse("http://" + testCaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse test case URL: %w", err)
	}
	if u.RawQuery == "" {
		return "", nil
	}
	return "?" + u.RawQuery, nil
}
