package sampler

import "context"

// Page is the slice of a browser page the samplers drive.
// internal/browser provides the rod-backed implementation.
type Page interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error
	// WaitLoad blocks until the load event has fired.
	WaitLoad(ctx context.Context) error
	// ElementText waits until an element matching selector is attached to the
	// DOM and returns its text content.
	ElementText(ctx context.Context, selector string) (string, error)
	// WaitHidden blocks until no element matching selector is rendered.
	WaitHidden(ctx context.Context, selector string) error
	// Responses subscribes to finished network responses. The channel is
	// closed once ctx is done.
	Responses(ctx context.Context) (<-chan Response, error)
	// Content returns the serialized document, doctype included.
	Content(ctx context.Context) (string, error)
}

// Response is a network response observed by the page.
type Response struct {
	URL    string
	Status int

	body func() ([]byte, error)
}

// NewResponse creates a Response whose body is fetched lazily by body.
func NewResponse(url string, status int, body func() ([]byte, error)) Response {
	return Response{URL: url, Status: status, body: body}
}

// Body returns the response body.
func (r Response) Body() ([]byte, error) {
	if r.body == nil {
		return nil, nil
	}
	return r.body()
}
