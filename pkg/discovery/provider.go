package discovery

import (
	"context"
	"time"
)

// Session is the credential a page is opened with.
type Session struct {
	// ID is the session cookie value; empty browses anonymously
	ID        string
	UserAgent string
}

// ImageElement is one <img> as seen by the rendering layer.
type ImageElement struct {
	Src          string
	Srcset       string
	Alt          string
	NaturalWidth int
	// InHeader is true when the image sits inside a <header> element
	InHeader bool
}

// Response is the result of a request made through a Page.
type Response struct {
	Status int
	Body   []byte
}

// Page is one browsing tab. Selectors are CSS selectors; providers that
// cannot evaluate a selector return an error, which callers treat as "no
// match".
type Page interface {
	// Navigate loads url as the current document.
	Navigate(ctx context.Context, url string) error
	// URL returns the current location.
	URL() string
	// WaitForSelector reports whether selector matched before timeout.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	// QueryAttr returns attr of every element matching selector, in document order.
	QueryAttr(ctx context.Context, selector, attr string) ([]string, error)
	// QueryImages returns the images matching selector inside the first
	// element matching scope, or inside the whole document when scope does
	// not match.
	QueryImages(ctx context.Context, scope, selector string) ([]ImageElement, error)
	// TextContent joins the text of every element matching selector.
	TextContent(ctx context.Context, selector string) (string, error)
	// Scroll triggers lazy loading of further content.
	Scroll(ctx context.Context) error
	// Click clicks the first element matching selector; false means nothing matched.
	Click(ctx context.Context, selector string) (bool, error)
	// PressKey sends a keyboard key such as "ArrowRight".
	PressKey(ctx context.Context, key string) error
	// WaitForURLChange reports whether the location left from before timeout.
	WaitForURLChange(ctx context.Context, from string, timeout time.Duration) (bool, error)
	// Request issues an HTTP GET on behalf of the page's session.
	Request(ctx context.Context, url string, headers map[string]string) (*Response, error)
	// Screenshot writes a full-page capture to path.
	Screenshot(ctx context.Context, path string) error
	// Content serializes the current document.
	Content(ctx context.Context) (string, error)
	Close() error
}

// Provider opens pages.
type Provider interface {
	Open(ctx context.Context, session Session) (Page, error)
}
