package discovery

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

type fakePost struct {
	frames   [][]ImageElement
	datetime string
}

// fakePage is an in-memory Page driven by canned content.
type fakePage struct {
	mu sync.Mutex

	url   string
	text  string
	grid  [][]string
	step  int
	posts map[string]*fakePost
	frame int
	// order is the post sequence reachable by click-through
	order []string

	api    *Response
	apiErr error
	navErr map[string]error

	navigations []string
	requests    []string
	clicks      []string
	closed      bool
}

func newFakePage() *fakePage {
	return &fakePage{posts: map[string]*fakePost{}, navErr: map[string]error{}}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if err := p.navErr[url]; err != nil {
		return err
	}
	p.url = url
	p.frame = 0
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, isPost := p.posts[p.url]
	return isPost && selector == `div[role="dialog"] article`, nil
}

func (p *fakePage) QueryAttr(ctx context.Context, selector, attr string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case selector == "a" && attr == "href":
		var hrefs []string
		for i := 0; i <= p.step && i < len(p.grid); i++ {
			hrefs = append(hrefs, p.grid[i]...)
		}
		return hrefs, nil
	case selector == "time" && attr == "datetime":
		if post, ok := p.posts[p.url]; ok && post.datetime != "" {
			return []string{post.datetime}, nil
		}
	}
	return nil, nil
}

func (p *fakePage) QueryImages(ctx context.Context, scope, selector string) ([]ImageElement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	post, ok := p.posts[p.url]
	if !ok || p.frame >= len(post.frames) {
		return nil, nil
	}
	return post.frames[p.frame], nil
}

func (p *fakePage) TextContent(ctx context.Context, selector string) (string, error) {
	return p.text, nil
}

func (p *fakePage) Scroll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step++
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, selector)

	if selector == carouselNextSelectors[0] {
		if post, ok := p.posts[p.url]; ok && p.frame+1 < len(post.frames) {
			p.frame++
			return true, nil
		}
		return false, nil
	}
	if selector == openPostSelectors[1] {
		if len(p.order) > 0 {
			p.url = p.order[0]
			p.frame = 0
			return true, nil
		}
		return false, nil
	}
	if selector == dismissSelectors[0] {
		return false, errors.New("unsupported selector")
	}
	return false, nil
}

func (p *fakePage) PressKey(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if key != "ArrowRight" {
		return nil
	}
	for i, u := range p.order {
		if u == p.url && i+1 < len(p.order) {
			p.url = p.order[i+1]
			p.frame = 0
			return nil
		}
	}
	return nil
}

func (p *fakePage) WaitForURLChange(ctx context.Context, from string, timeout time.Duration) (bool, error) {
	return p.URL() != from, nil
}

func (p *fakePage) Request(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, url)
	if p.apiErr != nil {
		return nil, p.apiErr
	}
	if p.api == nil {
		return &Response{Status: 200, Body: []byte(`{"data":{"user":null}}`)}, nil
	}
	return p.api, nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	return os.WriteFile(path, []byte("png"), 0644)
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	return "<html><body>" + p.text + "</body></html>", nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) clicked(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clicks {
		if c == selector {
			return true
		}
	}
	return false
}

type fakeProvider struct {
	page    *fakePage
	openErr error
	session Session
}

func (f *fakeProvider) Open(ctx context.Context, session Session) (Page, error) {
	f.session = session
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.page, nil
}

// image returns a qualifying media image element.
func image(url string) ImageElement {
	return ImageElement{Src: url, NaturalWidth: 1080}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.NavigationTimeout = time.Second
	opts.SettleDelay = 0
	opts.GridWait = 0
	opts.LinkDeadline = 50 * time.Millisecond
	opts.ScrollWait = time.Millisecond
	opts.PostSettle = 0
	opts.CarouselWait = 0
	opts.OpenPostWait = 0
	opts.NextPostWait = 0
	opts.DismissWait = 0
	return opts
}

// collector records every post a chain delivers.
type collector struct {
	posts []Post
	limit int
}

func (c *collector) sink(ctx context.Context, post Post) bool {
	c.posts = append(c.posts, post)
	return c.limit == 0 || len(c.posts) < c.limit
}
