// Package staticpage implements discovery pages over plain HTTP. Documents
// are parsed as served, without running scripts, so it suits server-rendered
// markup and the metadata API rather than the interactive grid.
package staticpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"igharvest/pkg/discovery"
	errs "igharvest/pkg/errors"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
)

// Provider opens static pages that share one HTTP client.
type Provider struct {
	httpClient *http.Client
	logger     logger.Logger
}

// NewProvider creates a provider. A nil client uses the instagram default.
func NewProvider(httpClient *http.Client, log logger.Logger) *Provider {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Provider{httpClient: httpClient, logger: log}
}

// Open returns a page bound to session.
func (p *Provider) Open(ctx context.Context, session discovery.Session) (discovery.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := instagram.NewClient(p.httpClient, p.logger)
	client.SetSession(session.ID)
	if session.UserAgent != "" {
		client.SetHeader("User-Agent", session.UserAgent)
	}
	return &Page{client: client}, nil
}

// Page is a parsed document plus the location it was loaded from.
type Page struct {
	mu     sync.Mutex
	client *instagram.Client
	url    string
	raw    []byte
	doc    *goquery.Document
}

// Navigate fetches target and makes it the current document. Any status
// other than 200 is an error and leaves the previous document in place.
func (p *Page) Navigate(ctx context.Context, target string) error {
	resp, err := p.client.Get(ctx, target, nil)
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return errs.HTTPStatus(resp.Status, target)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return &errs.Error{Type: errs.ErrorTypeParsing, Message: target, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = resp.URL
	p.raw = resp.Body
	p.doc = doc
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// WaitForSelector does not wait: a static document never changes.
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	matches, err := p.find(selector)
	if err != nil {
		return false, err
	}
	return matches.Length() > 0, nil
}

func (p *Page) QueryAttr(ctx context.Context, selector, attr string) ([]string, error) {
	matches, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	var values []string
	matches.Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			values = append(values, v)
		}
	})
	return values, nil
}

func (p *Page) QueryImages(ctx context.Context, scope, selector string) ([]discovery.ImageElement, error) {
	scopeSel, err := cascadia.Compile(scope)
	if err != nil {
		return nil, fmt.Errorf("invalid scope %q: %w", scope, err)
	}
	imgSel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return nil, nil
	}

	root := p.doc.Selection
	if s := p.doc.FindMatcher(scopeSel).First(); s.Length() > 0 {
		root = s
	}

	var images []discovery.ImageElement
	root.FindMatcher(imgSel).Each(func(_ int, s *goquery.Selection) {
		img := discovery.ImageElement{
			Src:      s.AttrOr("src", ""),
			Srcset:   s.AttrOr("srcset", ""),
			Alt:      s.AttrOr("alt", ""),
			InHeader: s.Closest("header").Length() > 0,
		}
		if w, err := strconv.Atoi(s.AttrOr("width", "")); err == nil {
			img.NaturalWidth = w
		}
		if img.Src != "" {
			img.Src = p.resolve(img.Src)
		}
		images = append(images, img)
	})
	return images, nil
}

func (p *Page) TextContent(ctx context.Context, selector string) (string, error) {
	matches, err := p.find(selector)
	if err != nil {
		return "", err
	}
	var parts []string
	matches.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n"), nil
}

// Scroll is a no-op; everything the server sent is already in the document.
func (p *Page) Scroll(ctx context.Context) error { return nil }

// Click follows the link of the first element matching selector. Elements
// that are not inside an anchor cannot be activated and report false.
func (p *Page) Click(ctx context.Context, selector string) (bool, error) {
	matches, err := p.find(selector)
	if err != nil {
		return false, err
	}
	first := matches.First()
	if first.Length() == 0 {
		return false, nil
	}

	href, ok := first.Attr("href")
	if !ok {
		href, ok = first.Closest("a[href]").Attr("href")
	}
	if !ok || href == "" {
		return false, nil
	}
	if err := p.Navigate(ctx, p.resolveLocked(href)); err != nil {
		return false, err
	}
	return true, nil
}

// PressKey has nothing to deliver keys to.
func (p *Page) PressKey(ctx context.Context, key string) error { return nil }

func (p *Page) WaitForURLChange(ctx context.Context, from string, timeout time.Duration) (bool, error) {
	return p.URL() != from, nil
}

// Request issues a GET with the page's session headers plus headers.
func (p *Page) Request(ctx context.Context, target string, headers map[string]string) (*discovery.Response, error) {
	resp, err := p.client.Get(ctx, target, headers)
	if err != nil {
		return nil, err
	}
	return &discovery.Response{Status: resp.Status, Body: resp.Body}, nil
}

// Screenshot is unsupported without a renderer.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	return errors.ErrUnsupported
}

// Content returns the document exactly as it was served.
func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.raw), nil
}

func (p *Page) Close() error { return nil }

func (p *Page) find(selector string) (*goquery.Selection, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return &goquery.Selection{}, nil
	}
	return p.doc.FindMatcher(sel), nil
}

func (p *Page) resolveLocked(ref string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolve(ref)
}

// resolve makes ref absolute against the current location. Callers hold mu.
func (p *Page) resolve(ref string) string {
	base, err := url.Parse(p.url)
	if err != nil || base.Host == "" {
		return instagram.AbsoluteURL(ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
