package fetcher

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/doyensec/safeurl"
	"golang.org/x/time/rate"

	errs "igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/metrics"
	"igharvest/pkg/retry"
)

// PartSuffix is appended to the destination while a download is in flight.
const PartSuffix = ".part"

// Options tunes a Fetcher.
type Options struct {
	// Retries is the attempt budget for transport failures, shared by every
	// hop of a redirect chain
	Retries int
	// Backoff is the delay after the first failed attempt
	Backoff time.Duration
	// Multiplier grows the delay after each further failure
	Multiplier float64
	// Jitter spreads each delay by up to ±Jitter of itself
	Jitter float64
	// MaxRedirects bounds the number of Location hops followed
	MaxRedirects int
	// Headers are sent with every request
	Headers map[string]string
	// Ceiling, when set, is waited on before every request
	Ceiling *rate.Limiter
}

// DefaultOptions returns three attempts, 800ms backoff growing by 1.7 and at
// most five redirects.
func DefaultOptions() Options {
	return Options{
		Retries:      3,
		Backoff:      800 * time.Millisecond,
		Multiplier:   1.7,
		MaxRedirects: 5,
	}
}

// Fetcher downloads single resources to disk. Nothing is ever visible at the
// destination path unless the full body was received.
type Fetcher struct {
	client   *http.Client
	opts     Options
	logger   logger.Logger
	recorder metrics.Recorder
}

// New wraps client. Redirects are followed by the Fetcher itself, so the
// client's own redirect handling is switched off.
func New(client *http.Client, opts Options, log logger.Logger, recorder metrics.Recorder) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Fetcher{client: &c, opts: opts, logger: log, recorder: recorder}
}

// NewClient builds the HTTP client used for downloads. With blockPrivate set
// the client refuses to dial loopback, private and link-local addresses and
// only speaks http/https on the standard ports.
func NewClient(timeout time.Duration, blockPrivate bool) *http.Client {
	if !blockPrivate {
		return &http.Client{Timeout: timeout}
	}
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}

// Fetch downloads rawURL to dest and returns dest. The body is streamed into
// dest+".part" and renamed into place only after it was fully written.
//
// Redirects are re-issued against their Location with whatever remains of
// the transport retry budget. A status other than 200 fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) (string, error) {
	start := time.Now()
	status, err := f.fetch(ctx, rawURL, dest)
	f.recorder.RecordFetch(time.Since(start), status)
	if err != nil {
		return "", err
	}
	return dest, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL, dest string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	part := dest + PartSuffix
	current := rawURL
	failures := 0
	for hops := 0; ; hops++ {
		res, err := retry.DoWithResult(func() (hopResult, error) {
			return f.attempt(ctx, current, part)
		}, &retry.Config{
			MaxAttempts: f.opts.Retries - failures,
			Backoff:     f.backoff(failures),
			OnRetry: func(int, error, time.Duration) {
				failures++
			},
			Context: ctx,
			Logger:  f.logger.WithField("url", current),
		})
		if err != nil {
			os.Remove(part)
			return res.status, err
		}

		if res.location == "" {
			if err := os.Rename(part, dest); err != nil {
				os.Remove(part)
				return res.status, fmt.Errorf("failed to move download into place: %w", err)
			}
			return res.status, nil
		}

		if hops >= f.opts.MaxRedirects {
			os.Remove(part)
			return res.status, &errs.Error{
				Type:    errs.ErrorTypeHTTPStatus,
				Code:    res.status,
				Message: fmt.Sprintf("too many redirects (%d) for %s", f.opts.MaxRedirects, rawURL),
			}
		}
		f.logger.DebugWithFields("following redirect", map[string]interface{}{
			"url":      current,
			"location": res.location,
			"hop":      hops + 1,
		})
		current = res.location
	}
}

// backoff continues the delay schedule after the failures already spent on
// earlier hops.
func (f *Fetcher) backoff(failures int) *retry.ExponentialBackoff {
	base := f.opts.Backoff
	if failures > 0 && f.opts.Multiplier > 1 {
		base = time.Duration(float64(base) * math.Pow(f.opts.Multiplier, float64(failures)))
	}
	return &retry.ExponentialBackoff{
		BaseDelay:    base,
		Multiplier:   f.opts.Multiplier,
		JitterFactor: f.opts.Jitter,
	}
}

type hopResult struct {
	status   int
	location string
}

// attempt issues one request. A redirect yields its resolved Location; a 200
// body is streamed into part.
func (f *Fetcher) attempt(ctx context.Context, target, part string) (hopResult, error) {
	if f.opts.Ceiling != nil {
		if err := f.opts.Ceiling.Wait(ctx); err != nil {
			return hopResult{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return hopResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range f.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return hopResult{}, ctx.Err()
		}
		return hopResult{}, errs.Transport(target, err)
	}
	defer resp.Body.Close()

	res := hopResult{status: resp.StatusCode}

	if isRedirect(resp.StatusCode) {
		if loc := resp.Header.Get("Location"); loc != "" {
			next, err := resolve(target, loc)
			if err != nil {
				return res, &errs.Error{Type: errs.ErrorTypeHTTPStatus, Code: resp.StatusCode, Message: "invalid redirect location " + loc, Err: err}
			}
			res.location = next
			return res, nil
		}
	}

	if resp.StatusCode != http.StatusOK {
		return res, errs.HTTPStatus(resp.StatusCode, target)
	}

	file, err := os.OpenFile(part, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return res, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, errs.Transport(target, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return res, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return res, fmt.Errorf("failed to close temp file: %w", err)
	}
	return res, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolve(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	l, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(l).String(), nil
}
