package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	errs "igharvest/pkg/errors"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
	"igharvest/pkg/metrics"
)

// Target is one account to discover.
type Target struct {
	Account string
	Session Session
	// MaxItems caps the posts sought; 0 falls back to Options.DefaultTarget
	MaxItems int
	Pacer    Pacer
	// SnapshotImage and SnapshotHTML receive the debug capture when nothing
	// was found; empty paths skip the capture
	SnapshotImage string
	SnapshotHTML  string
}

// Result summarizes one discovery run.
type Result struct {
	// Unavailable is set when the account is private or missing
	Unavailable bool
	// Strategy names the strategy that found posts, if any
	Strategy string
	Posts    int
}

// Chain tries its strategies in order until one finds posts.
type Chain struct {
	provider   Provider
	strategies []Strategy
	opts       Options
	logger     logger.Logger
	recorder   metrics.Recorder
}

// NewChain creates a chain. A nil strategies slice uses DefaultStrategies.
func NewChain(provider Provider, strategies []Strategy, opts Options, log logger.Logger, recorder metrics.Recorder) *Chain {
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Chain{provider: provider, strategies: strategies, opts: opts, logger: log, recorder: recorder}
}

// Run opens the account's profile and streams discovered posts into sink.
//
// An account whose page shows an unavailability phrase short-circuits with
// Unavailable set. Strategy failures fall through to the next strategy; only
// failing to open or load the profile is returned as an error. When every
// strategy comes up empty a debug snapshot is written.
func (c *Chain) Run(ctx context.Context, target Target, sink Sink) (Result, error) {
	log := c.logger.WithField("account", target.Account)

	page, err := c.provider.Open(ctx, target.Session)
	if err != nil {
		return Result{}, errs.AccountJob(target.Account, "open page", err)
	}
	defer page.Close()

	profile := instagram.ProfileURL(target.Account)
	navCtx, cancel := context.WithTimeout(ctx, c.opts.NavigationTimeout)
	err = page.Navigate(navCtx, profile)
	cancel()
	if err != nil {
		return Result{}, errs.AccountJob(target.Account, "navigation", err)
	}

	want := target.MaxItems
	if want <= 0 {
		want = c.opts.DefaultTarget
	}
	env := &Env{
		Page:    page,
		Account: target.Account,
		Session: target.Session,
		Want:    want,
		Sink:    sink,
		Pacer:   target.Pacer,
		Logger:  log,
		Options: c.opts,
		Images:  NewImageSelector(c.opts),
	}
	if env.Pacer == nil {
		env.Pacer = noPause{}
	}

	if err := pause(ctx, c.opts.SettleDelay); err != nil {
		return Result{}, err
	}
	dismissOverlays(ctx, env)
	// A slow grid must not be mistaken for a private account.
	_, _ = page.WaitForSelector(ctx, gridLinkSelector, c.opts.GridWait)

	unavailable, err := isUnavailable(ctx, page)
	if err != nil {
		log.WithError(err).Debug("availability check failed")
	}
	if unavailable {
		return Result{Unavailable: true}, nil
	}

	for _, strategy := range c.strategies {
		outcome := strategy.Discover(ctx, env)
		c.recorder.RecordStrategy(strategy.Name(), outcome.Kind.String())

		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		switch outcome.Kind {
		case OutcomeFound:
			return Result{Strategy: strategy.Name(), Posts: outcome.Posts}, nil
		case OutcomeFailed:
			log.WithError(outcome.Err).WarnWithFields("discovery strategy failed", map[string]interface{}{
				"strategy": strategy.Name(),
				"stage":    "discovery",
				"url":      page.URL(),
			})
		default:
			log.DebugWithFields("discovery strategy found nothing", map[string]interface{}{
				"strategy": strategy.Name(),
			})
		}
	}

	c.snapshot(ctx, page, target, log)
	return Result{}, nil
}

// snapshot captures the page for later inspection. Failures are logged only.
func (c *Chain) snapshot(ctx context.Context, page Page, target Target, log logger.Logger) {
	if target.SnapshotImage == "" && target.SnapshotHTML == "" {
		return
	}
	var problems []error
	if target.SnapshotImage != "" {
		if err := os.MkdirAll(filepath.Dir(target.SnapshotImage), 0755); err == nil {
			if err := page.Screenshot(ctx, target.SnapshotImage); err != nil {
				problems = append(problems, fmt.Errorf("screenshot: %w", err))
			}
		}
	}
	if target.SnapshotHTML != "" {
		content, err := page.Content(ctx)
		if err == nil {
			err = os.WriteFile(target.SnapshotHTML, []byte(content), 0644)
		}
		if err != nil {
			problems = append(problems, fmt.Errorf("content: %w", err))
		}
	}

	fields := map[string]interface{}{
		"image": target.SnapshotImage,
		"html":  target.SnapshotHTML,
	}
	for _, p := range problems {
		log.WithError(p).Debug("debug snapshot incomplete")
	}
	log.WarnWithFields("no posts discovered; wrote debug snapshot", fields)
}

type noPause struct{}

func (noPause) Delay(ctx context.Context) error { return ctx.Err() }
