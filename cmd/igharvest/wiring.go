package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"igharvest/pkg/auth"
	"igharvest/pkg/config"
	"igharvest/pkg/discovery"
	"igharvest/pkg/fetcher"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
	"igharvest/pkg/metrics"
)

// loadConfig loads configuration and installs the global logger.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// loadAccounts parses the account list file at path.
func loadAccounts(path string) (*instagram.AccountList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open account list: %w", err)
	}
	defer f.Close()

	return instagram.DefaultNormalizer.ParseAccountList(f)
}

// credentialManager returns the full credential stack, or the read-only
// environment and session file stores when the config directory is unusable.
func credentialManager(cfg *config.Config) *auth.Manager {
	manager, err := auth.NewManager(cfg.Session.CredentialFile)
	if err != nil {
		logger.WithError(err).Warn("credential stores unavailable, using environment and session file only")
		return auth.NewManagerWithStores(auth.NewEnvironmentStore(), auth.NewSessionFileStore(cfg.Session.CredentialFile))
	}
	return manager
}

// resolveSession picks the session for the run: a configured session id
// wins, otherwise the credential stored under the configured label. Without
// either the run browses anonymously.
func resolveSession(cfg *config.Config, manager *auth.Manager) (discovery.Session, string) {
	session := discovery.Session{ID: cfg.Session.SessionID, UserAgent: cfg.Session.UserAgent}
	if session.ID != "" {
		return session, "config"
	}

	cred, err := manager.Retrieve(cfg.Session.Label)
	if err != nil {
		return session, "none"
	}
	session.ID = cred.SessionID
	if session.UserAgent == "" {
		session.UserAgent = cred.UserAgent
	}
	return session, cred.Label
}

// discoveryOptions maps the discovery section onto discovery.Options.
func discoveryOptions(cfg *config.Config) discovery.Options {
	opts := discovery.DefaultOptions()
	d := cfg.Discovery
	if d.NavigationTimeout > 0 {
		opts.NavigationTimeout = d.NavigationTimeout
	}
	if d.GridWait > 0 {
		opts.GridWait = d.GridWait
	}
	if d.LinkDeadline > 0 {
		opts.LinkDeadline = d.LinkDeadline
	}
	if d.CarouselLimit > 0 {
		opts.CarouselLimit = d.CarouselLimit
	}
	if d.MinImageWidth > 0 {
		opts.MinImageWidth = d.MinImageWidth
	}
	if len(d.MediaHosts) > 0 {
		opts.MediaHosts = d.MediaHosts
	}
	if cfg.Harvest.DefaultTarget > 0 {
		opts.DefaultTarget = cfg.Harvest.DefaultTarget
	}
	return opts
}

// fetcherOptions maps the download section onto fetcher.Options.
func fetcherOptions(cfg *config.Config, userAgent string, ceiling *rate.Limiter) fetcher.Options {
	if userAgent == "" {
		userAgent = instagram.DefaultUserAgent
	}
	return fetcher.Options{
		Retries:      cfg.Download.Retries,
		Backoff:      cfg.Download.BackoffInitial,
		Multiplier:   cfg.Download.BackoffMultiplier,
		Jitter:       cfg.Download.Jitter,
		MaxRedirects: cfg.Download.MaxRedirects,
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Referer":    instagram.BaseURL + "/",
		},
		Ceiling: ceiling,
	}
}

// startMetrics serves /metrics on addr until ctx ends. An empty addr returns
// a no-op recorder.
func startMetrics(ctx context.Context, addr string, log logger.Logger) metrics.Recorder {
	if addr == "" {
		return metrics.Nop()
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("addr", addr).Error("metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("metrics endpoint listening")
	return collector
}
