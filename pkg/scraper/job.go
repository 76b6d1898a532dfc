package scraper

import (
	"context"
	"path/filepath"

	"igharvest/pkg/cache"
	"igharvest/pkg/discovery"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/storage"
)

// State is where an account job is in its lifecycle.
type State string

const (
	StateDiscovering State = "discovering"
	StateDownloading State = "downloading"
	StateCompleted   State = "completed"
	// StateUnavailable ends a job whose account is private or missing.
	StateUnavailable State = "unavailable"
	// StateFailed ends a job that could not discover or set up.
	StateFailed State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateUnavailable || s == StateFailed
}

// Job is one account to harvest.
type Job struct {
	Account string
	// OutputDir is the account's own directory
	OutputDir string
	// MaxItems caps newly downloaded images; 0 is unbounded
	MaxItems int
	Delay    ratelimit.DelayRange
	Session  discovery.Session
	// Cache defaults to the cache file inside OutputDir
	Cache *cache.Cache
	// ManifestPath defaults to the manifest file inside OutputDir
	ManifestPath string
}

func (j Job) cache() *cache.Cache {
	if j.Cache != nil {
		return j.Cache
	}
	return cache.New(filepath.Join(j.OutputDir, storage.CacheFile))
}

func (j Job) manifestPath() string {
	if j.ManifestPath != "" {
		return j.ManifestPath
	}
	return filepath.Join(j.OutputDir, storage.ManifestFile)
}

// Result is the outcome of one account job.
type Result struct {
	Account string
	State   State
	// Strategy names the discovery strategy that produced posts
	Strategy string
	// Downloaded counts images fetched by this run
	Downloaded int
	// Skipped counts images already in the cache
	Skipped int
	// Failed counts images whose download failed
	Failed int
	// Reason explains an Unavailable outcome
	Reason error
}

// Fetcher downloads one resource to a file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) (string, error)
}

// Discoverer streams the posts of an account into a sink.
type Discoverer interface {
	Run(ctx context.Context, target discovery.Target, sink discovery.Sink) (discovery.Result, error)
}
