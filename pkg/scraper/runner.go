package scraper

import (
	"context"
	"os"
	"time"

	"golang.org/x/time/rate"

	"igharvest/pkg/cache"
	"igharvest/pkg/discovery"
	errs "igharvest/pkg/errors"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
	"igharvest/pkg/manifest"
	"igharvest/pkg/metrics"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/storage"
)

// Runner executes account jobs.
type Runner struct {
	discoverer Discoverer
	fetcher    Fetcher
	logger     logger.Logger
	recorder   metrics.Recorder
	ceiling    *rate.Limiter
	now        func() time.Time
}

// NewRunner creates a runner. ceiling, when set, is also waited on between
// post transitions so that page loads share the download request budget.
func NewRunner(discoverer Discoverer, fetcher Fetcher, log logger.Logger, recorder metrics.Recorder, ceiling *rate.Limiter) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Runner{
		discoverer: discoverer,
		fetcher:    fetcher,
		logger:     log,
		recorder:   recorder,
		ceiling:    ceiling,
		now:        time.Now,
	}
}

// Run harvests one account.
//
// Images are downloaded in discovery order. An image already in the cache is
// skipped, a failed image is logged and skipped, and the job stops asking for
// more posts once MaxItems new images were downloaded. The cache is saved
// whatever the outcome. The returned error is set only when the job failed.
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	log := r.logger.WithField("account", job.Account)
	result := Result{Account: job.Account, State: StateDiscovering}

	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return r.finish(log, result, nil, errs.AccountJob(job.Account, "setup", err))
	}
	store := job.cache()
	manifestLog := manifest.New(job.manifestPath())
	if err := manifestLog.Ensure(); err != nil {
		return r.finish(log, result, store, errs.AccountJob(job.Account, "setup", err))
	}

	h := &harvest{
		runner:   r,
		job:      job,
		log:      log,
		cache:    store,
		manifest: manifestLog,
		pacer:    ratelimit.NewPacer(job.Delay, r.ceiling),
		result:   &result,
	}

	log.DebugWithFields("harvest started", map[string]interface{}{
		"max_items": job.MaxItems,
		"delay":     h.pacer.Range().String(),
		"session":   job.Session.ID != "",
	})

	snapshotImage, snapshotHTML := storage.DebugFiles(job.OutputDir, job.Account)
	found, err := r.discoverer.Run(ctx, discovery.Target{
		Account:       job.Account,
		Session:       job.Session,
		MaxItems:      job.MaxItems,
		Pacer:         transitionPacer{h.pacer},
		SnapshotImage: snapshotImage,
		SnapshotHTML:  snapshotHTML,
	}, h.sink)
	if err != nil {
		if errs.TypeOf(err) != errs.ErrorTypeAccountJob {
			err = errs.AccountJob(job.Account, "discovery", err)
		}
		return r.finish(log, result, store, err)
	}

	result.Strategy = found.Strategy
	if found.Unavailable {
		result.State = StateUnavailable
		result.Reason = errs.AccountUnavailable(job.Account)
	} else {
		result.State = StateCompleted
	}
	return r.finish(log, result, store, nil)
}

// finish saves the cache and records the terminal state.
func (r *Runner) finish(log logger.Logger, result Result, store *cache.Cache, err error) (Result, error) {
	if store != nil {
		if saveErr := store.Save(); saveErr != nil {
			log.WithError(saveErr).WarnWithFields("failed to save cache", map[string]interface{}{
				"path":  store.Path(),
				"stage": "save",
			})
			if err == nil {
				err = errs.AccountJob(result.Account, "save cache", saveErr)
			}
		} else {
			log.DebugWithFields("cache saved", map[string]interface{}{
				"path": store.Path(),
				"keys": store.Len(),
			})
		}
	}
	if err != nil {
		result.State = StateFailed
	}

	r.recorder.RecordAccount(string(result.State))
	reason := err
	if reason == nil {
		reason = result.Reason
	}
	logger.LogAccountOutcome(log, result.Account, string(result.State), result.Downloaded, reason)
	return result, err
}

type harvest struct {
	runner   *Runner
	job      Job
	log      logger.Logger
	cache    *cache.Cache
	manifest *manifest.Log
	pacer    *ratelimit.Pacer
	result   *Result
}

func (h *harvest) capReached() bool {
	return h.job.MaxItems > 0 && h.result.Downloaded >= h.job.MaxItems
}

// sink downloads the images of one post and reports whether discovery
// should continue.
func (h *harvest) sink(ctx context.Context, post discovery.Post) bool {
	h.result.State = StateDownloading
	postURL := post.URL
	if postURL == "" {
		postURL = instagram.PostURL(post.ID)
	}

	for idx, imageURL := range post.Images {
		if h.capReached() || ctx.Err() != nil {
			return false
		}

		key := cache.Key(post.ID, imageURL)
		if h.cache.Has(key) {
			h.result.Skipped++
			h.runner.recorder.RecordImage(metrics.ImageSkipped)
			continue
		}

		stamp := h.runner.now()
		if post.TakenAt != nil {
			stamp = *post.TakenAt
		}
		filename := storage.ImageFilename(stamp.UnixMilli(), post.ID, idx, imageURL)
		dest, err := storage.FileIn(h.job.OutputDir, filename)
		if err == nil {
			_, err = h.runner.fetcher.Fetch(ctx, imageURL, dest)
		}

		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			h.result.Failed++
			h.runner.recorder.RecordImage(metrics.ImageFailed)
			logger.LogDownload(h.log, h.job.Account, post.ID, imageURL, errs.ImageDownload(imageURL, err))
		} else {
			h.result.Downloaded++
			h.runner.recorder.RecordImage(metrics.ImageDownloaded)
			logger.LogDownload(h.log, h.job.Account, post.ID, imageURL, nil)
			h.record(post, postURL, imageURL, filename)
		}

		if err := h.pacer.Delay(ctx); err != nil {
			return false
		}
	}
	return !h.capReached()
}

// record appends to the manifest and marks the image downloaded. A manifest
// failure is logged; the file is on disk so the key is still added.
func (h *harvest) record(post discovery.Post, postURL, imageURL, filename string) {
	rec := manifest.Record{
		Account:      h.job.Account,
		PostID:       post.ID,
		PostURL:      postURL,
		ImageURL:     imageURL,
		Filename:     filename,
		DownloadedAt: h.runner.now().UTC(),
		PostTime:     post.TakenAt,
	}
	if err := h.manifest.Append(rec); err != nil {
		h.log.WithError(err).WarnWithFields("failed to append manifest record", map[string]interface{}{
			"url":   imageURL,
			"stage": "manifest",
		})
	}
	h.cache.Add(cache.Key(post.ID, imageURL))
}

// transitionPacer spaces post transitions and also waits on the shared
// request ceiling.
type transitionPacer struct {
	pacer *ratelimit.Pacer
}

func (p transitionPacer) Delay(ctx context.Context) error {
	if err := p.pacer.Delay(ctx); err != nil {
		return err
	}
	return p.pacer.Acquire(ctx)
}
