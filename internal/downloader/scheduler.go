// Package downloader dispatches account jobs across a bounded number of
// concurrent runners and aggregates their results.
package downloader

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	errs "igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/scraper"
)

// AccountRunner executes one account job.
type AccountRunner interface {
	Run(ctx context.Context, job scraper.Job) (scraper.Result, error)
}

// AccountResult is the outcome of one dispatched job.
type AccountResult struct {
	scraper.Result
	Err      error
	Duration time.Duration
}

// BatchResult aggregates a whole run. Accounts keep the input order.
type BatchResult struct {
	RunID           string
	Accounts        []AccountResult
	TotalDownloaded int
	Failed          int
	Unavailable     int
	Duration        time.Duration
}

// Scheduler runs account jobs with at most a fixed number in flight.
type Scheduler struct {
	runner      AccountRunner
	concurrency int
	logger      logger.Logger
	active      atomic.Int32
}

// NewScheduler creates a scheduler. concurrency below 1 is treated as 1.
func NewScheduler(runner AccountRunner, concurrency int, log logger.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scheduler{runner: runner, concurrency: concurrency, logger: log}
}

// Concurrency returns the in-flight limit.
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// Run dispatches jobs in order, starting the next one as soon as a slot
// frees up, and returns once none remain. A failed or panicking job is
// recorded in its AccountResult and never stops its siblings. Jobs not yet
// started when ctx ends are reported failed with ctx's error.
func (s *Scheduler) Run(ctx context.Context, jobs []scraper.Job) BatchResult {
	start := time.Now()
	batch := BatchResult{RunID: uuid.NewString(), Accounts: make([]AccountResult, len(jobs))}
	log := s.logger.WithField("run_id", batch.RunID)

	logger.LogComponentStart(log, "scheduler", map[string]interface{}{
		"accounts":    len(jobs),
		"concurrency": s.concurrency,
	})

	// Results are reported per job, so the group itself never fails and
	// must not cancel siblings.
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, job := range jobs {
		if ctx.Err() != nil {
			batch.Accounts[i] = skipped(job, ctx.Err())
			continue
		}
		g.Go(func() error {
			batch.Accounts[i] = s.dispatch(ctx, log, job)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range batch.Accounts {
		batch.TotalDownloaded += res.Downloaded
		switch {
		case res.Err != nil:
			batch.Failed++
		case res.State == scraper.StateUnavailable:
			batch.Unavailable++
		}
	}
	batch.Duration = time.Since(start)

	log.InfoWithFields("batch finished", map[string]interface{}{
		"accounts":         len(jobs),
		"total_downloaded": batch.TotalDownloaded,
		"failed":           batch.Failed,
		"unavailable":      batch.Unavailable,
		"duration":         batch.Duration.String(),
	})
	return batch
}

func (s *Scheduler) dispatch(ctx context.Context, log logger.Logger, job scraper.Job) (out AccountResult) {
	if err := ctx.Err(); err != nil {
		return skipped(job, err)
	}

	inFlight := s.active.Add(1)
	start := time.Now()
	defer func() {
		s.active.Add(-1)
		if r := recover(); r != nil {
			err := errs.AccountJob(job.Account, "run", fmt.Errorf("panic: %v", r))
			log.WithError(err).ErrorWithFields("account job panicked", map[string]interface{}{
				"account": job.Account,
			})
			out = AccountResult{Result: scraper.Result{Account: job.Account, State: scraper.StateFailed}, Err: err}
		}
		out.Duration = time.Since(start)
	}()

	log.DebugWithFields("account job started", map[string]interface{}{
		"account":   job.Account,
		"in_flight": inFlight,
	})
	res, err := s.runner.Run(ctx, job)
	if res.Account == "" {
		res.Account = job.Account
	}
	return AccountResult{Result: res, Err: err}
}

func skipped(job scraper.Job, err error) AccountResult {
	return AccountResult{
		Result: scraper.Result{Account: job.Account, State: scraper.StateFailed},
		Err:    errs.AccountJob(job.Account, "dispatch", err),
	}
}
