// Package scraper runs one account job: discovery, then for every
// discovered image a cache check, a download, a manifest record and a cache
// update, paced by the job's delay range.
//
// A job moves through discovering and downloading to one of three terminal
// states. Completed and unavailable jobs return no error; failed jobs return
// an account_job error that callers log and move past.
//
//	runner := scraper.NewRunner(chain, fetch, log, recorder, nil)
//	res, err := runner.Run(ctx, scraper.Job{
//	    Account:   "alice",
//	    OutputDir: "downloads/alice",
//	    MaxItems:  20,
//	    Delay:     ratelimit.DefaultDelay,
//	})
package scraper
