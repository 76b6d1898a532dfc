// Package ratelimit paces the harvester's traffic against the remote service.
//
// A Pacer sleeps for a uniformly random duration from a configured DelayRange
// after every image download and between every post or page transition, which
// keeps request patterns from looking bursty. A Pacer may also carry a shared
// golang.org/x/time/rate limiter that caps the request rate across every
// concurrently running account job.
//
//	delay, err := ratelimit.ParseDelayRange("1200-2500")
//	pacer := ratelimit.NewPacer(delay, ratelimit.NewCeiling(cfg.RequestsPerMinute, cfg.Burst))
//	if err := pacer.Delay(ctx); err != nil {
//		return err // cancelled
//	}
package ratelimit
