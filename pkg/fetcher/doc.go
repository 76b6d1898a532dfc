// Package fetcher downloads single remote resources to disk.
//
// Each download streams into a sibling ".part" file that is renamed into
// place only after the body was fully received, so a crash or a failed
// attempt never leaves a truncated file at the destination. Transport
// failures are retried with exponential backoff through pkg/retry; any
// status other than 200 (after following redirects) fails immediately.
package fetcher
