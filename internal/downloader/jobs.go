package downloader

import (
	"igharvest/pkg/cache"
	"igharvest/pkg/discovery"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/scraper"
	"igharvest/pkg/storage"
)

// JobTemplate holds the settings shared by every account of a run.
type JobTemplate struct {
	MaxItems int
	Delay    ratelimit.DelayRange
	Session  discovery.Session
}

// BuildJobs creates one job per account, each with its own directory,
// cache and manifest under layout.
func BuildJobs(layout storage.Layout, accounts []string, tmpl JobTemplate) []scraper.Job {
	jobs := make([]scraper.Job, 0, len(accounts))
	for _, account := range accounts {
		jobs = append(jobs, scraper.Job{
			Account:      account,
			OutputDir:    layout.AccountDir(account),
			MaxItems:     tmpl.MaxItems,
			Delay:        tmpl.Delay,
			Session:      tmpl.Session,
			Cache:        cache.New(layout.CachePath(account)),
			ManifestPath: layout.ManifestPath(account),
		})
	}
	return jobs
}
