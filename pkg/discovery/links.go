package discovery

import (
	"context"
	"strings"
	"time"

	errs "igharvest/pkg/errors"
	"igharvest/pkg/instagram"
)

// LinkStrategy scrolls the profile grid collecting post links, then visits
// each post and extracts its images.
type LinkStrategy struct{}

func (LinkStrategy) Name() string { return "links" }

func (s LinkStrategy) Discover(ctx context.Context, env *Env) Outcome {
	links := collectPostLinks(ctx, env)
	if len(links) == 0 {
		return Empty()
	}
	env.Logger.InfoWithFields("collected post links", map[string]interface{}{
		"account": env.Account,
		"links":   len(links),
	})

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return Failed(err)
		}
		if i > 0 {
			if err := env.Pacer.Delay(ctx); err != nil {
				return Failed(err)
			}
		}

		post, err := s.visit(ctx, env, link)
		if err != nil {
			env.Logger.WithError(err).WarnWithFields("failed to open post", map[string]interface{}{
				"account": env.Account,
				"url":     link,
				"stage":   "discovery",
			})
			continue
		}
		if !env.Sink(ctx, post) {
			break
		}
	}
	return Found(len(links))
}

func (LinkStrategy) visit(ctx context.Context, env *Env, link string) (Post, error) {
	navCtx, cancel := context.WithTimeout(ctx, env.Options.NavigationTimeout)
	err := env.Page.Navigate(navCtx, link)
	cancel()
	if err != nil {
		return Post{}, err
	}
	if err := pause(ctx, env.Options.PostSettle); err != nil {
		return Post{}, err
	}
	dismissOverlays(ctx, env)

	post := Post{ID: instagram.ShortcodeFromURL(link), URL: link}
	if post.ID == "" {
		post.ID = fallbackID()
	}
	post.Images = collectPostImages(ctx, env)

	if stamps, err := env.Page.QueryAttr(ctx, "time", "datetime"); err == nil {
		for _, stamp := range stamps {
			if t, err := time.Parse(time.RFC3339, stamp); err == nil {
				t = t.UTC()
				post.TakenAt = &t
				break
			}
		}
	}
	return post, nil
}

// collectPostLinks scrolls until Want links are known or LinkDeadline passes.
func collectPostLinks(ctx context.Context, env *Env) []string {
	deadline := time.Now().Add(env.Options.LinkDeadline)

	var links []string
	seen := make(map[string]bool)
	pull := func() {
		hrefs, err := env.Page.QueryAttr(ctx, "a", "href")
		if err != nil {
			return
		}
		for _, href := range hrefs {
			if !strings.Contains(href, "/p/") {
				continue
			}
			abs := instagram.AbsoluteURL(href)
			if abs != "" && !seen[abs] {
				seen[abs] = true
				links = append(links, abs)
			}
		}
	}

	pull()
	for len(links) < env.Want && time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		_ = env.Page.Scroll(ctx)
		if pause(ctx, env.Options.ScrollWait) != nil {
			break
		}
		pull()
	}

	if len(links) < env.Want && !time.Now().Before(deadline) {
		env.Logger.DebugWithFields("link collection deadline elapsed", map[string]interface{}{
			"account": env.Account,
			"error":   errs.DiscoveryTimeout("links", len(links)).Error(),
		})
	}
	if len(links) > env.Want {
		links = links[:env.Want]
	}
	return links
}
