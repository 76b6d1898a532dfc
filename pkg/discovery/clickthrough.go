package discovery

import (
	"context"

	"igharvest/pkg/instagram"
)

// ClickThroughStrategy opens the first post of the grid and walks forward
// post by post, the way a person paging through the overlay would. The walk
// ends when the next control stops moving, the sink declines, or a post comes
// round a second time.
type ClickThroughStrategy struct{}

func (ClickThroughStrategy) Name() string { return "clickthrough" }

func (ClickThroughStrategy) Discover(ctx context.Context, env *Env) Outcome {
	if !clickFirst(ctx, env.Page, openPostSelectors) {
		return Empty()
	}
	if err := pause(ctx, env.Options.PostSettle); err != nil {
		return Failed(err)
	}
	if !inPost(ctx, env) {
		return Empty()
	}

	visited := 0
	prevID := ""
	seen := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return Failed(err)
		}

		current := env.Page.URL()
		if seen[current] {
			break
		}
		seen[current] = true
		id := instagram.ShortcodeFromURL(current)
		if id == "" {
			id = prevID
		}
		if id == "" {
			id = fallbackID()
		}

		_, _ = env.Page.WaitForSelector(ctx, postArticle, env.Options.OpenPostWait)
		post := Post{ID: id, URL: current, Images: collectPostImages(ctx, env)}
		visited++
		prevID = id
		if !env.Sink(ctx, post) {
			break
		}

		if !advance(ctx, env, current) {
			break
		}
		if err := env.Pacer.Delay(ctx); err != nil {
			return Failed(err)
		}
	}
	return Found(visited)
}

// inPost reports whether a post overlay or permalink page is showing.
func inPost(ctx context.Context, env *Env) bool {
	if ok, err := env.Page.WaitForSelector(ctx, `div[role="dialog"] article`, env.Options.OpenPostWait); err == nil && ok {
		return true
	}
	return instagram.ShortcodeFromURL(env.Page.URL()) != ""
}

// advance moves to the next post, first with the keyboard and then with the
// overlay's next control. It reports whether the location changed.
func advance(ctx context.Context, env *Env, from string) bool {
	if err := env.Page.PressKey(ctx, "ArrowRight"); err == nil {
		if moved, err := env.Page.WaitForURLChange(ctx, from, env.Options.NextPostWait); err == nil && moved {
			return true
		}
	}
	clickFirst(ctx, env.Page, nextPostSelectors)
	moved, err := env.Page.WaitForURLChange(ctx, from, env.Options.NextPostWait)
	return err == nil && moved
}
