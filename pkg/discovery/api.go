package discovery

import (
	"context"
	"fmt"
	"net/http"

	errs "igharvest/pkg/errors"
	"igharvest/pkg/instagram"
)

// APIStrategy asks the profile metadata endpoint for the account's recent
// media. Its results carry publication times and every carousel image, so
// posts need not be opened.
type APIStrategy struct{}

func (APIStrategy) Name() string { return "api" }

func (APIStrategy) Discover(ctx context.Context, env *Env) Outcome {
	target := instagram.WebProfileInfoURL(env.Account)
	resp, err := env.Page.Request(ctx, target, instagram.APIHeaders(env.Session.ID, env.Session.UserAgent))
	if err != nil {
		return Failed(err)
	}
	if resp.Status != http.StatusOK {
		return Failed(errs.HTTPStatus(resp.Status, target))
	}

	info, err := instagram.DecodeProfileInfo(resp.Body)
	if err != nil {
		return Failed(err)
	}
	items := info.MediaItems(env.Want)
	if len(items) == 0 {
		return Empty()
	}

	env.Logger.InfoWithFields("profile API returned media", map[string]interface{}{
		"account": env.Account,
		"posts":   len(items),
	})
	for i, item := range items {
		post := Post{
			ID:      item.Shortcode,
			URL:     instagram.PostURL(item.Shortcode),
			TakenAt: item.TakenAt,
			Images:  item.Images,
		}
		if post.ID == "" {
			post.ID = fmt.Sprintf("%s-%d", fallbackID(), i)
			post.URL = instagram.ProfileURL(env.Account)
		}
		if !env.Sink(ctx, post) {
			break
		}
	}
	return Found(len(items))
}
