package discovery

import (
	"context"
	"strconv"
	"strings"
	"time"

	"igharvest/pkg/retry"
)

// UnavailablePhrases mark a private, removed or missing account. They are
// matched case-insensitively against the page text.
var UnavailablePhrases = []string{
	"this account is private",
	"sorry, this page isn't available",
	"page not found",
	"此帳號為私人",
	"找不到頁面",
	"該頁面無法使用",
}

const (
	gridLinkSelector = `a[href^="/p/"]`
	textSelector     = "h1, h2, h3, div, span, section"
	dialogScope      = `div[role="dialog"]`
	postImageQuery   = "article img"
	postArticle      = `div[role="dialog"] article, main article`
)

var dismissSelectors = []string{
	`button:has-text("Only allow essential cookies")`,
	`button:has-text("Allow all cookies")`,
	`button:has-text("允許必要")`,
	`button:has-text("接受所有")`,
	`button:has-text("Not Now")`,
	`button:has-text("稍後再說")`,
	`div[role="dialog"] button:has-text("Not now")`,
}

var carouselNextSelectors = []string{
	`div[role="dialog"] article button[aria-label="Next"]`,
	`article button[aria-label="Next"]`,
}

var openPostSelectors = []string{
	`main article a:has(img)`,
	`a[href*="/p/"]:has(img)`,
	`a[href*="/reel/"]:has(img)`,
	`a[href*="/tv/"]:has(img)`,
}

var nextPostSelectors = []string{
	`div[role="dialog"] a[role="link"]:has(svg[aria-label="Next post"])`,
	`div[role="dialog"] button:has(svg[aria-label="Next post"])`,
	`div[role="dialog"] a[role="link"]:has(svg[aria-label="Next"])`,
	`div[role="dialog"] button:has(svg[aria-label="Next"])`,
}

// pause waits d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	return retry.Wait(ctx, d)
}

// dismissOverlays closes cookie and login prompts. Every failure is ignored.
func dismissOverlays(ctx context.Context, env *Env) {
	for _, sel := range dismissSelectors {
		clicked, err := env.Page.Click(ctx, sel)
		if err == nil && clicked {
			_ = pause(ctx, env.Options.DismissWait)
		}
	}
}

// isUnavailable checks the page text for the unavailability phrases.
func isUnavailable(ctx context.Context, page Page) (bool, error) {
	text, err := page.TextContent(ctx, textSelector)
	if err != nil {
		return false, err
	}
	text = strings.ToLower(text)
	for _, phrase := range UnavailablePhrases {
		if strings.Contains(text, phrase) {
			return true, nil
		}
	}
	return false, nil
}

// collectPostImages extracts the images of the open post, stepping through a
// carousel until it stops advancing or CarouselLimit is reached.
func collectPostImages(ctx context.Context, env *Env) []string {
	var urls []string
	seen := make(map[string]bool)

	for i := 0; i < env.Options.CarouselLimit; i++ {
		elements, err := env.Page.QueryImages(ctx, dialogScope, postImageQuery)
		if err == nil {
			for _, u := range env.Images.Select(elements) {
				if !seen[u] {
					seen[u] = true
					urls = append(urls, u)
				}
			}
		}

		if !clickFirst(ctx, env.Page, carouselNextSelectors) {
			break
		}
		if pause(ctx, env.Options.CarouselWait) != nil {
			break
		}
	}
	return urls
}

// clickFirst clicks the first selector that matches.
func clickFirst(ctx context.Context, page Page, selectors []string) bool {
	for _, sel := range selectors {
		if clicked, err := page.Click(ctx, sel); err == nil && clicked {
			return true
		}
	}
	return false
}

// fallbackID stands in for a post whose shortcode cannot be read.
func fallbackID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
