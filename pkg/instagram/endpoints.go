package instagram

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// BaseURL is the web origin of the service
	BaseURL = "https://www.instagram.com"

	// Domain is the registrable domain account URLs must belong to
	Domain = "instagram.com"

	// WebProfileInfoEndpoint returns an account's profile and recent media
	WebProfileInfoEndpoint = "/api/v1/users/web_profile_info/"

	// AppID is sent as x-ig-app-id on API requests made from the web client
	AppID = "936619743392459"

	// SessionCookie is the name of the authentication cookie
	SessionCookie = "sessionid"

	// DefaultUserAgent is a desktop browser user agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// DefaultMediaHosts match the hosts images are served from.
var DefaultMediaHosts = []string{"cdninstagram", "instagram.f", "fbcdn"}

// ProfileURL returns the public profile page of account.
func ProfileURL(account string) string {
	if account == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, account)
}

// PostURL returns the permalink of the post with the given shortcode.
func PostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// WebProfileInfoURL returns the metadata endpoint for account.
func WebProfileInfoURL(account string) string {
	params := url.Values{}
	params.Set("username", account)
	return fmt.Sprintf("%s%s?%s", BaseURL, WebProfileInfoEndpoint, params.Encode())
}

// APIHeaders are the headers the web client sends with metadata requests.
func APIHeaders(sessionID, userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	headers := map[string]string{
		"x-ig-app-id": AppID,
		"User-Agent":  userAgent,
		"Accept":      "application/json",
	}
	if sessionID != "" {
		headers["Cookie"] = fmt.Sprintf("%s=%s;", SessionCookie, sessionID)
	}
	return headers
}

var (
	shortcodePattern = regexp.MustCompile(`/(?:p|reel|tv)/([\w-]+)/`)
	shortcodeChars   = regexp.MustCompile(`^[\w-]+$`)
)

// ValidShortcode reports whether s consists only of the word characters and
// dashes that post shortcodes are made of.
func ValidShortcode(s string) bool {
	return shortcodeChars.MatchString(s)
}

// ShortcodeFromURL extracts the post shortcode from a /p/, /reel/ or /tv/
// permalink, or returns "".
func ShortcodeFromURL(u string) string {
	if !strings.HasSuffix(u, "/") {
		if i := strings.IndexAny(u, "?#"); i >= 0 {
			u = u[:i]
		}
		u += "/"
	}
	m := shortcodePattern.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}

// AbsoluteURL resolves href against BaseURL.
func AbsoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, _ := url.Parse(BaseURL)
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
