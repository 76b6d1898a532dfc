package discovery

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	avatarAlt     = regexp.MustCompile(`profile picture|頭像|avatar`)
	thumbnailPath = regexp.MustCompile(`/(s\d+x\d+|\d+x\d+)/`)
	assetMarker   = regexp.MustCompile(`sprite|favicon|static|stories`)
)

// ImageSelector picks the full-size media images out of a post.
type ImageSelector struct {
	// MediaHosts are substrings a URL's host must contain
	MediaHosts []string
	// MinWidth rejects images narrower than this when their width is known
	MinWidth int
}

// NewImageSelector builds a selector from the discovery options.
func NewImageSelector(opts Options) ImageSelector {
	return ImageSelector{MediaHosts: opts.MediaHosts, MinWidth: opts.MinImageWidth}
}

// Select returns the chosen URL of every qualifying image, deduplicated and
// in document order. Avatars and header images are skipped; when a srcset is
// present its widest entry wins, otherwise src with the natural width.
func (s ImageSelector) Select(images []ImageElement) []string {
	var chosen []string
	seen := make(map[string]bool)

	for _, img := range images {
		if img.InHeader || avatarAlt.MatchString(strings.ToLower(img.Alt)) {
			continue
		}

		var candidate string
		var width int
		if strings.TrimSpace(img.Srcset) != "" {
			candidate, width = widestSource(img.Srcset)
		} else {
			candidate, width = img.Src, img.NaturalWidth
		}
		if candidate == "" || seen[candidate] || !s.accepts(candidate, width) {
			continue
		}
		seen[candidate] = true
		chosen = append(chosen, candidate)
	}
	return chosen
}

func (s ImageSelector) accepts(raw string, width int) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if !s.mediaHost(u.Host) {
		return false
	}
	if thumbnailPath.MatchString(u.Path) || assetMarker.MatchString(raw) {
		return false
	}
	if width > 0 && width < s.MinWidth {
		return false
	}
	return true
}

func (s ImageSelector) mediaHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range s.MediaHosts {
		if strings.Contains(host, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// widestSource parses "url 320w, url 1080w" and returns the entry with the
// largest declared width. Entries without a width count as zero.
func widestSource(srcset string) (string, int) {
	best, bestWidth := "", -1
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 {
			continue
		}
		width := 0
		if len(fields) > 1 {
			width, _ = strconv.Atoi(strings.TrimFunc(fields[1], func(r rune) bool {
				return r < '0' || r > '9'
			}))
		}
		if width > bestWidth {
			best, bestWidth = fields[0], width
		}
	}
	if bestWidth < 0 {
		return "", 0
	}
	return best, bestWidth
}
