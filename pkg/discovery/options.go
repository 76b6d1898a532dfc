package discovery

import (
	"time"

	"igharvest/pkg/instagram"
)

// Options holds the timings and limits of discovery.
type Options struct {
	// NavigationTimeout bounds every page load
	NavigationTimeout time.Duration
	// SettleDelay is waited after the profile loads
	SettleDelay time.Duration
	// GridWait bounds the wait for the post grid before the availability check
	GridWait time.Duration
	// LinkDeadline is the wall-clock budget of link collection
	LinkDeadline time.Duration
	// ScrollWait is waited after each scroll
	ScrollWait time.Duration
	// PostSettle is waited after a post page loads
	PostSettle time.Duration
	// CarouselLimit caps the number of images stepped through in one post
	CarouselLimit int
	// CarouselWait is waited after advancing a carousel
	CarouselWait time.Duration
	// OpenPostWait bounds the wait for a clicked post to open
	OpenPostWait time.Duration
	// NextPostWait bounds the wait for the location to change on "next post"
	NextPostWait time.Duration
	// DismissWait is waited after closing an overlay
	DismissWait time.Duration
	// DefaultTarget is the number of posts sought when no cap is set
	DefaultTarget int
	// MinImageWidth rejects smaller images when their width is known
	MinImageWidth int
	// MediaHosts are substrings a media URL's host must contain
	MediaHosts []string
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		NavigationTimeout: 60 * time.Second,
		SettleDelay:       1500 * time.Millisecond,
		GridWait:          8 * time.Second,
		LinkDeadline:      20 * time.Second,
		ScrollWait:        700 * time.Millisecond,
		PostSettle:        1000 * time.Millisecond,
		CarouselLimit:     15,
		CarouselWait:      700 * time.Millisecond,
		OpenPostWait:      3 * time.Second,
		NextPostWait:      1200 * time.Millisecond,
		DismissWait:       300 * time.Millisecond,
		DefaultTarget:     80,
		MinImageWidth:     640,
		MediaHosts:        instagram.DefaultMediaHosts,
	}
}
