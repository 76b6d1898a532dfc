package instagram

import (
	"encoding/json"
	"fmt"
	"time"

	errs "igharvest/pkg/errors"
)

// ProfileInfoResponse is the body of the web_profile_info endpoint.
type ProfileInfoResponse struct {
	Data   Data   `json:"data"`
	Status string `json:"status"`
}

// Data wraps the user information in the response
type Data struct {
	User *User `json:"user"`
}

// User holds the fields of a profile used for discovery.
type User struct {
	ID                       string    `json:"id"`
	Username                 string    `json:"username"`
	IsPrivate                bool      `json:"is_private"`
	EdgeOwnerToTimelineMedia MediaEdge `json:"edge_owner_to_timeline_media"`
}

// MediaEdge is a paginated list of media nodes.
type MediaEdge struct {
	Count int    `json:"count"`
	Edges []Edge `json:"edges"`
}

// Edge wraps a single media node
type Edge struct {
	Node Node `json:"node"`
}

// Node is one post, or one child of a carousel post.
type Node struct {
	ID                    string     `json:"id"`
	Shortcode             string     `json:"shortcode"`
	DisplayURL            string     `json:"display_url"`
	IsVideo               bool       `json:"is_video"`
	TakenAtTimestamp      int64      `json:"taken_at_timestamp"`
	EdgeSidecarToChildren *MediaEdge `json:"edge_sidecar_to_children,omitempty"`
}

// MediaItem is one post's still images in display order.
type MediaItem struct {
	Shortcode string
	TakenAt   *time.Time
	Images    []string
}

// MediaItems flattens the timeline into posts with their image URLs. Video
// nodes, and carousel children that are videos, are skipped; posts left with
// no images are dropped. At most limit posts are returned when limit > 0.
//
// A post without a shortcode is identified by its media id, and by nothing
// when that is missing too. Posts whose identifier is not a valid shortcode
// are dropped.
func (r *ProfileInfoResponse) MediaItems(limit int) []MediaItem {
	if r == nil || r.Data.User == nil {
		return nil
	}

	var items []MediaItem
	for _, edge := range r.Data.User.EdgeOwnerToTimelineMedia.Edges {
		if limit > 0 && len(items) >= limit {
			break
		}
		node := edge.Node

		var images []string
		if node.EdgeSidecarToChildren != nil && len(node.EdgeSidecarToChildren.Edges) > 0 {
			for _, child := range node.EdgeSidecarToChildren.Edges {
				if !child.Node.IsVideo && child.Node.DisplayURL != "" {
					images = append(images, child.Node.DisplayURL)
				}
			}
		} else if !node.IsVideo && node.DisplayURL != "" {
			images = append(images, node.DisplayURL)
		}
		code := node.Shortcode
		if code == "" {
			code = node.ID
		}
		if len(images) == 0 || (code != "" && !ValidShortcode(code)) {
			continue
		}

		item := MediaItem{Shortcode: code, Images: images}
		if node.TakenAtTimestamp > 0 {
			t := time.Unix(node.TakenAtTimestamp, 0).UTC()
			item.TakenAt = &t
		}
		items = append(items, item)
	}
	return items
}

// DecodeProfileInfo parses a web_profile_info body.
func DecodeProfileInfo(body []byte) (*ProfileInfoResponse, error) {
	var resp ProfileInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse profile info (body %q)", preview),
			Err:     err,
		}
	}
	return &resp, nil
}
