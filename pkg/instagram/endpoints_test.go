package instagram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebProfileInfoURL(t *testing.T) {
	got := WebProfileInfoURL("test.user")
	assert.Equal(t, BaseURL+WebProfileInfoEndpoint+"?username=test.user", got)

	_, err := url.Parse(got)
	assert.NoError(t, err)
}

func TestProfileAndPostURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/alice/", ProfileURL("alice"))
	assert.Equal(t, "", ProfileURL(""))
	assert.Equal(t, "https://www.instagram.com/p/ABC_1-x/", PostURL("ABC_1-x"))
	assert.Equal(t, "", PostURL(""))
}

func TestShortcodeFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.instagram.com/p/ABC123/", "ABC123"},
		{"https://www.instagram.com/reel/R-1_2/", "R-1_2"},
		{"https://www.instagram.com/tv/TV9/?igsh=x", "TV9"},
		{"https://www.instagram.com/p/NOSLASH", "NOSLASH"},
		{"https://www.instagram.com/p/Q?utm=1", "Q"},
		{"https://www.instagram.com/alice/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortcodeFromURL(tt.in))
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/p/A/", AbsoluteURL("/p/A/"))
	assert.Equal(t, "https://cdn.example/x.jpg", AbsoluteURL("https://cdn.example/x.jpg"))
}

func TestAPIHeaders(t *testing.T) {
	h := APIHeaders("SESSION", "")
	assert.Equal(t, AppID, h["x-ig-app-id"])
	assert.Equal(t, "application/json", h["Accept"])
	assert.Equal(t, DefaultUserAgent, h["User-Agent"])
	assert.Equal(t, "sessionid=SESSION;", h["Cookie"])

	anon := APIHeaders("", "custom")
	_, hasCookie := anon["Cookie"]
	assert.False(t, hasCookie)
	assert.Equal(t, "custom", anon["User-Agent"])
}

func TestMediaItems(t *testing.T) {
	body := []byte(`{"data":{"user":{"edge_owner_to_timeline_media":{"edges":[
		{"node":{"shortcode":"VID","is_video":true,"display_url":"https://cdn/v.jpg"}},
		{"node":{"shortcode":"ONE","display_url":"https://cdn/1.jpg","taken_at_timestamp":1700000000}},
		{"node":{"shortcode":"CAR","display_url":"https://cdn/cover.jpg","edge_sidecar_to_children":{"edges":[
			{"node":{"display_url":"https://cdn/c1.jpg"}},
			{"node":{"display_url":"https://cdn/c2.mp4","is_video":true}},
			{"node":{"display_url":"https://cdn/c3.jpg"}}
		]}}},
		{"node":{"shortcode":"LAST","display_url":"https://cdn/last.jpg"}}
	]}}}}`)

	resp, err := DecodeProfileInfo(body)
	require.NoError(t, err)

	items := resp.MediaItems(2)
	require.Len(t, items, 2)
	assert.Equal(t, "ONE", items[0].Shortcode)
	assert.Equal(t, []string{"https://cdn/1.jpg"}, items[0].Images)
	require.NotNil(t, items[0].TakenAt)
	assert.Equal(t, int64(1700000000), items[0].TakenAt.Unix())
	assert.Equal(t, "CAR", items[1].Shortcode)
	assert.Equal(t, []string{"https://cdn/c1.jpg", "https://cdn/c3.jpg"}, items[1].Images)
	assert.Nil(t, items[1].TakenAt)

	assert.Len(t, resp.MediaItems(0), 3)
}

func TestMediaItemsIdentifiers(t *testing.T) {
	body := []byte(`{"data":{"user":{"edge_owner_to_timeline_media":{"edges":[
		{"node":{"shortcode":"x/../../../escaped","display_url":"https://cdn/evil.jpg"}},
		{"node":{"shortcode":"..","display_url":"https://cdn/dots.jpg"}},
		{"node":{"id":"3141592653","display_url":"https://cdn/byid.jpg"}},
		{"node":{"display_url":"https://cdn/anon.jpg"}},
		{"node":{"shortcode":"Ok_sc-1","display_url":"https://cdn/ok.jpg"}}
	]}}}}`)

	resp, err := DecodeProfileInfo(body)
	require.NoError(t, err)

	items := resp.MediaItems(0)
	require.Len(t, items, 3)
	assert.Equal(t, "3141592653", items[0].Shortcode)
	assert.Equal(t, "", items[1].Shortcode)
	assert.Equal(t, []string{"https://cdn/anon.jpg"}, items[1].Images)
	assert.Equal(t, "Ok_sc-1", items[2].Shortcode)
}

func TestValidShortcode(t *testing.T) {
	assert.True(t, ValidShortcode("CxYz_12-ab"))
	for _, s := range []string{"", "..", "a/b", `a\b`, "a b", "a.b"} {
		assert.False(t, ValidShortcode(s), s)
	}
}

func TestDecodeProfileInfoErrors(t *testing.T) {
	_, err := DecodeProfileInfo([]byte("<html>login</html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")

	resp, err := DecodeProfileInfo([]byte(`{"data":{"user":null}}`))
	require.NoError(t, err)
	assert.Empty(t, resp.MediaItems(10))
}
