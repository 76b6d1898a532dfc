package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/internal/staticpage"
	"igharvest/pkg/discovery"
	"igharvest/pkg/fetcher"
	"igharvest/pkg/logger"
	"igharvest/pkg/manifest"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/scraper"
	"igharvest/pkg/storage"
)

// mockService serves profile pages, post pages and media for a handful of
// accounts. Requests for the real site are routed to it by siteTransport.
type mockService struct {
	server     *httptest.Server
	mediaHits  atomic.Int32
	postVisits atomic.Int32
}

func newMockService(t *testing.T) *mockService {
	t.Helper()
	m := &mockService{}

	mux := http.NewServeMux()
	mux.HandleFunc("/alice/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><main><h2>alice</h2><article>
			<a href="/p/AAA/"><img src="/thumb_a.jpg"></a>
			<a href="/p/BBB/"><img src="/thumb_b.jpg"></a>
		</article></main></body></html>`)
	})
	mux.HandleFunc("/hidden/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><main><h2>This Account is Private</h2></main></body></html>`)
	})
	mux.HandleFunc("/p/", func(w http.ResponseWriter, r *http.Request) {
		m.postVisits.Add(1)
		code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/p/"), "/")
		fmt.Fprintf(w, `<html><body><div role="dialog"><article>
			<img src="%[1]s/media/%[2]s_1.jpg" width="1080">
			<time datetime="2024-05-01T10:00:00.000Z">May 1</time>
		</article></div></body></html>`, m.server.URL, code)
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		m.mediaHits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprintf(w, "jpeg:%s", r.URL.Path)
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

// siteTransport sends requests for the real site to the mock service.
type siteTransport struct {
	target *url.URL
}

func (s siteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Hostname(), "instagram.com") {
		req = req.Clone(req.Context())
		req.URL.Scheme = s.target.Scheme
		req.URL.Host = s.target.Host
		req.Host = s.target.Host
	}
	return http.DefaultTransport.RoundTrip(req)
}

func newPipeline(t *testing.T, m *mockService, concurrency int) *Scheduler {
	t.Helper()
	target, err := url.Parse(m.server.URL)
	require.NoError(t, err)

	log := logger.NewNopLogger()
	provider := staticpage.NewProvider(&http.Client{Transport: siteTransport{target: target}, Timeout: 5 * time.Second}, log)

	opts := discovery.DefaultOptions()
	opts.SettleDelay = 0
	opts.PostSettle = 0
	opts.ScrollWait = time.Millisecond
	opts.CarouselWait = 0
	opts.DismissWait = 0
	opts.GridWait = 0
	opts.LinkDeadline = 50 * time.Millisecond
	opts.MediaHosts = []string{target.Hostname()}
	chain := discovery.NewChain(provider, nil, opts, log, nil)

	fopts := fetcher.DefaultOptions()
	fopts.Backoff = time.Millisecond
	fetch := fetcher.New(http.DefaultClient, fopts, log, nil)

	return NewScheduler(scraper.NewRunner(chain, fetch, log, nil, nil), concurrency, log)
}

func TestPipelineEndToEnd(t *testing.T) {
	m := newMockService(t)
	scheduler := newPipeline(t, m, 2)

	layout := storage.NewLayout(t.TempDir())
	accounts := []string{"alice", "hidden", "ghost"}
	_, err := layout.Prepare(accounts)
	require.NoError(t, err)

	jobs := BuildJobs(layout, accounts, JobTemplate{Delay: ratelimit.DelayRange{}})
	batch := scheduler.Run(context.Background(), jobs)

	require.Len(t, batch.Accounts, 3)
	assert.Equal(t, 2, batch.TotalDownloaded)
	assert.Equal(t, 1, batch.Unavailable)
	assert.Equal(t, 1, batch.Failed)

	alice := batch.Accounts[0]
	assert.Equal(t, scraper.StateCompleted, alice.State)
	assert.Equal(t, "links", alice.Strategy)
	assert.NoError(t, alice.Err)

	assert.Equal(t, scraper.StateUnavailable, batch.Accounts[1].State)
	assert.NoError(t, batch.Accounts[1].Err)

	assert.Equal(t, scraper.StateFailed, batch.Accounts[2].State)
	assert.Error(t, batch.Accounts[2].Err)

	// 2024-05-01T10:00:00Z in milliseconds
	for _, name := range []string{"1714557600000_AAA_00.jpg", "1714557600000_BBB_00.jpg"} {
		data, err := os.ReadFile(filepath.Join(layout.AccountDir("alice"), name))
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(string(data), "jpeg:/media/"))
	}

	records, err := manifest.Read(layout.ManifestPath("alice"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alice", records[0].Account)

	// A second run finds everything cached.
	hits := m.mediaHits.Load()
	again := scheduler.Run(context.Background(), BuildJobs(layout, []string{"alice"}, JobTemplate{}))
	assert.Equal(t, 0, again.TotalDownloaded)
	assert.Equal(t, 2, again.Accounts[0].Skipped)
	assert.Equal(t, hits, m.mediaHits.Load())

	records, err = manifest.Read(layout.ManifestPath("alice"))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestPipelineRespectsCap(t *testing.T) {
	m := newMockService(t)
	scheduler := newPipeline(t, m, 1)
	layout := storage.NewLayout(t.TempDir())

	batch := scheduler.Run(context.Background(), BuildJobs(layout, []string{"alice"}, JobTemplate{MaxItems: 1}))

	assert.Equal(t, 1, batch.TotalDownloaded)
	assert.Equal(t, int32(1), m.mediaHits.Load())
	assert.Equal(t, int32(1), m.postVisits.Load())
}
