package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igharvest/pkg/errors"
	"igharvest/pkg/logger"
)

func testFetcher(opts Options) *Fetcher {
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	return New(client, opts, logger.NewNopLogger(), nil)
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.Backoff = time.Millisecond
	return opts
}

// dropConnection closes the connection without writing a response.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	conn.Close()
}

// truncatedResponse promises more bytes than it sends, then hangs up.
func truncatedResponse(t *testing.T, w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, buf, err := hj.Hijack()
	require.NoError(t, err)
	fmt.Fprint(buf, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\npartial")
	buf.Flush()
	conn.Close()
}

func assertNoFiles(t *testing.T, dest string) {
	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "destination should not exist")
	_, err = os.Stat(dest + PartSuffix)
	assert.True(t, os.IsNotExist(err), "part file should be cleaned up")
}

func TestFetchWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "igharvest-test", r.Header.Get("User-Agent"))
		w.Write([]byte("jpeg bytes"))
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.Headers = map[string]string{"User-Agent": "igharvest-test"}
	dest := filepath.Join(t.TempDir(), "alice", "1_ABC_01.jpg")

	got, err := testFetcher(opts).Fetch(context.Background(), srv.URL+"/a.jpg", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, got)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
	_, err = os.Stat(dest + PartSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchStatusFailsWithoutRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := testFetcher(fastOptions()).Fetch(context.Background(), srv.URL+"/a.jpg", dest)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeHTTPStatus))
	assert.Contains(t, err.Error(), "HTTP 404 for "+srv.URL+"/a.jpg")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assertNoFiles(t, dest)
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "final.jpg")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("final"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := testFetcher(fastOptions()).Fetch(context.Background(), srv.URL+"/start", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "final", string(data))
}

func TestFetchBoundsRedirectChain(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.MaxRedirects = 2
	dest := filepath.Join(t.TempDir(), "a.jpg")

	_, err := testFetcher(opts).Fetch(context.Background(), srv.URL+"/loop", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many redirects")
	assert.True(t, errs.IsType(err, errs.ErrorTypeHTTPStatus))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assertNoFiles(t, dest)
}

func TestFetchGivesUpAfterRetryBudget(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		dropConnection(t, w)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := testFetcher(fastOptions()).Fetch(context.Background(), srv.URL+"/a.jpg", dest)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTransport))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assertNoFiles(t, dest)
}

func TestFetchSharesRetryBudgetAcrossRedirects(t *testing.T) {
	var first, second int32
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&first, 1) <= 2 {
			dropConnection(t, w)
			return
		}
		http.Redirect(w, r, "/b", http.StatusFound)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&second, 1)
		dropConnection(t, w)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := testFetcher(fastOptions()).Fetch(context.Background(), srv.URL+"/a", dest)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTransport))
	assert.Equal(t, int32(3), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second), "redirect target gets only the remaining attempt")
	assertNoFiles(t, dest)
}

func TestBackoffContinuesAcrossHops(t *testing.T) {
	f := testFetcher(DefaultOptions())
	assert.Equal(t, 800*time.Millisecond, f.backoff(0).BaseDelay)
	assert.Equal(t, 2312*time.Millisecond, f.backoff(2).BaseDelay.Round(time.Millisecond))
}

func TestFetchRecoversFromTransientFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			dropConnection(t, w)
			return
		}
		w.Write([]byte("third time lucky"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := testFetcher(fastOptions()).Fetch(context.Background(), srv.URL+"/a.jpg", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", string(data))
}

func TestFetchNeverExposesTruncatedBody(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		truncatedResponse(t, w)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := testFetcher(fastOptions()).Fetch(context.Background(), srv.URL+"/a.jpg", dest)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTransport))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assertNoFiles(t, dest)
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dropConnection(t, w)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := testFetcher(fastOptions()).Fetch(ctx, srv.URL+"/a.jpg", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assertNoFiles(t, dest)
}

func TestNewClientBlocksLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("should not be reached"))
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.Retries = 1
	f := New(NewClient(time.Second, true), opts, logger.NewNopLogger(), nil)

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := f.Fetch(context.Background(), srv.URL+"/a.jpg", dest)
	require.Error(t, err)
	assertNoFiles(t, dest)
}
