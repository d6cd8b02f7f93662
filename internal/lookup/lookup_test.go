package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/contexthelper/internal/config"
	cherrors "github.com/jward/contexthelper/internal/errors"
)

func writeGzipJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	require.NoError(t, json.NewEncoder(zw).Encode(v))
	require.NoError(t, zw.Close())
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func testConfig(srv *httptest.Server, backend config.Backend) config.Config {
	cfg := config.DefaultConfig()
	cfg.Backend = backend
	cfg.APIKey = "k3y"
	cfg.APIURL = srv.URL + "/api"
	cfg.SearchURL = srv.URL + "/search"
	cfg.Timeout = 2 * time.Second
	cfg.CacheSize = 0
	cfg.ScrapeInterval = 0
	return cfg
}

func newTestClient(t *testing.T, srv *httptest.Server, backend config.Backend) Client {
	t.Helper()
	c, err := New(testConfig(srv, backend), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestKeyedAPI_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search/advanced", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "a b C", q.Get("q"))
		assert.Equal(t, "relevance", q.Get("sort"))
		assert.Equal(t, "stackoverflow", q.Get("site"))
		assert.Equal(t, "k3y", q.Get("key"))
		writeGzipJSON(t, w, map[string]any{
			"items": []map[string]any{
				{"question_id": 11, "title": "How do I use &quot;C&quot;?", "link": "https://stackoverflow.com/q/11", "answer_count": 3, "score": 7, "is_answered": true},
				{"question_id": 12, "title": "Unanswered", "answer_count": 0},
			},
		})
	}))
	defer srv.Close()

	threads, err := newTestClient(t, srv, config.BackendKeyedAPI).Search(context.Background(), "a b C")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, Thread{ID: 11, Title: `How do I use "C"?`, Link: "https://stackoverflow.com/q/11", AnswerCount: 3, Score: 7, IsAnswered: true}, threads[0])
	assert.Equal(t, 0, threads[1].AnswerCount)
}

func TestFetchAnswers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/questions/42/answers", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("pagesize"))
		assert.Equal(t, "votes", q.Get("sort"))
		assert.Equal(t, "withbody", q.Get("filter"))
		// Plain JSON is accepted as well.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"answer_id": 1, "question_id": 42, "body": "<p>first</p>", "score": 10, "is_accepted": true},
				{"answer_id": 2, "question_id": 42, "body": "<p>second</p>", "score": 3},
				{"answer_id": 3, "question_id": 42, "body": "<p>third</p>", "score": 1},
			},
		})
	}))
	defer srv.Close()

	for _, backend := range []config.Backend{config.BackendKeyedAPI, config.BackendScraping} {
		answers, err := newTestClient(t, srv, backend).FetchAnswers(context.Background(), 42, 2)
		require.NoError(t, err, backend)
		require.Len(t, answers, 2, backend)
		assert.Equal(t, Answer{ID: 1, ThreadID: 42, Body: "<p>first</p>", Score: 10, IsAccepted: true}, answers[0])
		assert.Equal(t, int64(2), answers[1].ID)
	}
}

func TestLookupFailure_Status(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_id":502,"error_name":"throttle_violation"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, config.BackendKeyedAPI)
	_, err := c.Search(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, cherrors.LookupFailure)

	_, err = c.FetchAnswers(context.Background(), 1, 5)
	assert.ErrorIs(t, err, cherrors.LookupFailure)
}

func TestLookupFailure_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv, config.BackendKeyedAPI)
	srv.Close()

	_, err := c.Search(context.Background(), "x")
	assert.ErrorIs(t, err, cherrors.LookupFailure)
}

func TestLookupFailure_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv, config.BackendKeyedAPI)
	cfg.Timeout = 50 * time.Millisecond
	c, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.FetchAnswers(context.Background(), 1, 5)
	assert.ErrorIs(t, err, cherrors.LookupFailure)
}

func TestMalformedBodyYieldsEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [ {"question_id": `))
	}))
	defer srv.Close()

	threads, err := newTestClient(t, srv, config.BackendKeyedAPI).Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, threads)
}

const searchPage = `<html><body>
<div><a href="/url?q=https://stackoverflow.com/questions/100/how-to-widget&amp;sa=U"><h3>How to widget - Stack Overflow</h3></a></div>
<div><a href="https://stackoverflow.com/questions/200/panels?rq=1">Panels</a></div>
<div><a href="https://stackoverflow.com/questions/100/how-to-widget">duplicate</a></div>
<div><a href="https://example.com/questions/300/elsewhere">elsewhere</a></div>
<div><a href="https://stackoverflow.com/users/5/someone">user</a></div>
<div><a href="https://stackoverflow.com/questions/tagged/java">tag</a></div>
</body></html>`

func TestParseResults(t *testing.T) {
	t.Parallel()

	got := ParseResults(strings.NewReader(searchPage), "stackoverflow.com")
	require.Len(t, got, 2)
	assert.Equal(t, Thread{ID: 100, Title: "How to widget - Stack Overflow", Link: "https://stackoverflow.com/questions/100/how-to-widget"}, got[0])
	assert.Equal(t, Thread{ID: 200, Title: "Panels", Link: "https://stackoverflow.com/questions/200/panels"}, got[1])

	assert.Empty(t, ParseResults(strings.NewReader("not html at all"), "stackoverflow.com"))
}

func TestScraping_Search(t *testing.T) {
	t.Parallel()

	var searches, resolves atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "site:stackoverflow.com a b C", q.Get("q"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, "en", q.Get("hl"))
		_, _ = w.Write([]byte(searchPage))
	})
	mux.HandleFunc("/api/questions/", func(w http.ResponseWriter, r *http.Request) {
		resolves.Add(1)
		assert.Equal(t, "/api/questions/100;200", r.URL.Path)
		writeGzipJSON(t, w, map[string]any{
			"items": []map[string]any{
				{"question_id": 200, "title": "Panels in Swing", "link": "https://stackoverflow.com/questions/200", "answer_count": 4},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	threads, err := newTestClient(t, srv, config.BackendScraping).Search(context.Background(), "a b C")
	require.NoError(t, err)
	require.Len(t, threads, 2)

	// Unresolved ids keep their scraped stub.
	assert.Equal(t, int64(100), threads[0].ID)
	assert.Equal(t, "How to widget - Stack Overflow", threads[0].Title)
	assert.Equal(t, 0, threads[0].AnswerCount)

	assert.Equal(t, "Panels in Swing", threads[1].Title)
	assert.Equal(t, 4, threads[1].AnswerCount)
	assert.Equal(t, int32(1), searches.Load())
	assert.Equal(t, int32(1), resolves.Load())
}

func TestScraping_NoLinksSkipsResolve(t *testing.T) {
	t.Parallel()

	var resolves atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>No results</body></html>`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		resolves.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	threads, err := newTestClient(t, srv, config.BackendScraping).Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, threads)
	assert.Zero(t, resolves.Load())
}

func TestScraping_Paced(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(srv, config.BackendScraping)
	cfg.ScrapeInterval = time.Hour
	c, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "first")
	require.NoError(t, err)

	// The second scrape must wait an hour, so a short deadline fails it.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "second")
	assert.ErrorIs(t, err, cherrors.LookupFailure)
}

func TestNew_UnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Backend = "carrier_pigeon"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNew_WrapsCache(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.APIKey = "k"
	c, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, c)

	cfg.CacheSize = 0
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &KeyedAPI{}, c)
}

func TestBackoffHonored(t *testing.T) {
	t.Parallel()

	api := &apiClient{}
	api.setBackoff(60)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, api.waitBackoff(ctx))

	fresh := &apiClient{}
	require.NoError(t, fresh.waitBackoff(context.Background()))
}
