package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/contexthelper/internal/config"
)

type countingClient struct {
	searches atomic.Int32
	fail     atomic.Bool
	empty    atomic.Bool
}

func (c *countingClient) Search(ctx context.Context, query string) ([]Thread, error) {
	c.searches.Add(1)
	if c.fail.Load() {
		return nil, errors.New("boom")
	}
	if c.empty.Load() {
		return []Thread{}, nil
	}
	return []Thread{{ID: 1, Title: query}}, nil
}

func (c *countingClient) FetchAnswers(ctx context.Context, threadID int64, pageSize int) ([]Answer, error) {
	return []Answer{{ID: 9, ThreadID: threadID}}, nil
}

func TestCached_MemoizesSearch(t *testing.T) {
	t.Parallel()

	next := &countingClient{}
	c := NewCached(next, 8, time.Minute)

	first, err := c.Search(context.Background(), "a b C")
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "a b C")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.searches.Load())
	assert.Equal(t, 1, c.Len())

	_, err = c.Search(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.searches.Load())
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	next := &countingClient{}
	next.fail.Store(true)
	c := NewCached(next, 8, time.Minute)

	_, err := c.Search(context.Background(), "q")
	require.Error(t, err)

	next.fail.Store(false)
	threads, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, threads, 1)
	assert.Equal(t, int32(2), next.searches.Load())
}

func TestCached_PassesAnswersThrough(t *testing.T) {
	t.Parallel()

	c := NewCached(&countingClient{}, 8, time.Minute)
	answers, err := c.FetchAnswers(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), answers[0].ThreadID)
}

func TestCached_DoesNotCacheEmptyResults(t *testing.T) {
	t.Parallel()

	next := &countingClient{}
	next.empty.Store(true)
	c := NewCached(next, 8, time.Minute)

	threads, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, threads)
	assert.Equal(t, 0, c.Len())

	next.empty.Store(false)
	threads, err = c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, threads, 1)
	assert.Equal(t, int32(2), next.searches.Load())
}

func TestCached_MalformedResponseIsRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"items": [{"question_id": 1,`))
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"question_id": 7, "title": "ok", "answer_count": 1}]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv, config.BackendKeyedAPI)
	cfg.CacheSize = 8
	client, err := New(cfg)
	require.NoError(t, err)
	require.IsType(t, &Cached{}, client)

	threads, err := client.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, threads)

	threads, err = client.Search(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, int64(7), threads[0].ID)
	assert.Equal(t, int32(2), calls.Load())
}
