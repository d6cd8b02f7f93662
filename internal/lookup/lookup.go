// Package lookup searches the Q&A site for threads matching a query and
// fetches their answers.
package lookup

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jward/contexthelper/internal/config"
	"github.com/jward/contexthelper/internal/logging"
)

// Thread is a question on the Q&A site.
type Thread struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	AnswerCount int    `json:"answer_count"`
	Score       int    `json:"score"`
	IsAnswered  bool   `json:"is_answered"`
}

// Answer is one answer of a Thread.
type Answer struct {
	ID         int64  `json:"id"`
	ThreadID   int64  `json:"thread_id"`
	Body       string `json:"body"`
	Score      int    `json:"score"`
	IsAccepted bool   `json:"is_accepted"`
}

// Client is the lookup backend. Transport, status and timeout failures are
// reported as errors matching errors.LookupFailure; malformed responses
// yield empty results.
type Client interface {
	Search(ctx context.Context, query string) ([]Thread, error)
	FetchAnswers(ctx context.Context, threadID int64, pageSize int) ([]Answer, error)
}

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a client built by New.
type Option func(*options)

// WithHTTPClient overrides the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger for dropped or malformed responses.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New builds the client variant selected by cfg.Backend, wrapped in a
// search cache when cfg.CacheSize is positive.
func New(cfg config.Config, opts ...Option) (Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	o.logger = logging.OrNop(o.logger).Named("lookup")

	api := newAPIClient(cfg, o)

	var c Client
	switch cfg.Backend {
	case config.BackendKeyedAPI:
		c = &KeyedAPI{api: api}
	case config.BackendScraping:
		c = NewScraping(api, cfg.SearchURL, cfg.Site, cfg.ScrapeInterval)
	default:
		return nil, fmt.Errorf("lookup: unknown backend %q", cfg.Backend)
	}

	if cfg.CacheSize > 0 {
		c = NewCached(c, cfg.CacheSize, cfg.CacheTTL)
	}
	return c, nil
}

// KeyedAPI searches through the site's authenticated search endpoint.
type KeyedAPI struct {
	api *apiClient
}

func (k *KeyedAPI) Search(ctx context.Context, query string) ([]Thread, error) {
	return traced(ctx, "keyed_api", "search", func(ctx context.Context) ([]Thread, error) {
		return k.api.search(ctx, query)
	})
}

func (k *KeyedAPI) FetchAnswers(ctx context.Context, threadID int64, pageSize int) ([]Answer, error) {
	return traced(ctx, "keyed_api", "fetch_answers", func(ctx context.Context) ([]Answer, error) {
		return k.api.answers(ctx, threadID, pageSize)
	})
}
