package lookup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jward/contexthelper/internal/config"
	cherrors "github.com/jward/contexthelper/internal/errors"
)

// maxIDsPerRequest is the API's limit on semicolon-separated ids.
const maxIDsPerRequest = 100

// apiClient talks to the StackExchange API. All responses are wrapped in
// a common envelope and usually gzip-encoded.
type apiClient struct {
	baseURL string
	site    string
	key     string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger

	mu           sync.Mutex
	backoffUntil time.Time
}

func newAPIClient(cfg config.Config, o options) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		site:    cfg.Site,
		key:     cfg.APIKey,
		timeout: cfg.Timeout,
		http:    o.httpClient,
		logger:  o.logger,
	}
}

type envelope[T any] struct {
	Items          []T    `json:"items"`
	HasMore        bool   `json:"has_more"`
	QuotaRemaining int    `json:"quota_remaining"`
	Backoff        int    `json:"backoff"`
	ErrorID        int    `json:"error_id"`
	ErrorName      string `json:"error_name"`
	ErrorMessage   string `json:"error_message"`
}

type questionItem struct {
	QuestionID  int64  `json:"question_id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	AnswerCount int    `json:"answer_count"`
	Score       int    `json:"score"`
	IsAnswered  bool   `json:"is_answered"`
}

func (q questionItem) thread() Thread {
	return Thread{
		ID:          q.QuestionID,
		Title:       html.UnescapeString(q.Title),
		Link:        q.Link,
		AnswerCount: q.AnswerCount,
		Score:       q.Score,
		IsAnswered:  q.IsAnswered,
	}
}

type answerItem struct {
	AnswerID   int64  `json:"answer_id"`
	QuestionID int64  `json:"question_id"`
	Body       string `json:"body"`
	Score      int    `json:"score"`
	IsAccepted bool   `json:"is_accepted"`
}

// search calls /search/advanced ordered by relevance.
func (c *apiClient) search(ctx context.Context, query string) ([]Thread, error) {
	params := url.Values{
		"order": {"desc"},
		"sort":  {"relevance"},
		"q":     {query},
	}
	var env envelope[questionItem]
	ok, err := c.get(ctx, "/search/advanced", params, &env)
	if err != nil || !ok {
		return nil, err
	}
	threads := make([]Thread, 0, len(env.Items))
	for _, item := range env.Items {
		threads = append(threads, item.thread())
	}
	return threads, nil
}

// questions resolves question ids. The result is keyed by id.
func (c *apiClient) questions(ctx context.Context, ids []int64) (map[int64]Thread, error) {
	out := make(map[int64]Thread, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerRequest {
		end := min(start+maxIDsPerRequest, len(ids))
		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		params := url.Values{
			"order":    {"desc"},
			"sort":     {"activity"},
			"pagesize": {strconv.Itoa(end - start)},
		}
		var env envelope[questionItem]
		ok, err := c.get(ctx, "/questions/"+strings.Join(parts, ";"), params, &env)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, item := range env.Items {
			out[item.QuestionID] = item.thread()
		}
	}
	return out, nil
}

// answers fetches the first page of a thread's answers, highest voted first.
func (c *apiClient) answers(ctx context.Context, threadID int64, pageSize int) ([]Answer, error) {
	params := url.Values{
		"pagesize": {strconv.Itoa(pageSize)},
		"order":    {"desc"},
		"sort":     {"votes"},
		"filter":   {"withbody"},
	}
	var env envelope[answerItem]
	ok, err := c.get(ctx, fmt.Sprintf("/questions/%d/answers", threadID), params, &env)
	if err != nil || !ok {
		return nil, err
	}
	answers := make([]Answer, 0, len(env.Items))
	for _, item := range env.Items {
		threadOf := item.QuestionID
		if threadOf == 0 {
			threadOf = threadID
		}
		answers = append(answers, Answer{
			ID:         item.AnswerID,
			ThreadID:   threadOf,
			Body:       item.Body,
			Score:      item.Score,
			IsAccepted: item.IsAccepted,
		})
	}
	if len(answers) > pageSize {
		answers = answers[:pageSize]
	}
	return answers, nil
}

// get performs one API request and decodes the envelope into out. It returns
// ok=false without error when the body could not be decoded.
func (c *apiClient) get(ctx context.Context, path string, params url.Values, out any) (bool, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.waitBackoff(ctx); err != nil {
		return false, cherrors.New(cherrors.LookupFailure, "waiting for api backoff", err)
	}

	params.Set("site", c.site)
	if c.key != "" {
		params.Set("key", c.key)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, cherrors.New(cherrors.LookupFailure, "building request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, cherrors.New(cherrors.LookupFailure, "GET "+path, err)
	}
	defer resp.Body.Close()

	body, readErr := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return false, cherrors.Newf(cherrors.LookupFailure, "GET %s: status %d: %s",
			path, resp.StatusCode, truncate(string(body), 200))
	}
	if readErr != nil {
		c.logger.Warn("unreadable api response", zap.String("path", path), zap.Error(readErr))
		return false, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("malformed api response", zap.String("path", path), zap.Error(err))
		return false, nil
	}
	if b, ok := out.(interface{ backoffSeconds() int }); ok {
		c.setBackoff(b.backoffSeconds())
	}
	return true, nil
}

func (e *envelope[T]) backoffSeconds() int { return e.Backoff }

func (c *apiClient) setBackoff(seconds int) {
	if seconds <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	until := time.Now().Add(time.Duration(seconds) * time.Second)
	if until.After(c.backoffUntil) {
		c.backoffUntil = until
	}
}

func (c *apiClient) waitBackoff(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Until(c.backoffUntil)
	c.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readBody returns the decoded body, un-gzipping when the server says so or
// when the payload starts with the gzip magic number.
func readBody(resp *http.Response) ([]byte, error) {
	br := bufio.NewReader(resp.Body)
	magic, _ := br.Peek(2)
	gzipped := strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") ||
		(len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b)
	if !gzipped {
		return io.ReadAll(br)
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
