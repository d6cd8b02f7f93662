package lookup

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	cherrors "github.com/jward/contexthelper/internal/errors"
)

const (
	scrapeResults   = 10
	scrapeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Scraping searches the web for site-scoped results, collects the question
// links and resolves them through the site API. Consecutive searches are
// paced by a rate limiter.
type Scraping struct {
	api       *apiClient
	searchURL string
	domain    string
	limiter   *rate.Limiter
}

// NewScraping returns a scraping client. An interval of zero disables pacing.
func NewScraping(api *apiClient, searchURL, site string, interval time.Duration) *Scraping {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Scraping{
		api:       api,
		searchURL: searchURL,
		domain:    siteDomain(site),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func siteDomain(site string) string {
	if strings.Contains(site, ".") {
		return site
	}
	return site + ".com"
}

func (s *Scraping) Search(ctx context.Context, query string) ([]Thread, error) {
	return traced(ctx, "scraping", "search", func(ctx context.Context) ([]Thread, error) {
		return s.search(ctx, query)
	})
}

func (s *Scraping) FetchAnswers(ctx context.Context, threadID int64, pageSize int) ([]Answer, error) {
	return traced(ctx, "scraping", "fetch_answers", func(ctx context.Context) ([]Answer, error) {
		return s.api.answers(ctx, threadID, pageSize)
	})
}

func (s *Scraping) search(ctx context.Context, query string) ([]Thread, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, cherrors.New(cherrors.LookupFailure, "waiting for scrape slot", err)
	}
	page, err := s.fetchResults(ctx, query)
	if err != nil {
		return nil, err
	}
	stubs := ParseResults(page, s.domain)
	if len(stubs) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(stubs))
	for i, st := range stubs {
		ids[i] = st.ID
	}
	resolved, err := s.api.questions(ctx, ids)
	if err != nil {
		return nil, err
	}
	threads := make([]Thread, 0, len(stubs))
	for _, st := range stubs {
		if t, ok := resolved[st.ID]; ok {
			threads = append(threads, t)
			continue
		}
		threads = append(threads, st)
	}
	return threads, nil
}

func (s *Scraping) fetchResults(ctx context.Context, query string) (io.Reader, error) {
	if s.api.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.api.timeout)
		defer cancel()
	}
	params := url.Values{
		"q":   {"site:" + s.domain + " " + query},
		"num": {strconv.Itoa(scrapeResults)},
		"hl":  {"en"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, cherrors.New(cherrors.LookupFailure, "building search request", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := s.api.http.Do(req)
	if err != nil {
		return nil, cherrors.New(cherrors.LookupFailure, "web search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, cherrors.Newf(cherrors.LookupFailure, "web search: status %d", resp.StatusCode)
	}
	body, err := readBody(resp)
	if err != nil {
		s.api.logger.Warn("unreadable search page", zap.Error(err))
		return strings.NewReader(""), nil
	}
	return bytes.NewReader(body), nil
}

// ParseResults extracts question links on domain from a search result page.
// Ids are de-duplicated, keeping first-seen order; the anchor text becomes
// the stub title. Unparseable pages yield no results.
func ParseResults(r io.Reader, domain string) []Thread {
	doc, err := html.Parse(r)
	if err != nil {
		return nil
	}
	var out []Thread
	seen := map[int64]bool{}
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if link, id, ok := questionLink(attr(n, "href"), domain); ok && !seen[id] {
				seen[id] = true
				out = append(out, Thread{ID: id, Title: strings.TrimSpace(textOf(n)), Link: link})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return out
}

// questionLink recognizes https://<domain>/questions/<id>/..., directly or
// wrapped in a search engine redirect (/url?q=...).
func questionLink(href, domain string) (string, int64, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", 0, false
	}
	if u.Host == "" && u.Path == "/url" {
		if target := u.Query().Get("q"); target != "" {
			return questionLink(target, domain)
		}
		return "", 0, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != domain {
		return "", 0, false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "questions" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(segments[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	u.RawQuery, u.Fragment = "", ""
	return u.String(), id, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
