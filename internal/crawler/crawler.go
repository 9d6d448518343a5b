package crawler

import (
	"context"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBlocked marks a page that answered with an anti-bot challenge instead
// of content.
var ErrBlocked = eris.New("crawler: blocked by challenge page")

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxBodySize = 5 << 20
	defaultUserAgent   = "Mozilla/5.0 (compatible; VoicebotCrawler/1.0)"
)

// Progress is reported after every fetched page.
type Progress struct {
	Visited  int
	MaxPages int
	URL      string
	OK       bool
}

// ProgressFunc observes crawl progress. It is called synchronously from the
// crawl loop and must return quickly.
type ProgressFunc func(Progress)

// Result is the outcome of a single crawl.
type Result struct {
	// Text is the per-page text blocks joined with blank lines. Empty when
	// no page produced any text.
	Text string
	// Visited lists every fetched URL in fetch order.
	Visited []string
	// Failed counts visited pages that could not be fetched.
	Failed int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient makes every crawl reuse hc instead of building its own
// connection pool. Idle connections are still closed when a crawl returns.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Crawler) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize caps how many bytes of each response body are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Crawler) {
		if fn != nil {
			c.progress = fn
		}
	}
}

// Crawler fetches pages under a single origin. A Crawler holds only
// configuration; each Crawl call starts from empty state, so one Crawler may
// be shared.
type Crawler struct {
	httpClient  *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	progress    ProgressFunc
}

// New creates a Crawler with sensible defaults.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		timeout:     defaultTimeout,
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		progress:    logProgress,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl visits at most maxPages URLs reachable from startURL without leaving
// its origin and returns their aggregated text. Failing pages are skipped.
// An error is returned only for invalid arguments or when ctx is done; in
// the latter case the partial result is returned alongside it.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxPages int) (*Result, error) {
	if maxPages < 1 {
		return nil, eris.Errorf("crawler: max pages must be positive, got %d", maxPages)
	}
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: parse start url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, eris.Errorf("crawler: start url must be absolute http(s): %q", startURL)
	}

	hc, release := c.session()
	defer release()

	origin := strings.ToLower(u.Host)
	front := newFrontier(normalizeURL(u))
	visited := make(map[string]struct{}, maxPages)
	var blocks []string

	result := &Result{}
	finish := func() *Result {
		result.Text = strings.Join(blocks, "\n\n")
		return result
	}

	for front.len() > 0 && len(visited) < maxPages {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		current := front.pop()
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		result.Visited = append(result.Visited, current)

		body, err := c.fetch(ctx, hc, current)
		if err != nil {
			result.Failed++
			zap.L().Debug("crawler: page skipped", zap.String("url", current), zap.Error(err))
		} else {
			if text := ExtractText(body); text != "" {
				blocks = append(blocks, text)
			}
			if len(visited) < maxPages {
				links := ExtractLinks(body, current, origin)
				for _, link := range slices.Sorted(maps.Keys(links)) {
					if _, seen := visited[link]; !seen {
						front.push(link)
					}
				}
			}
		}

		c.progress(Progress{
			Visited:  len(visited),
			MaxPages: maxPages,
			URL:      current,
			OK:       err == nil,
		})
	}

	return finish(), nil
}

// session returns the HTTP client for one crawl and a release func that
// drops its pooled connections.
func (c *Crawler) session() (*http.Client, func()) {
	if c.httpClient != nil {
		return c.httpClient, c.httpClient.CloseIdleConnections
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: c.timeout,
		}).DialContext,
		TLSHandshakeTimeout: c.timeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}
	return &http.Client{Timeout: c.timeout, Transport: tr}, tr.CloseIdleConnections
}

// fetch GETs pageURL and returns at most maxBodySize bytes of a 2xx body.
// Challenge pages are reported as ErrBlocked.
func (c *Crawler) fetch(ctx context.Context, hc *http.Client, pageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("crawler: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, eris.Wrap(err, "crawler: read body")
	}
	if block := DetectBlock(resp.Header, body); block != BlockNone {
		return nil, eris.Wrapf(ErrBlocked, "crawler: %s", block)
	}
	return body, nil
}

func logProgress(p Progress) {
	zap.L().Debug("crawler: page visited",
		zap.Int("visited", p.Visited),
		zap.Int("max_pages", p.MaxPages),
		zap.String("url", p.URL),
		zap.Bool("ok", p.OK),
	)
}
