package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"theater-recon/internal/reconcile/model"
)

const (
	defaultBaseURL   = "https://www.fandango.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	zipSearchPath    = "/napi/theaterswithshowtimes"
	nameSearchPath   = "/search"
	zipPageLimit     = 40
)

// theater links on the search results page
const resultSelector = "a.theater-name, .results__item a[href*='theater-page']"

// Client is the live directory search against the ticketing site.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	log        zerolog.Logger
}

// ClientConfig configures the client; zero values get defaults.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit rate.Limit
	Burst     int
	UserAgent string
}

func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Limit(2)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid search base url %q", cfg.BaseURL)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(cfg.RateLimit, cfg.Burst),
		userAgent:  cfg.UserAgent,
		log:        logger,
	}, nil
}

type zipResponse struct {
	Theaters []struct {
		Name           string `json:"name"`
		TheaterPageURL string `json:"theaterPageUrl"`
	} `json:"theaters"`
}

// SearchByZIP lists theaters around zip that have showtimes on date.
func (c *Client) SearchByZIP(ctx context.Context, zip, date string) (model.Candidates, error) {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return nil, fmt.Errorf("empty zip")
	}
	q := url.Values{}
	q.Set("zipCode", zip)
	q.Set("date", date)
	q.Set("page", "1")
	q.Set("limit", fmt.Sprint(zipPageLimit))

	body, err := c.get(ctx, zipSearchPath, q, "application/json")
	if err != nil {
		return nil, fmt.Errorf("zip search %s: %w", zip, err)
	}
	defer body.Close()

	var resp zipResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("zip search %s: decode: %w", zip, err)
	}

	out := model.Candidates{}
	for _, t := range resp.Theaters {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		if _, dup := out[name]; dup {
			continue
		}
		out[name] = model.Candidate{Name: name, URL: c.resolve(t.TheaterPageURL)}
	}
	c.log.Debug().Str("zip", zip).Str("date", date).Int("theaters", len(out)).Msg("zip search")
	return out, nil
}

// SearchByName runs a free-text theater search and scrapes the result links.
func (c *Client) SearchByName(ctx context.Context, query string) (model.Candidates, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("mode", "theaters")

	body, err := c.get(ctx, nameSearchPath, q, "text/html")
	if err != nil {
		return nil, fmt.Errorf("name search %q: %w", query, err)
	}
	defer body.Close()

	out, err := c.parseResults(body)
	if err != nil {
		return nil, fmt.Errorf("name search %q: %w", query, err)
	}
	c.log.Debug().Str("query", query).Int("theaters", len(out)).Msg("name search")
	return out, nil
}

func (c *Client) parseResults(r io.Reader) (model.Candidates, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	out := model.Candidates{}
	doc.Find(resultSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		name := strings.Join(strings.Fields(s.Text()), " ")
		if name == "" {
			return
		}
		if _, dup := out[name]; dup {
			return
		}
		out[name] = model.Candidate{Name: name, URL: c.resolve(href)}
	})
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, accept string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// resolve makes site-relative links absolute.
func (c *Client) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.baseURL.ResolveReference(ref).String()
}
