// Package jobfetch downloads a job posting and reduces it to markdown for the analysis prompt.
package jobfetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MaxContentChars bounds the posting text handed to the oracle.
const MaxContentChars = 20000

var removeSelectors = []string{
	"script", "style", "noscript", "iframe", "svg", "form",
	"header", "footer", "nav", "aside",
	".advertisement", ".ad", ".sidebar", ".cookie-banner",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]",
}

var contentSelectors = []string{
	"[itemprop=description]",
	".job-description", ".description__text", "#job-details",
	"article", "main", "[role=main]", "#content", ".content",
}

// Posting is a fetched job advertisement.
type Posting struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// Text renders the posting as a markdown document with its title as heading.
func (p *Posting) Text() string {
	if p.Title == "" {
		return p.Markdown
	}
	return "# " + p.Title + "\n\n" + p.Markdown
}

// Fetcher retrieves postings over HTTP.
type Fetcher struct {
	client *http.Client
	cfg    config.JobFetchConfig
	logger *errors.Logger

	observe func(context.Context, error)
}

// New creates a Fetcher. The client is traced with otelhttp.
func New(cfg config.JobFetchConfig, logger *errors.Logger) *Fetcher {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg:    cfg,
		logger: logger,
	}
}

// WithObserver registers fn to run after every FetchText call.
func (f *Fetcher) WithObserver(fn func(context.Context, error)) *Fetcher {
	f.observe = fn
	return f
}

// FetchText returns the posting as markdown text.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	p, err := f.Fetch(ctx, rawURL)
	if f.observe != nil {
		f.observe(ctx, err)
	}
	if err != nil {
		return "", err
	}
	return p.Text(), nil
}

// Fetch downloads rawURL and extracts the posting.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Posting, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed, "failed to build job posting request", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed, "job posting request failed", err).WithContext("url", u.String())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("job posting returned HTTP %d", resp.StatusCode), nil).WithContext("url", u.String())
	}

	body, truncated, err := readLimited(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed, "failed to read job posting", err).WithContext("url", u.String())
	}
	if truncated {
		f.logger.Warn("Job posting exceeded size limit, truncated", "url", u.String(), "max_bytes", f.cfg.MaxBytes)
	}

	var posting *Posting
	if isHTML(resp.Header.Get("Content-Type"), body) {
		posting, err = Extract(body)
		if err != nil {
			return nil, err
		}
	} else {
		posting = &Posting{Markdown: strings.TrimSpace(string(body))}
	}
	posting.URL = u.String()
	posting.Markdown = truncateRunes(posting.Markdown, MaxContentChars)

	f.logger.Debug("Job posting fetched",
		"url", posting.URL,
		"title", posting.Title,
		"chars", utf8.RuneCountInString(posting.Markdown))
	return posting, nil
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid job posting URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported job posting URL scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job posting URL has no host", nil)
	}
	return u, nil
}

// Extract reduces an HTML page to its title and main content as markdown.
func Extract(body []byte) (*Posting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeInvalidFormat, "failed to parse job posting HTML", err)
	}

	title := strings.TrimSpace(doc.Find("meta[property='og:title']").First().AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find(strings.Join(removeSelectors, ", ")).Remove()

	content := doc.Find("body")
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			content = s
			break
		}
	}

	html, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeInvalidFormat, "failed to render job posting content", err)
	}

	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		md = content.Text()
	}

	return &Posting{Title: title, Markdown: strings.TrimSpace(md)}, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	if maxBytes <= 0 {
		b, err := io.ReadAll(r)
		return b, false, err
	}
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], true, nil
	}
	return b, false, nil
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			return mediaType == "text/html" || mediaType == "application/xhtml+xml"
		}
	}
	return strings.HasPrefix(http.DetectContentType(body), "text/html")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
