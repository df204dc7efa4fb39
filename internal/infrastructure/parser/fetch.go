package parser

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// FetchOptions configures the headers sent with every board request. Some
// boards refuse bare clients, so a browserlike identity is the default.
type FetchOptions struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
	Timeout        time.Duration
}

// Fetcher downloads HTML pages and decodes them with charset correction.
type Fetcher struct {
	client *http.Client
	opts   FetchOptions
}

// NewFetcher wires an HTTP client; a nil client gets a bounded-timeout default.
func NewFetcher(client *http.Client, opts FetchOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{client: client, opts: opts}
}

// GetDocument fetches pageURL and parses it into a goquery document.
// Non-2xx statuses are errors.
func (f *Fetcher) GetDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	if f.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	}
	if f.opts.Referer != "" {
		req.Header.Set("Referer", f.opts.Referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch %s: status %s", pageURL, resp.Status)
	}

	reader, err := charset.NewReader(resp.Body, plausibleContentType(resp.Header.Get("Content-Type")))
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// Single-byte fallbacks that HTTP stacks report when no real charset is
// known. A declared charset in this set is discarded so the sniffer reads
// the page's own BOM or meta declaration instead.
var implausibleCharsets = map[string]struct{}{
	"iso-8859-1":     {},
	"us-ascii":       {},
	"ansi_x3.4-1968": {},
	"latin1":         {},
}

func plausibleContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" {
		return ""
	}
	if _, bad := implausibleCharsets[cs]; bad {
		return ""
	}
	return contentType
}
