package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/scanner"
)

// GnuboardScanner scrapes listing pages of Gnuboard-style boards and
// resolves every post link they contain.
type GnuboardScanner struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

var _ scanner.Scanner = (*GnuboardScanner)(nil)

// NewGnuboardScanner wires the shared fetcher.
func NewGnuboardScanner(fetcher *Fetcher, logger *slog.Logger) *GnuboardScanner {
	return &GnuboardScanner{fetcher: fetcher, logger: logger}
}

// Name identifies the strategy inside the registry.
func (g *GnuboardScanner) Name() string {
	return "gnuboard"
}

// Scan fetches the listing page and returns one summary per distinct post
// on the target board. For links resolving to the same identity, the one
// with the longer anchor title wins. Output order is unspecified.
func (g *GnuboardScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.PostSummary, error) {
	if req.ListURL == "" {
		return nil, fmt.Errorf("board %s: no list url configured", req.Board)
	}

	listURL := req.ListURL
	if req.Category != "" {
		sep := "?"
		if strings.Contains(listURL, "?") {
			sep = "&"
		}
		listURL += sep + "sca=" + req.Category
	}

	doc, err := g.fetcher.GetDocument(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("list unavailable: %w", err)
	}

	byID := map[domain.PostID]domain.PostSummary{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		id, canonical, ok := ResolvePostID(href, listURL, req.Site, req.Board)
		if !ok {
			return
		}
		if id.Board != strings.ToLower(req.Board) {
			return
		}

		title := strings.TrimSpace(a.Text())
		if title == "" {
			return
		}

		// Several anchors point at the same post (subject, comment count,
		// thumbnail); keep the most descriptive one.
		if prev, seen := byID[id]; seen && len(prev.Title) >= len(title) {
			return
		}
		byID[id] = domain.PostSummary{ID: id, Title: title, URL: canonical}
	})

	posts := make([]domain.PostSummary, 0, len(byID))
	for _, p := range byID {
		posts = append(posts, p)
	}

	g.debug("listing scanned", "board", req.Board, "posts", len(posts))
	return posts, nil
}

func (g *GnuboardScanner) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
