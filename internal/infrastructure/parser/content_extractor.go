package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
)

// Ordered structural hints for the post body region; first match wins,
// whole page is the fallback.
var bodyHints = []string{"#bo_v_con", ".bo_v_con", "div.view_content", ".viewContent", "#view_content", "article"}

// Lazy-load aliases checked when an img has no plain src.
var imgSrcAttrs = []string{"src", "data-src", "data-original", "data-echo"}

var (
	imageExtExpr = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)(?:\?|$)`)
	spaceExpr    = regexp.MustCompile(`\s+`)
)

// ExtractOptions tunes summary length and the media noise filters.
type ExtractOptions struct {
	SummaryChars      int
	ExcludeSubstrings []string
	PlaceholderIcons  []string
	DropFirstImage    bool
}

// ContentExtractor fetches one post page and classifies its body content.
// It performs no dedup and no delivery, so a failed post is safe to retry
// on the next run.
type ContentExtractor struct {
	fetcher *Fetcher
	opts    ExtractOptions
	logger  *slog.Logger
}

var _ ports.Extractor = (*ContentExtractor)(nil)

// NewContentExtractor wires the shared fetcher and filter options.
func NewContentExtractor(fetcher *Fetcher, opts ExtractOptions, logger *slog.Logger) *ContentExtractor {
	if opts.SummaryChars <= 0 {
		opts.SummaryChars = 280
	}
	if len(opts.PlaceholderIcons) == 0 {
		opts.PlaceholderIcons = []string{"icon_link.gif"}
	}
	return &ContentExtractor{fetcher: fetcher, opts: opts, logger: logger}
}

// Extract fetches postURL and returns summary text plus classified media.
// Missing containers or titles are never errors; only the fetch itself can
// fail.
func (e *ContentExtractor) Extract(ctx context.Context, postURL string) (domain.Content, error) {
	doc, err := e.fetcher.GetDocument(ctx, postURL)
	if err != nil {
		return domain.Content{}, fmt.Errorf("fetch post: %w", err)
	}

	container := selectBody(doc)
	container.Find("script, style, noscript").Remove()

	content := domain.Content{
		Summary:       e.summarize(container),
		Images:        e.collectImages(container, postURL),
		Videos:        e.collectVideos(container, postURL),
		Embeds:        collectEmbeds(container, postURL),
		TitleOverride: pageTitle(doc),
	}

	e.debug("extracted", "url", postURL,
		"images", len(content.Images), "videos", len(content.Videos), "embeds", len(content.Embeds))
	return content, nil
}

func selectBody(doc *goquery.Document) *goquery.Selection {
	for _, hint := range bodyHints {
		if sel := doc.Find(hint).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection
}

func (e *ContentExtractor) summarize(container *goquery.Selection) string {
	text := strings.TrimSpace(spaceExpr.ReplaceAllString(container.Text(), " "))
	return truncateRunes(text, e.opts.SummaryChars)
}

func (e *ContentExtractor) collectImages(container *goquery.Selection, postURL string) []string {
	var images []string
	seen := map[string]struct{}{}

	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		var src string
		for _, attr := range imgSrcAttrs {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				src = strings.TrimSpace(v)
				break
			}
		}
		if src == "" {
			return
		}
		e.keepImage(&images, seen, Absolutize(postURL, src))
	})

	// Some posts attach full-size images behind plain links instead of
	// inlining them.
	if len(images) == 0 {
		container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" {
				return
			}
			full := Absolutize(postURL, href)
			if !imageExtExpr.MatchString(full) {
				return
			}
			e.keepImage(&images, seen, full)
		})
	}

	if e.opts.DropFirstImage && len(images) > 0 {
		images = images[1:]
	}
	return images
}

func (e *ContentExtractor) keepImage(images *[]string, seen map[string]struct{}, u string) {
	if u == "" {
		return
	}
	if _, dup := seen[u]; dup {
		return
	}
	if e.isPlaceholderIcon(u) || e.isExcluded(u) {
		return
	}
	seen[u] = struct{}{}
	*images = append(*images, u)
}

func (e *ContentExtractor) collectVideos(container *goquery.Selection, postURL string) []string {
	var videos []string
	seen := map[string]struct{}{}

	container.Find("video, source").Each(func(_ int, v *goquery.Selection) {
		src, ok := v.Attr("src")
		if !ok {
			return
		}
		full := Absolutize(postURL, strings.TrimSpace(src))
		if full == "" || domain.MediaTypeForURL(full) != domain.MediaVideo {
			return
		}
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		videos = append(videos, full)
	})

	return videos
}

// Embeds are third-party players that can only be linked, never re-hosted,
// so they stay out of the direct-video sequence.
func collectEmbeds(container *goquery.Selection, postURL string) []string {
	var embeds []string
	seen := map[string]struct{}{}

	container.Find("iframe").Each(func(_ int, f *goquery.Selection) {
		src, ok := f.Attr("src")
		if !ok {
			return
		}
		full := Absolutize(postURL, strings.TrimSpace(src))
		if full == "" {
			return
		}
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		embeds = append(embeds, full)
	})

	return embeds
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if title := strings.TrimSpace(og); title != "" {
			return title
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func (e *ContentExtractor) isPlaceholderIcon(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	name := path[strings.LastIndex(path, "/")+1:]
	for _, icon := range e.opts.PlaceholderIcons {
		if name == strings.ToLower(icon) {
			return true
		}
	}
	return false
}

func (e *ContentExtractor) isExcluded(raw string) bool {
	low := strings.ToLower(raw)
	for _, hint := range e.opts.ExcludeSubstrings {
		if hint != "" && strings.Contains(low, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func (e *ContentExtractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
