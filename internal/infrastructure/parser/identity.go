package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"BoardRelay/internal/domain"
)

// Link grammar for Gnuboard-style boards. The canonical form carries the
// post number in the wr_id query parameter and the board in bo_table; the
// rewritten form embeds both in the path.
var (
	numberExpr   = regexp.MustCompile(`(?i)wr_id=(\d+)`)
	boardExpr    = regexp.MustCompile(`(?i)bo_table=([a-z0-9_]+)`)
	pathFormExpr = regexp.MustCompile(`(?i)/(?:bbs|board)/([a-z0-9_]+)/(\d+)(?:$|[/?#])`)
)

// ResolvePostID classifies a raw hyperlink found on site pages. It returns
// the post identity and the canonical absolute URL, or ok=false when the
// link is not a post link. Malformed or encoding-broken hrefs classify as
// non-post links rather than failing.
func ResolvePostID(href, base, site, defaultBoard string) (domain.PostID, string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return domain.PostID{}, "", false
	}

	number, board := resolveQueryForm(href)
	if number < 0 {
		number, board = resolvePathForm(href)
	}
	if number < 0 {
		return domain.PostID{}, "", false
	}
	if board == "" {
		board = defaultBoard
	}
	if board == "" {
		return domain.PostID{}, "", false
	}

	id := domain.PostID{Site: site, Board: strings.ToLower(board), Number: number}
	return id, Absolutize(base, href), true
}

func resolveQueryForm(href string) (int, string) {
	number, board := -1, ""

	if u, err := url.Parse(href); err == nil {
		q := u.Query()
		if raw := q.Get("wr_id"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
				number = n
			}
		}
		board = q.Get("bo_table")
	}

	// Broken percent-escapes make url.Parse drop the query; fall back to a
	// loose scan of the raw string, mirroring how the boards themselves link.
	if number < 0 {
		if m := numberExpr.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				number = n
			}
		}
	}
	if board == "" {
		if m := boardExpr.FindStringSubmatch(href); m != nil {
			board = m[1]
		}
	}

	return number, board
}

func resolvePathForm(href string) (int, string) {
	m := pathFormExpr.FindStringSubmatch(href)
	if m == nil {
		return -1, ""
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 0 {
		return -1, ""
	}
	return n, m[1]
}

// Absolutize resolves ref against base; scheme-relative refs get https.
// Unresolvable refs come back unchanged.
func Absolutize(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
