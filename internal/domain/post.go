package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PostID uniquely identifies a post on a source site. Numbers are assigned
// by the board monotonically in publication order, so sorting by Number
// yields chronological order within one board.
type PostID struct {
	Site   string
	Board  string
	Number int
}

// Key renders the ledger form "site:board:number".
func (id PostID) Key() string {
	return fmt.Sprintf("%s:%s:%d", id.Site, id.Board, id.Number)
}

// PostSummary is a listing-page entry: identity plus anchor title and the
// canonical post URL. The title may later be replaced by Content.TitleOverride.
type PostSummary struct {
	ID    PostID
	Title string
	URL   string
}

// Content is the classified payload of one post page.
type Content struct {
	Summary       string
	Images        []string
	Videos        []string
	Embeds        []string
	TitleOverride string
}

// HasMedia reports whether anything can go into a media group.
func (c Content) HasMedia() bool {
	return len(c.Images) > 0 || len(c.Videos) > 0
}

// MediaType tags a media-group item for the messaging transport.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// MediaItem is one entry of a media-group call. Caption is set only on the
// leading item of a batch.
type MediaItem struct {
	Type    MediaType
	URL     string
	Caption string
}

// VideoExts are the direct-video file extensions the relay recognizes.
// Anything else a player serves goes through the embeds path instead.
var VideoExts = []string{".mp4", ".mov", ".webm", ".mkv", ".m4v"}

// MediaTypeForURL classifies a media URL by its path extension: video when
// it ends in a recognized video extension, photo otherwise.
func MediaTypeForURL(raw string) MediaType {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.ToLower(path)
	for _, ext := range VideoExts {
		if strings.HasSuffix(path, ext) {
			return MediaVideo
		}
	}
	return MediaPhoto
}

// DeliveredPost is the audit snapshot persisted after a successful run.
type DeliveredPost struct {
	ID          PostID
	Title       string
	URL         string
	DeliveredAt time.Time
}
