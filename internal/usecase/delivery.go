package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
)

// DeliverOptions bounds outbound call shapes.
type DeliverOptions struct {
	BatchLimit   int
	CaptionChars int
	EmbedLimit   int
}

// Deliverer turns one extracted post into ordered messaging calls: caption
// or media batches first, then embed links. Structured rejections are
// recovered locally; transport-level errors propagate.
type Deliverer struct {
	messenger ports.Messenger
	opts      DeliverOptions
	logger    *slog.Logger
}

// NewDeliverer constructs the delivery engine.
func NewDeliverer(messenger ports.Messenger, opts DeliverOptions, logger *slog.Logger) *Deliverer {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 10
	}
	if opts.CaptionChars <= 0 {
		opts.CaptionChars = 900
	}
	if opts.EmbedLimit <= 0 {
		opts.EmbedLimit = 5
	}
	return &Deliverer{messenger: messenger, opts: opts, logger: logger}
}

// Deliver sends one post. Call order is fixed: media batches in ascending
// index (or a lone caption message when there is no media), then one embeds
// message when any embeds were extracted.
func (d *Deliverer) Deliver(ctx context.Context, post domain.PostSummary, content domain.Content) error {
	caption := d.composeCaption(post, content)

	if !content.HasMedia() {
		if err := d.sendText(ctx, caption); err != nil {
			return fmt.Errorf("send caption: %w", err)
		}
	} else if err := d.sendBatches(ctx, caption, content); err != nil {
		return err
	}

	if len(content.Embeds) > 0 {
		embeds := content.Embeds
		if len(embeds) > d.opts.EmbedLimit {
			embeds = embeds[:d.opts.EmbedLimit]
		}
		if err := d.sendText(ctx, "🎥 embeds:\n"+strings.Join(embeds, "\n")); err != nil {
			return fmt.Errorf("send embeds: %w", err)
		}
	}

	return nil
}

func (d *Deliverer) sendBatches(ctx context.Context, caption string, content domain.Content) error {
	urls := make([]string, 0, len(content.Images)+len(content.Videos))
	urls = append(urls, content.Images...)
	urls = append(urls, content.Videos...)

	batches := splitBatches(urls, d.opts.BatchLimit)
	for i, batch := range batches {
		batchCaption := caption
		if i > 0 {
			batchCaption = fmt.Sprintf("(%d/%d) continued", i+1, len(batches))
		}

		items := make([]domain.MediaItem, 0, len(batch))
		for j, u := range batch {
			item := domain.MediaItem{Type: domain.MediaTypeForURL(u), URL: u}
			if j == 0 {
				item.Caption = batchCaption
			}
			items = append(items, item)
		}

		err := d.messenger.SendMediaGroup(ctx, items)
		if err == nil {
			continue
		}

		var rej *ports.Rejection
		if !errors.As(err, &rej) {
			return fmt.Errorf("send batch %d/%d: %w", i+1, len(batches), err)
		}

		// Never drop a batch silently: degrade to the batch's caption text.
		d.warn("media batch rejected, falling back to text",
			"batch", i+1, "batches", len(batches), "reason", rej.Description)
		if err := d.sendText(ctx, batchCaption); err != nil {
			return fmt.Errorf("batch %d fallback: %w", i+1, err)
		}
	}

	return nil
}

// composeCaption renders bold title, optional summary, and canonical URL,
// hard-truncated under the transport caption limit.
func (d *Deliverer) composeCaption(post domain.PostSummary, content domain.Content) string {
	title := post.Title
	if content.TitleOverride != "" {
		title = content.TitleOverride
	}

	caption := "📌 <b>" + html.EscapeString(title) + "</b>"
	if content.Summary != "" {
		caption += "\n" + html.EscapeString(content.Summary)
	}
	caption += "\n" + post.URL

	return truncateRunes(caption, d.opts.CaptionChars)
}

// sendText masks structured rejections of plain text messages (there is no
// further fallback) while letting transport errors through.
func (d *Deliverer) sendText(ctx context.Context, text string) error {
	err := d.messenger.SendText(ctx, text)
	if err == nil {
		return nil
	}
	var rej *ports.Rejection
	if errors.As(err, &rej) {
		d.warn("text send rejected", "reason", rej.Description)
		return nil
	}
	return err
}

func splitBatches(urls []string, limit int) [][]string {
	var batches [][]string
	for len(urls) > 0 {
		n := limit
		if len(urls) < n {
			n = len(urls)
		}
		batches = append(batches, urls[:n])
		urls = urls[n:]
	}
	return batches
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func (d *Deliverer) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
