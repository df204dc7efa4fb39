package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source      ports.BoardSource
	Extractor   ports.Extractor
	Ledger      ports.Ledger
	Deliverer   *Deliverer
	DeliveryLog ports.DeliveryLog
	Logger      *slog.Logger

	// ForceSendLatest reprocesses the newest listed post when nothing new
	// is found; debug aid carried over from the deployment toggles.
	ForceSendLatest bool
}

// Pipeline implements one monitoring run: list, filter against the ledger,
// deliver oldest-first, then acknowledge the delivered keys in one append.
type Pipeline struct {
	source          ports.BoardSource
	extractor       ports.Extractor
	ledger          ports.Ledger
	deliverer       *Deliverer
	deliveryLog     ports.DeliveryLog
	logger          *slog.Logger
	forceSendLatest bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:          deps.Source,
		extractor:       deps.Extractor,
		ledger:          deps.Ledger,
		deliverer:       deps.Deliverer,
		deliveryLog:     deps.DeliveryLog,
		logger:          deps.Logger,
		forceSendLatest: deps.ForceSendLatest,
	}
}

// Run executes one pipeline pass. A listing failure aborts with no side
// effects; a per-post extraction failure skips that post (it stays
// unacknowledged and retries next run); a delivery transport failure aborts
// the remaining posts after acknowledging the ones already delivered.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.source == nil || p.extractor == nil || p.ledger == nil || p.deliverer == nil {
		return nil
	}

	posts, err := p.source.FetchList(ctx)
	if err != nil {
		return fmt.Errorf("fetch list: %w", err)
	}

	fresh := p.filterFresh(posts)
	if len(fresh) == 0 {
		p.info("no new posts", "listed", len(posts))
		return nil
	}

	var delivered []string
	var audit []domain.DeliveredPost
	for _, post := range fresh {
		content, err := p.extractor.Extract(ctx, post.URL)
		if err != nil {
			p.warn("extract failed, post retried next run", "post", post.ID.Key(), "error", err)
			continue
		}

		if err := p.deliverer.Deliver(ctx, post, content); err != nil {
			// Acknowledge what already went out so only the in-flight post
			// risks redelivery.
			if ackErr := p.ledger.Append(delivered); ackErr != nil {
				p.warn("ledger append after abort failed", "error", ackErr)
			}
			return fmt.Errorf("deliver %s: %w", post.ID.Key(), err)
		}

		delivered = append(delivered, post.ID.Key())
		audit = append(audit, domain.DeliveredPost{
			ID:          post.ID,
			Title:       post.Title,
			URL:         post.URL,
			DeliveredAt: time.Now().UTC(),
		})
	}

	if err := p.ledger.Append(delivered); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}

	if p.deliveryLog != nil && len(audit) > 0 {
		if err := p.deliveryLog.Record(ctx, audit); err != nil {
			p.warn("audit record failed", "error", err)
		}
	}

	p.info("run complete", "delivered", len(delivered), "skipped", len(fresh)-len(delivered))
	return nil
}

// filterFresh drops already-acknowledged posts and orders the rest oldest
// first so delivery preserves publication order.
func (p *Pipeline) filterFresh(posts []domain.PostSummary) []domain.PostSummary {
	fresh := make([]domain.PostSummary, 0, len(posts))
	for _, post := range posts {
		if !p.ledger.Contains(post.ID.Key()) {
			fresh = append(fresh, post)
		}
	}

	if len(fresh) == 0 && p.forceSendLatest && len(posts) > 0 {
		latest := posts[0]
		for _, post := range posts[1:] {
			if post.ID.Number > latest.ID.Number {
				latest = post
			}
		}
		p.info("force-send-latest engaged", "post", latest.ID.Key())
		fresh = append(fresh, latest)
	}

	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].ID.Number < fresh[j].ID.Number
	})
	return fresh
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
