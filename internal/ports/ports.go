package ports

import (
	"context"
	"fmt"
	"time"

	"BoardRelay/internal/domain"
)

// BoardSource lists the posts currently visible on the configured board.
type BoardSource interface {
	FetchList(ctx context.Context) ([]domain.PostSummary, error)
}

// Extractor turns one post page into classified content.
type Extractor interface {
	Extract(ctx context.Context, postURL string) (domain.Content, error)
}

// Ledger answers membership for delivered-post keys and persists new ones.
// Implementations load durable state once at construction time.
type Ledger interface {
	Contains(key string) bool
	Append(keys []string) error
}

// Messenger is the outbound chat transport. Both calls return a *Rejection
// when the API answered but refused the request; any other non-nil error is
// a transport-level failure.
type Messenger interface {
	SendText(ctx context.Context, text string) error
	SendMediaGroup(ctx context.Context, items []domain.MediaItem) error
}

// DeliveryLog records delivered posts for audit; it is not consulted for
// dedup decisions.
type DeliveryLog interface {
	Record(ctx context.Context, posts []domain.DeliveredPost) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Rejection is a structured refusal from the messaging API: the call reached
// the endpoint, but the response was non-ok or undecodable.
type Rejection struct {
	Code        int
	Description string
}

func (r *Rejection) Error() string {
	if r.Description == "" {
		return fmt.Sprintf("send rejected (code %d)", r.Code)
	}
	return fmt.Sprintf("send rejected (code %d): %s", r.Code, r.Description)
}
