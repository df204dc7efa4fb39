package parser

import (
	"context"
	"fmt"
	"log/slog"

	"BoardRelay/internal/config"
	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
	"BoardRelay/internal/scanner"
)

// BoardSource implements ports.BoardSource by dispatching the configured
// board to its registered scanner strategy.
type BoardSource struct {
	registry *scanner.Registry
	site     string
	board    config.BoardConfig
	logger   *slog.Logger
}

var _ ports.BoardSource = (*BoardSource)(nil)

// NewBoardSource wires the scanner registry with the config-defined target.
func NewBoardSource(reg *scanner.Registry, site string, board config.BoardConfig, log *slog.Logger) *BoardSource {
	return &BoardSource{
		registry: reg,
		site:     site,
		board:    board,
		logger:   log,
	}
}

// FetchList resolves the board's scanner and executes one listing scan.
func (s *BoardSource) FetchList(ctx context.Context) ([]domain.PostSummary, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(s.board.Scanner)
	if err != nil {
		return nil, fmt.Errorf("board %s: %w", s.board.Name, err)
	}

	req := scanner.Request{
		ListURL:  s.board.ListURL,
		Site:     s.site,
		Board:    s.board.Name,
		Category: s.board.Category,
	}

	posts, err := strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan board %s: %w", s.board.Name, err)
	}

	if s.logger != nil {
		s.logger.Debug("list fetched", "board", s.board.Name, "posts", len(posts))
	}
	return posts, nil
}
