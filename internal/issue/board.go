package issue

import (
	"context"
	"sort"
)

// Board is the issue list view: open and closed issues, newest first.
type Board struct {
	Open   []Issue
	Closed []Issue
}

// NewBoard splits issues by status and sorts each group by creation time,
// newest first.
func NewBoard(issues []Issue) Board {
	var b Board
	for _, i := range issues {
		if i.IsOpen() {
			b.Open = append(b.Open, i)
		} else {
			b.Closed = append(b.Closed, i)
		}
	}
	newestFirst(b.Open)
	newestFirst(b.Closed)
	return b
}

func newestFirst(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].CreatedAt.After(issues[b].CreatedAt)
	})
}

// Board fetches the issue list and arranges it.
func (s *Service) Board(ctx context.Context) (Board, error) {
	issues, err := s.List(ctx)
	if err != nil {
		return Board{}, err
	}
	return NewBoard(issues), nil
}

// CreateAndRefresh creates an issue and returns the refreshed board.
func (s *Service) CreateAndRefresh(ctx context.Context, name string) (Board, error) {
	if err := s.Create(ctx, name); err != nil {
		return Board{}, err
	}
	return s.Board(ctx)
}
