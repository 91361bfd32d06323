package service

import (
	"context"
	"errors"
	"fmt"

	"promptdeck/internal/domain"
	"promptdeck/internal/position"
)

// sibling is the id/position pair placement works over. Slices arrive ordered
// by position from the repositories.
type sibling struct {
	id       string
	position int64
}

// placeAfter picks a position that slots a new entity directly after the
// sibling with id afterID (nil = head). When the gap at the insertion point
// is exhausted it renormalizes the existing siblings through reorder and
// retries once against the fresh, evenly spaced keys.
func placeAfter(
	ctx context.Context,
	siblings []sibling,
	afterID *string,
	reorder func(ctx context.Context, orderedIDs []string) error,
) (int64, error) {
	positions := make([]int64, len(siblings))
	for i, s := range siblings {
		positions[i] = s.position
	}

	var after *int64
	if afterID != nil {
		found := false
		for _, s := range siblings {
			if s.id == *afterID {
				p := s.position
				after = &p
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("anchor %s is not a sibling: %w", *afterID, domain.ErrNotFound)
		}
	}

	pos, err := position.Next(positions, after)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, position.ErrExhausted) {
		return 0, err
	}

	// Gap exhausted. Respace the existing siblings and place again.
	orderedIDs := make([]string, len(siblings))
	for i, s := range siblings {
		orderedIDs[i] = s.id
	}
	if err := reorder(ctx, orderedIDs); err != nil {
		return 0, fmt.Errorf("renormalize positions: %w", err)
	}

	fresh := position.Renormalize(len(siblings))
	if after != nil {
		for i, s := range siblings {
			if s.id == *afterID {
				after = &fresh[i]
				break
			}
		}
	}
	return position.Next(fresh, after)
}
