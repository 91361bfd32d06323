package position

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestNext(t *testing.T) {
	anchor := func(v int64) *int64 { return &v }

	tests := []struct {
		name     string
		siblings []int64
		after    *int64
		want     int64
		wantErr  error
	}{
		{
			name:     "empty list gets default",
			siblings: nil,
			after:    nil,
			want:     Step,
		},
		{
			name:     "head insert steps below first",
			siblings: []int64{Step, 2 * Step},
			after:    nil,
			want:     0,
		},
		{
			name:     "append steps above last",
			siblings: []int64{Step, 2 * Step},
			after:    anchor(2 * Step),
			want:     3 * Step,
		},
		{
			name:     "between neighbors bisects",
			siblings: []int64{Step, 2 * Step},
			after:    anchor(Step),
			want:     Step + Step/2,
		},
		{
			name:     "unsorted input is handled",
			siblings: []int64{3 * Step, Step, 2 * Step},
			after:    anchor(3 * Step),
			want:     4 * Step,
		},
		{
			name:     "adjacent keys exhaust precision",
			siblings: []int64{100, 101},
			after:    anchor(100),
			wantErr:  ErrExhausted,
		},
		{
			name:     "head insert at integer floor exhausts",
			siblings: []int64{math.MinInt64 + 1},
			after:    nil,
			wantErr:  ErrExhausted,
		},
		{
			name:     "append at integer ceiling exhausts",
			siblings: []int64{math.MaxInt64 - 1},
			after:    anchor(math.MaxInt64 - 1),
			wantErr:  ErrExhausted,
		},
		{
			name:     "unknown anchor is rejected",
			siblings: []int64{Step, 2 * Step},
			after:    anchor(42),
			wantErr:  ErrUnknownAnchor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.siblings, tt.after)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Next() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Next() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Next() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Repeatedly inserting at the same logical slot must keep positions pairwise
// distinct until precision is exhausted, and the read order must match the
// intended logical order.
func TestNextKeepsPositionsDistinct(t *testing.T) {
	siblings := []int64{Step, 2 * Step}
	anchor := siblings[0]

	for i := 0; i < 64; i++ {
		pos, err := Next(siblings, &anchor)
		if errors.Is(err, ErrExhausted) {
			// Renormalize and keep going; the engine must always recover.
			keys := Renormalize(len(siblings))
			slices.Sort(siblings)
			siblings = keys
			anchor = siblings[0]
			continue
		}
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if slices.Contains(siblings, pos) {
			t.Fatalf("insert %d: duplicate position %d", i, pos)
		}
		if pos <= anchor {
			t.Fatalf("insert %d: position %d not after anchor %d", i, pos, anchor)
		}
		siblings = append(siblings, pos)
	}
}

func TestRenormalizePreservesOrder(t *testing.T) {
	keys := Renormalize(5)
	if len(keys) != 5 {
		t.Fatalf("Renormalize(5) returned %d keys", len(keys))
	}
	if !slices.IsSorted(keys) {
		t.Errorf("Renormalize keys not ascending: %v", keys)
	}
	for i, k := range keys {
		if k != Step*int64(i+1) {
			t.Errorf("key %d = %d, want %d", i, k, Step*int64(i+1))
		}
	}
	// Fresh keys must leave room for future bisection on every gap.
	for i := 1; i < len(keys); i++ {
		if keys[i]-keys[i-1] < 2 {
			t.Errorf("gap between %d and %d too small to bisect", keys[i-1], keys[i])
		}
	}
}

func TestRenormalizeEmpty(t *testing.T) {
	if keys := Renormalize(0); len(keys) != 0 {
		t.Errorf("Renormalize(0) = %v, want empty", keys)
	}
}
