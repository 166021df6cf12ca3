package position

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func pos(v float64) *float64 { return &v }

func TestAppend(t *testing.T) {
	got, err := Append(nil)
	require.NoError(t, err)
	require.Equal(t, GAP, got)

	// Appending N items to an empty container yields GAP, 2*GAP, ..., N*GAP.
	var last *float64
	for i := 1; i <= 50; i++ {
		p, err := Append(last)
		require.NoError(t, err)
		require.Equal(t, float64(i)*GAP, p)
		last = pos(p)
	}

	got, err = Append(pos(-2500))
	require.NoError(t, err)
	require.Equal(t, -1500.0, got)

	_, err = Append(pos(math.MaxFloat64))
	require.ErrorIs(t, err, ErrExhausted)
}

func TestCheckIdentity(t *testing.T) {
	cases := []struct {
		name   string
		kind   Kind
		prev   *int64
		next   *int64
		expect error
	}{
		{name: "list without anchors", kind: KindList, expect: ViolationNoAnchors},
		{name: "card without anchors is deferred to the empty check", kind: KindCard},
		{name: "prev is self", kind: KindList, prev: id(5), expect: ViolationSelfReference},
		{name: "next is self", kind: KindCard, next: id(5), expect: ViolationSelfReference},
		{name: "equal anchors", kind: KindList, prev: id(3), next: id(3), expect: ViolationEqualAnchors},
		{name: "self wins over equal", kind: KindCard, prev: id(5), next: id(5), expect: ViolationSelfReference},
		{name: "valid pair", kind: KindCard, prev: id(1), next: id(2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckIdentity(tc.kind, 5, tc.prev, tc.next)
			if tc.expect == nil {
				require.NoError(t, err)
				return
			}
			require.Equal(t, tc.expect, err)
			require.ErrorIs(t, err, ErrInvalidAnchors)
		})
	}
}

func TestMove(t *testing.T) {
	cases := []struct {
		name   string
		req    Request
		want   float64
		expect error
	}{
		{
			name: "midpoint of adjacent card anchors",
			req: Request{
				Kind: KindCard, MovingID: 3, PrevID: id(1), NextID: id(2),
				Prev: &Anchor{ID: 1, Position: 1000}, Next: &Anchor{ID: 2, Position: 2000},
			},
			want: 1500,
		},
		{
			name: "card anchors with an item between",
			req: Request{
				Kind: KindCard, MovingID: 4, PrevID: id(1), NextID: id(3),
				Prev: &Anchor{ID: 1, Position: 1000}, Next: &Anchor{ID: 3, Position: 3000}, Between: true,
			},
			expect: ViolationNotAdjacent,
		},
		{
			name: "list anchors skip the adjacency check",
			req: Request{
				Kind: KindList, MovingID: 4, PrevID: id(1), NextID: id(3),
				Prev: &Anchor{ID: 1, Position: 1000}, Next: &Anchor{ID: 3, Position: 3000}, Between: true,
			},
			want: 2000,
		},
		{
			name: "anchors out of order",
			req: Request{
				Kind: KindList, MovingID: 9, PrevID: id(2), NextID: id(1),
				Prev: &Anchor{ID: 2, Position: 2000}, Next: &Anchor{ID: 1, Position: 1000},
			},
			expect: ViolationOutOfOrder,
		},
		{
			name: "prev is last",
			req: Request{
				Kind: KindList, MovingID: 1, PrevID: id(3),
				Prev: &Anchor{ID: 3, Position: 3000, Boundary: true},
			},
			want: 4000,
		},
		{
			name: "prev is not last",
			req: Request{
				Kind: KindCard, MovingID: 1, PrevID: id(2),
				Prev: &Anchor{ID: 2, Position: 2000},
			},
			expect: ViolationPrevNotLast,
		},
		{
			name: "next is first",
			req: Request{
				Kind: KindCard, MovingID: 3, NextID: id(1),
				Next: &Anchor{ID: 1, Position: 1000, Boundary: true},
			},
			want: 0,
		},
		{
			name: "next is first and negative positions are fine",
			req: Request{
				Kind: KindList, MovingID: 3, NextID: id(1),
				Next: &Anchor{ID: 1, Position: -500, Boundary: true},
			},
			want: -1500,
		},
		{
			name: "next is not first",
			req: Request{
				Kind: KindList, MovingID: 3, NextID: id(2),
				Next: &Anchor{ID: 2, Position: 2000},
			},
			expect: ViolationNextNotFirst,
		},
		{
			name:   "card without anchors into an occupied list",
			req:    Request{Kind: KindCard, MovingID: 3},
			expect: ViolationNotEmpty,
		},
		{
			name: "card without anchors into an empty list",
			req:  Request{Kind: KindCard, MovingID: 3, Empty: true},
			want: GAP,
		},
		{
			name:   "list without anchors",
			req:    Request{Kind: KindList, MovingID: 3, Empty: true},
			expect: ViolationNoAnchors,
		},
		{
			name: "self reference",
			req: Request{
				Kind: KindList, MovingID: 5, PrevID: id(5),
				Prev: &Anchor{ID: 5, Position: 5000, Boundary: true},
			},
			expect: ViolationSelfReference,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Move(tc.req)
			if tc.expect != nil {
				require.Equal(t, tc.expect, err)
				require.ErrorIs(t, err, ErrInvalidAnchors)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMidpoint(t *testing.T) {
	got, err := Midpoint(1000, 2000)
	require.NoError(t, err)
	require.Equal(t, 1500.0, got)

	got, err = Midpoint(-1000, 1000)
	require.NoError(t, err)
	require.Equal(t, 0.0, got)

	_, err = Midpoint(2000, 2000)
	require.ErrorIs(t, err, ErrInvalidAnchors)
}

func TestMidpoint_RepeatedInsertionEventuallyExhausts(t *testing.T) {
	lo, hi := 1000.0, 2000.0
	steps := 0
	for {
		mid, err := Midpoint(lo, hi)
		if err != nil {
			require.ErrorIs(t, err, ErrExhausted)
			require.NotErrorIs(t, err, ErrInvalidAnchors)
			break
		}
		require.Greater(t, mid, lo)
		require.Less(t, mid, hi)
		hi = mid
		steps++
		require.Less(t, steps, 200, "float64 should run out of room well before 200 halvings")
	}
	// 1000 between consecutive GAP-spaced neighbours leaves room for roughly 40 halvings.
	require.Greater(t, steps, 30)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "list", KindList.String())
	require.Equal(t, "card", KindCard.String())
}
