// Package position computes fractional sort keys for lists within a board and cards within a list.
//
// Positions are float64 values spaced GAP apart on append. A move places the entity at the
// midpoint of two adjacent anchors, or GAP beyond a boundary anchor. All functions are pure; the
// caller supplies the facts about the container (which anchor is first/last, whether anything
// lies between two anchors) computed while holding the board lock, excluding the moving entity.
package position

import (
	"errors"
	"fmt"
	"math"
)

// GAP is the spacing used on append and boundary moves.
const GAP float64 = 1000

type Kind int

const (
	KindList Kind = iota
	KindCard
)

func (k Kind) String() string {
	if k == KindCard {
		return "card"
	}
	return "list"
}

var (
	ErrInvalidAnchors = errors.New("invalid anchors")
	// ErrExhausted means float64 can no longer represent a value strictly between the anchors.
	ErrExhausted = errors.New("position space exhausted between anchors")
	// ErrTaken is returned by stores when a write would duplicate a position inside a container.
	ErrTaken = errors.New("position already taken in container")
)

// Violation names the rule an anchor combination broke. It unwraps to ErrInvalidAnchors.
type Violation string

const (
	ViolationSelfReference = Violation("self-reference: an anchor cannot be the entity being moved")
	ViolationEqualAnchors  = Violation("prev and next anchors must differ")
	ViolationNoAnchors     = Violation("at least one anchor is required")
	ViolationNotEmpty      = Violation("destination list is not empty: supply at least one anchor")
	ViolationOutOfOrder    = Violation("anchors out of order: prev must be positioned before next")
	ViolationNotAdjacent   = Violation("anchors not adjacent: another item lies between them")
	ViolationPrevNotLast   = Violation("prev is not the last item: supply both anchors for a middle move")
	ViolationNextNotFirst  = Violation("next is not the first item: supply both anchors for a middle move")
)

func (v Violation) Error() string {
	return string(v)
}

func (v Violation) Unwrap() error {
	return ErrInvalidAnchors
}

// Anchor is a resolved neighbour. Boundary is true when the anchor is the last item of the
// container (for prev) or the first (for next), with the moving entity excluded.
type Anchor struct {
	ID       int64
	Position float64
	Boundary bool
}

// Request describes a move. PrevID/NextID carry the identifiers as supplied by the caller, so
// identity rules can be checked before anchors are resolved; Prev/Next carry the resolved anchors.
type Request struct {
	Kind     Kind
	MovingID int64
	PrevID   *int64
	NextID   *int64
	Prev     *Anchor
	Next     *Anchor
	// Empty reports that the destination container has no items other than the moving entity.
	Empty bool
	// Between reports whether any item other than the moving entity lies strictly between
	// Prev and Next. Only consulted for cards with both anchors.
	Between bool
}

// CheckIdentity applies the rules that need only the supplied identifiers: at least one anchor
// for lists, no self-reference and no equal anchors.
func CheckIdentity(kind Kind, movingID int64, prevID, nextID *int64) error {
	if prevID == nil && nextID == nil {
		if kind == KindList {
			return ViolationNoAnchors
		}
		return nil
	}
	if (prevID != nil && *prevID == movingID) || (nextID != nil && *nextID == movingID) {
		return ViolationSelfReference
	}
	if prevID != nil && nextID != nil && *prevID == *nextID {
		return ViolationEqualAnchors
	}
	return nil
}

// Append returns the position for a new item placed after last, or GAP for an empty container.
func Append(last *float64) (float64, error) {
	if last == nil {
		return GAP, nil
	}
	return after(*last)
}

// Move computes the new position for a move request.
func Move(req Request) (float64, error) {
	if err := CheckIdentity(req.Kind, req.MovingID, req.PrevID, req.NextID); err != nil {
		return 0, err
	}

	switch {
	case req.Prev == nil && req.Next == nil:
		if req.Kind == KindList {
			return 0, ViolationNoAnchors
		}
		if !req.Empty {
			return 0, ViolationNotEmpty
		}
		return GAP, nil

	case req.Prev != nil && req.Next != nil:
		if req.Prev.Position >= req.Next.Position {
			return 0, ViolationOutOfOrder
		}
		if req.Kind == KindCard && req.Between {
			return 0, ViolationNotAdjacent
		}
		return Midpoint(req.Prev.Position, req.Next.Position)

	case req.Prev != nil:
		if !req.Prev.Boundary {
			return 0, ViolationPrevNotLast
		}
		return after(req.Prev.Position)

	default:
		if !req.Next.Boundary {
			return 0, ViolationNextNotFirst
		}
		return before(req.Next.Position)
	}
}

// Midpoint returns (a+b)/2, failing when the result is not strictly between a and b.
func Midpoint(a, b float64) (float64, error) {
	if a >= b {
		return 0, ViolationOutOfOrder
	}
	mid := (a + b) / 2
	if !(mid > a && mid < b) || math.IsInf(mid, 0) {
		return 0, fmt.Errorf("%w: %v and %v", ErrExhausted, a, b)
	}
	return mid, nil
}

func after(p float64) (float64, error) {
	next := p + GAP
	if !(next > p) || math.IsInf(next, 0) {
		return 0, fmt.Errorf("%w: nothing representable after %v", ErrExhausted, p)
	}
	return next, nil
}

func before(p float64) (float64, error) {
	prev := p - GAP
	if !(prev < p) || math.IsInf(prev, 0) {
		return 0, fmt.Errorf("%w: nothing representable before %v", ErrExhausted, p)
	}
	return prev, nil
}
