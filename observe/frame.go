// Package observe models the per-frame board observations handed to the
// reconstruction core by the vision stage: an 8x8 grid of cell labels (or
// per-piece identity tokens) with a confidence score per cell.
package observe

import "fmt"

// Label classifies what the vision stage saw on a single cell.
type Label uint8

const (
	Empty Label = iota
	OccupiedUnknown
	OccupiedLight
	OccupiedDark
)

func (l Label) String() string {
	switch l {
	case Empty:
		return "empty"
	case OccupiedUnknown:
		return "occupied"
	case OccupiedLight:
		return "light"
	case OccupiedDark:
		return "dark"
	}
	return fmt.Sprintf("label(%d)", uint8(l))
}

// MaxToken is the highest identity token a full chess set can carry.
const MaxToken = 32

// Cell is one square's observation. Token is 0 when the cell carries no
// identity information; 1..MaxToken otherwise.
type Cell struct {
	Label      Label   `json:"label"`
	Token      uint8   `json:"token,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Frame is one sampled moment of the game. Cells are indexed by square in
// a1=0 .. h8=63 order; use SquareIndex to address them in the row/column
// order of the warped image (row 0 = rank 8).
type Frame struct {
	Index int      `json:"index"`
	Cells [64]Cell `json:"cells"`
}

// MalformedFrameError reports a frame rejected at ingestion, before any
// scoring could consume it.
type MalformedFrameError struct {
	FrameIndex int
	Reason     string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame %d: %s", e.FrameIndex, e.Reason)
}

// AmbiguousObservationError reports a nonzero identity token that appears on
// more than one cell of the same frame. It is surfaced as a warning; the
// offending cells are degraded rather than guessed at.
type AmbiguousObservationError struct {
	FrameIndex int
	Token      uint8
}

func (e *AmbiguousObservationError) Error() string {
	return fmt.Sprintf("frame %d: identity token %d observed on multiple cells", e.FrameIndex, e.Token)
}

// SquareIndex maps a grid position in image order (row 0 = rank 8, col 0 =
// file a) to a square index in a1=0 .. h8=63 order.
func SquareIndex(row, col int) int {
	return (7-row)*8 + col
}

// GridPos is the inverse of SquareIndex.
func GridPos(idx int) (row, col int) {
	return 7 - idx/8, idx % 8
}

// NewFrame builds a validated frame from exactly 64 cells in square order.
func NewFrame(index int, cells []Cell) (Frame, error) {
	if len(cells) != 64 {
		return Frame{}, &MalformedFrameError{FrameIndex: index, Reason: fmt.Sprintf("expected 64 cells, got %d", len(cells))}
	}
	f := Frame{Index: index}
	copy(f.Cells[:], cells)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks the per-cell invariants: confidence within [0,1], token
// within range, no token on a cell labeled empty.
func (f *Frame) Validate() error {
	for sq, c := range f.Cells {
		if c.Confidence < 0 || c.Confidence > 1 {
			return &MalformedFrameError{FrameIndex: f.Index, Reason: fmt.Sprintf("cell %d: confidence %v out of range", sq, c.Confidence)}
		}
		if c.Token > MaxToken {
			return &MalformedFrameError{FrameIndex: f.Index, Reason: fmt.Sprintf("cell %d: token %d out of range", sq, c.Token)}
		}
		if c.Label > OccupiedDark {
			return &MalformedFrameError{FrameIndex: f.Index, Reason: fmt.Sprintf("cell %d: unknown label %d", sq, c.Label)}
		}
		if c.Label == Empty && c.Token != 0 {
			return &MalformedFrameError{FrameIndex: f.Index, Reason: fmt.Sprintf("cell %d: token %d on empty cell", sq, c.Token)}
		}
	}
	return nil
}

// Dedupe returns a copy of the frame with every duplicated identity token
// degraded to an empty zero-confidence cell, plus one report per duplicated
// token. A well-formed frame comes back unchanged.
func (f Frame) Dedupe() (Frame, []*AmbiguousObservationError) {
	var squares [MaxToken + 1][]int
	for sq, c := range f.Cells {
		if c.Token != 0 {
			squares[c.Token] = append(squares[c.Token], sq)
		}
	}
	var reports []*AmbiguousObservationError
	for tok := 1; tok <= MaxToken; tok++ {
		if len(squares[tok]) < 2 {
			continue
		}
		reports = append(reports, &AmbiguousObservationError{FrameIndex: f.Index, Token: uint8(tok)})
		for _, sq := range squares[tok] {
			f.Cells[sq] = Cell{}
		}
	}
	return f, reports
}

// SameObservation reports whether two frames carry identical labels and
// tokens. Confidences are ignored; the sampler jitters them between
// otherwise identical captures.
func (f *Frame) SameObservation(o *Frame) bool {
	for sq := range f.Cells {
		if f.Cells[sq].Label != o.Cells[sq].Label || f.Cells[sq].Token != o.Cells[sq].Token {
			return false
		}
	}
	return true
}
