// Package board provides immutable chess position snapshots for the
// reconstruction core: deterministic legal-move enumeration, move
// application, and projection of a position into the occupancy and
// identity-token grids the transition scorer compares against observations.
package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
	"golang.org/x/exp/slices"

	"otbreview/observe"
)

// MoveKind tags the shape of a decoded move for downstream notation.
type MoveKind uint8

const (
	Normal MoveKind = iota
	Capture
	CastleKingside
	CastleQueenside
	EnPassant
)

func (k MoveKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Capture:
		return "capture"
	case CastleKingside:
		return "castle-kingside"
	case CastleQueenside:
		return "castle-queenside"
	case EnPassant:
		return "en-passant"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalJSON emits the kind as its string form.
func (k MoveKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// IllegalMoveError reports a move that is not legal in the state it was
// applied to. Raised internally it means a generation bug and callers treat
// it as fatal; raised while validating external correction input it is an
// ordinary, recoverable error.
type IllegalMoveError struct {
	Move string
	FEN  string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("move %s is not legal in position %s", e.Move, e.FEN)
}

// State is an immutable snapshot of a position plus, in identity-token mode,
// the placement of the physical piece tokens. Apply returns a new State; a
// State is never mutated after construction, so step histories can share
// them freely.
type State struct {
	pos    *chess.Position
	tokens [64]uint8
	hasIDs bool
}

// StartState builds the initial state. With a nil identity map this is the
// standard starting position with no token information; otherwise the
// position and token placement are both derived from the map's expected
// starting squares.
func StartState(m *observe.IDMap) (State, error) {
	if m == nil {
		return State{pos: chess.NewGame().Position()}, nil
	}
	var placement [64]chess.Piece
	var tokens [64]uint8
	for _, tok := range m.Tokens() {
		piece, _ := m.Piece(tok)
		sq, _ := m.StartSquare(tok)
		placement[sq] = piece
		tokens[sq] = tok
	}
	if err := validatePlacement(placement); err != nil {
		return State{}, fmt.Errorf("identity map start position: %w", err)
	}
	st, err := FromFEN(placementFEN(placement))
	if err != nil {
		return State{}, fmt.Errorf("identity map start position: %w", err)
	}
	st.tokens = tokens
	st.hasIDs = true
	return st, nil
}

// FromFEN builds a state from a FEN string, without token information.
func FromFEN(fen string) (State, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return State{}, fmt.Errorf("parse fen: %w", err)
	}
	return State{pos: chess.NewGame(opt).Position()}, nil
}

// WithTokens returns a copy of the state carrying the given token placement.
func (s State) WithTokens(tokens [64]uint8) State {
	s.tokens = tokens
	s.hasIDs = true
	return s
}

// Position exposes the underlying immutable position.
func (s State) Position() *chess.Position { return s.pos }

// FEN renders the position.
func (s State) FEN() string { return s.pos.String() }

func (s State) String() string { return s.FEN() }

// Turn returns the side to move.
func (s State) Turn() chess.Color { return s.pos.Turn() }

// HasIdentity reports whether the state tracks token placement.
func (s State) HasIdentity() bool { return s.hasIDs }

// Tokens returns the token placement grid, zero where no token is tracked.
func (s State) Tokens() [64]uint8 { return s.tokens }

// LegalMoves enumerates every legal move in a stable order: ascending by
// from-square, then to-square, then promotion piece. The order is the
// tie-break contract for candidate scoring, so it must not change.
func (s State) LegalMoves() []*chess.Move {
	moves := slices.Clone(s.pos.ValidMoves())
	slices.SortFunc(moves, func(a, b *chess.Move) int {
		if c := int(a.S1()) - int(b.S1()); c != 0 {
			return c
		}
		if c := int(a.S2()) - int(b.S2()); c != 0 {
			return c
		}
		return int(a.Promo()) - int(b.Promo())
	})
	return moves
}

// Apply plays a move and returns the successor state. The move must be legal
// in s; otherwise an IllegalMoveError is returned and s is unaffected. The
// returned state uses the library-generated move, so tags (captures,
// castles, en passant) are trusted even when the caller built the move from
// bare coordinates.
func (s State) Apply(m *chess.Move) (State, error) {
	legal := s.matchLegal(m)
	if legal == nil {
		return State{}, &IllegalMoveError{Move: chess.UCINotation{}.Encode(s.pos, m), FEN: s.FEN()}
	}
	next := State{pos: s.pos.Update(legal), hasIDs: s.hasIDs}
	next.tokens = s.nextTokens(legal)
	return next, nil
}

// matchLegal finds the generated legal move with the same coordinates and
// promotion as m, or nil if there is none.
func (s State) matchLegal(m *chess.Move) *chess.Move {
	for _, lm := range s.pos.ValidMoves() {
		if lm.S1() == m.S1() && lm.S2() == m.S2() && lm.Promo() == m.Promo() {
			return lm
		}
	}
	return nil
}

// nextTokens moves the token placement along with the move: the moving
// token follows the piece (promotion keeps the pawn's token), a captured
// token disappears, the rook token hops on castling, and the captured pawn's
// token is cleared on en passant.
func (s State) nextTokens(m *chess.Move) [64]uint8 {
	tokens := s.tokens
	if !s.hasIDs {
		return tokens
	}
	from, to := int(m.S1()), int(m.S2())
	tok := tokens[from]
	tokens[from] = 0
	if m.HasTag(chess.EnPassant) {
		if s.Turn() == chess.White {
			tokens[to-8] = 0
		} else {
			tokens[to+8] = 0
		}
	}
	if m.HasTag(chess.KingSideCastle) || m.HasTag(chess.QueenSideCastle) {
		base := 0
		if s.Turn() == chess.Black {
			base = 56
		}
		if m.HasTag(chess.KingSideCastle) {
			tokens[base+5] = tokens[base+7]
			tokens[base+7] = 0
		} else {
			tokens[base+3] = tokens[base]
			tokens[base] = 0
		}
	}
	tokens[to] = tok
	return tokens
}

// MoveKind classifies a move of this position.
func (s State) MoveKind(m *chess.Move) MoveKind {
	switch {
	case m.HasTag(chess.KingSideCastle):
		return CastleKingside
	case m.HasTag(chess.QueenSideCastle):
		return CastleQueenside
	case m.HasTag(chess.EnPassant):
		return EnPassant
	case m.HasTag(chess.Capture):
		return Capture
	}
	return Normal
}

// UCI renders a move in coordinate notation.
func (s State) UCI(m *chess.Move) string {
	return chess.UCINotation{}.Encode(s.pos, m)
}

// SAN renders a move in standard algebraic notation.
func (s State) SAN(m *chess.Move) string {
	return chess.AlgebraicNotation{}.Encode(s.pos, m)
}

// Occupancy projects the position into the label grid the scorer compares
// against observations. White pieces are light.
func (s State) Occupancy() [64]observe.Label {
	var occ [64]observe.Label
	b := s.pos.Board()
	for sq := chess.A1; sq <= chess.H8; sq++ {
		piece := b.Piece(sq)
		switch {
		case piece == chess.NoPiece:
			occ[sq] = observe.Empty
		case piece.Color() == chess.White:
			occ[sq] = observe.OccupiedLight
		default:
			occ[sq] = observe.OccupiedDark
		}
	}
	return occ
}

var fenChars = map[chess.Piece]byte{
	chess.WhiteKing: 'K', chess.WhiteQueen: 'Q', chess.WhiteRook: 'R',
	chess.WhiteBishop: 'B', chess.WhiteKnight: 'N', chess.WhitePawn: 'P',
	chess.BlackKing: 'k', chess.BlackQueen: 'q', chess.BlackRook: 'r',
	chess.BlackBishop: 'b', chess.BlackKnight: 'n', chess.BlackPawn: 'p',
}

// placementFEN renders a full FEN for a bare placement: white to move, no
// en-passant target, and castling rights granted wherever king and rook
// still stand on their home squares.
func placementFEN(placement [64]chess.Piece) string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := placement[rank*8+file]
			if p == chess.NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(fenChars[p])
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	rights := ""
	if placement[4] == chess.WhiteKing {
		if placement[7] == chess.WhiteRook {
			rights += "K"
		}
		if placement[0] == chess.WhiteRook {
			rights += "Q"
		}
	}
	if placement[60] == chess.BlackKing {
		if placement[63] == chess.BlackRook {
			rights += "k"
		}
		if placement[56] == chess.BlackRook {
			rights += "q"
		}
	}
	if rights == "" {
		rights = "-"
	}
	return sb.String() + " w " + rights + " - 0 1"
}

func validatePlacement(placement [64]chess.Piece) error {
	whiteKings, blackKings := 0, 0
	for sq, p := range placement {
		switch p {
		case chess.WhiteKing:
			whiteKings++
		case chess.BlackKing:
			blackKings++
		case chess.WhitePawn, chess.BlackPawn:
			if sq < 8 || sq >= 56 {
				return fmt.Errorf("pawn on back rank (square %d)", sq)
			}
		}
	}
	if whiteKings != 1 || blackKings != 1 {
		return fmt.Errorf("need exactly one king per side, got %d white and %d black", whiteKings, blackKings)
	}
	return nil
}
