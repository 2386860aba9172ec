package observe

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/notnil/chess"
	"golang.org/x/exp/slices"
)

// IDEntry is the on-disk form of one identity-map record. Symbol uses FEN
// letters (uppercase white, lowercase black); Square is the piece's expected
// starting square in algebraic form.
type IDEntry struct {
	Symbol string `json:"symbol"`
	Square string `json:"square"`
	Name   string `json:"name,omitempty"`
}

// IDMap resolves identity tokens to pieces and their starting squares. It is
// static configuration: built once, read-only afterwards.
type IDMap struct {
	pieces  map[uint8]chess.Piece
	squares map[uint8]chess.Square
	names   map[uint8]string
}

var symbolPieces = map[string]chess.Piece{
	"K": chess.WhiteKing, "Q": chess.WhiteQueen, "R": chess.WhiteRook,
	"B": chess.WhiteBishop, "N": chess.WhiteKnight, "P": chess.WhitePawn,
	"k": chess.BlackKing, "q": chess.BlackQueen, "r": chess.BlackRook,
	"b": chess.BlackBishop, "n": chess.BlackKnight, "p": chess.BlackPawn,
}

// PieceFromSymbol converts a FEN piece letter to a piece.
func PieceFromSymbol(s string) (chess.Piece, error) {
	p, ok := symbolPieces[s]
	if !ok {
		return chess.NoPiece, fmt.Errorf("unknown piece symbol %q", s)
	}
	return p, nil
}

func parseSquare(s string) (chess.Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("invalid square %q", s)
	}
	return chess.Square(int(s[1]-'1')*8 + int(s[0]-'a')), nil
}

// ParseIDMap decodes and validates an identity map from its JSON form:
//
//	{"1": {"symbol": "K", "square": "e1", "name": "white king"}, ...}
func ParseIDMap(data []byte) (*IDMap, error) {
	var raw map[string]IDEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("piece id map: %w", err)
	}
	m := &IDMap{
		pieces:  make(map[uint8]chess.Piece, len(raw)),
		squares: make(map[uint8]chess.Square, len(raw)),
		names:   make(map[uint8]string, len(raw)),
	}
	used := make(map[chess.Square]uint8, len(raw))
	for key, entry := range raw {
		id, err := strconv.Atoi(key)
		if err != nil || id < 1 || id > MaxToken {
			return nil, fmt.Errorf("piece id map: token %q out of range 1..%d", key, MaxToken)
		}
		tok := uint8(id)
		piece, err := PieceFromSymbol(entry.Symbol)
		if err != nil {
			return nil, fmt.Errorf("piece id map: token %s: %w", key, err)
		}
		sq, err := parseSquare(entry.Square)
		if err != nil {
			return nil, fmt.Errorf("piece id map: token %s: %w", key, err)
		}
		if other, dup := used[sq]; dup {
			return nil, fmt.Errorf("piece id map: tokens %d and %d share square %s", other, tok, entry.Square)
		}
		used[sq] = tok
		m.pieces[tok] = piece
		m.squares[tok] = sq
		if entry.Name != "" {
			m.names[tok] = entry.Name
		}
	}
	if len(m.pieces) == 0 {
		return nil, fmt.Errorf("piece id map: no entries")
	}
	return m, nil
}

// LoadIDMap reads an identity map from a JSON file.
func LoadIDMap(path string) (*IDMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("piece id map: %w", err)
	}
	return ParseIDMap(data)
}

// Piece returns the piece a token stands for.
func (m *IDMap) Piece(tok uint8) (chess.Piece, bool) {
	p, ok := m.pieces[tok]
	return p, ok
}

// StartSquare returns the square a token is expected to start on.
func (m *IDMap) StartSquare(tok uint8) (chess.Square, bool) {
	sq, ok := m.squares[tok]
	return sq, ok
}

// Name returns the human-readable label for a token, if the map carries one.
func (m *IDMap) Name(tok uint8) string {
	return m.names[tok]
}

// Tokens lists the mapped tokens in ascending order.
func (m *IDMap) Tokens() []uint8 {
	toks := make([]uint8, 0, len(m.pieces))
	for tok := range m.pieces {
		toks = append(toks, tok)
	}
	slices.Sort(toks)
	return toks
}

// Len reports how many tokens the map resolves.
func (m *IDMap) Len() int { return len(m.pieces) }
