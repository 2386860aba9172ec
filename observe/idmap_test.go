package observe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/notnil/chess"
)

const sampleMap = `{
	"1": {"symbol": "K", "square": "a1", "name": "white king"},
	"2": {"symbol": "k", "square": "h8"},
	"3": {"symbol": "N", "square": "a2"},
	"4": {"symbol": "N", "square": "c2"}
}`

func TestParseIDMap(t *testing.T) {
	m, err := ParseIDMap([]byte(sampleMap))
	if err != nil {
		t.Fatalf("ParseIDMap: %v", err)
	}
	if m.Len() != 4 {
		t.Fatalf("expected 4 tokens, got %d", m.Len())
	}
	piece, ok := m.Piece(1)
	if !ok || piece != chess.WhiteKing {
		t.Errorf("token 1: got %v", piece)
	}
	sq, ok := m.StartSquare(2)
	if !ok || sq != chess.H8 {
		t.Errorf("token 2: start square %v, want h8", sq)
	}
	if m.Name(1) != "white king" {
		t.Errorf("token 1 name = %q", m.Name(1))
	}
	toks := m.Tokens()
	for i := 1; i < len(toks); i++ {
		if toks[i-1] >= toks[i] {
			t.Fatalf("tokens not sorted: %v", toks)
		}
	}
}

func TestParseIDMapRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad symbol", `{"1": {"symbol": "X", "square": "e1"}}`},
		{"bad square", `{"1": {"symbol": "K", "square": "j9"}}`},
		{"token zero", `{"0": {"symbol": "K", "square": "e1"}}`},
		{"token too large", `{"33": {"symbol": "K", "square": "e1"}}`},
		{"shared square", `{"1": {"symbol": "K", "square": "e1"}, "2": {"symbol": "Q", "square": "e1"}}`},
		{"empty map", `{}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		if _, err := ParseIDMap([]byte(tt.data)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoadIDMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "piece_id_map.json")
	if err := os.WriteFile(path, []byte(sampleMap), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadIDMap(path)
	if err != nil {
		t.Fatalf("LoadIDMap: %v", err)
	}
	if m.Len() != 4 {
		t.Fatalf("expected 4 tokens, got %d", m.Len())
	}
	if _, err := LoadIDMap(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
