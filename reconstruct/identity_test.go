package reconstruct

import (
	"context"
	"testing"

	"otbreview/board"
	"otbreview/observe"
)

const knightsIDMap = `{
	"1": {"symbol": "K", "square": "a1"},
	"2": {"symbol": "k", "square": "h8"},
	"3": {"symbol": "N", "square": "a2"},
	"4": {"symbol": "N", "square": "c2"}
}`

func knightsSetup(t *testing.T) (*observe.IDMap, board.State) {
	t.Helper()
	m, err := observe.ParseIDMap([]byte(knightsIDMap))
	if err != nil {
		t.Fatal(err)
	}
	start, err := board.StartState(m)
	if err != nil {
		t.Fatal(err)
	}
	return m, start
}

func TestIdentityTokensDisambiguateKnights(t *testing.T) {
	m, start := knightsSetup(t)
	r, err := New(testConfig(), m)
	if err != nil {
		t.Fatal(err)
	}
	after := advance(t, start, "c2b4")

	frame1 := frameFromState(1, after, 1)
	frame1.Cells[8].Confidence = 0  // a2 occluded
	frame1.Cells[10].Confidence = 0 // c2 occluded

	res, err := r.Run(context.Background(), []observe.Frame{frameFromState(0, start, 1), frame1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status.Code != Completed || len(res.Steps) != 1 {
		t.Fatalf("status %v with %d steps", res.Status.Code, len(res.Steps))
	}
	step := res.Steps[0]
	if step.UCI != "c2b4" {
		t.Errorf("decoded %s, want c2b4: the destination token identifies the knight", step.UCI)
	}
	if step.Ambiguous {
		t.Error("identity observation should resolve the ambiguity")
	}
}

func TestDuplicateTokenDegradedAndReported(t *testing.T) {
	m, start := knightsSetup(t)
	r, err := New(testConfig(), m)
	if err != nil {
		t.Fatal(err)
	}
	after := advance(t, start, "a2b4")

	frame1 := frameFromState(1, after, 1)
	// Token 3 shows up twice: on its real square and on a misread cell.
	frame1.Cells[int(observe.SquareIndex(3, 3))] = observe.Cell{Label: observe.OccupiedLight, Token: 3, Confidence: 0.9}

	res, err := r.Run(context.Background(), []observe.Frame{frameFromState(0, start, 1), frame1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status.Code != Completed || len(res.Steps) != 1 {
		t.Fatalf("status %v with %d steps", res.Status.Code, len(res.Steps))
	}
	if res.Steps[0].UCI != "a2b4" {
		t.Errorf("decoded %s, want a2b4", res.Steps[0].UCI)
	}
	var dup int
	for _, w := range res.Warnings {
		if w.Kind == WarnDuplicateToken {
			dup++
			if w.Token != 3 || w.FrameIndex != 1 {
				t.Errorf("unexpected duplicate-token warning %+v", w)
			}
		}
	}
	if dup != 1 {
		t.Errorf("expected one duplicate-token warning, got %d", dup)
	}
}
