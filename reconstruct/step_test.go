package reconstruct

import (
	"context"
	"encoding/json"
	"testing"

	"otbreview/board"
)

// Step records are persisted verbatim by downstream report stages, so
// their JSON shape is part of the contract.
func TestStepJSONShape(t *testing.T) {
	start, _ := board.StartState(nil)
	r, err := New(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(context.Background(), gameFrames(t, start, "e2e4"))
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		ID    string `json:"id"`
		Steps []struct {
			FrameIndex int     `json:"frame_index"`
			FEN        string  `json:"fen"`
			UCI        string  `json:"uci"`
			SAN        string  `json:"san"`
			Kind       string  `json:"kind"`
			Confidence float64 `json:"confidence"`
		} `json:"steps"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID == "" {
		t.Error("result id missing")
	}
	if decoded.Status.Code != "completed" {
		t.Errorf("status code = %q, want completed", decoded.Status.Code)
	}
	if len(decoded.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(decoded.Steps))
	}
	step := decoded.Steps[0]
	if step.UCI != "e2e4" || step.SAN != "e4" || step.Kind != "normal" {
		t.Errorf("step = %+v", step)
	}
	if step.FEN == "" || step.FrameIndex != 1 || step.Confidence <= 0 {
		t.Errorf("step metadata = %+v", step)
	}
}
