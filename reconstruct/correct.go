package reconstruct

import (
	"context"
	"fmt"

	"github.com/notnil/chess"
	"golang.org/x/exp/slices"

	"otbreview/board"
)

// Correct replaces the step at stepIndex with an explicitly supplied move
// and re-decodes every later frame from the corrected position, since each
// downstream expectation depends on the upstream state. The move may be
// given in UCI ("e7e8q") or SAN ("e8=Q") form and must be legal in the
// position preceding the step; otherwise an IllegalMoveError is returned
// and the history is left untouched. The regenerated steps from stepIndex
// onward are returned; earlier steps are unaffected.
func (r *Reconstructor) Correct(ctx context.Context, stepIndex int, move string) ([]Step, error) {
	if stepIndex < 0 || stepIndex >= len(r.steps) {
		return nil, fmt.Errorf("step index %d out of range [0,%d)", stepIndex, len(r.steps))
	}
	st := r.steps[stepIndex].Before
	chosen, err := resolveMove(st, move)
	if err != nil {
		return nil, err
	}
	after, err := st.Apply(chosen)
	if err != nil {
		return nil, err
	}
	pos := r.steps[stepIndex].framePos
	step := Step{
		FrameIndex: r.frames[pos].Index,
		Before:     st,
		After:      after,
		FEN:        after.FEN(),
		Move:       chosen,
		UCI:        st.UCI(chosen),
		SAN:        st.SAN(chosen),
		Kind:       st.MoveKind(chosen),
		Confidence: 1.0,
		Corrected:  true,
		framePos:   pos,
	}
	r.log.Info().Int("step", stepIndex).Str("move", step.UCI).Msg("step corrected")

	r.steps = append(r.steps[:stepIndex:stepIndex], step)
	r.warnings = slices.DeleteFunc(r.warnings, func(w warning) bool {
		return w.framePos > pos
	})
	r.status = Status{}
	r.decode(ctx, after, pos+1)
	return slices.Clone(r.steps[stepIndex:]), nil
}

// resolveMove parses a UCI or SAN move string and resolves it to the
// generated legal move carrying the proper tags. A move that parses but is
// not legal in st yields an IllegalMoveError.
func resolveMove(st board.State, move string) (*chess.Move, error) {
	parsed, err := chess.UCINotation{}.Decode(st.Position(), move)
	if err != nil {
		parsed, err = chess.AlgebraicNotation{}.Decode(st.Position(), move)
	}
	if err != nil {
		return nil, &board.IllegalMoveError{Move: move, FEN: st.FEN()}
	}
	for _, lm := range st.LegalMoves() {
		if lm.S1() == parsed.S1() && lm.S2() == parsed.S2() && lm.Promo() == parsed.Promo() {
			return lm, nil
		}
	}
	return nil, &board.IllegalMoveError{Move: move, FEN: st.FEN()}
}
