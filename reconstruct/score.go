package reconstruct

import (
	"context"
	"fmt"

	"github.com/notnil/chess"
	"golang.org/x/sync/errgroup"

	"otbreview/board"
	"otbreview/observe"
)

// scoreCandidates scores every legal move against the next frame and
// returns the candidates in move order. Scoring one candidate is
// independent of the others, so the work is fanned out across workers;
// results are addressed by index, which keeps the later reduction
// deterministic regardless of completion order.
func (r *Reconstructor) scoreCandidates(ctx context.Context, st board.State, moves []*chess.Move, frame *observe.Frame) []Candidate {
	cands := make([]Candidate, len(moves))
	workers := r.cfg.Workers
	if workers <= 1 || len(moves) < 2*workers {
		for i, m := range moves {
			cands[i] = r.scoreOne(st, m, frame)
		}
		return cands
	}
	g, _ := errgroup.WithContext(ctx)
	jobs := make(chan int, len(moves))
	for i := range moves {
		jobs <- i
	}
	close(jobs)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				cands[i] = r.scoreOne(st, moves[i], frame)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return cands
}

func (r *Reconstructor) scoreOne(st board.State, m *chess.Move, frame *observe.Frame) Candidate {
	after := mustApply(st, m)
	return Candidate{
		Move:  m,
		UCI:   st.UCI(m),
		SAN:   st.SAN(m),
		Score: transitionScore(&r.cfg, after, frame, int(m.S2()), r.identity),
	}
}

// transitionScore rates how well the position after a candidate move
// explains the observed frame. Every cell contributes a mismatch cost
// weighted by its observation confidence, so well-observed cells dominate;
// the weighted cost is then normalized into a [0,1] score. In identity mode
// a contradicting token costs more than a plain occupancy mismatch, and an
// exact token match on the destination square earns a credit.
func transitionScore(cfg *Config, after board.State, frame *observe.Frame, dest int, identity bool) float64 {
	occ := after.Occupancy()
	toks := after.Tokens()
	var cost float64
	for sq := 0; sq < 64; sq++ {
		cell := frame.Cells[sq]
		w := cell.Confidence
		if w == 0 {
			continue
		}
		expected := occ[sq]
		var miss float64
		switch {
		case cell.Label == observe.Empty:
			if expected != observe.Empty {
				miss = 1
			}
		case expected == observe.Empty:
			miss = 1
		case identity && cell.Token != 0 && toks[sq] != 0 && cell.Token != toks[sq]:
			miss = cfg.TokenMismatchCost
		case cell.Label == observe.OccupiedLight && expected == observe.OccupiedDark,
			cell.Label == observe.OccupiedDark && expected == observe.OccupiedLight:
			miss = 1
		}
		cost += w * miss
	}
	if identity {
		cell := frame.Cells[dest]
		if cell.Token != 0 && cell.Token == toks[dest] {
			cost -= cfg.TokenMatchBonus * cell.Confidence
		}
	}
	if cost < 0 {
		cost = 0
	}
	score := 1 - cost/cfg.CostScale
	if score < 0 {
		score = 0
	}
	return score
}

// mustApply applies a move the reconstructor generated itself. A rejection
// here is a generation bug, not a runtime condition.
func mustApply(st board.State, m *chess.Move) board.State {
	next, err := st.Apply(m)
	if err != nil {
		panic(fmt.Sprintf("reconstruct: generated move rejected by apply: %v", err))
	}
	return next
}
