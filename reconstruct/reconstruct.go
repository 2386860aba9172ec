// Package reconstruct infers the legal move sequence of an over-the-board
// game from a time-ordered sequence of noisy board observations. For each
// consecutive frame pair it enumerates the legal moves of the current
// position, scores each candidate against the observed grid, and either
// decides a move, flags it ambiguous, or halts as stuck for manual
// correction.
package reconstruct

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/notnil/chess"

	"otbreview/board"
	"otbreview/observe"
)

// Reconstructor decodes one game. It owns the frame sequence and the
// append-only step history, so concurrent games need independent instances.
type Reconstructor struct {
	cfg      Config
	idmap    *observe.IDMap
	identity bool
	log      zerolog.Logger
	id       string

	start    board.State
	frames   []observe.Frame
	steps    []Step
	status   Status
	warnings []warning
}

type warning struct {
	Warning
	framePos int
}

// New builds a reconstructor. A nil identity map selects color-only mode;
// otherwise the starting position and token placement are derived from the
// map and observations are scored against piece identities.
func New(cfg Config, idmap *observe.IDMap) (*Reconstructor, error) {
	cfg.normalize()
	var start board.State
	var err error
	if idmap == nil && cfg.StartFEN != "" {
		start, err = board.FromFEN(cfg.StartFEN)
	} else {
		start, err = board.StartState(idmap)
	}
	if err != nil {
		return nil, err
	}
	r := &Reconstructor{
		cfg:      cfg,
		idmap:    idmap,
		identity: idmap != nil,
		id:       uuid.NewString(),
		start:    start,
	}
	r.log = cfg.Logger.With().Str("run", r.id).Logger()
	return r, nil
}

// ID returns the run identifier attached to results and log events.
func (r *Reconstructor) ID() string { return r.id }

// Run decodes the full frame sequence. Frame 0 is the baseline sample of
// the starting position; each later frame either evidences one move, is
// skipped as a duplicate, or halts the run as Stuck. Malformed frames are
// rejected before any state is touched.
func (r *Reconstructor) Run(ctx context.Context, frames []observe.Frame) (*Result, error) {
	for i := range frames {
		if err := frames[i].Validate(); err != nil {
			return nil, err
		}
	}
	r.frames = slices.Clone(frames)
	r.steps = nil
	r.warnings = nil
	r.status = Status{}

	r.log.Info().Int("frames", len(frames)).Bool("identity", r.identity).Msg("reconstruction started")
	r.decode(ctx, r.start, 1)
	res := r.Result()
	r.log.Info().Int("steps", len(res.Steps)).Str("status", res.Status.Code.String()).Msg("reconstruction finished")
	return res, nil
}

// Result assembles the current decoded state. It is safe to call after a
// correction to obtain the refreshed step sequence and status.
func (r *Reconstructor) Result() *Result {
	res := &Result{
		ID:     r.id,
		Steps:  slices.Clone(r.steps),
		Status: r.status,
	}
	for _, w := range r.warnings {
		res.Warnings = append(res.Warnings, w.Warning)
	}
	return res
}

// decode runs the frame loop from the given frame position with cur as the
// current position, appending steps until the frames are exhausted or the
// run gets stuck.
func (r *Reconstructor) decode(ctx context.Context, cur board.State, fromPos int) {
	dupRun := 0
	for pos := fromPos; pos < len(r.frames); pos++ {
		raw := &r.frames[pos]
		if raw.SameObservation(&r.frames[pos-1]) {
			dupRun++
			r.log.Debug().Int("frame", raw.Index).Msg("duplicate frame skipped")
			if dupRun == r.cfg.MaxDuplicateRun {
				r.warnings = append(r.warnings, warning{
					Warning:  Warning{FrameIndex: raw.Index, Kind: WarnSamplingStalled, RunLength: dupRun},
					framePos: pos,
				})
				r.log.Info().Int("frame", raw.Index).Int("run", dupRun).Msg("sampling stalled on duplicate frames")
			}
			continue
		}
		dupRun = 0

		frame, dups := raw.Dedupe()
		for _, d := range dups {
			r.warnings = append(r.warnings, warning{
				Warning:  Warning{FrameIndex: d.FrameIndex, Kind: WarnDuplicateToken, Token: d.Token},
				framePos: pos,
			})
			r.log.Warn().Int("frame", d.FrameIndex).Uint8("token", d.Token).Msg("duplicate identity token degraded")
		}

		step, ok := r.decideStep(ctx, cur, &frame, pos)
		if !ok {
			r.status = Status{Code: Stuck, FrameIndex: raw.Index, State: cur, FEN: cur.FEN()}
			r.log.Warn().Int("frame", raw.Index).Str("fen", cur.FEN()).Msg("reconstruction stuck")
			return
		}
		r.steps = append(r.steps, step)
		cur = step.After
		r.log.Debug().
			Int("frame", raw.Index).
			Str("move", step.UCI).
			Float64("confidence", step.Confidence).
			Bool("ambiguous", step.Ambiguous).
			Msg("step decoded")
	}
	r.status = Status{Code: Completed}
}

// decideStep scores all legal moves of cur against the frame and picks the
// winner. ok is false when no candidate clears the acceptance threshold.
func (r *Reconstructor) decideStep(ctx context.Context, cur board.State, frame *observe.Frame, pos int) (Step, bool) {
	moves := cur.LegalMoves()
	if len(moves) == 0 {
		return Step{}, false
	}
	cands := r.scoreCandidates(ctx, cur, moves, frame)

	// Stable sort on a copy keeps the generation order as the tie-break.
	ranked := slices.Clone(cands)
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	top := ranked[0]
	if top.Score < r.cfg.AcceptThreshold {
		return Step{}, false
	}

	var alternates []Candidate
	for _, c := range ranked {
		if top.Score-c.Score <= r.cfg.AmbiguityMargin {
			alternates = append(alternates, c)
		}
	}
	ambiguous := len(alternates) > 1
	confidence := top.Score

	// Color observation cannot identify the promoted piece: default to the
	// queen (first in move order among equal scores), discount the
	// confidence, and surface all promotions to the same square.
	if !r.identity && top.Move.Promo() != chess.NoPieceType {
		alternates = alternates[:0]
		for _, c := range cands {
			if c.Move.S1() == top.Move.S1() && c.Move.S2() == top.Move.S2() && c.Move.Promo() != chess.NoPieceType {
				alternates = append(alternates, c)
			}
		}
		ambiguous = true
		confidence = top.Score * r.cfg.PromotionDiscount
	}

	positive := 0
	for _, c := range cands {
		if c.Score > 0 {
			positive++
		}
	}

	after := mustApply(cur, top.Move)
	step := Step{
		FrameIndex: frame.Index,
		Before:     cur,
		After:      after,
		FEN:        after.FEN(),
		Move:       top.Move,
		UCI:        top.UCI,
		SAN:        top.SAN,
		Kind:       cur.MoveKind(top.Move),
		Confidence: confidence,
		Ambiguous:  ambiguous,
		Forced:     positive == 1,
		framePos:   pos,
	}
	if ambiguous {
		step.Alternates = alternates
	}
	return step, true
}
