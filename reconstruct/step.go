package reconstruct

import (
	"github.com/notnil/chess"

	"otbreview/board"
)

// Candidate is one scored legal move. Candidates exist only while a frame
// transition is being decided; the survivors are kept as a step's
// alternates when the observation could not separate them.
type Candidate struct {
	Move  *chess.Move `json:"-"`
	UCI   string      `json:"uci"`
	SAN   string      `json:"san"`
	Score float64     `json:"score"`
}

// Step is one decoded move: the frame that evidenced it, the states it
// bridges, the chosen move with notation and kind, and the confidence
// bookkeeping that downstream review tooling surfaces.
type Step struct {
	FrameIndex int `json:"frame_index"`

	Before board.State `json:"-"`
	After  board.State `json:"-"`
	// FEN is the resulting position, for downstream PGN/report stages.
	FEN string `json:"fen"`

	Move *chess.Move    `json:"-"`
	UCI  string         `json:"uci"`
	SAN  string         `json:"san"`
	Kind board.MoveKind `json:"kind"`

	Confidence float64     `json:"confidence"`
	Alternates []Candidate `json:"alternates,omitempty"`
	// Ambiguous marks a step whose alternates were within the ambiguity
	// margin of the chosen move.
	Ambiguous bool `json:"ambiguous,omitempty"`
	// Forced marks a step where exactly one legal move scored above zero.
	Forced bool `json:"forced,omitempty"`
	// Corrected marks a step supplied through the correction interface.
	Corrected bool `json:"corrected,omitempty"`

	// framePos is the step's position in the frame slice, kept so a
	// correction can resume decoding at the right sample.
	framePos int
}

// StatusCode is the terminal state of a run.
type StatusCode uint8

const (
	Completed StatusCode = iota + 1
	Stuck
)

func (c StatusCode) String() string {
	switch c {
	case Completed:
		return "completed"
	case Stuck:
		return "stuck"
	}
	return "unknown"
}

// MarshalJSON emits the code as its string form.
func (c StatusCode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// Status describes how a run ended. When Code is Stuck, FrameIndex is the
// frame no legal move could explain and State is the last good position.
type Status struct {
	Code       StatusCode  `json:"code"`
	FrameIndex int         `json:"frame_index,omitempty"`
	State      board.State `json:"-"`
	FEN        string      `json:"fen,omitempty"`
}

// Warning kinds reported on a Result.
const (
	WarnDuplicateToken  = "duplicate_token"
	WarnSamplingStalled = "sampling_stalled"
)

// Warning is a non-fatal condition observed during a run: a duplicated
// identity token inside one frame, or a duplicate-frame run long enough to
// suggest the game ended or sampling stalled.
type Warning struct {
	FrameIndex int    `json:"frame_index"`
	Kind       string `json:"kind"`
	Token      uint8  `json:"token,omitempty"`
	RunLength  int    `json:"run_length,omitempty"`
}

// Result is the full outcome of a reconstruction run.
type Result struct {
	ID       string    `json:"id"`
	Steps    []Step    `json:"steps"`
	Status   Status    `json:"status"`
	Warnings []Warning `json:"warnings,omitempty"`
}
