package reconstruct

import (
	"runtime"

	"github.com/rs/zerolog"
)

// Config tunes one reconstruction run. Thresholds gate the Decided /
// Ambiguous / Stuck outcomes; the numeric defaults are calibration
// starting points, not structural constants. Pass the result of
// DefaultConfig with fields overridden as needed; zero numeric fields are
// replaced by their defaults.
type Config struct {
	// AcceptThreshold is the minimum score the best candidate must reach;
	// below it the run halts as Stuck at that frame.
	AcceptThreshold float64
	// AmbiguityMargin is the score closeness within which candidates are
	// indistinguishable from the observation alone.
	AmbiguityMargin float64
	// CostScale divides the weighted mismatch cost when normalizing a
	// candidate's score into [0,1]. With the default 6, three confidently
	// observed unexplained cell changes score 0.5.
	CostScale float64
	// TokenMismatchCost is the per-cell cost of observing a token that
	// contradicts the expected identity. Identity is a much stronger signal
	// than color, so this outweighs a plain occupancy mismatch.
	TokenMismatchCost float64
	// TokenMatchBonus is the cost credit for an exact identity match on the
	// candidate move's destination square.
	TokenMatchBonus float64
	// PromotionDiscount scales the confidence of a color-only promotion,
	// which defaults to queen because color observation cannot identify the
	// promoted piece.
	PromotionDiscount float64
	// MaxDuplicateRun is the number of consecutive duplicate frames after
	// which the run reports a sampling stall. Duplicates are still skipped.
	MaxDuplicateRun int
	// Workers bounds the goroutines scoring candidates within one step.
	Workers int
	// StartFEN overrides the standard starting position in color-only
	// mode. Ignored when an identity map is supplied, since the map
	// defines the start. Empty selects the standard initial position.
	StartFEN string
	// Logger receives progress and warning events. The zero logger is
	// silent.
	Logger zerolog.Logger
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		AcceptThreshold:   0.6,
		AmbiguityMargin:   0.05,
		CostScale:         6.0,
		TokenMismatchCost: 2.0,
		TokenMatchBonus:   0.5,
		PromotionDiscount: 0.75,
		MaxDuplicateRun:   8,
		Workers:           runtime.NumCPU(),
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.AcceptThreshold <= 0 {
		c.AcceptThreshold = def.AcceptThreshold
	}
	if c.AmbiguityMargin <= 0 {
		c.AmbiguityMargin = def.AmbiguityMargin
	}
	if c.CostScale <= 0 {
		c.CostScale = def.CostScale
	}
	if c.TokenMismatchCost <= 0 {
		c.TokenMismatchCost = def.TokenMismatchCost
	}
	if c.TokenMatchBonus < 0 {
		c.TokenMatchBonus = def.TokenMatchBonus
	}
	if c.PromotionDiscount <= 0 || c.PromotionDiscount > 1 {
		c.PromotionDiscount = def.PromotionDiscount
	}
	if c.MaxDuplicateRun <= 0 {
		c.MaxDuplicateRun = def.MaxDuplicateRun
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
}
