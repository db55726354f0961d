// Package expression implements the L2 evaluator (spec §4.3, §4.4): a
// pull-free, purely-functional tree walk over *tipb.Expr that produces a
// datum.Datum, given a row of column values and an EvalContext.
//
// Ported from _examples/original_source's evaluator.rs almost directly
// (the largest single port in the module, matching the Rust file's
// share of the core per spec §2): EvalContext mirrors Evaluator/
// EvalContext's tz/flags handling, and Eval's switch over ExprType
// mirrors Evaluator::eval's match over the same enum.
package expression

import (
	"github.com/sdh517/tikv/errs"
)

// Flag bits control how truncation is reported, matching
// tipb.SelectRequest's own flag bits (spec §4.4 "Flags").
type Flag uint64

const (
	// FlagIgnoreTruncate: truncate errors are silently ignored.
	FlagIgnoreTruncate Flag = 1
	// FlagTruncateAsWarning: truncate errors (when not ignored) are
	// downgraded to warnings rather than failing the evaluation.
	FlagTruncateAsWarning Flag = 1 << 1
)

const oneDayInSeconds = 3600 * 24

// EvalContext carries the global knobs an evaluation needs: the session
// timezone offset and the truncation-handling flags (spec §4.4).
type EvalContext struct {
	TzOffsetSeconds int
	IgnoreTruncate  bool
	TruncateAsWarn  bool

	// Warnings accumulates truncate warnings raised while
	// TruncateAsWarn is set instead of failing the evaluation.
	Warnings []string
}

// NewEvalContext validates tzOffsetSeconds (spec §8 "Tz range: offset
// ±86400s rejected") and builds an EvalContext from SelectRequest-style
// flags.
func NewEvalContext(tzOffsetSeconds int, flags Flag) (*EvalContext, error) {
	if tzOffsetSeconds <= -oneDayInSeconds || tzOffsetSeconds >= oneDayInSeconds {
		return nil, errs.Evalf("invalid tz offset %d", tzOffsetSeconds)
	}
	return &EvalContext{
		TzOffsetSeconds: tzOffsetSeconds,
		IgnoreTruncate:  flags&FlagIgnoreTruncate != 0,
		TruncateAsWarn:  flags&FlagTruncateAsWarning != 0,
	}, nil
}

func (c *EvalContext) warnTruncated(msg string) error {
	if c.IgnoreTruncate {
		return nil
	}
	if c.TruncateAsWarn {
		c.Warnings = append(c.Warnings, msg)
		return nil
	}
	return errs.Truncatedf("%s", msg)
}
