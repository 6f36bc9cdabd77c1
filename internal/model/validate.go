package model

import (
	"fmt"
	"strings"
)

// ValidationError contains details about a single validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the structural invariants of a trade plan: non-empty legs,
// positive quantities and strikes, and a leg shape matching the strategy type.
func (p *TradePlan) Validate() error {
	var errs ValidationErrors

	if p.Symbol == "" {
		errs = append(errs, ValidationError{Field: "symbol", Message: "must not be empty"})
	}
	if len(p.Legs) == 0 {
		errs = append(errs, ValidationError{Field: "legs", Message: "must not be empty"})
		return errs
	}
	for i, leg := range p.Legs {
		if leg.Quantity <= 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("legs[%d].quantity", i),
				Message: "must be a positive integer",
			})
		}
		if !leg.Strike.IsPositive() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("legs[%d].strike", i),
				Message: "must be positive",
			})
		}
	}
	if p.MaxRisk.IsNegative() {
		errs = append(errs, ValidationError{Field: "max_risk", Message: "must not be negative"})
	}

	if err := p.validateShape(); err != nil {
		errs = append(errs, err...)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (p *TradePlan) validateShape() ValidationErrors {
	var errs ValidationErrors

	switch p.StrategyType {
	case StrategyIronCondor:
		if len(p.Legs) != 4 {
			errs = append(errs, ValidationError{
				Field:   "legs",
				Message: fmt.Sprintf("iron_condor requires exactly 4 legs, got %d", len(p.Legs)),
			})
			return errs
		}
		puts := legsOf(p.Legs, InstrumentPut)
		calls := legsOf(p.Legs, InstrumentCall)
		if len(puts) != 2 || len(calls) != 2 {
			errs = append(errs, ValidationError{
				Field:   "legs",
				Message: "iron_condor requires a put vertical and a call vertical",
			})
			return errs
		}
		if !isVertical(puts) {
			errs = append(errs, ValidationError{Field: "legs", Message: "put legs do not form a vertical spread"})
		}
		if !isVertical(calls) {
			errs = append(errs, ValidationError{Field: "legs", Message: "call legs do not form a vertical spread"})
		}

	case StrategyPutCreditSpread, StrategyCallCreditSpread:
		want := InstrumentPut
		if p.StrategyType == StrategyCallCreditSpread {
			want = InstrumentCall
		}
		if len(p.Legs) != 2 {
			errs = append(errs, ValidationError{
				Field:   "legs",
				Message: fmt.Sprintf("%s requires exactly 2 legs, got %d", p.StrategyType, len(p.Legs)),
			})
			return errs
		}
		for i, leg := range p.Legs {
			if leg.Instrument != want {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("legs[%d].instrument", i),
					Message: fmt.Sprintf("%s legs must all be %ss", p.StrategyType, want),
				})
			}
		}
		if !isVertical(p.Legs) {
			errs = append(errs, ValidationError{Field: "legs", Message: "legs do not form a vertical spread"})
		}

	case StrategyLongStraddle:
		if len(p.Legs) != 2 {
			errs = append(errs, ValidationError{
				Field:   "legs",
				Message: fmt.Sprintf("long_straddle requires exactly 2 legs, got %d", len(p.Legs)),
			})
			return errs
		}
		a, b := p.Legs[0], p.Legs[1]
		if a.Action != b.Action {
			errs = append(errs, ValidationError{Field: "legs", Message: "straddle legs must share the same action"})
		}
		if a.Instrument == b.Instrument {
			errs = append(errs, ValidationError{Field: "legs", Message: "straddle legs must use different instrument types"})
		}
		if !a.Strike.Equal(b.Strike) {
			errs = append(errs, ValidationError{Field: "legs", Message: "straddle legs must share the same strike"})
		}

	case StrategyCustom:
		// Custom plans only promise non-empty legs; shape is caller-defined.

	default:
		errs = append(errs, ValidationError{
			Field:   "strategy_type",
			Message: fmt.Sprintf("unsupported strategy type %q", p.StrategyType),
		})
	}

	return errs
}

func legsOf(legs []TradeLeg, instrument Instrument) []TradeLeg {
	var out []TradeLeg
	for _, leg := range legs {
		if leg.Instrument == instrument {
			out = append(out, leg)
		}
	}
	return out
}

// isVertical reports whether two legs form a vertical spread: same
// instrument type, opposite actions, different strikes.
func isVertical(legs []TradeLeg) bool {
	if len(legs) != 2 {
		return false
	}
	a, b := legs[0], legs[1]
	return a.Instrument == b.Instrument &&
		a.Action != b.Action &&
		!a.Strike.Equal(b.Strike)
}
