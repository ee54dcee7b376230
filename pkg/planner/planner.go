// Package planner implements the investment projection engine: months-to-goal
// simulation and fixed-horizon future value. All money math uses decimals to
// avoid binary-float accumulation over long horizons; rounding is left to
// presentation layers.
package planner

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput indicates an out-of-domain parameter (negative money,
// non-positive target). This is a caller error and is never recovered from.
var ErrInvalidInput = errors.New("invalid projection input")

// ErrUnreachableGoal indicates the target cannot be reached under the given
// parameters, no matter how long the simulation runs.
var ErrUnreachableGoal = errors.New("target amount is unreachable")

// maxPeriods caps the iterative simulation so pathological inputs
// (tiny rate, huge target) terminate instead of spinning
const maxPeriods = 1000

// ProjectionInput holds the parameters for a projection.
// PeriodicRate is per-period (monthly), e.g. 0.005 for 0.5% a month.
type ProjectionInput struct {
	Initial             decimal.Decimal
	Target              decimal.Decimal
	MonthlyContribution decimal.Decimal
	PeriodicRate        decimal.Decimal
}

// ProjectionResult describes the outcome of a projection.
// FinalBalance = TotalContributed + MarketReturn always holds, and
// TotalContributed = Initial + MonthlyContribution * Months.
type ProjectionResult struct {
	Months           int
	FinalBalance     decimal.Decimal
	TotalContributed decimal.Decimal
	MarketReturn     decimal.Decimal
}

// validateAmounts checks the fields shared by both projection modes,
// the target is only meaningful for MonthsToTarget and checked there
func (in ProjectionInput) validateAmounts() error {
	if in.Initial.IsNegative() {
		return fmt.Errorf("%w: initial amount is negative", ErrInvalidInput)
	}
	if in.MonthlyContribution.IsNegative() {
		return fmt.Errorf("%w: monthly contribution is negative", ErrInvalidInput)
	}
	if in.PeriodicRate.IsNegative() {
		return fmt.Errorf("%w: periodic rate is negative", ErrInvalidInput)
	}
	return nil
}

func (in ProjectionInput) validate() error {
	if err := in.validateAmounts(); err != nil {
		return err
	}
	if !in.Target.IsPositive() {
		return fmt.Errorf("%w: target amount must be positive", ErrInvalidInput)
	}
	return nil
}

// MonthsToTarget simulates month-by-month growth until the balance reaches
// the target. The convention is contribute-then-compound: each month the
// contribution is added first and the whole balance then grows by the rate.
// Returns ErrUnreachableGoal when the target can never be hit.
func MonthsToTarget(in ProjectionInput) (ProjectionResult, error) {
	if err := in.validate(); err != nil {
		return ProjectionResult{}, err
	}

	// already there, nothing to simulate
	if in.Initial.GreaterThanOrEqual(in.Target) {
		return ProjectionResult{
			Months:           0,
			FinalBalance:     in.Initial,
			TotalContributed: in.Initial,
			MarketReturn:     decimal.Zero,
		}, nil
	}

	if in.PeriodicRate.IsZero() {
		return monthsToTargetFlat(in)
	}

	growth := decimal.NewFromInt(1).Add(in.PeriodicRate)
	balance := in.Initial
	months := 0
	for balance.LessThan(in.Target) {
		if months >= maxPeriods {
			return ProjectionResult{}, fmt.Errorf("%w: not reached within %d months", ErrUnreachableGoal, maxPeriods)
		}
		balance = balance.Add(in.MonthlyContribution).Mul(growth)
		months++
	}

	contributed := in.Initial.Add(in.MonthlyContribution.Mul(decimal.NewFromInt(int64(months))))
	return ProjectionResult{
		Months:           months,
		FinalBalance:     balance,
		TotalContributed: contributed,
		MarketReturn:     balance.Sub(contributed),
	}, nil
}

// monthsToTargetFlat handles the zero-rate case with exact ceil division,
// no iteration and no drift
func monthsToTargetFlat(in ProjectionInput) (ProjectionResult, error) {
	if in.MonthlyContribution.IsZero() {
		return ProjectionResult{}, fmt.Errorf("%w: no growth and no contributions", ErrUnreachableGoal)
	}

	months := in.Target.Sub(in.Initial).Div(in.MonthlyContribution).Ceil().IntPart()
	balance := in.Initial.Add(in.MonthlyContribution.Mul(decimal.NewFromInt(months)))
	return ProjectionResult{
		Months:           int(months),
		FinalBalance:     balance,
		TotalContributed: balance,
		MarketReturn:     decimal.Zero,
	}, nil
}

// ProjectAtHorizon computes the balance after a fixed number of months using
// closed-form future value: FV(initial) = initial*(1+r)^n and the ordinary
// annuity FV(contributions) = c*((1+r)^n - 1)/r, contributions at period end.
func ProjectAtHorizon(in ProjectionInput, months int) (ProjectionResult, error) {
	if err := in.validateAmounts(); err != nil {
		return ProjectionResult{}, err
	}
	if months < 0 {
		return ProjectionResult{}, fmt.Errorf("%w: months is negative", ErrInvalidInput)
	}

	if months == 0 {
		return ProjectionResult{
			Months:           0,
			FinalBalance:     in.Initial,
			TotalContributed: in.Initial,
			MarketReturn:     decimal.Zero,
		}, nil
	}

	n := decimal.NewFromInt(int64(months))
	contributed := in.Initial.Add(in.MonthlyContribution.Mul(n))

	if in.PeriodicRate.IsZero() {
		return ProjectionResult{
			Months:           months,
			FinalBalance:     contributed,
			TotalContributed: contributed,
			MarketReturn:     decimal.Zero,
		}, nil
	}

	growth := decimal.NewFromInt(1).Add(in.PeriodicRate)
	factor := growth.Pow(n)
	principalFV := in.Initial.Mul(factor)
	annuityFV := in.MonthlyContribution.Mul(factor.Sub(decimal.NewFromInt(1))).Div(in.PeriodicRate)
	balance := principalFV.Add(annuityFV)

	return ProjectionResult{
		Months:           months,
		FinalBalance:     balance,
		TotalContributed: contributed,
		MarketReturn:     balance.Sub(contributed),
	}, nil
}
