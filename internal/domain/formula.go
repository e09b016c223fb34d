package domain

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/outbreak-map-service/internal/dateutil"
)

// ErrInvalidArgument marks formula-configuration bugs: unknown enum values
// or an inverted date range. These propagate to the caller instead of
// silently defaulting, so misconfigured formulas surface during development.
var ErrInvalidArgument = errors.New("invalid argument")

// Numerator selects the count field a formula reads.
type Numerator string

const (
	NumeratorCases     Numerator = "cases"
	NumeratorDeaths    Numerator = "deaths"
	NumeratorNewCases  Numerator = "new_cases"
	NumeratorNewDeaths Numerator = "new_deaths"
)

// ParseNumerator validates a numerator token from an external caller.
func ParseNumerator(s string) (Numerator, error) {
	switch n := Numerator(s); n {
	case NumeratorCases, NumeratorDeaths, NumeratorNewCases, NumeratorNewDeaths:
		return n, nil
	default:
		return "", fmt.Errorf("%w: unknown numerator %q", ErrInvalidArgument, s)
	}
}

// Denominator selects what the numerator is divided by.
type Denominator string

const (
	DenominatorTotal   Denominator = "total"    // divide by 1
	DenominatorPerCase Denominator = "per_case" // divide by cumulative cases
	DenominatorPer1000 Denominator = "per_1000" // divide by population/1000
	DenominatorPerSqMi Denominator = "per_sq_mi"
	DenominatorPerSqKm Denominator = "per_sq_km"
)

// ParseDenominator validates a denominator token from an external caller.
func ParseDenominator(s string) (Denominator, error) {
	switch d := Denominator(s); d {
	case DenominatorTotal, DenominatorPerCase, DenominatorPer1000, DenominatorPerSqMi, DenominatorPerSqKm:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown denominator %q", ErrInvalidArgument, s)
	}
}

// Mode is the temporal combinator applied to the basic formula.
type Mode string

const (
	// ModeOn evaluates at a single date.
	ModeOn Mode = "on"
	// ModeDiff is the difference between the date and a reference date.
	ModeDiff Mode = "diff"
	// ModeAvg is the arithmetic mean over every calendar day from the
	// reference date through the date, inclusive.
	ModeAvg Mode = "avg"
)

// ParseMode validates a mode token from an external caller.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeOn, ModeDiff, ModeAvg:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, s)
	}
}

// Formula describes one evaluation request. RefDate is required for ModeDiff
// and ModeAvg and ignored for ModeOn.
type Formula struct {
	Numerator   Numerator
	Denominator Denominator
	Mode        Mode
	Date        string
	RefDate     string
}

// Key is a stable string identity for the formula, used for result caching.
func (f Formula) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", f.Numerator, f.Denominator, f.Mode, f.Date, f.RefDate)
}

// effectiveDate finds the largest count-series key on or before date.
// Lexicographic comparison is calendar comparison for ISO dates.
func (e *Entry) effectiveDate(date string) (string, bool) {
	best := ""
	for d := range e.Counts {
		if d <= date && d > best {
			best = d
		}
	}
	return best, best != ""
}

// EvaluateBasic computes one numerator/denominator ratio at a single date,
// backfilling to the effective date. A date with no eligible record yields 0.
//
// A denominator that resolves to exactly 0 also yields 0 rather than ±Inf or
// NaN, keeping results finite for rendering; the tests pin this policy.
func (e *Entry) EvaluateBasic(num Numerator, den Denominator, date string) (float64, error) {
	eff, ok := e.effectiveDate(date)
	if !ok {
		return 0, nil
	}
	point := e.Counts[eff]

	var numerator float64
	switch num {
	case NumeratorCases:
		numerator = point.Cases
	case NumeratorDeaths:
		numerator = point.Deaths
	case NumeratorNewCases, NumeratorNewDeaths:
		// Delta against the effective value one day earlier. With no prior
		// record the previous value is 0, so "new" degenerates to the
		// cumulative total; that fallback is deliberate.
		var prev CountPoint
		if prevEff, ok := e.effectiveDate(dateutil.PrevDay(date)); ok {
			prev = e.Counts[prevEff]
		}
		if num == NumeratorNewCases {
			numerator = point.Cases - prev.Cases
		} else {
			numerator = point.Deaths - prev.Deaths
		}
	default:
		return 0, fmt.Errorf("%w: unknown numerator %q", ErrInvalidArgument, num)
	}

	var denominator float64
	switch den {
	case DenominatorTotal:
		denominator = 1
	case DenominatorPerCase:
		denominator = point.Cases
	case DenominatorPer1000:
		denominator = e.Population / 1000
	case DenominatorPerSqMi:
		denominator = e.AreaSqMi
	case DenominatorPerSqKm:
		denominator = e.AreaSqMi * SqKmPerSqMile
	default:
		return 0, fmt.Errorf("%w: unknown denominator %q", ErrInvalidArgument, den)
	}

	if denominator == 0 {
		return 0, nil
	}
	return numerator / denominator, nil
}

// Evaluate applies the formula's temporal mode. Incomplete entries always
// evaluate to 0 and are expected to be excluded from rendering upstream.
func (e *Entry) Evaluate(f Formula) (float64, error) {
	if !e.Complete() {
		return 0, nil
	}

	switch f.Mode {
	case ModeOn:
		return e.EvaluateBasic(f.Numerator, f.Denominator, f.Date)

	case ModeDiff:
		at, err := e.EvaluateBasic(f.Numerator, f.Denominator, f.Date)
		if err != nil {
			return 0, err
		}
		ref, err := e.EvaluateBasic(f.Numerator, f.Denominator, f.RefDate)
		if err != nil {
			return 0, err
		}
		return at - ref, nil

	case ModeAvg:
		if !dateutil.Valid(f.Date) || !dateutil.Valid(f.RefDate) {
			return 0, fmt.Errorf("%w: averaged mode needs well-formed dates, got %q..%q", ErrInvalidArgument, f.RefDate, f.Date)
		}
		if f.RefDate > f.Date {
			return 0, fmt.Errorf("%w: averaged range start %s is after end %s", ErrInvalidArgument, f.RefDate, f.Date)
		}
		// Every calendar day in the range contributes, whether or not the
		// series has a record that day; each day re-applies the backfill.
		days := dateutil.DaysInclusive(f.RefDate, f.Date)
		var sum float64
		d := f.RefDate
		for n := 0; n < days; n++ {
			v, err := e.EvaluateBasic(f.Numerator, f.Denominator, d)
			if err != nil {
				return 0, err
			}
			sum += v
			d = dateutil.NextDay(d)
		}
		return sum / float64(days), nil

	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, f.Mode)
	}
}
