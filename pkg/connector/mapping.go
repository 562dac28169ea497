package connector

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NativeFields is the probed, loosely-typed source document an adapter
// reads from. The vendor wire protocol that produces it is out of scope
// (§1); adapters only need to turn it into a Universal Transaction.
type NativeFields map[string]any

// PickString probes candidates in priority order and returns the first
// non-empty string value found.
func PickString(fields NativeFields, candidates ...string) string {
	for _, c := range candidates {
		if v, ok := fields[c]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// PickAmount probes candidates in priority order. A float64 or decimal
// string is treated as already being in major units. An int64 is treated
// as minor units (cents/kobo) and converted with banker's rounding.
func PickAmount(fields NativeFields, candidates ...string) (decimal.Decimal, bool) {
	for _, c := range candidates {
		v, ok := fields[c]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int64:
			return minorUnitsToMajor(n), true
		case int:
			return minorUnitsToMajor(int64(n)), true
		case float64:
			return decimal.NewFromFloat(n).Round(2), true
		case string:
			d, err := decimal.NewFromString(n)
			if err == nil {
				return d.Round(2), true
			}
		}
	}
	return decimal.Zero, false
}

// minorUnitsToMajor divides a minor-unit integer (kobo/cents) by 100 using
// banker's rounding (round-half-to-even), per the field-mapping policy. A
// clean minor-unit value divides evenly; bankersRound only changes the
// result on the defensive path where a source supplies a non-integral
// number of minor units.
func minorUnitsToMajor(minor int64) decimal.Decimal {
	return bankersRound(decimal.New(minor, -2), 2)
}

// bankersRound rounds d to places decimal digits using round-half-to-even,
// independent of the rounding mode any particular decimal library version
// defaults to.
func bankersRound(d decimal.Decimal, places int32) decimal.Decimal {
	shift := decimal.New(1, places)
	shifted := d.Mul(shift)
	floor := shifted.Truncate(0)
	frac := shifted.Sub(floor)

	half := decimal.NewFromFloat(0.5)
	switch {
	case frac.LessThan(half):
		// round down, nothing to do
	case frac.GreaterThan(half):
		floor = floor.Add(decimal.New(1, 0))
	default: // exactly .5: round to even
		two := decimal.New(2, 0)
		if !floor.Div(two).Truncate(0).Mul(two).Equal(floor) {
			floor = floor.Add(decimal.New(1, 0))
		}
	}
	return floor.Div(shift).Truncate(places)
}

// PickTimestamp probes candidates for an ISO-8601 timestamp. If none parse,
// it returns the current UTC time and fellBack=true so the caller can
// record a processing note, per the field-mapping policy.
func PickTimestamp(fields NativeFields, now time.Time, candidates ...string) (ts time.Time, fellBack bool) {
	for _, c := range candidates {
		v, ok := fields[c]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, false
		}
		if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
			return t, false
		}
	}
	return now.UTC(), true
}

// PickCurrency defaults to NGN, uppercased, per §4.1.
func PickCurrency(fields NativeFields, candidates ...string) string {
	c := PickString(fields, candidates...)
	if c == "" {
		return "NGN"
	}
	return strings.ToUpper(c)
}

// DefaultDescription builds the "<kind> <identifier>" fallback description.
func DefaultDescription(kind, identifier string) string {
	return kind + " " + identifier
}
