// Package numeric converts the decimal text in an export into exact
// arbitrary-precision numbers. The host prints values such as "0.875" or
// "1.5" that stand for exact in-game rationals, so decimal fractions are
// mapped back onto small-denominator rationals instead of being kept as
// floating point.
package numeric

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrParse marks any failure to convert text into an exact number.
var ErrParse = errors.New("numeric parse failure")

// maxDenominator bounds the denominator search when recovering a rational
// from a decimal fraction.
const maxDenominator = 1000

// approximationEpsilon stops the denominator search once a candidate is
// this close to the decoded fraction.
const approximationEpsilon = 0.00000001

// ParseInt parses a decimal integer with an optional sign.
func ParseInt(s string) (*big.Int, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Wrapf(ErrParse, "cannot parse %q as integer", s)
	}
	return i, nil
}

// ParseDecimal parses a decimal number of the form [-]digits[.fraction]
// into an exact rational. The integer part is parsed exactly; the
// fractional part is recovered as the closest fraction with a denominator
// of at most 1000. Scientific notation is rejected.
func ParseDecimal(s string) (*big.Rat, error) {
	if len(s) < 1 {
		return nil, errors.Wrap(ErrParse, "expected number, got empty string")
	}
	negative := strings.HasPrefix(s, "-")
	text := s
	if negative {
		text = text[1:]
	}

	period := strings.IndexByte(text, '.')
	whole := text
	if period >= 0 {
		if strings.IndexAny(text[period+1:], "eE") >= 0 {
			return nil, errors.Wrapf(ErrParse, "scientific notation not supported in %q", s)
		}
		whole = text[:period]
	}

	base := new(big.Int)
	for i := 0; i < len(whole); i++ {
		c := whole[i]
		if c < '0' || c > '9' {
			return nil, errors.Wrapf(ErrParse, "unexpected character %q in number %q", c, s)
		}
		base.Mul(base, big.NewInt(10))
		base.Add(base, big.NewInt(int64(c-'0')))
	}

	result := new(big.Rat).SetInt(base)
	if period >= 0 {
		approx, err := strconv.ParseFloat(text[period:], 64)
		if err != nil {
			return nil, errors.Wrapf(ErrParse, "cannot parse fractional part of %q", s)
		}
		if approx > 0 {
			num, den := approximateFraction(approx)
			result.Add(result, big.NewRat(num, den))
		}
	}

	if negative {
		result.Neg(result)
	}
	return result, nil
}

// approximateFraction finds the fraction num/den with 1 <= den <= 1000 and
// 0 <= num < den closest to f. Denominators are scanned in ascending order
// and the search stops early once a candidate is within epsilon, so ties
// settle on the smallest denominator.
func approximateFraction(f float64) (num, den int64) {
	closestDelta := f
	num, den = 0, 1
	for d := int64(1); d <= maxDenominator; d++ {
		for n := int64(1); n < d; n++ {
			delta := math.Abs(f - float64(n)/float64(d))
			if delta < closestDelta {
				closestDelta = delta
				num, den = n, d
				if delta <= approximationEpsilon {
					return num, den
				}
			}
		}
	}
	return num, den
}

// ParseRat parses the canonical serialized form of a rational: "n" or
// "n/d" with decimal integer parts. This is the inverse of
// (*big.Rat).RatString.
func ParseRat(s string) (*big.Rat, error) {
	numText, denText, hasDen := strings.Cut(s, "/")
	num, ok := new(big.Int).SetString(numText, 10)
	if !ok {
		return nil, errors.Wrapf(ErrParse, "cannot parse numerator of %q", s)
	}
	if !hasDen {
		return new(big.Rat).SetInt(num), nil
	}
	den, ok := new(big.Int).SetString(denText, 10)
	if !ok || den.Sign() == 0 {
		return nil, errors.Wrapf(ErrParse, "cannot parse denominator of %q", s)
	}
	return new(big.Rat).SetFrac(num, den), nil
}
