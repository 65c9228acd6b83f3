package protocol

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/graphio/extractor/internal/numeric"
	"github.com/graphio/extractor/internal/symbol"
)

// fallbackPrefix is what the game prints in place of a translation it does
// not have. The full fallback value is `Unknown key: "<key>"`.
const fallbackPrefix = `Unknown key: "`

// Reader consumes a record sequence positionally. Record layouts are fixed,
// so every field is read in declaration order with no lookahead.
type Reader struct {
	table   *symbol.Table
	records []string
	pos     int
}

// NewReader creates a reader over records, interning strings into table.
func NewReader(table *symbol.Table, records []string) *Reader {
	return &Reader{table: table, records: records}
}

// Remaining returns the number of unconsumed records.
func (r *Reader) Remaining() int {
	return len(r.records) - r.pos
}

// Line returns the next record verbatim.
func (r *Reader) Line() (string, error) {
	if r.pos >= len(r.records) {
		return "", errors.Wrap(ErrMalformedRecord, "unexpected end of data")
	}
	line := r.records[r.pos]
	r.pos++
	return line, nil
}

// Symbol reads the next record and interns it.
func (r *Reader) Symbol() (symbol.Symbol, error) {
	line, err := r.Line()
	if err != nil {
		return 0, err
	}
	return r.table.Intern(line), nil
}

// Count reads a non-negative decimal count.
func (r *Reader) Count() (int, error) {
	line, err := r.Line()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(numeric.ErrParse, "cannot parse %q as count", line)
	}
	return int(n), nil
}

// Int reads an arbitrary-precision integer.
func (r *Reader) Int() (*big.Int, error) {
	line, err := r.Line()
	if err != nil {
		return nil, err
	}
	return numeric.ParseInt(line)
}

// Decimal reads a decimal number as an exact rational.
func (r *Reader) Decimal() (*big.Rat, error) {
	line, err := r.Line()
	if err != nil {
		return nil, err
	}
	return numeric.ParseDecimal(line)
}

// Localised reads a localised string record and interns its translated
// value. When the game has no translation it prints a fixed fallback
// shape; in that case the key itself is kept.
func (r *Reader) Localised() (symbol.Symbol, error) {
	key, value, fallback, err := r.localisedParts()
	if err != nil {
		return 0, err
	}
	if fallback {
		return r.table.Intern(key), nil
	}
	return r.table.Intern(value), nil
}

// OptionalLocalised is Localised for fields where a missing translation
// means the text is absent. Returns the zero Symbol on fallback.
func (r *Reader) OptionalLocalised() (symbol.Symbol, error) {
	_, value, fallback, err := r.localisedParts()
	if err != nil || fallback {
		return 0, err
	}
	return r.table.Intern(value), nil
}

func (r *Reader) localisedParts() (key, value string, fallback bool, err error) {
	line, err := r.Line()
	if err != nil {
		return "", "", false, err
	}
	parts := strings.Split(line, string(rune(UnitSeparator)))
	if len(parts) < 2 {
		return "", "", false, errors.Wrap(ErrMalformedRecord, "no value part in localised string")
	}
	if len(parts) > 2 {
		return "", "", false, errors.Wrap(ErrMalformedRecord, "extra part in localised string")
	}
	key, value = parts[0], parts[1]

	fallback = len(value) == 15+len(key) &&
		strings.HasPrefix(value, fallbackPrefix) &&
		strings.HasSuffix(value, `"`)
	return key, value, fallback, nil
}

// Bits reads a record of exactly width '0'/'1' characters.
func (r *Reader) Bits(width int) ([]bool, error) {
	line, err := r.Line()
	if err != nil {
		return nil, err
	}
	if len(line) != width {
		return nil, errors.Wrapf(ErrMalformedRecord, "expected %d bits, got %q", width, line)
	}
	bits := make([]bool, width)
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '0':
			bits[i] = false
		case '1':
			bits[i] = true
		default:
			return nil, errors.Wrapf(ErrMalformedRecord, "expected 0 or 1 as bit value in %q", line)
		}
	}
	return bits, nil
}

// Flag reads a single-bit record.
func (r *Reader) Flag() (bool, error) {
	bits, err := r.Bits(1)
	if err != nil {
		return false, err
	}
	return bits[0], nil
}
