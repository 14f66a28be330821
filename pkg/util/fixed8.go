package util

import "strconv"

// Fixed8Decimals is the number of decimal places GAS/NEO fixed-point
// amounts carry.
const Fixed8Decimals = 8

// fixed8Factor scales an integer amount into Fixed8 units.
const fixed8Factor = 100000000

// Fixed8 represents a fixed-point number with 8 decimal digits of
// precision, stored as an int64 count of 10^-8 units (as GAS balances
// and fees are represented on the wire, spec.md §3/§6).
type Fixed8 int64

// NewFixed8 creates a Fixed8 from a whole-unit integer amount.
func NewFixed8(i int64) Fixed8 {
	return Fixed8(i * fixed8Factor)
}

// Int64 returns the raw 10^-8 unit count.
func (f Fixed8) Int64() int64 {
	return int64(f)
}

// String implements fmt.Stringer.
func (f Fixed8) String() string {
	buf := strconv.FormatFloat(float64(f)/fixed8Factor, 'f', Fixed8Decimals, 64)
	return buf
}

// Add returns f+other, used for accumulating fees and rewards.
func (f Fixed8) Add(other Fixed8) Fixed8 {
	return f + other
}

// Sub returns f-other.
func (f Fixed8) Sub(other Fixed8) Fixed8 {
	return f - other
}

// LessThan reports whether f < other.
func (f Fixed8) LessThan(other Fixed8) bool {
	return f < other
}

// GreaterThan reports whether f > other.
func (f Fixed8) GreaterThan(other Fixed8) bool {
	return f > other
}
