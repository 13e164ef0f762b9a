package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the value type stored in a Column
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindBool
	KindTime
	KindDate
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Date is a calendar date without a time zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly earlier than o
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Column is an immutable, named, typed vector with a validity mask.
// Only the slice matching the column kind is populated.
type Column struct {
	name  string
	kind  Kind
	valid []bool

	strs  []string
	nums  []float64
	bools []bool
	times []time.Time
	dates []Date
}

func validMask(n int, valid []bool) []bool {
	if valid != nil {
		if len(valid) != n {
			panic(fmt.Sprintf("dataset: validity mask length %d does not match %d values", len(valid), n))
		}
		return valid
	}
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

// NewStringColumn creates a string column. A nil valid mask marks every
// value as present.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	return &Column{name: name, kind: KindString, strs: values, valid: validMask(len(values), valid)}
}

// NewFloatColumn creates a float column. NaN values are stored as nulls.
func NewFloatColumn(name string, values []float64, valid []bool) *Column {
	mask := append([]bool(nil), validMask(len(values), valid)...)
	for i, v := range values {
		if math.IsNaN(v) {
			mask[i] = false
		}
	}
	return &Column{name: name, kind: KindFloat, nums: values, valid: mask}
}

// NewBoolColumn creates a bool column
func NewBoolColumn(name string, values []bool, valid []bool) *Column {
	return &Column{name: name, kind: KindBool, bools: values, valid: validMask(len(values), valid)}
}

// NewTimeColumn creates a timestamp column
func NewTimeColumn(name string, values []time.Time, valid []bool) *Column {
	return &Column{name: name, kind: KindTime, times: values, valid: validMask(len(values), valid)}
}

// NewDateColumn creates a calendar date column
func NewDateColumn(name string, values []Date, valid []bool) *Column {
	return &Column{name: name, kind: KindDate, dates: values, valid: validMask(len(values), valid)}
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// Kind returns the column value kind
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of values, nulls included
func (c *Column) Len() int { return len(c.valid) }

// IsNull reports whether row i holds no value
func (c *Column) IsNull(i int) bool { return !c.valid[i] }

// NullCount returns the number of null rows
func (c *Column) NullCount() int {
	n := 0
	for _, ok := range c.valid {
		if !ok {
			n++
		}
	}
	return n
}

// Str returns the string at row i. Null rows return "".
func (c *Column) Str(i int) string {
	if c.kind != KindString || !c.valid[i] {
		return ""
	}
	return c.strs[i]
}

// Float returns the number at row i, or NaN for a null row
func (c *Column) Float(i int) float64 {
	if !c.valid[i] {
		return math.NaN()
	}
	switch c.kind {
	case KindFloat:
		return c.nums[i]
	case KindBool:
		if c.bools[i] {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// Bool returns the boolean at row i. Null rows return false.
func (c *Column) Bool(i int) bool {
	return c.kind == KindBool && c.valid[i] && c.bools[i]
}

// Time returns the timestamp at row i. Null rows return the zero time.
func (c *Column) Time(i int) time.Time {
	if c.kind != KindTime || !c.valid[i] {
		return time.Time{}
	}
	return c.times[i]
}

// Date returns the calendar date at row i. Null rows return the zero Date.
func (c *Column) Date(i int) Date {
	if c.kind != KindDate || !c.valid[i] {
		return Date{}
	}
	return c.dates[i]
}

// IsNumeric reports whether the column holds float values
func (c *Column) IsNumeric() bool { return c.kind == KindFloat }

// Floats returns a copy of the column as float64, with NaN for nulls.
// Bool columns map to 0/1.
func (c *Column) Floats() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = c.Float(i)
	}
	return out
}

// Format renders row i as text. Nulls render as "".
func (c *Column) Format(i int) string {
	if !c.valid[i] {
		return ""
	}
	switch c.kind {
	case KindString:
		return c.strs[i]
	case KindFloat:
		return strconv.FormatFloat(c.nums[i], 'f', -1, 64)
	case KindBool:
		if c.bools[i] {
			return "True"
		}
		return "False"
	case KindTime:
		return c.times[i].Format("2006-01-02 15:04:05-07:00")
	case KindDate:
		return c.dates[i].String()
	default:
		return ""
	}
}

// WithName returns a copy of the column under a new name. Value storage is
// shared, which is safe because columns are never mutated.
func (c *Column) WithName(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// FillNull returns a float column with nulls replaced by v. Non-float
// columns are returned unchanged.
func (c *Column) FillNull(v float64) *Column {
	if c.kind != KindFloat || c.NullCount() == 0 {
		return c
	}
	nums := make([]float64, len(c.nums))
	for i := range nums {
		if c.valid[i] {
			nums[i] = c.nums[i]
		} else {
			nums[i] = v
		}
	}
	return NewFloatColumn(c.name, nums, nil)
}

var nullTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// IsNullToken reports whether a raw cell denotes a missing value
func IsNullToken(s string) bool {
	return nullTokens[strings.TrimSpace(s)]
}

// InferColumn builds a typed column from raw text cells. A column whose
// non-null cells all parse as numbers becomes KindFloat, one made only of
// true/false literals becomes KindBool, anything else stays KindString.
func InferColumn(name string, raw []string) *Column {
	n := len(raw)
	valid := make([]bool, n)
	nonNull := 0
	for i, s := range raw {
		if !IsNullToken(s) {
			valid[i] = true
			nonNull++
		}
	}
	if nonNull == 0 {
		// An all-empty column carries no type information; keep it numeric
		// so the numeric null fill applies to it.
		return NewFloatColumn(name, make([]float64, n), valid)
	}

	if nums, ok := parseFloats(raw, valid); ok {
		return NewFloatColumn(name, nums, valid)
	}
	if bools, ok := parseBools(raw, valid); ok {
		return NewBoolColumn(name, bools, valid)
	}
	strs := make([]string, n)
	copy(strs, raw)
	return NewStringColumn(name, strs, valid)
}

func parseFloats(raw []string, valid []bool) ([]float64, bool) {
	nums := make([]float64, len(raw))
	for i, s := range raw {
		if !valid[i] {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		nums[i] = v
	}
	return nums, true
}

func parseBools(raw []string, valid []bool) ([]bool, bool) {
	out := make([]bool, len(raw))
	for i, s := range raw {
		if !valid[i] {
			continue
		}
		switch strings.TrimSpace(s) {
		case "true", "True", "TRUE":
			out[i] = true
		case "false", "False", "FALSE":
			out[i] = false
		default:
			return nil, false
		}
	}
	return out, true
}
