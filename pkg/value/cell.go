package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Errors returned by cell arithmetic.
var (
	ErrNotNumeric     = errors.New("value is not numeric")
	ErrDivisionByZero = errors.New("division by zero")
)

// Epsilon is the magnitude below which a divisor is treated as zero.
const Epsilon = 1e-9

// Kind identifies what a Cell holds.
type Kind int

const (
	KindAbsent Kind = iota
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Cell is a boxed value used by the interpreter and the variable stacks.
// The zero Cell is absent and behaves as integer 0 in arithmetic.
type Cell struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Absent returns the empty cell.
func Absent() Cell { return Cell{} }

// Int returns an integer cell.
func Int(v int64) Cell { return Cell{kind: KindInt, i: v} }

// Float returns a float cell.
func Float(v float64) Cell { return Cell{kind: KindFloat, f: v} }

// String returns a string cell.
func String(v string) Cell { return Cell{kind: KindString, s: v} }

// Kind reports what the cell holds.
func (c Cell) Kind() Kind { return c.kind }

// IsAbsent reports whether the cell holds nothing.
func (c Cell) IsAbsent() bool { return c.kind == KindAbsent }

// number is a cell coerced for arithmetic.
type number struct {
	isInt bool
	i     int64
	f     float64
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

// numeric coerces the cell to a number. Strings must parse as an integer
// or a decimal.
func (c Cell) numeric() (number, error) {
	switch c.kind {
	case KindAbsent:
		return number{isInt: true}, nil
	case KindInt:
		return number{isInt: true, i: c.i}, nil
	case KindFloat:
		return number{f: c.f}, nil
	case KindString:
		return parseNumber(c.s)
	}
	return number{}, fmt.Errorf("%w: unknown kind %d", ErrNotNumeric, c.kind)
}

func parseNumber(s string) (number, error) {
	t := strings.TrimSpace(s)
	if strings.ContainsAny(t, ".eE") {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return number{}, fmt.Errorf("%w: %q", ErrNotNumeric, s)
		}
		return number{f: f}, nil
	}
	i, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return number{}, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return number{isInt: true, i: i}, nil
}

// Number returns the cell's numeric value as a float64.
func (c Cell) Number() (float64, error) {
	n, err := c.numeric()
	if err != nil {
		return 0, err
	}
	return n.float(), nil
}

// IsIntegral reports whether arithmetic on the cell would stay integer-typed.
// Strings are judged by their content.
func (c Cell) IsIntegral() bool {
	n, err := c.numeric()
	return err == nil && n.isInt
}

func operands(a, b Cell) (number, number, error) {
	x, err := a.numeric()
	if err != nil {
		return number{}, number{}, err
	}
	y, err := b.numeric()
	if err != nil {
		return number{}, number{}, err
	}
	return x, y, nil
}

// Add returns a+b.
func (c Cell) Add(other Cell) (Cell, error) {
	x, y, err := operands(c, other)
	if err != nil {
		return Cell{}, err
	}
	if x.isInt && y.isInt {
		return Int(x.i + y.i), nil
	}
	return Float(x.float() + y.float()), nil
}

// Sub returns a-b.
func (c Cell) Sub(other Cell) (Cell, error) {
	x, y, err := operands(c, other)
	if err != nil {
		return Cell{}, err
	}
	if x.isInt && y.isInt {
		return Int(x.i - y.i), nil
	}
	return Float(x.float() - y.float()), nil
}

// Mul returns a*b.
func (c Cell) Mul(other Cell) (Cell, error) {
	x, y, err := operands(c, other)
	if err != nil {
		return Cell{}, err
	}
	if x.isInt && y.isInt {
		return Int(x.i * y.i), nil
	}
	return Float(x.float() * y.float()), nil
}

// Div returns a/b. Integer division truncates toward zero. A divisor whose
// magnitude is below Epsilon is an error rather than an infinity.
func (c Cell) Div(other Cell) (Cell, error) {
	x, y, err := operands(c, other)
	if err != nil {
		return Cell{}, err
	}
	if math.Abs(y.float()) < Epsilon {
		return Cell{}, ErrDivisionByZero
	}
	if x.isInt && y.isInt {
		return Int(x.i / y.i), nil
	}
	return Float(x.float() / y.float()), nil
}

// Compare returns -1, 0 or 1 as c is less than, equal to, or greater than other,
// after numeric coercion.
func (c Cell) Compare(other Cell) (int, error) {
	x, y, err := operands(c, other)
	if err != nil {
		return 0, err
	}
	if x.isInt && y.isInt {
		switch {
		case x.i < y.i:
			return -1, nil
		case x.i > y.i:
			return 1, nil
		}
		return 0, nil
	}
	a, b := x.float(), y.float()
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	}
	return 0, nil
}

// String renders the cell as output text. Integral floats keep a ".0" suffix
// so float-typed results stay recognisable.
func (c Cell) String() string {
	switch c.kind {
	case KindInt:
		return strconv.FormatInt(c.i, 10)
	case KindFloat:
		return FormatFloat(c.f)
	case KindString:
		return c.s
	default:
		return "0"
	}
}

// FormatFloat renders f in its shortest form, appending ".0" to integral values.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// GoString is used by %#v in test failures.
func (c Cell) GoString() string {
	return fmt.Sprintf("value.Cell{%s:%q}", c.kind, c.String())
}
