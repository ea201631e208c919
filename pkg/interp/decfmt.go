package interp

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var decimalPrinter = message.NewPrinter(language.English)

// decimalPattern is the subset of a DecimalFormat pattern honoured by
// @decfmt: literal prefix and suffix, '0' and '#' digit slots, ',' for
// grouping and '.' for the fraction separator. Groups are always three
// digits wide.
type decimalPattern struct {
	prefix, suffix string
	minInt         int
	minFrac        int
	maxFrac        int
	grouping       bool
}

func parseDecimalPattern(p string) decimalPattern {
	if i := strings.IndexByte(p, ';'); i >= 0 {
		p = p[:i]
	}
	start := strings.IndexAny(p, "0#,.")
	if start < 0 {
		return decimalPattern{prefix: p, minInt: 1, maxFrac: 3}
	}
	end := strings.LastIndexAny(p, "0#,.") + 1

	dp := decimalPattern{prefix: p[:start], suffix: p[end:]}
	intPart, fracPart, _ := strings.Cut(p[start:end], ".")
	dp.minInt = strings.Count(intPart, "0")
	dp.grouping = strings.Contains(intPart, ",")
	dp.minFrac = strings.Count(fracPart, "0")
	dp.maxFrac = dp.minFrac + strings.Count(fracPart, "#")
	return dp
}

// FormatDecimal formats v according to a DecimalFormat-style pattern such
// as "#,##0.00" or "0.###".
func FormatDecimal(v float64, pattern string) string {
	dp := parseDecimalPattern(pattern)
	opts := []number.Option{
		number.MinIntegerDigits(max(dp.minInt, 1)),
		number.MinFractionDigits(dp.minFrac),
		number.MaxFractionDigits(dp.maxFrac),
	}
	if !dp.grouping {
		opts = append(opts, number.NoSeparator())
	}
	return dp.prefix + decimalPrinter.Sprint(number.Decimal(v, opts...)) + dp.suffix
}
