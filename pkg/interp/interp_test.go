package interp

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/scriptd/pkg/response"
	"github.com/getmockd/scriptd/pkg/script"
	"github.com/getmockd/scriptd/pkg/value"
)

// render runs src against a header-less context and returns the body.
func render(t *testing.T, in *Interpreter, src string, opts ...response.Option) (string, *response.Context, error) {
	t.Helper()
	var buf bytes.Buffer
	ctx := response.New(&buf, append([]response.Option{response.WithoutHeader()}, opts...)...)
	err := in.Execute(src, ctx)
	return buf.String(), ctx, err
}

func TestRunScenario(t *testing.T) {
	out, _, err := render(t, New(), `Hi {$FOR i 0 2 1$}{$=i$},{$END$}bye`)
	require.NoError(t, err)
	assert.Equal(t, "Hi 0,1,2,bye", out)
}

func TestLiteralPassthrough(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"multi\nline\r\n text with $ and } and {",
		"unicode ✓ žluťoučký",
	}
	for _, in := range inputs {
		out, _, err := render(t, New(), in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestForLoopEmitsAndRemovesVariable(t *testing.T) {
	doc := &script.Document{Children: []script.Node{
		&script.ForLoop{
			Var:      "i",
			Start:    script.ConstInt{Value: 1},
			End:      script.ConstInt{Value: 3},
			Step:     script.ConstInt{Value: 1},
			Children: []script.Node{&script.Echo{Elements: []script.Element{script.Variable{Name: "i"}}}},
		},
		&script.Echo{Elements: []script.Element{script.Variable{Name: "i"}}},
	}}

	var buf bytes.Buffer
	err := New().Run(doc, response.New(&buf, response.WithoutHeader()))

	assert.Equal(t, "123", buf.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuntime)
	assert.ErrorIs(t, err, value.ErrEmptyStack)
}

func TestForLoopVariants(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"default step", `{$FOR i 1 3$}{$= i $}{$END$}`, "123"},
		{"empty range", `a{$FOR i 5 1$}x{$END$}b`, "ab"},
		{"float step", `{$FOR x 0 1 0.5$}{$= x $} {$END$}`, "0 0.5 1.0 "},
		{"string bounds", `{$FOR i "2" "4"$}{$= i $}{$END$}`, "234"},
		{"nested shadowing", `{$FOR i 1 2$}[{$FOR i 7 8$}{$= i $}{$END$}{$= i $}]{$END$}`, "[781][782]"},
		{"variable bound", `{$FOR n 2 3$}{$FOR i 1 n$}{$= i $}{$END$};{$END$}`, "12;123;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := render(t, New(), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEchoArithmetic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"int division", `{$= 7 2 / $}`, "3"},
		{"float division", `{$= 7 2.0 / $}`, "3.5"},
		{"right operand popped first", `{$= 10 4 - $}`, "6"},
		{"string coercion", `{$= "3" "4" * $}`, "12"},
		{"mixed types", `{$= 2 0.5 + $}`, "2.5"},
		{"leftover stack bottom to top", `{$= 1 2 3 $}`, "123"},
		{"strings pass through", `{$= "a" "b" $}`, "ab"},
		{"chained", `{$= 1 2 + 3 * $}`, "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := render(t, New(), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEchoIntegerDivisionTyping(t *testing.T) {
	pairs := [][2]int64{{7, 2}, {-9, 4}, {100, -3}, {0, 5}, {6, 3}}
	for _, p := range pairs {
		doc := &script.Document{Children: []script.Node{&script.Echo{Elements: []script.Element{
			script.ConstInt{Value: p[0]}, script.ConstInt{Value: p[1]}, script.Operator{Symbol: "/"},
		}}}}
		var buf bytes.Buffer
		require.NoError(t, New().Run(doc, response.New(&buf, response.WithoutHeader())))

		want, err := value.Int(p[0]).Div(value.Int(p[1]))
		require.NoError(t, err)
		assert.Equal(t, value.KindInt, want.Kind())
		assert.Equal(t, want.String(), buf.String())
	}
}

func TestEchoDoubleEqualsTwice(t *testing.T) {
	for _, x := range []string{"0", "3", "-7", "2.5", "\"4\"", "\"1.25\""} {
		sum, _, err := render(t, New(), `{$= `+x+` `+x+` + $}`)
		require.NoError(t, err)
		twice, _, err := render(t, New(), `{$= 2 `+x+` * $}`)
		require.NoError(t, err)
		assert.Equal(t, twice, sum, "x=%s", x)
	}
}

func TestEchoFaults(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		cause error
	}{
		{"division by zero", `{$= 1 0 / $}`, value.ErrDivisionByZero},
		{"not numeric", `{$= "abc" 1 + $}`, value.ErrNotNumeric},
		{"operator underflow", `{$= 1 + $}`, ErrStackUnderflow},
		{"function underflow", `{$= @swap $}`, ErrStackUnderflow},
		{"unknown variable", `{$= nope $}`, value.ErrEmptyStack},
		{"non-numeric loop bound", `{$FOR i 1 "x"$}{$END$}`, value.ErrNotNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := render(t, New(), tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRuntime)
			assert.ErrorIs(t, err, tt.cause)

			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.NotEmpty(t, re.Op)
		})
	}
}

func TestPartialOutputIsKept(t *testing.T) {
	out, _, err := render(t, New(), `before{$= 1 0 / $}after`)
	require.Error(t, err)
	assert.Equal(t, "before", out)
}

func TestUnknownFunctionLenientAndStrict(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	out, _, err := render(t, New(WithLogger(logger)), `{$= 1 @nosuch 2 $}`)
	require.NoError(t, err)
	assert.Equal(t, "12", out)
	assert.Contains(t, logs.String(), "function=nosuch")

	_, _, err = render(t, New(WithStrictFunctions()), `{$= 1 @nosuch $}`)
	assert.ErrorIs(t, err, ErrUnknownFunction)
	assert.ErrorIs(t, err, ErrRuntime)
}

func TestSyntaxErrorsAreNotRuntimeErrors(t *testing.T) {
	_, _, err := render(t, New(), `{$FOR i 1 2$}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, script.ErrParse)
	assert.NotErrorIs(t, err, ErrRuntime)
}

func TestWithFunction(t *testing.T) {
	double := func(f *Frame) error {
		c, err := f.Pop()
		if err != nil {
			return err
		}
		res, err := c.Mul(value.Int(2))
		if err != nil {
			return err
		}
		f.Push(res)
		return nil
	}
	in := New(WithFunction("double", double))
	out, _, err := render(t, in, `{$= 21 @double $}`)
	require.NoError(t, err)
	assert.Equal(t, "42", out)
	assert.Contains(t, in.Functions(), "double")
	assert.NotContains(t, New().Functions(), "double")
}

func TestHeaderCommittedBeforeFault(t *testing.T) {
	var buf bytes.Buffer
	ctx := response.New(&buf)
	err := New().Execute(`x{$= "text/plain" @setMimeType $}`, ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, response.ErrHeaderSent)
	assert.Equal(t, response.DefaultMimeType, ctx.MimeType())
}
