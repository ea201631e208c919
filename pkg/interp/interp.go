package interp

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/getmockd/scriptd/pkg/logging"
	"github.com/getmockd/scriptd/pkg/response"
	"github.com/getmockd/scriptd/pkg/script"
	"github.com/getmockd/scriptd/pkg/value"
)

// Interpreter executes parsed scripts against a response. It holds no
// per-run state and may be shared between goroutines.
type Interpreter struct {
	log    *slog.Logger
	strict bool
	funcs  map[string]Function
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger used for warnings such as ignored functions.
func WithLogger(log *slog.Logger) Option {
	return func(in *Interpreter) {
		if log != nil {
			in.log = log
		}
	}
}

// WithStrictFunctions makes unknown @functions fail the script instead of
// being skipped with a warning.
func WithStrictFunctions() Option {
	return func(in *Interpreter) {
		in.strict = true
	}
}

// WithFunction registers or replaces a function.
func WithFunction(name string, fn Function) Option {
	return func(in *Interpreter) {
		in.funcs[name] = fn
	}
}

// New creates an interpreter with the built-in functions.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		log:   logging.Nop(),
		funcs: Builtins(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Functions returns a copy of the function table.
func (in *Interpreter) Functions() map[string]Function {
	return maps.Clone(in.funcs)
}

// Execute parses src and runs it.
func (in *Interpreter) Execute(src string, resp *response.Context) error {
	doc, err := script.Parse(src)
	if err != nil {
		return err
	}
	return in.Run(doc, resp)
}

// Run executes doc, writing output to resp. Loop variables live in a fresh
// stack store for each run. Output already written stays written when a
// fault aborts the run.
func (in *Interpreter) Run(doc *script.Document, resp *response.Context) error {
	r := &run{in: in, resp: resp, vars: value.NewStacks()}
	return r.nodes(doc.Children)
}

type run struct {
	in   *Interpreter
	resp *response.Context
	vars *value.Stacks
}

func (r *run) nodes(children []script.Node) error {
	for _, n := range children {
		if err := r.node(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) node(n script.Node) error {
	switch n := n.(type) {
	case *script.Document:
		return r.nodes(n.Children)
	case *script.Text:
		return r.write(n.Value)
	case *script.ForLoop:
		return r.forLoop(n)
	case *script.Echo:
		return r.echo(n)
	default:
		return fault("node", fmt.Errorf("unsupported node %T", n))
	}
}

func (r *run) write(s string) error {
	if _, err := r.resp.WriteString(s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// operand resolves a FOR argument to a cell.
func (r *run) operand(el script.Element) (value.Cell, error) {
	switch el := el.(type) {
	case script.Variable:
		return r.vars.Peek(el.Name)
	case script.ConstInt:
		return value.Int(el.Value), nil
	case script.ConstFloat:
		return value.Float(el.Value), nil
	case script.StringLit:
		return value.String(el.Value), nil
	default:
		return value.Cell{}, fmt.Errorf("%s is not a loop operand", script.FormatElement(el))
	}
}

func (r *run) forLoop(n *script.ForLoop) error {
	op := "FOR " + n.Var

	start, err := r.operand(n.Start)
	if err != nil {
		return fault(op, err)
	}
	end, err := r.operand(n.End)
	if err != nil {
		return fault(op, err)
	}
	step := value.Int(1)
	if n.Step != nil {
		if step, err = r.operand(n.Step); err != nil {
			return fault(op, err)
		}
	}

	r.vars.Push(n.Var, start)
	for {
		top, err := r.vars.Peek(n.Var)
		if err != nil {
			return fault(op, err)
		}
		cmp, err := top.Compare(end)
		if err != nil {
			return fault(op, err)
		}
		if cmp > 0 {
			break
		}

		if err := r.nodes(n.Children); err != nil {
			return err
		}

		cur, err := r.vars.Pop(n.Var)
		if err != nil {
			return fault(op, err)
		}
		next, err := cur.Add(step)
		if err != nil {
			return fault(op, err)
		}
		r.vars.Push(n.Var, next)
	}
	if _, err := r.vars.Pop(n.Var); err != nil {
		return fault(op, err)
	}
	return nil
}

func (r *run) echo(n *script.Echo) error {
	f := &Frame{resp: r.resp}
	for _, el := range n.Elements {
		if err := r.element(f, el); err != nil {
			return err
		}
	}
	for _, c := range f.items {
		if err := r.write(c.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) element(f *Frame, el script.Element) error {
	switch el := el.(type) {
	case script.Variable:
		c, err := r.vars.Peek(el.Name)
		if err != nil {
			return fault("echo "+el.Name, err)
		}
		f.Push(c)
	case script.ConstInt:
		f.Push(value.Int(el.Value))
	case script.ConstFloat:
		f.Push(value.Float(el.Value))
	case script.StringLit:
		f.Push(value.String(el.Value))
	case script.Operator:
		return r.operator(f, el.Symbol)
	case script.FuncCall:
		return r.call(f, el.Name)
	default:
		return fault("echo", fmt.Errorf("unsupported element %T", el))
	}
	return nil
}

// operator pops the right operand first, then the left.
func (r *run) operator(f *Frame, sym string) error {
	op := "echo " + sym
	operands, err := f.PopN(2)
	if err != nil {
		return fault(op, err)
	}
	left, right := operands[0], operands[1]

	var res value.Cell
	switch sym {
	case "+":
		res, err = left.Add(right)
	case "-":
		res, err = left.Sub(right)
	case "*":
		res, err = left.Mul(right)
	case "/":
		res, err = left.Div(right)
	default:
		err = fmt.Errorf("unknown operator %q", sym)
	}
	if err != nil {
		return fault(op, err)
	}
	f.Push(res)
	return nil
}

func (r *run) call(f *Frame, name string) error {
	op := "@" + name
	fn, ok := r.in.funcs[name]
	if !ok {
		if r.in.strict {
			return fault(op, ErrUnknownFunction)
		}
		r.in.log.Warn("ignoring unknown script function", "function", name)
		return nil
	}
	if err := fn(f); err != nil {
		return fault(op, err)
	}
	return nil
}
