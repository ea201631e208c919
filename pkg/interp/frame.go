package interp

import (
	"fmt"

	"github.com/getmockd/scriptd/pkg/response"
	"github.com/getmockd/scriptd/pkg/value"
)

// Frame is the operand stack of one echo tag, handed to functions together
// with the response they may act on.
type Frame struct {
	items []value.Cell
	resp  *response.Context
}

// Push adds c on top of the stack.
func (f *Frame) Push(c value.Cell) {
	f.items = append(f.items, c)
}

// Pop removes and returns the top cell.
func (f *Frame) Pop() (value.Cell, error) {
	if len(f.items) == 0 {
		return value.Cell{}, ErrStackUnderflow
	}
	c := f.items[len(f.items)-1]
	f.items = f.items[:len(f.items)-1]
	return c, nil
}

// Peek returns the top cell without removing it.
func (f *Frame) Peek() (value.Cell, error) {
	if len(f.items) == 0 {
		return value.Cell{}, ErrStackUnderflow
	}
	return f.items[len(f.items)-1], nil
}

// PopN pops n cells and returns them in push order.
func (f *Frame) PopN(n int) ([]value.Cell, error) {
	if len(f.items) < n {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrStackUnderflow, n, len(f.items))
	}
	out := make([]value.Cell, n)
	copy(out, f.items[len(f.items)-n:])
	f.items = f.items[:len(f.items)-n]
	return out, nil
}

// Len returns the stack depth.
func (f *Frame) Len() int { return len(f.items) }

// Response returns the response the script writes to.
func (f *Frame) Response() *response.Context { return f.resp }
