package value

import (
	"errors"
	"fmt"
)

// ErrEmptyStack is returned when popping or peeking a name with no cells.
var ErrEmptyStack = errors.New("empty stack")

// Stacks is a registry of independent LIFO stacks keyed by variable name.
// It is request-local and not safe for concurrent use.
type Stacks struct {
	stacks map[string][]Cell
}

// NewStacks creates an empty store.
func NewStacks() *Stacks {
	return &Stacks{stacks: make(map[string][]Cell)}
}

// Push places c on top of the stack for name.
func (s *Stacks) Push(name string, c Cell) {
	s.stacks[name] = append(s.stacks[name], c)
}

// Pop removes and returns the top cell for name.
func (s *Stacks) Pop(name string) (Cell, error) {
	st := s.stacks[name]
	if len(st) == 0 {
		return Cell{}, fmt.Errorf("%w: %q", ErrEmptyStack, name)
	}
	top := st[len(st)-1]
	if len(st) == 1 {
		delete(s.stacks, name)
	} else {
		s.stacks[name] = st[:len(st)-1]
	}
	return top, nil
}

// Peek returns the top cell for name without removing it.
func (s *Stacks) Peek(name string) (Cell, error) {
	st := s.stacks[name]
	if len(st) == 0 {
		return Cell{}, fmt.Errorf("%w: %q", ErrEmptyStack, name)
	}
	return st[len(st)-1], nil
}

// IsEmpty reports whether name has no cells.
func (s *Stacks) IsEmpty(name string) bool {
	return len(s.stacks[name]) == 0
}

// Depth returns the number of cells stacked under name.
func (s *Stacks) Depth(name string) int {
	return len(s.stacks[name])
}
