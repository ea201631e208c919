package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStacksIndependentNames(t *testing.T) {
	s := NewStacks()
	s.Push("i", Int(1))
	s.Push("j", Int(10))
	s.Push("i", Int(2))

	top, err := s.Peek("i")
	require.NoError(t, err)
	assert.Equal(t, "2", top.String())
	assert.Equal(t, 2, s.Depth("i"))
	assert.Equal(t, 1, s.Depth("j"))

	popped, err := s.Pop("i")
	require.NoError(t, err)
	assert.Equal(t, "2", popped.String())

	top, err = s.Peek("i")
	require.NoError(t, err)
	assert.Equal(t, "1", top.String())

	top, err = s.Peek("j")
	require.NoError(t, err)
	assert.Equal(t, "10", top.String())
}

func TestStacksEmpty(t *testing.T) {
	s := NewStacks()
	assert.True(t, s.IsEmpty("missing"))

	_, err := s.Pop("missing")
	assert.ErrorIs(t, err, ErrEmptyStack)
	_, err = s.Peek("missing")
	assert.ErrorIs(t, err, ErrEmptyStack)

	s.Push("x", String("a"))
	_, err = s.Pop("x")
	require.NoError(t, err)
	assert.True(t, s.IsEmpty("x"))
	_, err = s.Pop("x")
	assert.ErrorIs(t, err, ErrEmptyStack)
}
