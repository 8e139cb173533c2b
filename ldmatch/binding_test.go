package ldmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(i int) Value { return NewLiteral(i) }

func equalMod10(a, b Value) bool {
	x, ok1 := a.Literal().(int64)
	y, ok2 := b.Literal().(int64)
	return ok1 && ok2 && x%10 == y%10
}

func TestBindingAccessors(t *testing.T) {
	b := NewBinding(map[string]Value{"c": num(3), "a": num(1), "b": num(2)})

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []string{"a", "b", "c"}, b.Vars())

	v, ok := b.Get("b")
	require.True(t, ok)
	assert.Equal(t, num(2), v)

	_, ok = b.Get("z")
	assert.False(t, ok)
	assert.True(t, b.Has("a"))
	assert.False(t, b.Has("d"))
	assert.Equal(t, "{a: 1, b: 2, c: 3}", b.String())
	assert.Equal(t, map[string]Value{"a": num(1), "b": num(2), "c": num(3)}, b.Map())
}

func TestEmptyBindingIsCanonical(t *testing.T) {
	assert.Equal(t, EmptyBinding(), NewBinding(nil))
	assert.Equal(t, EmptyBinding(), NewBinding(map[string]Value{}))
	assert.Equal(t, EmptyBinding(), Bind("a", num(1)).Project(nil))
	assert.Equal(t, EmptyBinding(), EmptyBinding().Merge(EmptyBinding()))
	assert.True(t, EmptyBinding().IsEmpty())
	assert.Equal(t, "{}", EmptyBinding().String())
}

func TestBindingCompatible(t *testing.T) {
	b6 := NewBinding(map[string]Value{"a": num(61), "b": num(61), "c": num(63), "d": num(63)})

	tests := []struct {
		name string
		b    Binding
		want bool
	}{
		{"disjoint", NewBinding(map[string]Value{"e": num(1)}), true},
		{"empty", EmptyBinding(), true},
		{"equal mod 10", NewBinding(map[string]Value{"a": num(21), "c": num(33)}), true},
		{"conflict", NewBinding(map[string]Value{"c": num(43), "d": num(44), "e": num(45)}), false},
		{"partial overlap", NewBinding(map[string]Value{"d": num(53)}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.Compatible(b6, equalMod10))
			assert.Equal(t, tt.want, b6.Compatible(tt.b, equalMod10))
		})
	}
}

func TestBindingMergeKeepsExistingValues(t *testing.T) {
	left := NewBinding(map[string]Value{"a": num(21), "c": num(33)})
	right := NewBinding(map[string]Value{"a": num(61), "b": num(61), "c": num(63), "d": num(63)})

	merged := left.Merge(right)
	assert.Equal(t, NewBinding(map[string]Value{"a": num(21), "b": num(61), "c": num(33), "d": num(63)}), merged)

	// Inputs are untouched
	assert.Equal(t, 2, left.Len())
	assert.Equal(t, 4, right.Len())
}

func TestBindingMergeDoesNotAlias(t *testing.T) {
	base := NewBinding(map[string]Value{"a": num(1), "c": num(3)})
	first := base.Merge(Bind("b", num(2)))
	second := base.Merge(Bind("b", num(9)))

	v, _ := first.Get("b")
	assert.Equal(t, num(2), v)
	v, _ = second.Get("b")
	assert.Equal(t, num(9), v)
	assert.False(t, base.Has("b"))
}

func TestBindingProject(t *testing.T) {
	b := NewBinding(map[string]Value{"a": num(1), "b": num(2), "c": num(3)})

	assert.Equal(t, EmptyBinding(), b.Project([]string{"f", "g"}))
	assert.Equal(t, NewBinding(map[string]Value{"a": num(1), "c": num(3)}), b.Project([]string{"c", "f", "g", "a"}))
}

func TestBindingEqual(t *testing.T) {
	a := NewBinding(map[string]Value{"x": num(1), "y": num(12)})
	b := NewBinding(map[string]Value{"x": num(11), "y": num(2)})

	assert.True(t, a.Equal(b, equalMod10))
	assert.False(t, a.Equal(b, CompareValues))
	assert.False(t, a.Equal(Bind("x", num(1)), equalMod10))
	assert.False(t, a.Equal(NewBinding(map[string]Value{"x": num(1), "z": num(2)}), equalMod10))
}
