package machine

import "fmt"

// Array is the machine's ArrayData: a contiguous, growable, ordered sequence
// of values, shared by reference.
type Array struct {
	elems []Value
}

var (
	_ Value       = (*Array)(nil)
	_ Indexable   = (*Array)(nil)
	_ Sliceable   = (*Array)(nil)
	_ HasSetIndex = (*Array)(nil)
	_ Iterable    = (*Array)(nil)
	_ Sequence    = (*Array)(nil)
)

// NewArray returns an array containing the specified elements. Callers should
// not subsequently modify elems.
func NewArray(elems []Value) *Array { return &Array{elems: elems} }

func (a *Array) String() string { return fmt.Sprintf("array(%p)", a) }
func (a *Array) Type() string   { return "array" }
func (a *Array) Len() int       { return len(a.elems) }

// Index returns the element at i, or Nil if i is out of range, per the
// out-of-range-read policy.
func (a *Array) Index(i int) Value {
	if i < 0 || i >= len(a.elems) {
		return Nil
	}
	return a.elems[i]
}

// SetIndex assigns v at index i. An out-of-range write extends the array,
// padding any gap with Nil, rather than failing; see the array out-of-range
// write policy.
func (a *Array) SetIndex(i int, v Value) error {
	if i < 0 {
		return fmt.Errorf("array index out of range: %d", i)
	}
	if i >= len(a.elems) {
		grown := make([]Value, i+1)
		copy(grown, a.elems)
		for j := len(a.elems); j < i; j++ {
			grown[j] = Nil
		}
		a.elems = grown
	}
	a.elems[i] = v
	return nil
}

// Append adds v to the end of the array.
func (a *Array) Append(v Value) { a.elems = append(a.elems, v) }

func (a *Array) Slice(start, end, step int) Value {
	if step == 1 {
		elems := append([]Value(nil), a.elems[start:end]...)
		return NewArray(elems)
	}
	var elems []Value
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		elems = append(elems, a.elems[i])
	}
	return NewArray(elems)
}

func (a *Array) Iterate() Iterator { return &arrayIterator{a: a} }

type arrayIterator struct {
	a *Array
	i int
}

func (it *arrayIterator) Next(p *Value) bool {
	if it.i >= len(it.a.elems) {
		return false
	}
	*p = it.a.elems[it.i]
	it.i++
	return true
}

func (*arrayIterator) Done() {}
