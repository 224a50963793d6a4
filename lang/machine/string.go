package machine

import (
	"strconv"
	"strings"
)

// String is the type of a text string: an immutable, reference-shared
// sequence of bytes holding UTF-8 encoded text.
type String string

var (
	_ Value     = String("")
	_ Indexable = String("")
	_ Sliceable = String("")
	_ Sequence  = String("")
	_ Ordered   = String("")
)

func (s String) String() string    { return strconv.Quote(string(s)) }
func (s String) Type() string      { return "string" }
func (s String) Len() int          { return len(s) }
func (s String) Index(i int) Value { return s[i : i+1] }

// Slice returns the substring [start:end) stepping by step, matching the
// semantics of the SLICE opcode.
func (s String) Slice(start, end, step int) Value {
	if step == 1 {
		return s[start:end]
	}
	var b strings.Builder
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		b.WriteByte(s[i])
	}
	return String(b.String())
}

func (s String) Iterate() Iterator { return &stringIterator{s: s} }

// Cmp implements lexicographic byte comparison of two String values.
func (s String) Cmp(y Value) (int, error) {
	t, ok := y.(String)
	if !ok {
		return 0, errNotComparable("string", y)
	}
	return strings.Compare(string(s), string(t)), nil
}

type stringIterator struct {
	s String
	i int
}

func (it *stringIterator) Next(p *Value) bool {
	if it.i >= len(it.s) {
		return false
	}
	*p = it.s[it.i : it.i+1]
	it.i++
	return true
}

func (*stringIterator) Done() {}
