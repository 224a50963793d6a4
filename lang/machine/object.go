package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Object is the machine's ObjectData: an insertion-ordered key/value
// container, shared by reference, linked to a prototype for meta-method
// dispatch and inherited field lookup.
type Object struct {
	keys []Value
	vals *swiss.Map[Value, Value]

	// Proto is the prototype Object consulted by lookup and metamethod when a
	// key is missing on the receiver. Nil means no prototype.
	Proto Value

	// Locked, when true, rejects adding new keys (existing keys may still be
	// updated).
	Locked bool

	// UserData is an opaque slot for host embedding; the machine never reads
	// or writes it itself.
	UserData any
}

// NewObject returns an empty object with no prototype.
func NewObject() *Object {
	return &Object{vals: swiss.NewMap[Value, Value](0), Proto: Nil}
}

var (
	_ Value       = (*Object)(nil)
	_ Mapping     = (*Object)(nil)
	_ HasSetKey   = (*Object)(nil)
	_ HasAttrs    = (*Object)(nil)
	_ HasSetField = (*Object)(nil)
	_ Iterable    = (*Object)(nil)
	_ Sequence    = (*Object)(nil)
)

func (o *Object) String() string { return fmt.Sprintf("object(%p)", o) }
func (o *Object) Type() string   { return "object" }
func (o *Object) Len() int       { return len(o.keys) }

// Get returns the value stored for k on the receiver itself, without walking
// the prototype chain. Use Attr/getIndex for chain-following lookup.
func (o *Object) Get(k Value) (Value, bool, error) {
	v, ok := o.vals.Get(k)
	return v, ok, nil
}

// SetKey implements x[k] = v. Adding a new key to a locked object fails.
func (o *Object) SetKey(k, v Value) error {
	if _, exists := o.vals.Get(k); !exists {
		if o.Locked {
			return fmt.Errorf("cannot add key to locked object")
		}
		o.keys = append(o.keys, k)
	}
	o.vals.Put(k, v)
	return nil
}

// Delete removes k from the object, if present.
func (o *Object) Delete(k Value) {
	if _, ok := o.vals.Get(k); !ok {
		return
	}
	o.vals.Delete(k)
	for i, kk := range o.keys {
		if eq, _ := Equals(kk, k); eq {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *Object) Iterate() Iterator { return &objectIterator{o: o} }

type objectIterator struct {
	o *Object
	i int
}

func (it *objectIterator) Next(p *Value) bool {
	if it.i >= len(it.o.keys) {
		return false
	}
	k := it.o.keys[it.i]
	it.i++
	v, _, _ := it.o.Get(k)
	*p = NewTuple([]Value{k, v})
	return true
}

func (*objectIterator) Done() {}

// Attr implements x.name field lookup: walk the prototype chain until found
// or the chain ends, returning Nil for a missing key rather than an error.
func (o *Object) Attr(name string) (Value, error) { return o.lookup(String(name)), nil }

func (o *Object) AttrNames() []string {
	names := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		if s, ok := k.(String); ok {
			names = append(names, string(s))
		}
	}
	return names
}

// SetField implements x.name = v, an alias for SetKey with a string key.
func (o *Object) SetField(name string, val Value) error { return o.SetKey(String(name), val) }

// lookup walks the prototype chain for key k, returning Nil if the chain ends
// without a match.
func (o *Object) lookup(k Value) Value {
	for cur := Value(o); ; {
		obj, ok := cur.(*Object)
		if !ok {
			return Nil
		}
		if v, found, _ := obj.Get(k); found {
			return v
		}
		if obj.Proto == nil || obj.Proto == Value(Nil) {
			return Nil
		}
		cur = obj.Proto
	}
}

// metamethod looks up a dunder key (e.g. "__add") on the object's prototype
// chain, reporting found=false when it resolves to Nil.
func (o *Object) metamethod(name string) (Value, bool) {
	v := o.lookup(String(name))
	if v == nil || v == Value(Nil) {
		return nil, false
	}
	return v, true
}
