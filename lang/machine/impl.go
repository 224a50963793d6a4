package machine

import "fmt"

// Some machine opcodes are more complex and/or need to be exposed via a
// low-level interface to be available for higher-level APIs. Those functions
// belong in this file.

// Call calls the function or Callable value fn with the specified positional
// arguments. It is the only supported way to invoke a Callable; client code
// must never call CallInternal directly.
func Call(th *Thread, fn Value, args *Tuple) (Value, error) {
	c, ok := fn.(Callable)
	if !ok {
		if o, ok := fn.(*Object); ok {
			if mm, ok := o.metamethod("__call"); ok {
				return Call(th, mm, prependSelf(o, args))
			}
		}
		return nil, errType("invalid call of non-function (%s)", fn.Type())
	}
	if args == nil {
		args = NilaryTuple
	}

	if len(th.callStack) >= th.maxCallStackDepth() {
		return nil, fmt.Errorf("call stack depth exceeded")
	}

	fr := &Frame{callable: c}
	th.callStack = append(th.callStack, fr)
	defer func() { th.callStack = th.callStack[:len(th.callStack)-1] }()

	result, err := c.CallInternal(th, args)
	if result == nil && err == nil {
		return nil, fmt.Errorf("internal error: nil returned from %s with no error", fn)
	}
	return result, err
}

// prependSelf returns a new tuple with self as its first element, followed by
// args, used to pass the receiver to a __call meta-method.
func prependSelf(self Value, args *Tuple) *Tuple {
	elems := make([]Value, 0, args.Len()+1)
	elems = append(elems, self)
	for i := 0; i < args.Len(); i++ {
		elems = append(elems, args.Index(i))
	}
	return NewTuple(elems)
}
