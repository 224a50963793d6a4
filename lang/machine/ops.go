package machine

import (
	"fmt"
	"math"

	"github.com/lumen-lang/lumen/lang/token"
)

// typeMismatchError marks a failure as an operation applied to incompatible
// value tags, so the VM classifies it as a TypeError value for a catch
// clause instead of a generic RuntimeError. See classifyError.
type typeMismatchError struct{ msg string }

func (e *typeMismatchError) Error() string { return e.msg }

func errType(format string, args ...interface{}) error {
	return &typeMismatchError{msg: fmt.Sprintf(format, args...)}
}

func errNotComparable(kind string, y Value) error {
	return errType("cannot compare %s and %s", kind, y.Type())
}

// threeway turns a three-valued Cmp result into the boolean answer for the
// given comparison operator.
func threeway(op token.Token, cmp int) bool {
	switch op {
	case token.LT:
		return cmp < 0
	case token.LE:
		return cmp <= 0
	case token.GT:
		return cmp > 0
	case token.GE:
		return cmp >= 0
	case token.EQL:
		return cmp == 0
	case token.NEQ:
		return cmp != 0
	default:
		panic(fmt.Sprintf("unexpected comparison operator %s", op))
	}
}

// Equals reports whether x and y are equal using the same rules as the EQL
// comparison operator, without requiring a Thread (so it cannot invoke an
// object's __eq meta-method on a live call stack).
func Equals(x, y Value) (bool, error) { return Compare(nil, token.EQL, x, y) }

// Compare implements the comparison operators (==, !=, <, <=, >, >=).
// Equality is value-wise for primitives, identity-wise for object, array and
// function values. A Thread is required only to invoke a comparison
// meta-method (__eq, __lt, __le) on an Object; pass nil if none is available,
// comparisons that don't need one still work.
func Compare(th *Thread, op token.Token, x, y Value) (bool, error) {
	if sameType(x, y) {
		if xo, ok := x.(Ordered); ok {
			cmp, err := xo.Cmp(y)
			if err != nil {
				return false, err
			}
			return threeway(op, cmp), nil
		}
		if xe, ok := x.(HasEqual); ok {
			eq, err := xe.Equals(y)
			if err != nil {
				return false, err
			}
			switch op {
			case token.EQL:
				return eq, nil
			case token.NEQ:
				return !eq, nil
			}
			return false, errType("%s is not ordered", x.Type())
		}
	}

	if xo, ok := x.(*Object); ok {
		if eq, err, ok := objectCompare(th, op, xo, y); ok {
			return eq, err
		}
	}

	// Undefined (Nil) compares equal only to itself; no cross-type value is
	// ever equal to anything else.
	switch op {
	case token.EQL:
		return x == y, nil
	case token.NEQ:
		return x != y, nil
	}
	return false, errType("%s and %s are not ordered", x.Type(), y.Type())
}

// objectCompare attempts to satisfy op via x's __eq/__lt/__le meta-methods.
// The final bool return reports whether a meta-method handled it at all.
func objectCompare(th *Thread, op token.Token, x *Object, y Value) (bool, error, bool) {
	switch op {
	case token.EQL, token.NEQ:
		if mm, ok := x.metamethod("__eq"); ok {
			res, err := invoke(th, mm, x, y)
			if err != nil {
				return false, err, true
			}
			eq := bool(Truth(res))
			if op == token.NEQ {
				eq = !eq
			}
			return eq, nil, true
		}
	case token.LT, token.GE:
		if mm, ok := x.metamethod("__lt"); ok {
			res, err := invoke(th, mm, x, y)
			if err != nil {
				return false, err, true
			}
			lt := bool(Truth(res))
			if op == token.GE {
				lt = !lt
			}
			return lt, nil, true
		}
	case token.LE, token.GT:
		if mm, ok := x.metamethod("__le"); ok {
			res, err := invoke(th, mm, x, y)
			if err != nil {
				return false, err, true
			}
			le := bool(Truth(res))
			if op == token.GT {
				le = !le
			}
			return le, nil, true
		}
	}
	return false, nil, false
}

func sameType(x, y Value) bool { return x.Type() == y.Type() }

func invoke(th *Thread, fn Value, args ...Value) (Value, error) {
	if th == nil {
		return nil, fmt.Errorf("cannot invoke %s meta-method without a thread", fn.Type())
	}
	return Call(th, fn, NewTuple(args))
}

var metaOpName = map[token.Token]string{
	token.PLUS:       "__add",
	token.MINUS:      "__sub",
	token.STAR:       "__mul",
	token.SLASH:      "__div",
	token.SLASHSLASH: "__idiv",
	token.PERCENT:    "__mod",
	token.CIRCUMFLEX: "__pow",
	token.AMPERSAND:  "__band",
	token.PIPE:       "__bor",
	token.TILDE:      "__bxor",
	token.LTLT:       "__shl",
	token.GTGT:       "__shr",
}

// Binary implements the binary arithmetic and bitwise operators.
func Binary(th *Thread, op token.Token, x, y Value) (Value, error) {
	if op == token.PLUS {
		if xs, ok := x.(String); ok {
			if ys, ok := y.(String); ok {
				return xs + ys, nil
			}
		}
	}

	if xf, ok := x.(Float); ok {
		if yf, ok := y.(Float); ok {
			return binaryFloat(op, xf, yf)
		}
	}

	if xo, ok := x.(*Object); ok {
		if name, ok := metaOpName[op]; ok {
			if mm, ok := xo.metamethod(name); ok {
				return invoke(th, mm, x, y)
			}
		}
	}

	return nil, errType("unsupported operand types for %s: %s and %s", op, x.Type(), y.Type())
}

func binaryFloat(op token.Token, x, y Float) (Value, error) {
	switch op {
	case token.PLUS:
		return x + y, nil
	case token.MINUS:
		return x - y, nil
	case token.STAR:
		return x * y, nil
	case token.SLASH:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return x / y, nil
	case token.SLASHSLASH:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return Float(math.Floor(float64(x / y))), nil
	case token.PERCENT:
		if y == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return Float(math.Mod(float64(x), float64(y))), nil
	case token.CIRCUMFLEX:
		return Float(math.Pow(float64(x), float64(y))), nil
	case token.AMPERSAND, token.PIPE, token.TILDE, token.LTLT, token.GTGT:
		xi, err := exactInt(x)
		if err != nil {
			return nil, err
		}
		yi, err := exactInt(y)
		if err != nil {
			return nil, err
		}
		return bitwiseInt(op, xi, yi)
	default:
		return nil, fmt.Errorf("unsupported numeric operator %s", op)
	}
}

func bitwiseInt(op token.Token, x, y int64) (Value, error) {
	switch op {
	case token.AMPERSAND:
		return Float(x & y), nil
	case token.PIPE:
		return Float(x | y), nil
	case token.TILDE:
		return Float(x ^ y), nil
	case token.LTLT:
		return Float(x << uint(y)), nil
	case token.GTGT:
		return Float(x >> uint(y)), nil
	default:
		return nil, fmt.Errorf("unsupported bitwise operator %s", op)
	}
}

func exactInt(f Float) (int64, error) {
	if math.Trunc(float64(f)) != float64(f) {
		return 0, errType("number %v has no exact integer representation", f)
	}
	return int64(f), nil
}

// Unary implements the unary operators (+x, -x, ~x).
func Unary(th *Thread, op token.Token, x Value) (Value, error) {
	if xf, ok := x.(Float); ok {
		switch op {
		case token.PLUS:
			return xf, nil
		case token.MINUS:
			return -xf, nil
		case token.TILDE:
			xi, err := exactInt(xf)
			if err != nil {
				return nil, err
			}
			return Float(^xi), nil
		}
	}
	if xo, ok := x.(*Object); ok {
		name := map[token.Token]string{token.PLUS: "__pos", token.MINUS: "__neg", token.TILDE: "__bnot"}[op]
		if mm, ok := xo.metamethod(name); ok {
			return invoke(th, mm, x)
		}
	}
	return nil, errType("unsupported operand type for unary %s: %s", op, x.Type())
}

// Truth reports the truthiness of a value: Nil and False are falsy, every
// other value (including the number 0 and the empty string) is truthy.
func Truth(v Value) Bool {
	switch v := v.(type) {
	case NilType:
		return False
	case Bool:
		return v
	default:
		return True
	}
}

// Len returns the length of a Sequence or Indexable value, or -1 if v has no
// defined length.
func Len(v Value) int {
	if s, ok := v.(Sequence); ok {
		return s.Len()
	}
	if s, ok := v.(Indexable); ok {
		return s.Len()
	}
	return -1
}

// Iterate returns an Iterator over v, or nil if v is not iterable.
func Iterate(v Value) Iterator {
	if it, ok := v.(Iterable); ok {
		return it.Iterate()
	}
	return nil
}

func getIndex(th *Thread, x, y Value) (Value, error) {
	if xo, ok := x.(*Object); ok {
		if mm, ok := xo.metamethod("__getIndex"); ok {
			return invoke(th, mm, x, y)
		}
		return xo.lookup(y), nil
	}
	switch x := x.(type) {
	case Mapping:
		v, found, err := x.Get(y)
		if err != nil {
			return nil, err
		}
		if !found {
			return Nil, nil
		}
		return v, nil
	case Indexable:
		i, err := exactIndex(y, x.Len())
		if err != nil {
			return nil, err
		}
		return x.Index(i), nil
	}
	return nil, errType("%s value is not indexable", x.Type())
}

func setIndex(th *Thread, x, y, z Value) error {
	if xo, ok := x.(*Object); ok {
		if mm, ok := xo.metamethod("__setIndex"); ok {
			_, err := invoke(th, mm, x, y, z)
			return err
		}
		return xo.SetKey(y, z)
	}
	switch x := x.(type) {
	case HasSetKey:
		return x.SetKey(y, z)
	case HasSetIndex:
		i, err := exactIndex(y, x.Len())
		if err != nil {
			return err
		}
		return x.SetIndex(i, z)
	}
	return errType("%s value does not support index assignment", x.Type())
}

func exactIndex(y Value, n int) (int, error) {
	i, err := nonNegIndex(y)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i += n
	}
	return i, nil
}

func nonNegIndex(y Value) (int, error) {
	f, ok := y.(Float)
	if !ok {
		return 0, errType("index must be a number, got %s", y.Type())
	}
	i, err := exactInt(f)
	if err != nil {
		return 0, err
	}
	return int(i), nil
}

func getAttr(x Value, name string) (Value, error) {
	if a, ok := x.(HasAttrs); ok {
		v, err := a.Attr(name)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errType("%s value has no field or method %q", x.Type(), name)
		}
		return v, nil
	}
	return nil, errType("%s value has no field or method %q", x.Type(), name)
}

func setField(x Value, name string, v Value) error {
	if a, ok := x.(HasSetField); ok {
		return a.SetField(name, v)
	}
	return errType("%s value does not support field assignment", x.Type())
}
