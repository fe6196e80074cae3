package vm

import (
	"fmt"
	"math"
)

// Add implements the "+" operator. Two ints add (a Relative value counts as
// an int), a float operand makes the sum a float, and a string left operand concatenates the stringified
// right operand. Anything else is a caller error and yields null.
func Add(l, r *Value) (*Value, error) {
	switch {
	case isIntLike(l) && isIntLike(r):
		a, _ := l.ToInt()
		b, _ := r.ToInt()
		return MakeInt(a + b), nil
	case isNumeric(l) && isNumeric(r):
		a, _ := l.ToFloat()
		b, _ := r.ToFloat()
		return MakeFloat(a + b), nil
	case l.IsString():
		return MakeString(l.ToString() + r.ToString()), nil
	}
	return MakeNull(), NewRuntimeError(ErrorBadCoercion,
		fmt.Sprintf("cannot add %s to %s", r.Kind(), l.Kind()))
}

// Arithmetic applies one of "-", "*", "/", "%". Division by zero yields 0.
func Arithmetic(op byte, l, r *Value) (*Value, error) {
	if l.IsFloat() || r.IsFloat() {
		a, okA := l.ToFloat()
		b, okB := r.ToFloat()
		var res float32
		switch op {
		case '-':
			res = a - b
		case '*':
			res = a * b
		case '/':
			if b == 0 {
				return MakeFloat(0), NewRuntimeError(ErrorInvalidOperation, "division by zero")
			}
			res = a / b
		case '%':
			if b == 0 {
				return MakeFloat(0), NewRuntimeError(ErrorInvalidOperation, "division by zero")
			}
			res = float32(math.Mod(float64(a), float64(b)))
		}
		return MakeFloat(res), coercionError(okA && okB, l, r)
	}

	a, okA := l.ToInt()
	b, okB := r.ToInt()
	var res int32
	switch op {
	case '-':
		res = a - b
	case '*':
		res = a * b
	case '/':
		if b == 0 {
			return MakeInt(0), NewRuntimeError(ErrorInvalidOperation, "division by zero")
		}
		res = a / b
	case '%':
		if b == 0 {
			return MakeInt(0), NewRuntimeError(ErrorInvalidOperation, "division by zero")
		}
		res = a % b
	}
	return MakeInt(res), coercionError(okA && okB, l, r)
}

// Equal compares two values. When either side is a non-null int the
// comparison is numeric (a Relative value counts as an int) and the other side is coerced only through the
// boolean constant table (or as a Relative delta); otherwise both sides
// are compared as strings.
func Equal(l, r *Value) (bool, error) {
	if l.IsInt() || r.IsInt() {
		a, okA := equalOperand(l)
		b, okB := equalOperand(r)
		if !okA || !okB {
			return false, coercionError(false, l, r)
		}
		return a == b, nil
	}
	if l.IsBool() && r.IsBool() {
		return l.b == r.b, nil
	}
	return l.ToString() == r.ToString(), nil
}

func equalOperand(v *Value) (int32, bool) {
	switch v.Kind() {
	case KindString:
		if v.Relative {
			return v.ToInt()
		}
		b, ok := lookupBool(v.s)
		if !ok {
			return 0, false
		}
		if b {
			return 1, true
		}
		return 0, true
	default:
		return v.ToInt()
	}
}

// Compare coerces both sides to int and returns -1, 0 or 1.
func Compare(l, r *Value) (int, error) {
	a, okA := l.ToInt()
	b, okB := r.ToInt()
	err := coercionError(okA && okB, l, r)
	switch {
	case a < b:
		return -1, err
	case a > b:
		return 1, err
	}
	return 0, err
}

// Bool coerces v for logical operators and conditional jumps.
func Bool(v *Value) (bool, error) {
	b, ok := v.ToBool()
	if !ok {
		return false, NewRuntimeError(ErrorBadCoercion, fmt.Sprintf("%v is not a boolean", v))
	}
	return b, nil
}

// Negate returns -v as a new literal.
func Negate(v *Value) *Value {
	if v.IsFloat() {
		return MakeFloat(-v.f)
	}
	res := MakeCopy(v)
	res.ApplyInt(func(i int32) int32 { return -i })
	return res
}

func isIntLike(v *Value) bool {
	return v.IsInt() || v.Kind() == KindNull || v.Kind() == KindBool
}

func isNumeric(v *Value) bool {
	return isIntLike(v) || v.Kind() == KindFloat
}

func coercionError(ok bool, l, r *Value) error {
	if ok {
		return nil
	}
	return NewRuntimeError(ErrorBadCoercion, fmt.Sprintf("cannot coerce %v and %v", l, r))
}
