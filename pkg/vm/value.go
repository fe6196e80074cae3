package vm

import (
	"strconv"
	"strings"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is the dynamically typed script value.
//
// Literal marks a temporary produced while evaluating an expression; it is
// owned by whoever popped it last and is released by Destroy. Named
// variables have Literal unset and are only replaced through the variable
// table.
//
// Relative marks a coordinate delta. A Relative int renders as "@123" and a
// Relative string "@123" reads back as 123.
type Value struct {
	kind Kind
	i    int32
	f    float32
	s    string
	b    bool

	Literal  bool
	Relative bool
}

// MakeNull returns a literal null Value.
func MakeNull() *Value {
	return &Value{Literal: true}
}

// MakeInt returns a literal int Value.
func MakeInt(i int32) *Value {
	return &Value{kind: KindInt, i: i, Literal: true}
}

// MakeFloat returns a literal float Value.
func MakeFloat(f float32) *Value {
	return &Value{kind: KindFloat, f: f, Literal: true}
}

// MakeString returns a literal string Value.
func MakeString(s string) *Value {
	return &Value{kind: KindString, s: s, Literal: true}
}

// MakeBool returns a literal bool Value.
func MakeBool(b bool) *Value {
	return &Value{kind: KindBool, b: b, Literal: true}
}

// MakeCopy returns a literal copy of v. A nil v copies as null.
func MakeCopy(v *Value) *Value {
	c := MakeNull()
	c.Assign(v)
	return c
}

// MakeRelative returns a literal Relative int Value.
func MakeRelative(delta int32) *Value {
	v := MakeInt(delta)
	v.Relative = true
	return v
}

// Destroy releases v if it is a literal and reports whether it did.
// Named variables are left untouched.
func Destroy(v *Value) bool {
	if v == nil || !v.Literal {
		return false
	}
	*v = Value{}
	return true
}

// Kind returns the tag.
func (v *Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the Value holds nothing.
func (v *Value) IsNull() bool {
	return v.kind == KindNull
}

// IsInt is true for ints and for any Relative value.
func (v *Value) IsInt() bool {
	return v.kind == KindInt || v.Relative
}

// IsFloat reports whether the Value is a float.
func (v *Value) IsFloat() bool {
	return v.kind == KindFloat
}

// IsString is true for strings and for any Relative value.
func (v *Value) IsString() bool {
	return v.kind == KindString || v.Relative
}

// IsBool reports whether the Value is a bool.
func (v *Value) IsBool() bool {
	return v.kind == KindBool
}

// Assign copies the payload and the Relative flag of src into v.
// The Literal flag of v is kept.
func (v *Value) Assign(src *Value) {
	literal := v.Literal
	if src == nil {
		*v = Value{}
	} else {
		*v = *src
	}
	v.Literal = literal
}

// SetInt replaces the payload with an int.
func (v *Value) SetInt(i int32) {
	v.kind, v.i, v.f, v.s, v.b = KindInt, i, 0, "", false
}

// SetFloat replaces the payload with a float.
func (v *Value) SetFloat(f float32) {
	v.kind, v.i, v.f, v.s, v.b = KindFloat, 0, f, "", false
}

// SetString replaces the payload with a string.
func (v *Value) SetString(s string) {
	v.kind, v.i, v.f, v.s, v.b = KindString, 0, 0, s, false
}

// SetBool replaces the payload with a bool.
func (v *Value) SetBool(b bool) {
	v.kind, v.i, v.f, v.s, v.b = KindBool, 0, 0, "", b
}

// ApplyInt replaces the payload with fn applied to its int coercion.
// Floats stay floats.
func (v *Value) ApplyInt(fn func(int32) int32) {
	if v.kind == KindFloat {
		v.f = float32(fn(int32(v.f)))
		return
	}
	i, _ := v.ToInt()
	relative := v.Relative
	v.SetInt(fn(i))
	v.Relative = relative
}

// ToInt coerces to int32. Strings are parsed as decimal numbers and then
// looked up in the symbolic constant table; ok is false when both fail.
func (v *Value) ToInt() (int32, bool) {
	switch v.kind {
	case KindNull:
		return 0, true
	case KindInt:
		return v.i, true
	case KindFloat:
		return int32(v.f), true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		return parseInt(v.s, v.Relative)
	}
	return 0, false
}

func parseInt(s string, relative bool) (int32, bool) {
	text := strings.TrimSpace(s)
	if relative || strings.HasPrefix(text, "@") {
		text = strings.TrimPrefix(text, "@")
	}
	if n, err := strconv.ParseInt(text, 10, 32); err == nil {
		return int32(n), true
	}
	if f, err := strconv.ParseFloat(text, 32); err == nil {
		return int32(f), true
	}
	if c, ok := LookupConstant(text); ok {
		return c.Value, true
	}
	return 0, false
}

// ToFloat coerces to float32.
func (v *Value) ToFloat() (float32, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindString:
		text := strings.TrimPrefix(strings.TrimSpace(v.s), "@")
		if f, err := strconv.ParseFloat(text, 32); err == nil {
			return float32(f), true
		}
	}
	i, ok := v.ToInt()
	return float32(i), ok
}

// ToString coerces to a string.
func (v *Value) ToString() string {
	switch v.kind {
	case KindInt:
		if v.Relative {
			return "@" + strconv.Itoa(int(v.i))
		}
		return strconv.Itoa(int(v.i))
	case KindFloat:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	case KindString:
		return v.s
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// ToBool coerces to bool. Strings must be a boolean constant or a number.
func (v *Value) ToBool() (bool, bool) {
	switch v.kind {
	case KindNull:
		return false, true
	case KindBool:
		return v.b, true
	case KindInt:
		return v.i != 0, true
	case KindFloat:
		return v.f != 0, true
	case KindString:
		if b, ok := lookupBool(v.s); ok {
			return b, true
		}
		if i, ok := parseInt(v.s, v.Relative); ok {
			return i != 0, true
		}
	}
	return false, false
}

// String implements fmt.Stringer for logging.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	if v.kind == KindNull {
		return "null"
	}
	return v.ToString()
}
