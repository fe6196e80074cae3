package vm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/nsbi/pkg/opcode"
	"github.com/zurustar/nsbi/pkg/script"
)

// handlers is the default jump table. ClearParams has no handler: it only
// ends the statement.
var handlers = map[opcode.Magic]Handler{
	opcode.Literal: opLiteral,
	opcode.Get:     opGet,
	opcode.Set:     opSet,
	opcode.Assign:  opAssign,
	opcode.Include: opInclude,

	opcode.Add: binaryOp(Add),
	opcode.Sub: arithmeticOp('-'),
	opcode.Mul: arithmeticOp('*'),
	opcode.Div: arithmeticOp('/'),
	opcode.Mod: arithmeticOp('%'),

	opcode.Equal: binaryOp(func(l, r *Value) (*Value, error) {
		eq, err := Equal(l, r)
		return MakeBool(eq), err
	}),
	opcode.NotEqual: binaryOp(func(l, r *Value) (*Value, error) {
		eq, err := Equal(l, r)
		return MakeBool(!eq), err
	}),
	opcode.Less:         compareOp(func(c int) bool { return c < 0 }),
	opcode.Greater:      compareOp(func(c int) bool { return c > 0 }),
	opcode.LessEqual:    compareOp(func(c int) bool { return c <= 0 }),
	opcode.GreaterEqual: compareOp(func(c int) bool { return c >= 0 }),
	opcode.LogicalAnd:   logicalOp(func(a, b bool) bool { return a && b }),
	opcode.LogicalOr:    logicalOp(func(a, b bool) bool { return a || b }),
	opcode.LogicalNot:   opLogicalNot,
	opcode.Negate:       opNegate,
	opcode.Increment:    stepOp(1),
	opcode.Decrement:    stepOp(-1),

	opcode.FunctionBegin: opFunctionBegin,
	opcode.CallFunction:  opCall,
	opcode.CallScene:     opCall,
	opcode.CallChapter:   opCall,
	opcode.Return:        opReturn,
	opcode.EndFunction:   opReturn,
	opcode.EndScene:      opReturn,
	opcode.EndChapter:    opReturn,
	opcode.Jump:          opJump,
	opcode.If:            opIf,
	opcode.While:         opIf,
	opcode.BreakBegin:    opBreakBegin,
	opcode.BreakEnd:      opBreakEnd,
	opcode.Break:         opBreak,

	opcode.CreateArray: opCreateArray,
	opcode.ArrayRead:   opArrayRead,
	opcode.BindKey:     opBindKey,
	opcode.ArraySize:   opArraySize,

	opcode.CreateProcess: opCreateProcess,
	opcode.Request:       opRequest,
	opcode.Delete:        opDelete,
	opcode.SetAlias:      opSetAlias,
	opcode.Wait:          opWait,
	opcode.WaitKey:       opWaitKey,
	opcode.WaitAction:    opWaitAction,
	opcode.WaitText:      opWaitText,
	opcode.IsStarving:    opIsStarving,
	opcode.Exit:          opExit,

	opcode.CreateTexture: opCreateTexture,
	opcode.CreateColor:   opCreateColor,
	opcode.CreateText:    opCreateText,
	opcode.CreateSound:   opCreateSound,
	opcode.CreateChoice:  opCreateChoice,
	opcode.Move:          opMove,
	opcode.Fade:          opFade,
	opcode.SetVolume:     opSetVolume,
	opcode.SetLoop:       opSetLoop,
	opcode.SetText:       opSetText,
	opcode.IsSelected:    opIsSelected,
	opcode.ImageHorizon:  imageSizeOp(false),
	opcode.ImageVertical: imageSizeOp(true),
	opcode.RemainTime:    timeOp(true),
	opcode.DurationTime:  timeOp(false),

	opcode.Random:   opRandom,
	opcode.Format:   opFormat,
	opcode.Count:    opCount,
	opcode.SaveData: opSaveData,
	opcode.LoadData: opLoadData,
}

// operand helpers; each pops one value and releases it if it is a literal

func (in *Interpreter) popInt() (int32, error) {
	v := in.Pop()
	defer Destroy(v)
	i, ok := v.ToInt()
	if !ok {
		return 0, NewRuntimeError(ErrorBadCoercion, fmt.Sprintf("%v is not a number", v))
	}
	return i, nil
}

func (in *Interpreter) popString() string {
	v := in.Pop()
	defer Destroy(v)
	return v.ToString()
}

func (in *Interpreter) popBool() (bool, error) {
	v := in.Pop()
	defer Destroy(v)
	return Bool(v)
}

func (in *Interpreter) popDuration() (time.Duration, error) {
	ms, err := in.popInt()
	return time.Duration(ms) * time.Millisecond, err
}

// popConstant pops a value that may be given as a name from group.
func (in *Interpreter) popConstant(group ConstantGroup) (int32, error) {
	v := in.Pop()
	defer Destroy(v)
	if v.Kind() == KindString {
		if c, ok := lookupGroup(v.s, group); ok {
			return c, nil
		}
	}
	i, ok := v.ToInt()
	if !ok {
		return 0, NewRuntimeError(ErrorBadCoercion, fmt.Sprintf("%v is not a known constant", v))
	}
	return i, nil
}

// firstError keeps the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func opLiteral(in *Interpreter, _ *Thread, ln *script.Line) error {
	text := ln.Param(1)
	var v *Value
	var err error

	switch strings.ToUpper(ln.Param(0)) {
	case "INT":
		n, perr := strconv.ParseInt(strings.TrimPrefix(text, "@"), 10, 32)
		if perr != nil {
			err = NewRuntimeError(ErrorBadCoercion, fmt.Sprintf("bad INT literal %q", text))
		}
		v = MakeInt(int32(n))
		v.Relative = strings.HasPrefix(text, "@")
	case "FLOAT":
		f, perr := strconv.ParseFloat(text, 32)
		if perr != nil {
			err = NewRuntimeError(ErrorBadCoercion, fmt.Sprintf("bad FLOAT literal %q", text))
		}
		v = MakeFloat(float32(f))
	case "TRUE":
		v = MakeBool(true)
	case "FALSE":
		v = MakeBool(false)
	case "NULL":
		v = MakeNull()
	default:
		v = MakeString(text)
		if strings.HasPrefix(text, "@") {
			if _, perr := strconv.Atoi(text[1:]); perr == nil {
				v.Relative = true
			}
		}
	}
	in.Push(v)
	return err
}

func opGet(in *Interpreter, _ *Thread, ln *script.Line) error {
	in.Push(in.variable(ln.Param(0)))
	return nil
}

func opSet(in *Interpreter, _ *Thread, ln *script.Line) error {
	v := in.Pop()
	defer Destroy(v)
	target := in.variable(ln.Param(0))

	var res *Value
	var err error
	switch ln.Param(1) {
	case "", "=":
		target.Assign(v)
		return nil
	case "+=":
		res, err = Add(target, v)
	case "-=":
		res, err = Arithmetic('-', target, v)
	case "*=":
		res, err = Arithmetic('*', target, v)
	case "/=":
		res, err = Arithmetic('/', target, v)
	case "%=":
		res, err = Arithmetic('%', target, v)
	default:
		return NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("unknown assignment %q", ln.Param(1)))
	}
	target.Assign(res)
	return err
}

func opAssign(in *Interpreter, _ *Thread, _ *script.Line) error {
	target := in.Pop()
	v := in.Pop()
	defer Destroy(v)
	if target.Literal {
		Destroy(target)
		return NewRuntimeError(ErrorInvalidOperation, "assignment to a temporary")
	}
	target.Assign(v)
	in.attachPending(target)
	return nil
}

func opInclude(in *Interpreter, _ *Thread, ln *script.Line) error {
	if _, err := in.loader.Get(ln.Param(0)); err != nil {
		return NewResourceError(ln.Param(0), err)
	}
	return nil
}

func binaryOp(fn func(l, r *Value) (*Value, error)) Handler {
	return func(in *Interpreter, _ *Thread, _ *script.Line) error {
		l := in.Pop()
		r := in.Pop()
		res, err := fn(l, r)
		Destroy(l)
		Destroy(r)
		in.Push(res)
		return err
	}
}

func arithmeticOp(op byte) Handler {
	return binaryOp(func(l, r *Value) (*Value, error) {
		return Arithmetic(op, l, r)
	})
}

func compareOp(pred func(int) bool) Handler {
	return binaryOp(func(l, r *Value) (*Value, error) {
		c, err := Compare(l, r)
		return MakeBool(pred(c)), err
	})
}

func logicalOp(fn func(a, b bool) bool) Handler {
	return binaryOp(func(l, r *Value) (*Value, error) {
		a, errA := Bool(l)
		b, errB := Bool(r)
		return MakeBool(fn(a, b)), firstError(errA, errB)
	})
}

func opLogicalNot(in *Interpreter, _ *Thread, _ *script.Line) error {
	b, err := in.popBool()
	in.Push(MakeBool(!b))
	return err
}

func opNegate(in *Interpreter, _ *Thread, _ *script.Line) error {
	v := in.Pop()
	res := Negate(v)
	Destroy(v)
	in.Push(res)
	return nil
}

func stepOp(delta int32) Handler {
	return func(in *Interpreter, _ *Thread, ln *script.Line) error {
		in.variable(ln.Param(0)).ApplyInt(func(i int32) int32 { return i + delta })
		return nil
	}
}
