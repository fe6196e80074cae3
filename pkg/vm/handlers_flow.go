package vm

import (
	"github.com/zurustar/nsbi/pkg/script"
)

// opFunctionBegin binds the caller's arguments, still on the operand
// stack, to the parameter names of the function.
func opFunctionBegin(in *Interpreter, _ *Thread, ln *script.Line) error {
	missing := in.stack.Remaining() < len(ln.Params)
	for _, name := range ln.Params {
		v := in.Pop()
		in.variable(name).Assign(v)
		Destroy(v)
	}
	if missing {
		return NewRuntimeError(ErrorStackUnderflow, "function called with too few arguments")
	}
	return nil
}

func opCall(in *Interpreter, t *Thread, ln *script.Line) error {
	f := t.Frame()
	if f == nil {
		return NewRuntimeError(ErrorEmptyContext, "call from empty call stack")
	}
	if !t.Call(f.Script, ln.Param(0), in) {
		return NewUnresolvedSymbolError(ln.Param(0))
	}
	return nil
}

func opReturn(_ *Interpreter, t *Thread, _ *script.Line) error {
	return t.Return()
}

func opJump(_ *Interpreter, t *Thread, ln *script.Line) error {
	if !t.Jump(ln.Param(0)) {
		return NewUnresolvedSymbolError(ln.Param(0))
	}
	return nil
}

// opIf jumps to its symbol when the condition is false; While shares it
// since the loop's back edge is an ordinary Jump.
func opIf(in *Interpreter, t *Thread, ln *script.Line) error {
	cond, err := in.popBool()
	if !cond && !t.Jump(ln.Param(0)) {
		return NewUnresolvedSymbolError(ln.Param(0))
	}
	return err
}

func opBreakBegin(_ *Interpreter, t *Thread, ln *script.Line) error {
	t.PushBreak(ln.Param(0))
	return nil
}

func opBreakEnd(_ *Interpreter, t *Thread, _ *script.Line) error {
	t.PopBreak()
	return nil
}

func opBreak(_ *Interpreter, t *Thread, _ *script.Line) error {
	return t.Break()
}
