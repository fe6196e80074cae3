package vm

import (
	"fmt"

	"github.com/zurustar/nsbi/pkg/script"
)

// opCreateArray replaces the array named by the first parameter with a
// list of the popped values.
func opCreateArray(in *Interpreter, _ *Thread, ln *script.Line) error {
	arr := NewArray()
	for in.stack.Remaining() > 0 {
		v := in.Pop()
		arr.Append("", NewArrayFrom(v))
		Destroy(v)
	}
	name := ln.Param(0)
	if old, ok := in.arrays[name]; ok {
		old.Destroy()
	}
	in.arrays[name] = arr
	return nil
}

// pendingMember is a keyed member that an ArrayRead found missing. It is
// attached to parent only when target is assigned, so reads never grow
// the array.
type pendingMember struct {
	parent *Array
	key    string
	child  *Array
	target *Value
}

// opArrayRead walks one index or key per operand and pushes the addressed
// element. Missing indices are created; a missing key yields a detached
// null element that joins the array on assignment.
func opArrayRead(in *Interpreter, _ *Thread, ln *script.Line) error {
	in.pending = nil
	var pending *pendingMember
	cur := in.array(ln.Param(0))
	for in.stack.Remaining() > 0 {
		key := in.Pop()
		next := cur.FindValue(key)
		if k, ok := arrayKey(key); ok && next == nil {
			next = NewArray()
			if pending == nil {
				pending = &pendingMember{parent: cur, key: k, child: next}
			} else {
				cur.Append(k, next)
			}
		}
		Destroy(key)
		if next == nil {
			for in.stack.Remaining() > 0 {
				Destroy(in.Pop())
			}
			in.Push(MakeNull())
			return NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("bad index into %s", ln.Param(0)))
		}
		cur = next
	}
	if pending != nil {
		pending.target = &cur.Value
		in.pending = pending
	}
	in.Push(&cur.Value)
	return nil
}

// attachPending links the member created by the last ArrayRead into its
// array once target, the element it pushed, is written.
func (in *Interpreter) attachPending(target *Value) {
	p := in.pending
	in.pending = nil
	if p != nil && p.target == target && p.parent.Find(p.key) == nil {
		p.parent.Append(p.key, p.child)
	}
}

// opBindKey walks to a member like ArrayRead and renames it with the last
// operand.
func opBindKey(in *Interpreter, _ *Thread, ln *script.Line) error {
	n := in.stack.Remaining()
	if n < 2 {
		for in.stack.Remaining() > 0 {
			Destroy(in.Pop())
		}
		return NewRuntimeError(ErrorStackUnderflow, "BindKey needs an index and a key")
	}

	var parent *Array
	cur := in.array(ln.Param(0))
	for i := 0; i < n-1; i++ {
		idx := in.Pop()
		parent, cur = cur, cur.FindOrAddValue(idx)
		Destroy(idx)
		if cur == nil {
			for in.stack.Remaining() > 0 {
				Destroy(in.Pop())
			}
			return NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("bad index into %s", ln.Param(0)))
		}
	}
	key := in.popString()
	parent.SetKey(cur, key)
	return nil
}

func opArraySize(in *Interpreter, _ *Thread, ln *script.Line) error {
	size := 0
	if a, ok := in.arrays[ln.Param(0)]; ok {
		size = a.Len()
	}
	in.Push(MakeInt(int32(size)))
	return nil
}
