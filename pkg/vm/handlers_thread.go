package vm

import (
	"github.com/zurustar/nsbi/pkg/script"
)

func opCreateProcess(in *Interpreter, t *Thread, _ *script.Line) error {
	handle := in.popString()
	x, errX := in.popInt()
	y, errY := in.popInt()
	w, errW := in.popInt()
	h, errH := in.popInt()
	symbol := in.popString()

	f := t.Frame()
	if f == nil {
		return NewRuntimeError(ErrorEmptyContext, "CreateProcess from empty call stack")
	}
	nt, err := in.CreateThread(handle, f.Script, symbol)
	if err != nil {
		return err
	}
	nt.X, nt.Y, nt.Width, nt.Height = x, y, w, h
	return firstError(errX, errY, errW, errH)
}

func opRequest(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	req, err := in.popConstant(GroupRequest)
	if err != nil {
		return err
	}
	n := 0
	in.objects.Execute(handle, func(_ string, slot *Object) {
		if r, ok := (*slot).(Requester); ok {
			r.Request(req)
			n++
		}
	})
	if n == 0 {
		return NewMissingObjectError(handle)
	}
	return nil
}

func opDelete(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	if in.objects.Remove(handle) == 0 {
		return NewMissingObjectError(handle)
	}
	return nil
}

func opSetAlias(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	alias := in.popString()
	in.objects.SetAlias(alias, handle)
	return nil
}

func opWait(in *Interpreter, t *Thread, _ *script.Line) error {
	d, err := in.popDuration()
	t.Sleep(in.clock.Now(), d, false)
	return err
}

// opWaitKey sleeps until a click, or at most the given time.
func opWaitKey(in *Interpreter, t *Thread, _ *script.Line) error {
	if in.stack.Remaining() == 0 {
		t.SleepForever()
		return nil
	}
	d, err := in.popDuration()
	t.Sleep(in.clock.Now(), d, true)
	return err
}

// popWaitTarget pops a handle and an optional timeout and collects what
// pick returns for every object the handle resolves to.
func (in *Interpreter) popWaitTarget(pick func(Object) Actionable) (waitAll, string, int32, error) {
	handle := in.popString()
	var timeout int32
	var err error
	if in.stack.Remaining() > 0 {
		timeout, err = in.popInt()
	}
	var targets waitAll
	in.objects.Execute(handle, func(_ string, slot *Object) {
		if *slot == nil {
			return
		}
		if a := pick(*slot); a != nil {
			targets = append(targets, a)
		}
	})
	return targets, handle, timeout, err
}

func opWaitAction(in *Interpreter, t *Thread, _ *script.Line) error {
	targets, handle, ms, err := in.popWaitTarget(func(obj Object) Actionable {
		a, _ := obj.(Actionable)
		return a
	})
	if len(targets) == 0 {
		return firstError(err, NewMissingObjectError(handle))
	}
	t.WaitFor(targets, in.clock.Now(), msDuration(ms), false)
	return err
}

func opWaitText(in *Interpreter, t *Thread, _ *script.Line) error {
	targets, handle, ms, err := in.popWaitTarget(func(obj Object) Actionable {
		if tex, ok := obj.(*Texture); ok && tex.text != nil {
			return tex.text
		}
		return nil
	})
	if len(targets) == 0 {
		return firstError(err, NewMissingObjectError(handle))
	}
	t.WaitFor(targets, in.clock.Now(), msDuration(ms), false)
	return err
}

func opIsStarving(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	th, ok := in.objects.Lookup(handle).(*Thread)
	in.Push(MakeBool(!ok || th.gone || th.IsStarving()))
	return nil
}

func opExit(in *Interpreter, _ *Thread, _ *script.Line) error {
	in.log.Info("Exit requested")
	in.Stop()
	return nil
}
