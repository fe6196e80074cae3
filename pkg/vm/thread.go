package vm

import (
	"strings"
	"time"

	"github.com/zurustar/nsbi/pkg/script"
)

// Frame is one entry of a thread's call stack.
type Frame struct {
	Script *script.Script
	Line   int // index of the next line to execute
}

// SymbolResolver finds symbols the current script does not define.
type SymbolResolver interface {
	ResolveSymbol(from *script.Script, symbol string) (*script.Script, int)
}

// Actionable is implemented by objects a thread can wait on. Action
// reports whether the awaited activity has finished.
type Actionable interface {
	Action() bool
}

// Thread is one cooperatively scheduled strand of script execution.
//
// A thread is created inactive, becomes runnable after Start, and may
// suspend itself by sleeping until a deadline or by waiting on an
// Actionable. It starves, which is terminal, once its call stack is empty.
type Thread struct {
	name   string
	calls  []Frame
	breaks []string
	active bool
	gone   bool

	waiting       bool
	timed         bool
	waitStart     time.Time
	waitTime      time.Duration
	waitOn        Actionable
	interruptible bool

	// Region given to CreateProcess.
	X, Y, Width, Height int32

	owner *Interpreter
}

// NewThread creates an inactive thread with an empty call stack.
func NewThread(name string) *Thread {
	return &Thread{name: name}
}

// Name returns the thread's handle.
func (t *Thread) Name() string {
	return t.name
}

// Start makes the thread runnable.
func (t *Thread) Start() {
	t.active = true
}

// Stop makes the thread ineligible to run without discarding its state.
func (t *Thread) Stop() {
	t.active = false
}

// Active reports whether the thread has been started and not stopped.
func (t *Thread) Active() bool {
	return t.active
}

// IsStarving reports whether the call stack is empty.
func (t *Thread) IsStarving() bool {
	return len(t.calls) == 0
}

// Waiting reports whether the thread is sleeping or waiting on a condition.
func (t *Thread) Waiting() bool {
	return t.waiting
}

// Sleep suspends the thread until d has elapsed after now.
func (t *Thread) Sleep(now time.Time, d time.Duration, interruptible bool) {
	t.waiting, t.timed = true, true
	t.waitStart, t.waitTime = now, d
	t.waitOn = nil
	t.interruptible = interruptible
}

// SleepForever suspends the thread until it is interrupted.
func (t *Thread) SleepForever() {
	t.waiting, t.timed = true, false
	t.waitOn = nil
	t.interruptible = true
}

// WaitFor suspends the thread until obj reports Action. A positive timeout
// also wakes the thread once it has elapsed.
func (t *Thread) WaitFor(obj Actionable, now time.Time, timeout time.Duration, interruptible bool) {
	t.waiting = true
	t.timed = timeout > 0
	t.waitStart, t.waitTime = now, timeout
	t.waitOn = obj
	t.interruptible = interruptible
}

// TryWake polls the suspend condition and reports whether the thread is
// awake afterwards.
func (t *Thread) TryWake(now time.Time) bool {
	if !t.waiting {
		return true
	}
	if t.waitOn != nil && t.waitOn.Action() {
		t.wake()
		return true
	}
	if t.timed && now.Sub(t.waitStart) >= t.waitTime {
		t.wake()
		return true
	}
	return false
}

// Interrupt wakes an interruptible wait and reports whether it did.
func (t *Thread) Interrupt() bool {
	if !t.waiting || !t.interruptible {
		return false
	}
	t.wake()
	return true
}

func (t *Thread) wake() {
	t.waiting, t.timed = false, false
	t.waitOn = nil
	t.interruptible = false
}

// Frame returns the top frame, or nil when starving.
func (t *Thread) Frame() *Frame {
	if len(t.calls) == 0 {
		return nil
	}
	return &t.calls[len(t.calls)-1]
}

// Frames returns a copy of the call stack, bottom first.
func (t *Thread) Frames() []Frame {
	out := make([]Frame, len(t.calls))
	copy(out, t.calls)
	return out
}

// Call resolves symbol in s, or through resolver for function symbols s
// does not define, and pushes a frame for it.
func (t *Thread) Call(s *script.Script, symbol string, resolver SymbolResolver) bool {
	target, line := s, script.InvalidLine
	if s != nil {
		line = s.Symbol(symbol)
	}
	if line == script.InvalidLine && resolver != nil && strings.HasPrefix(symbol, "function.") {
		target, line = resolver.ResolveSymbol(s, symbol)
	}
	if target == nil || line == script.InvalidLine {
		return false
	}
	t.calls = append(t.calls, Frame{Script: target, Line: line})
	return true
}

// Jump moves the current frame to symbol in its own script. An unknown
// symbol leaves the position unchanged.
func (t *Thread) Jump(symbol string) bool {
	f := t.Frame()
	if f == nil {
		return false
	}
	line := f.Script.Symbol(symbol)
	if line == script.InvalidLine {
		return false
	}
	f.Line = line
	return true
}

// Return pops the top frame.
func (t *Thread) Return() error {
	if len(t.calls) == 0 {
		return NewRuntimeError(ErrorEmptyContext, "return from empty call stack of "+t.name)
	}
	t.calls = t.calls[:len(t.calls)-1]
	return nil
}

// PushBreak records the target of the innermost loop or case.
func (t *Thread) PushBreak(symbol string) {
	t.breaks = append(t.breaks, symbol)
}

// PopBreak drops the innermost break target.
func (t *Thread) PopBreak() {
	if len(t.breaks) > 0 {
		t.breaks = t.breaks[:len(t.breaks)-1]
	}
}

// Break jumps to the innermost break target.
func (t *Thread) Break() error {
	if len(t.breaks) == 0 {
		return NewRuntimeError(ErrorBreakOutsideLoop, "break with no enclosing loop in "+t.name)
	}
	symbol := t.breaks[len(t.breaks)-1]
	if !t.Jump(symbol) {
		return NewUnresolvedSymbolError(symbol)
	}
	return nil
}

// next fetches the line at the program counter and advances it. Running
// off the end of a script returns from that frame.
func (t *Thread) next() (*script.Script, int, *script.Line) {
	for {
		f := t.Frame()
		if f == nil {
			return nil, script.InvalidLine, nil
		}
		if ln := f.Script.Line(f.Line); ln != nil {
			index := f.Line
			f.Line++
			return f.Script, index, ln
		}
		t.calls = t.calls[:len(t.calls)-1]
	}
}

// Delete removes the thread from its interpreter. It is the deletion hook
// used when the thread's handle is deleted from the namespace.
func (t *Thread) Delete() {
	t.gone = true
	if t.owner != nil {
		t.owner.dropThread(t)
	}
}

// Request applies a Request instruction to the thread.
func (t *Thread) Request(req int32) {
	switch req {
	case RequestStart, RequestResume, RequestUnLock, RequestPlay:
		t.Start()
	case RequestStop, RequestPause, RequestLock:
		t.Stop()
	}
}

// Action reports whether the thread has finished, so one thread can wait
// for another.
func (t *Thread) Action() bool {
	return t.gone || t.IsStarving()
}
