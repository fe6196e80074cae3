package vm

import (
	"fmt"
	"sort"

	"github.com/zurustar/nsbi/pkg/script"
)

// Breakpoint identifies a line of a script.
type Breakpoint struct {
	Script string
	Line   int
}

func (b Breakpoint) String() string {
	return fmt.Sprintf("%s:%d", b.Script, b.Line)
}

// DebugEvent describes the line a thread is about to execute.
type DebugEvent struct {
	Thread      *Thread
	Script      *script.Script
	Line        int
	Instruction *script.Line
	Breakpoint  bool
}

// DebugHook is called synchronously before a line executes while stepping
// or when the line has a breakpoint. The interpreter does not advance
// until it returns.
type DebugHook func(in *Interpreter, ev DebugEvent)

type debugState struct {
	hook        DebugHook
	breakpoints map[Breakpoint]struct{}
	stepping    bool
	callLog     bool
}

func (d *debugState) enabled() bool {
	return d.callLog || (d.hook != nil && (d.stepping || len(d.breakpoints) > 0))
}

// SetDebugHook installs the hook called on breakpoints and steps.
func (in *Interpreter) SetDebugHook(hook DebugHook) {
	in.debug.hook = hook
}

// AddBreakpoint sets a breakpoint on a line of a script.
func (in *Interpreter) AddBreakpoint(scriptName string, line int) {
	if in.debug.breakpoints == nil {
		in.debug.breakpoints = make(map[Breakpoint]struct{})
	}
	in.debug.breakpoints[Breakpoint{Script: script.Key(scriptName), Line: line}] = struct{}{}
}

// ClearBreakpoints removes every breakpoint.
func (in *Interpreter) ClearBreakpoints() {
	in.debug.breakpoints = nil
}

// Breakpoints returns the breakpoints sorted by script and line.
func (in *Interpreter) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(in.debug.breakpoints))
	for bp := range in.debug.breakpoints {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Script != out[j].Script {
			return out[i].Script < out[j].Script
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// SetStepping makes the hook run before every line.
func (in *Interpreter) SetStepping(on bool) {
	in.debug.stepping = on
}

// Stepping reports whether single-stepping is on.
func (in *Interpreter) Stepping() bool {
	return in.debug.stepping
}

// SetCallLogging logs every dispatched instruction at Info level.
func (in *Interpreter) SetCallLogging(on bool) {
	in.debug.callLog = on
}

// CallLogging reports whether call logging is on.
func (in *Interpreter) CallLogging() bool {
	return in.debug.callLog
}

func (in *Interpreter) beforeLine(t *Thread, s *script.Script, index int, ln *script.Line) {
	if in.debug.callLog {
		in.log.Info("Call", "thread", t.name, "script", s.Name(), "line", index, "instruction", ln.String())
	}
	if in.debug.hook == nil {
		return
	}
	_, hit := in.debug.breakpoints[Breakpoint{Script: script.Key(s.Name()), Line: index}]
	if hit || in.debug.stepping {
		in.debug.hook(in, DebugEvent{Thread: t, Script: s, Line: index, Instruction: ln, Breakpoint: hit})
	}
}

// Trace renders the call stack of t, innermost frame first.
func (in *Interpreter) Trace(t *Thread) []string {
	frames := t.Frames()
	out := make([]string, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		// Line is the next line to run; the frame is positioned on the one before.
		line := f.Line - 1
		if line < 0 {
			line = 0
		}
		out = append(out, fmt.Sprintf("%s:%d %s", f.Script.Name(), line, f.Script.SymbolAt(line)))
	}
	return out
}

// Listing renders n lines either side of the current position of t. The
// current line is marked with "=>".
func (in *Interpreter) Listing(t *Thread, n int) []string {
	f := t.Frame()
	if f == nil {
		return nil
	}
	cur := f.Line - 1
	if cur < 0 {
		cur = 0
	}
	var out []string
	for i := cur - n; i <= cur+n; i++ {
		ln := f.Script.Line(i)
		if ln == nil {
			continue
		}
		mark := "  "
		if i == cur {
			mark = "=>"
		}
		out = append(out, fmt.Sprintf("%s %4d %s", mark, i, ln))
	}
	return out
}
