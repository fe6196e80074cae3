// Package debugger is a line-oriented console for the interpreter. It reads
// single-letter commands and drives the interpreter's breakpoint, stepping
// and inspection hooks.
//
//	s          step one line
//	c          continue
//	q          quit
//	w          break before the next line
//	l          toggle call logging
//	t          print every thread's call stack
//	b s:n      set a breakpoint on line n of script s
//	b c        clear breakpoints
//	p name     print a variable or array
//	i n        list n lines around every thread's position
//	d v        dump all variables
//	x file     write a CBOR snapshot of the interpreter state to file
package debugger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/vm"
)

// ErrUnknownCommand is reported for input no command matches.
var ErrUnknownCommand = errors.New("unknown command")

// Debugger reads commands from an input and applies them to an
// interpreter. Commands only touch the interpreter from Poll and from the
// debug hook, both of which run on the interpreter's goroutine.
type Debugger struct {
	in     *vm.Interpreter
	out    io.Writer
	lines  chan string
	prompt bool
	paused bool
	log    *slog.Logger
}

// Option configures a Debugger.
type Option func(*Debugger)

// WithPrompt prints a prompt while paused. Use it when input is a terminal.
func WithPrompt(on bool) Option {
	return func(d *Debugger) {
		d.prompt = on
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Debugger) {
		d.log = log
	}
}

// New attaches a debugger to in. Input is read on its own goroutine until
// it is exhausted.
func New(in *vm.Interpreter, input io.Reader, out io.Writer, opts ...Option) *Debugger {
	d := &Debugger{
		in:    in,
		out:   out,
		lines: make(chan string, 16),
		log:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.read(input)
	in.SetDebugHook(d.hook)
	return d
}

func (d *Debugger) read(input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		d.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		d.log.Warn("Debugger input failed", "error", err)
	}
	close(d.lines)
}

// Poll applies commands that arrived while the interpreter was running. It
// must be called from the interpreter's goroutine between ticks.
func (d *Debugger) Poll() {
	for {
		select {
		case line, ok := <-d.lines:
			if !ok {
				return
			}
			d.Execute(line)
		default:
			return
		}
	}
}

// Paused reports whether the debugger is waiting for a command.
func (d *Debugger) Paused() bool { return d.paused }

func (d *Debugger) hook(in *vm.Interpreter, ev vm.DebugEvent) {
	where := fmt.Sprintf("%s:%d", ev.Script.Name(), ev.Line)
	if ev.Breakpoint {
		fmt.Fprintf(d.out, "breakpoint %s [%s] %s\n", where, ev.Thread.Name(), ev.Instruction)
	} else {
		fmt.Fprintf(d.out, "%s [%s] %s\n", where, ev.Thread.Name(), ev.Instruction)
	}

	d.paused = true
	for d.paused {
		if d.prompt {
			fmt.Fprint(d.out, "(nsbi) ")
		}
		line, ok := <-d.lines
		if !ok {
			// input closed: let the script run to completion
			d.paused = false
			in.SetStepping(false)
			return
		}
		d.Execute(line)
	}
}

// Execute runs one command line.
func (d *Debugger) Execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]
	if err := d.execute(cmd, args); err != nil {
		fmt.Fprintf(d.out, "error: %v\n", err)
		d.log.Debug("Debugger command failed", "command", line, "error", err)
	}
}

func (d *Debugger) execute(cmd string, args []string) error {
	switch cmd {
	case "s":
		d.in.SetStepping(true)
		d.paused = false
	case "c":
		d.in.SetStepping(false)
		d.paused = false
	case "q":
		d.in.Stop()
		d.in.SetStepping(false)
		d.paused = false
	case "w":
		d.in.SetStepping(true)
	case "l":
		on := !d.in.CallLogging()
		d.in.SetCallLogging(on)
		fmt.Fprintf(d.out, "call logging %s\n", onOff(on))
	case "t":
		d.traces()
	case "b":
		return d.breakpoint(args)
	case "p":
		if len(args) != 1 {
			return fmt.Errorf("usage: p <name>")
		}
		return d.print(args[0])
	case "i":
		n := 3
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 {
				return fmt.Errorf("bad line count %q", args[0])
			}
			n = v
		}
		d.listing(n)
	case "d":
		if len(args) != 1 || args[0] != "v" {
			return fmt.Errorf("usage: d v")
		}
		d.dumpVariables()
	case "x":
		if len(args) != 1 {
			return fmt.Errorf("usage: x <file>")
		}
		return d.export(args[0])
	case "h", "?":
		fmt.Fprintln(d.out, "s c q w l t | b <script>:<line> | b c | p <name> | i <n> | d v | x <file>")
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (d *Debugger) traces() {
	for _, t := range d.in.Threads() {
		fmt.Fprintf(d.out, "thread %s\n", t.Name())
		for _, f := range d.in.Trace(t) {
			fmt.Fprintf(d.out, "  %s\n", f)
		}
	}
}

func (d *Debugger) breakpoint(args []string) error {
	switch {
	case len(args) == 0:
		for _, bp := range d.in.Breakpoints() {
			fmt.Fprintln(d.out, bp)
		}
		return nil
	case len(args) == 1 && args[0] == "c":
		d.in.ClearBreakpoints()
		fmt.Fprintln(d.out, "breakpoints cleared")
		return nil
	}
	name, num, ok := strings.Cut(args[0], ":")
	line, err := strconv.Atoi(num)
	if !ok || name == "" || err != nil || line < 0 {
		return fmt.Errorf("usage: b <script>:<line>")
	}
	d.in.AddBreakpoint(name, line)
	fmt.Fprintf(d.out, "breakpoint set at %s:%d\n", name, line)
	return nil
}

func (d *Debugger) print(name string) error {
	if v, ok := d.in.Variable(name); ok {
		fmt.Fprintf(d.out, "%s = %s (%s)\n", name, v.ToString(), v.Kind())
		return nil
	}
	for _, a := range d.in.Snapshot().Arrays {
		if a.Name == name {
			printArray(d.out, a, 0)
			return nil
		}
	}
	return fmt.Errorf("no variable %s", name)
}

func printArray(w io.Writer, a vm.ArraySnapshot, depth int) {
	fmt.Fprintf(w, "%s%s = %s (%s)\n", strings.Repeat("  ", depth), a.Name, a.Value, a.Kind)
	for _, m := range a.Members {
		printArray(w, m, depth+1)
	}
}

func (d *Debugger) listing(n int) {
	for _, t := range d.in.Threads() {
		fmt.Fprintf(d.out, "thread %s\n", t.Name())
		for _, l := range d.in.Listing(t, n) {
			fmt.Fprintln(d.out, l)
		}
	}
}

func (d *Debugger) dumpVariables() {
	for _, name := range d.in.VariableNames() {
		v, _ := d.in.Variable(name)
		fmt.Fprintf(d.out, "%s = %s (%s)\n", name, v.ToString(), v.Kind())
	}
}

// EncodeSnapshot encodes a snapshot as canonical CBOR.
func EncodeSnapshot(s *vm.Snapshot) ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(s)
}

// DecodeSnapshot decodes a snapshot written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*vm.Snapshot, error) {
	var s vm.Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *Debugger) export(path string) error {
	data, err := EncodeSnapshot(d.in.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	fmt.Fprintf(d.out, "snapshot written to %s (%d bytes)\n", path, len(data))
	return nil
}
