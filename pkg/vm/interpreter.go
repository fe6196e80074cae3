// Package vm implements the script execution engine: the Value model,
// the operand stack, cooperatively scheduled threads, the object
// namespace and the instruction dispatcher.
//
// An Interpreter is driven from outside. The presentation loop calls Run
// once per frame, delivers input through PushEvent and draws the textures
// the interpreter hands to its Surface. Everything inside Run happens on
// the caller's goroutine; only PushEvent may be called concurrently.
package vm

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/opcode"
	"github.com/zurustar/nsbi/pkg/savefile"
	"github.com/zurustar/nsbi/pkg/script"
)

// MainThread is the name of the thread started by Start.
const MainThread = "__main__"

// maxSliceSteps bounds the instructions one thread runs per tick when a
// script never reaches a statement boundary.
const maxSliceSteps = 100000

// SaveData is the content of a save slot.
type SaveData = savefile.File

// Handler executes one instruction. Operands exposed by the dispatcher are
// read with in.Pop; results are pushed with in.Push.
type Handler func(in *Interpreter, t *Thread, ln *script.Line) error

type jumpEntry struct {
	handler Handler
	arity   int
	skip    int
}

func (e *jumpEntry) operands(nparams int) int {
	if e.arity != opcode.Variadic {
		return e.arity
	}
	if n := nparams - e.skip; n > 0 {
		return n
	}
	return 0
}

// Interpreter owns every piece of mutable engine state: variables, arrays,
// the object namespace, the live threads and the jump table.
type Interpreter struct {
	table [opcode.TableSize]jumpEntry
	stack *Stack

	threads []*Thread
	main    *Thread
	current *Thread
	mutated bool
	exited  bool

	variables map[string]*Value
	arrays    map[string]*Array
	pending   *pendingMember
	objects   *Namespace
	loader    *script.Loader
	events    *EventQueue

	clock   Clock
	surface Surface
	media   Media
	random  *rand.Rand
	saves   SaveStore

	pos   Breakpoint
	debug debugState

	log *slog.Logger
}

// Option is a functional option for configuring the Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(in *Interpreter) {
		in.log = log
	}
}

// WithClock replaces the wall clock, typically with a fake in tests.
func WithClock(clock Clock) Option {
	return func(in *Interpreter) {
		in.clock = clock
	}
}

// WithSurface sets the presentation surface.
func WithSurface(surface Surface) Option {
	return func(in *Interpreter) {
		in.surface = surface
	}
}

// WithMedia sets the audio/video backend.
func WithMedia(media Media) Option {
	return func(in *Interpreter) {
		in.media = media
	}
}

// WithProvider sets where scripts are loaded from.
func WithProvider(provider script.Provider) Option {
	return func(in *Interpreter) {
		in.loader = script.NewLoader(provider)
	}
}

// WithLoader shares an existing script loader.
func WithLoader(loader *script.Loader) Option {
	return func(in *Interpreter) {
		in.loader = loader
	}
}

// WithRandom sets the source used by Random.
func WithRandom(r *rand.Rand) Option {
	return func(in *Interpreter) {
		in.random = r
	}
}

// WithSaveStore sets where SaveData and LoadData read and write slots.
func WithSaveStore(store SaveStore) Option {
	return func(in *Interpreter) {
		in.saves = store
	}
}

// New creates an interpreter with every known instruction bound.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		stack:     NewStack(),
		variables: make(map[string]*Value),
		arrays:    make(map[string]*Array),
		objects:   NewNamespace(),
		events:    NewEventQueue(),
		clock:     systemClock{},
		surface:   nullSurface{},
		media:     nullMedia{},
		random:    rand.New(rand.NewSource(time.Now().UnixNano())),
		pos:       Breakpoint{Line: script.InvalidLine},
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.loader == nil {
		in.loader = script.NewLoader(nil)
	}
	in.objects.log = in.log

	for _, m := range opcode.All() {
		info, _ := opcode.Lookup(m)
		in.table[m] = jumpEntry{handler: handlers[m], arity: info.Arity, skip: info.Skip}
	}

	in.main = NewThread(MainThread)
	in.main.owner = in
	return in
}

// Register binds h to magic m with the given arity, replacing any
// existing handler. It returns false when m is outside the jump table.
func (in *Interpreter) Register(m opcode.Magic, arity int, h Handler) bool {
	if int(m) >= len(in.table) {
		return false
	}
	in.table[m] = jumpEntry{handler: h, arity: arity}
	return true
}

// Loader returns the script loader.
func (in *Interpreter) Loader() *script.Loader {
	return in.loader
}

// Objects returns the object namespace.
func (in *Interpreter) Objects() *Namespace {
	return in.objects
}

// Start loads a script and runs symbol in it on the main thread. An empty
// symbol starts at the first line.
func (in *Interpreter) Start(path, symbol string) error {
	s, err := in.loader.Get(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return in.StartScript(s, symbol)
}

// StartScript runs symbol of an already loaded script on the main thread.
func (in *Interpreter) StartScript(s *script.Script, symbol string) error {
	in.loader.Add(s)
	if symbol == "" {
		in.main.calls = append(in.main.calls, Frame{Script: s})
	} else if !in.main.Call(s, symbol, in) {
		return NewUnresolvedSymbolError(symbol)
	}
	in.main.Start()
	in.main.gone = false
	if !in.isLive(in.main) {
		in.threads = append(in.threads, in.main)
		in.mutated = true
	}
	in.log.Info("Interpreter started", "script", s.Name(), "symbol", symbol)
	return nil
}

// Run advances the scheduler n ticks.
func (in *Interpreter) Run(n int) {
	for i := 0; i < n && !in.exited; i++ {
		in.tick()
	}
}

// Done reports whether the main thread has finished or Exit was executed.
func (in *Interpreter) Done() bool {
	return in.exited || in.main.IsStarving()
}

// Exited reports whether Exit was executed.
func (in *Interpreter) Exited() bool {
	return in.exited
}

// Stop ends interpretation; Run becomes a no-op.
func (in *Interpreter) Stop() {
	in.exited = true
}

// Close deletes every object and drops every thread and variable.
func (in *Interpreter) Close() {
	in.exited = true
	in.objects.Clear()
	in.threads = nil
	for name, a := range in.arrays {
		a.Destroy()
		delete(in.arrays, name)
	}
	in.variables = make(map[string]*Value)
	in.pending = nil
	in.stack.Reset()
}

// tick runs every live thread once, in registration order.
func (in *Interpreter) tick() {
	for _, e := range in.events.Drain() {
		in.HandleEvent(e)
	}

	now := in.clock.Now()
	in.objects.Walk(func(_ string, obj Object) {
		if u, ok := obj.(updater); ok {
			u.update(now)
		}
	})

	in.mutated = false
	for i := 0; i < len(in.threads) && !in.exited; i++ {
		t := in.threads[i]
		in.runThread(t, now)
		in.stack.Reset()
		if t.IsStarving() && !t.gone {
			in.starve(t)
		}
		if in.mutated {
			break
		}
	}
}

func (in *Interpreter) runThread(t *Thread, now time.Time) {
	if !t.TryWake(now) || !t.Active() || t.IsStarving() {
		return
	}

	in.current = t
	defer func() { in.current = nil }()

	for steps := 0; steps < maxSliceSteps; steps++ {
		s, index, ln := t.next()
		if ln == nil {
			return
		}
		in.pos = Breakpoint{Script: s.Name(), Line: index}
		if in.debug.enabled() {
			in.beforeLine(t, s, index, ln)
			if in.exited {
				return
			}
		}

		in.Call(t, ln)

		if ln.Magic == opcode.ClearParams || t.gone || !t.Active() || t.Waiting() || t.IsStarving() || in.exited {
			return
		}
	}
	in.log.Warn("Thread yielded without reaching a statement boundary", "thread", t.name, "steps", maxSliceSteps)
}

// Call dispatches one instruction on behalf of thread t. Magics outside
// the jump table and unbound entries are ignored.
func (in *Interpreter) Call(t *Thread, ln *script.Line) {
	if int(ln.Magic) >= len(in.table) {
		in.log.Debug("Ignoring instruction outside the jump table", "opcode", ln.Magic)
		return
	}
	e := &in.table[ln.Magic]
	in.stack.Begin(e.operands(len(ln.Params)))
	if e.handler == nil {
		return
	}
	if err := e.handler(in, t, ln); err != nil {
		in.report(t, ln, err)
	}
}

// report logs a handler error. Fatal errors empty the thread's call stack
// so that the scheduler retires it.
func (in *Interpreter) report(t *Thread, ln *script.Line, err error) {
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		in.log.Warn("Instruction failed", "thread", t.name, "opcode", ln.Magic, "script", in.pos.Script, "line", in.pos.Line, "error", err)
		return
	}
	if rerr.Line < 0 {
		rerr.Script, rerr.Line = in.pos.Script, in.pos.Line
	}

	switch {
	case rerr.IsFatal():
		in.log.Error("Thread terminated", "thread", t.name, "opcode", ln.Magic, "error", rerr)
		t.calls = nil
	case rerr.Type == ErrorBadCoercion || rerr.Type == ErrorMissingObject:
		in.log.Debug("Soft failure", "thread", t.name, "opcode", ln.Magic, "error", rerr)
	default:
		in.log.Warn("Soft failure", "thread", t.name, "opcode", ln.Magic, "error", rerr)
	}
}

// Push pushes v onto the operand stack.
func (in *Interpreter) Push(v *Value) {
	in.stack.Push(v)
}

// Pop pops the next operand exposed to the running handler.
func (in *Interpreter) Pop() *Value {
	v, ok := in.stack.Pop()
	if !ok {
		in.log.Debug("Operand stack underflow", "script", in.pos.Script, "line", in.pos.Line)
	}
	return v
}

// Stack returns the operand stack.
func (in *Interpreter) Stack() *Stack {
	return in.stack
}

// ResolveSymbol searches the includes of from, then every loaded script.
func (in *Interpreter) ResolveSymbol(from *script.Script, symbol string) (*script.Script, int) {
	if from != nil {
		for _, inc := range from.Includes() {
			s, err := in.loader.Get(inc)
			if err != nil {
				in.log.Debug("Include unavailable", "include", inc, "error", err)
				continue
			}
			if line := s.Symbol(symbol); line != script.InvalidLine {
				return s, line
			}
		}
	}
	loaded := in.loader.Loaded()
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Name() < loaded[j].Name() })
	for _, s := range loaded {
		if line := s.Symbol(symbol); line != script.InvalidLine {
			return s, line
		}
	}
	return nil, script.InvalidLine
}

// Threads returns the live threads in scheduling order.
func (in *Interpreter) Threads() []*Thread {
	out := make([]*Thread, len(in.threads))
	copy(out, in.threads)
	return out
}

// Thread returns the live thread with the given name.
func (in *Interpreter) Thread(name string) *Thread {
	for _, t := range in.threads {
		if t.name == name {
			return t
		}
	}
	return nil
}

// Main returns the main thread.
func (in *Interpreter) Main() *Thread {
	return in.main
}

// Current returns the thread whose instruction is executing, or nil
// between ticks.
func (in *Interpreter) Current() *Thread {
	return in.current
}

// CreateThread registers a new inactive thread under name that will run
// symbol of s.
func (in *Interpreter) CreateThread(name string, s *script.Script, symbol string) (*Thread, error) {
	t := NewThread(name)
	t.owner = in
	if !t.Call(s, symbol, in) {
		return nil, NewUnresolvedSymbolError(symbol)
	}
	in.objects.Set(name, t)
	in.threads = append(in.threads, t)
	in.mutated = true
	in.log.Debug("Thread created", "thread", name, "symbol", symbol)
	return t, nil
}

func (in *Interpreter) isLive(t *Thread) bool {
	for _, l := range in.threads {
		if l == t {
			return true
		}
	}
	return false
}

// dropThread removes t from the live set.
func (in *Interpreter) dropThread(t *Thread) {
	t.gone = true
	for i, l := range in.threads {
		if l == t {
			in.threads = append(in.threads[:i], in.threads[i+1:]...)
			in.mutated = true
			in.log.Debug("Thread removed", "thread", t.name)
			return
		}
	}
}

// starve retires a thread whose call stack emptied and deletes the objects
// registered below its handle.
func (in *Interpreter) starve(t *Thread) {
	in.dropThread(t)
	in.objects.Execute(t.name, func(_ string, slot *Object) {
		if *slot == Object(t) {
			*slot = nil
		}
	})
}

// PushEvent queues an input event. It is safe to call from any goroutine.
func (in *Interpreter) PushEvent(e Event) {
	in.events.Push(e)
}

// HandleEvent applies an input event immediately.
func (in *Interpreter) HandleEvent(e Event) {
	switch e.Type {
	case EventClick:
		in.click(e.X, e.Y)
	case EventKey:
		switch e.Key {
		case "Enter", "Space":
			in.click(-1, -1)
		}
	}
}

func (in *Interpreter) click(x, y int) {
	for _, t := range in.threads {
		if t.Interrupt() {
			in.log.Debug("Wait interrupted", "thread", t.name)
		}
	}
	in.objects.Walk(func(_ string, obj Object) {
		switch o := obj.(type) {
		case *Texture:
			if o.text != nil {
				o.text.Click()
			}
		case *Choice:
			o.Click(x, y)
		}
	})
}

// Variable returns a named variable.
func (in *Interpreter) Variable(name string) (*Value, bool) {
	v, ok := in.variables[name]
	return v, ok
}

// SetVariable stores a copy of v under name.
func (in *Interpreter) SetVariable(name string, v *Value) {
	in.variable(name).Assign(v)
}

// VariableNames returns every variable name in sorted order.
func (in *Interpreter) VariableNames() []string {
	names := make([]string, 0, len(in.variables))
	for name := range in.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// variable returns a named variable, creating it as null.
func (in *Interpreter) variable(name string) *Value {
	v, ok := in.variables[name]
	if !ok {
		v = &Value{}
		in.variables[name] = v
	}
	return v
}

// Array returns a named array.
func (in *Interpreter) Array(name string) (*Array, bool) {
	a, ok := in.arrays[name]
	return a, ok
}

func (in *Interpreter) array(name string) *Array {
	a, ok := in.arrays[name]
	if !ok {
		a = NewArray()
		in.arrays[name] = a
	}
	return a
}

// Now returns the interpreter clock's time.
func (in *Interpreter) Now() time.Time {
	return in.clock.Now()
}
