package vm

import (
	"image"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/zurustar/nsbi/pkg/script"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeSurface records textures and serves solid images of a fixed size.
type fakeSurface struct {
	width, height int
	images        map[string]image.Rectangle
	textures      []*Texture
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{width: 800, height: 600, images: make(map[string]image.Rectangle)}
}

func (s *fakeSurface) Size() (int, int) { return s.width, s.height }

func (s *fakeSurface) LoadImage(name string) (image.Image, error) {
	r, ok := s.images[name]
	if !ok {
		return nil, ErrUnavailable
	}
	return image.NewRGBA(r), nil
}

func (s *fakeSurface) Add(t *Texture) { s.textures = append(s.textures, t) }

func (s *fakeSurface) Remove(t *Texture) {
	for i, x := range s.textures {
		if x == t {
			s.textures = append(s.textures[:i], s.textures[i+1:]...)
			return
		}
	}
}

// fakePlayable plays for a fixed duration of the shared clock.
type fakePlayable struct {
	clock    *fakeClock
	length   time.Duration
	started  time.Time
	playing  bool
	volume   float64
	loop     bool
	closed   bool
	position time.Duration
}

func (p *fakePlayable) Play() {
	p.playing, p.started = true, p.clock.Now()
}

func (p *fakePlayable) Stop()   { p.playing = false }
func (p *fakePlayable) Pause()  { p.position, p.playing = p.Position(), false }
func (p *fakePlayable) Resume() { p.playing, p.started = true, p.clock.Now().Add(-p.position) }

func (p *fakePlayable) SetVolume(v float64) { p.volume = v }
func (p *fakePlayable) SetLoop(loop bool)   { p.loop = loop }

func (p *fakePlayable) IsPlaying() bool {
	return p.playing && (p.loop || p.clock.Now().Sub(p.started) < p.length)
}

func (p *fakePlayable) Position() time.Duration {
	if !p.playing {
		return p.position
	}
	if d := p.clock.Now().Sub(p.started); d < p.length {
		return d
	}
	return p.length
}

func (p *fakePlayable) Duration() time.Duration { return p.length }
func (p *fakePlayable) Close() error            { p.closed = true; return nil }

type fakeMedia struct {
	clock   *fakeClock
	length  time.Duration
	opened  map[string]*fakePlayable
	missing map[string]bool
}

func (m *fakeMedia) Open(name string, _ int32) (Playable, error) {
	if m.missing[name] {
		return nil, ErrUnavailable
	}
	p := &fakePlayable{clock: m.clock, length: m.length}
	if m.opened == nil {
		m.opened = make(map[string]*fakePlayable)
	}
	m.opened[name] = p
	return p, nil
}

// memoryStore keeps save slots in memory.
type memoryStore map[int]*SaveData

func (s memoryStore) Save(slot int, data *SaveData) error {
	s[slot] = data
	return nil
}

func (s memoryStore) Load(slot int) (*SaveData, error) {
	d, ok := s[slot]
	if !ok {
		return nil, ErrUnavailable
	}
	return d, nil
}

type testEnv struct {
	in      *Interpreter
	clock   *fakeClock
	surface *fakeSurface
	media   *fakeMedia
	store   memoryStore
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv creates an interpreter with fake collaborators and starts src
// at its first line on the main thread.
func newTestEnv(t *testing.T, src string, extra ...*script.Script) *testEnv {
	t.Helper()
	clock := newFakeClock()
	env := &testEnv{
		clock:   clock,
		surface: newFakeSurface(),
		media:   &fakeMedia{clock: clock, length: time.Second},
		store:   memoryStore{},
	}
	env.in = New(
		WithClock(clock),
		WithSurface(env.surface),
		WithMedia(env.media),
		WithSaveStore(env.store),
		WithLogger(quietLogger()),
	)
	for _, s := range extra {
		env.in.Loader().Add(s)
	}
	s, err := script.AssembleString("main", src)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if err := env.in.StartScript(s, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return env
}

// runFor ticks the interpreter while advancing the clock in steps.
func (e *testEnv) runFor(total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed <= total; elapsed += step {
		e.in.Run(1)
		e.clock.Advance(step)
	}
}

func (e *testEnv) variable(t *testing.T, name string) *Value {
	t.Helper()
	v, ok := e.in.Variable(name)
	if !ok {
		t.Fatalf("variable %s not set", name)
	}
	return v
}
