package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/zurustar/nsbi/pkg/fileutil"
)

var (
	sharedContext     *audio.Context
	sharedContextOnce sync.Once
)

// getSharedAudioContext returns the process-wide audio context.
func getSharedAudioContext() *audio.Context {
	sharedContextOnce.Do(func() {
		sharedContext = audio.CurrentContext()
		if sharedContext == nil {
			sharedContext = audio.NewContext(SampleRate)
		}
	})
	return sharedContext
}

// makeWAV builds a 16-bit stereo PCM file of the given length.
func makeWAV(d time.Duration) []byte {
	n := int(d * bytesPerSecond / time.Second)
	var b bytes.Buffer
	w := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	b.WriteString("RIFF")
	w(uint32(36 + n))
	b.WriteString("WAVEfmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(2))
	w(uint32(SampleRate))
	w(uint32(bytesPerSecond))
	w(uint16(4))
	w(uint16(16))
	b.WriteString("data")
	w(uint32(n))
	b.Write(make([]byte, n))
	return b.Bytes()
}

// oneSecondMIDI is a format 0 file holding one note lasting 960 ticks at
// 480 ticks per quarter and 120 BPM.
var oneSecondMIDI = []byte{
	'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0x01, 0xE0,
	'M', 'T', 'r', 'k', 0, 0, 0, 19,
	0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20,
	0x00, 0x90, 0x3C, 0x40,
	0x87, 0x40, 0x80, 0x3C, 0x40,
	0x00, 0xFF, 0x2F, 0x00,
}

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

func testFS(t *testing.T) fileutil.FileSystem {
	t.Helper()
	p, err := fileutil.NewFSProvider(fstest.MapFS{
		"SE/Click.wav":  {Data: makeWAV(500 * time.Millisecond)},
		"bgm/theme.mid": {Data: oneSecondMIDI},
		"bad.wav":       {Data: []byte("not a valid wav file")},
		"movie.avi":     {Data: []byte{0}},
	}, ".")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"a.wav", FormatWAV},
		{"A.WAV", FormatWAV},
		{"bgm/theme.mid", FormatMIDI},
		{"x.MIDI", FormatMIDI},
		{"movie.avi", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, tt := range tests {
		if got := FormatOf(tt.name); got != tt.want {
			t.Errorf("FormatOf(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestProbe(t *testing.T) {
	t.Run("WAV の長さ", func(t *testing.T) {
		d, err := Probe("x.wav", makeWAV(500*time.Millisecond))
		if err != nil {
			t.Fatal(err)
		}
		if d != 500*time.Millisecond {
			t.Errorf("duration = %v", d)
		}
	})

	t.Run("MIDI の長さ", func(t *testing.T) {
		d, err := Probe("x.mid", oneSecondMIDI)
		if err != nil {
			t.Fatal(err)
		}
		if diff := d - time.Second; diff < -10*time.Millisecond || diff > 10*time.Millisecond {
			t.Errorf("duration = %v, want about 1s", d)
		}
	})

	t.Run("壊れたファイル", func(t *testing.T) {
		if _, err := Probe("x.wav", []byte("junk")); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("expected ErrInvalidFormat, got %v", err)
		}
		if _, err := Probe("x.mid", []byte("junk")); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("expected ErrInvalidFormat, got %v", err)
		}
	})

	t.Run("未対応の形式", func(t *testing.T) {
		if _, err := Probe("x.avi", nil); !errors.Is(err, ErrUnsupported) {
			t.Errorf("expected ErrUnsupported, got %v", err)
		}
	})
}

func TestSilent(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	m := NewSilent(testFS(t), clock)

	p, err := m.Open("se/click.wav", 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if p.Duration() != 500*time.Millisecond {
		t.Errorf("Duration = %v", p.Duration())
	}
	if p.IsPlaying() {
		t.Error("must not play before Play")
	}

	p.Play()
	clock.now = clock.now.Add(200 * time.Millisecond)
	if !p.IsPlaying() || p.Position() != 200*time.Millisecond {
		t.Errorf("playing=%v position=%v", p.IsPlaying(), p.Position())
	}

	p.Pause()
	clock.now = clock.now.Add(time.Second)
	if p.IsPlaying() || p.Position() != 200*time.Millisecond {
		t.Errorf("paused track moved: playing=%v position=%v", p.IsPlaying(), p.Position())
	}

	p.Resume()
	clock.now = clock.now.Add(300 * time.Millisecond)
	if p.IsPlaying() {
		t.Error("track should have finished")
	}
	if p.Position() != p.Duration() {
		t.Errorf("position = %v at end", p.Position())
	}

	p.SetLoop(true)
	p.Play()
	clock.now = clock.now.Add(700 * time.Millisecond)
	if !p.IsPlaying() {
		t.Error("looping track must keep playing")
	}
	if p.Position() != 200*time.Millisecond {
		t.Errorf("looped position = %v", p.Position())
	}

	p.Stop()
	if p.IsPlaying() || p.Position() != 0 {
		t.Errorf("Stop left playing=%v position=%v", p.IsPlaying(), p.Position())
	}
}

func TestSilentErrors(t *testing.T) {
	m := NewSilent(testFS(t), &manualClock{})
	tests := []struct {
		name string
		want error
	}{
		{"bad.wav", ErrInvalidFormat},
		{"movie.avi", ErrUnsupported},
	}
	for _, tt := range tests {
		if _, err := m.Open(tt.name, 0); !errors.Is(err, tt.want) {
			t.Errorf("Open(%q) = %v, want %v", tt.name, err, tt.want)
		}
	}
	if _, err := m.Open("missing.wav", 0); err == nil {
		t.Error("missing file must fail")
	}
}

func TestSystemMuted(t *testing.T) {
	s := NewSystem(testFS(t), WithContext(getSharedAudioContext()), WithMuted(true))
	if !s.IsMuted() {
		t.Fatal("system should start muted")
	}
	s.SetMuted(false)
	if s.IsMuted() {
		t.Error("system should not be muted after SetMuted(false)")
	}
}

func TestSystemOpenWAV(t *testing.T) {
	s := NewSystem(testFS(t), WithContext(getSharedAudioContext()))
	defer s.Close()

	p, err := s.Open("se/click.wav", 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if p.Duration() != 500*time.Millisecond {
		t.Errorf("Duration = %v", p.Duration())
	}
	p.SetVolume(0.5)
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if len(s.tracks) != 0 {
		t.Errorf("closed track still tracked: %d", len(s.tracks))
	}
}

func TestSystemMIDIWithoutSoundFont(t *testing.T) {
	s := NewSystem(testFS(t), WithContext(getSharedAudioContext()))
	if _, err := s.Open("bgm/theme.mid", 0); !errors.Is(err, ErrNoSoundFont) {
		t.Errorf("expected ErrNoSoundFont, got %v", err)
	}
}

func TestSystemMissingSoundFont(t *testing.T) {
	s := NewSystem(testFS(t), WithContext(getSharedAudioContext()), WithSoundFont("nonexistent.sf2"))
	if _, err := s.Open("bgm/theme.mid", 0); !errors.Is(err, ErrSoundFontNotFound) {
		t.Errorf("expected ErrSoundFontNotFound, got %v", err)
	}
}

func TestMIDIStream(t *testing.T) {
	s := &midiStream{stopped: true}
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	n, err := s.Read(buf)
	if err != nil || n != 8 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i, b := range buf[:8] {
		if b != 0 {
			t.Fatalf("byte %d = %d, stopped stream must be silent", i, b)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ v, want float32 }{
		{-2, -1}, {2, 1}, {0.25, 0.25},
	}
	for _, tt := range tests {
		if got := clamp(tt.v, -1, 1); got != tt.want {
			t.Errorf("clamp(%v) = %v", tt.v, got)
		}
	}
}
