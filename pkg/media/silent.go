package media

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/nsbi/pkg/fileutil"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/vm"
)

// Silent is a vm.Media that decodes files only to learn their length and
// then plays them against a clock without producing sound. Headless runs
// use it so that scripts waiting on sounds still make progress.
type Silent struct {
	fsys  fileutil.FileSystem
	clock vm.Clock
	log   *slog.Logger
}

// NewSilent creates a Silent media reading files from fsys.
func NewSilent(fsys fileutil.FileSystem, clock vm.Clock) *Silent {
	return &Silent{fsys: fsys, clock: clock, log: logger.GetLogger()}
}

// Open implements vm.Media.
func (m *Silent) Open(name string, kind int32) (vm.Playable, error) {
	data, err := m.fsys.ReadFile(name)
	if err != nil {
		return nil, err
	}
	length, err := Probe(name, data)
	if err != nil {
		return nil, err
	}
	m.log.Debug("Silent sound opened", "file", name, "kind", kind, "duration", length)
	return &silentTrack{clock: m.clock, length: length, volume: 1}, nil
}

// silentTrack measures playback with the clock.
type silentTrack struct {
	clock   vm.Clock
	length  time.Duration
	started time.Time
	offset  time.Duration
	volume  float64
	loop    bool
	playing bool
	mu      sync.Mutex
}

func (t *silentTrack) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started, t.offset, t.playing = t.clock.Now(), 0, true
}

func (t *silentTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offset, t.playing = 0, false
}

func (t *silentTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		t.offset, t.playing = t.position(), false
	}
}

func (t *silentTrack) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		t.started, t.playing = t.clock.Now(), true
	}
}

func (t *silentTrack) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = v
}

func (t *silentTrack) SetLoop(loop bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loop = loop
}

func (t *silentTrack) elapsed() time.Duration {
	if !t.playing {
		return t.offset
	}
	return t.offset + t.clock.Now().Sub(t.started)
}

func (t *silentTrack) position() time.Duration {
	e := t.elapsed()
	if t.loop && t.length > 0 {
		return e % t.length
	}
	if e > t.length {
		return t.length
	}
	return e
}

func (t *silentTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing && (t.loop || t.elapsed() < t.length)
}

func (t *silentTrack) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position()
}

func (t *silentTrack) Duration() time.Duration { return t.length }

func (t *silentTrack) Close() error { return nil }

func (t *silentTrack) String() string {
	return fmt.Sprintf("silent(%v)", t.length)
}
