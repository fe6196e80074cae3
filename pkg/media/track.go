package media

import (
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// track is one opened sound. MIDI tracks keep rendering silence after the
// sequence ends, so their position is measured from the last restart.
type track struct {
	owner  *System
	name   string
	player *audio.Player
	length time.Duration
	base   time.Duration

	midi   *meltysynth.MidiFile
	seq    *meltysynth.MidiFileSequencer
	stream *midiStream

	volume  float64
	muted   bool
	loop    bool
	playing bool

	mu sync.Mutex
}

func (t *track) restart() {
	if t.seq == nil {
		_ = t.player.Rewind()
		return
	}
	t.base = t.player.Position()
	t.seq.Play(t.midi, false)
	t.stream.Start()
}

func (t *track) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restart()
	t.player.Play()
	t.playing = true
}

func (t *track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player.Pause()
	if t.stream != nil {
		t.stream.Stop()
	}
	t.playing = false
}

func (t *track) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player.Pause()
	t.playing = false
}

func (t *track) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player.Play()
	t.playing = true
}

func (t *track) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = v
	t.applyVolume()
}

func (t *track) setMuted(muted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.muted = muted
	t.applyVolume()
}

func (t *track) applyVolume() {
	if t.muted {
		t.player.SetVolume(0)
		return
	}
	t.player.SetVolume(t.volume)
}

func (t *track) SetLoop(loop bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loop = loop
}

// IsPlaying also restarts a looping track that reached its end.
func (t *track) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return false
	}
	if t.position() < t.length && (t.seq != nil || t.player.IsPlaying()) {
		return true
	}
	if t.loop {
		t.restart()
		t.player.Play()
		return true
	}
	t.player.Pause()
	t.playing = false
	return false
}

func (t *track) position() time.Duration {
	p := t.player.Position() - t.base
	if p > t.length {
		return t.length
	}
	return p
}

func (t *track) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position()
}

func (t *track) Duration() time.Duration {
	return t.length
}

func (t *track) Close() error {
	t.owner.forget(t)
	t.release()
	return nil
}

func (t *track) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream != nil {
		t.stream.Stop()
	}
	t.player.Pause()
	_ = t.player.Close()
	t.playing = false
}
