// Package media opens the sound files scripts create with CreateSound.
// WAV files are decoded by Ebitengine's audio/wav package and MIDI files
// are synthesised with go-meltysynth against a SoundFont. Both play
// through a shared Ebitengine audio context.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/nsbi/pkg/fileutil"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/vm"
)

// SampleRate is the output sample rate of every stream.
const SampleRate = 44100

// bytesPerSecond of 16-bit stereo PCM at SampleRate.
const bytesPerSecond = SampleRate * 4

var (
	// ErrUnsupported is returned for files that are neither WAV nor MIDI.
	ErrUnsupported = errors.New("unsupported media format")

	// ErrNoSoundFont is returned when a MIDI file is opened without a SoundFont.
	ErrNoSoundFont = errors.New("SoundFont file is required for MIDI playback")

	// ErrInvalidFormat is returned when a file cannot be decoded.
	ErrInvalidFormat = errors.New("invalid media file")
)

// Format identifies how a file is decoded.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMIDI
)

// FormatOf guesses the format of a file from its extension.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		return FormatWAV
	case ".mid", ".midi", ".smf":
		return FormatMIDI
	}
	return FormatUnknown
}

// Probe returns the playing time of a WAV or MIDI file.
func Probe(name string, data []byte) (time.Duration, error) {
	switch FormatOf(name) {
	case FormatWAV:
		s, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, name, err)
		}
		return pcmDuration(s.Length()), nil
	case FormatMIDI:
		midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, name, err)
		}
		return midi.GetLength(), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, name)
}

func pcmDuration(n int64) time.Duration {
	return time.Duration(n) * time.Second / bytesPerSecond
}

// System plays sounds through an Ebitengine audio context. It implements
// vm.Media.
type System struct {
	fsys          fileutil.FileSystem
	ctx           *audio.Context
	soundFontPath string
	soundFont     *meltysynth.SoundFont
	soundFontErr  error
	soundFontOnce sync.Once

	muted  bool
	tracks []*track
	mu     sync.Mutex

	log *slog.Logger
}

// Option is a functional option for configuring the System.
type Option func(*System)

// WithSoundFont sets the SoundFont used for MIDI synthesis. It is loaded
// on the first MIDI file.
func WithSoundFont(path string) Option {
	return func(s *System) {
		s.soundFontPath = path
	}
}

// WithMuted starts the system muted.
func WithMuted(muted bool) Option {
	return func(s *System) {
		s.muted = muted
	}
}

// WithContext shares an existing audio context.
func WithContext(ctx *audio.Context) Option {
	return func(s *System) {
		s.ctx = ctx
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *System) {
		s.log = log
	}
}

// NewSystem creates a System reading files from fsys. Ebitengine allows
// one audio context per process, so an existing one is reused.
func NewSystem(fsys fileutil.FileSystem, opts ...Option) *System {
	s := &System{
		fsys: fsys,
		log:  logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ctx == nil {
		s.ctx = audio.CurrentContext()
	}
	if s.ctx == nil {
		s.ctx = audio.NewContext(SampleRate)
	}
	return s
}

// Open implements vm.Media.
func (s *System) Open(name string, kind int32) (vm.Playable, error) {
	data, err := s.fsys.ReadFile(name)
	if err != nil {
		return nil, err
	}

	var t *track
	switch FormatOf(name) {
	case FormatWAV:
		t, err = s.openWAV(name, data)
	case FormatMIDI:
		t, err = s.openMIDI(name, data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	t.muted = s.muted
	t.applyVolume()
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()

	s.log.Debug("Sound opened", "file", name, "kind", kind, "duration", t.length)
	return t, nil
}

func (s *System) openWAV(name string, data []byte) (*track, error) {
	stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, name, err)
	}
	player, err := s.ctx.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	return &track{owner: s, name: name, player: player, length: pcmDuration(stream.Length()), volume: 1}, nil
}

func (s *System) openMIDI(name string, data []byte) (*track, error) {
	sf, err := s.loadSoundFont()
	if err != nil {
		return nil, err
	}
	midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, name, err)
	}
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	seq := meltysynth.NewMidiFileSequencer(synth)
	stream := &midiStream{sequencer: seq, stopped: true}
	player, err := s.ctx.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	return &track{
		owner:  s,
		name:   name,
		player: player,
		length: midi.GetLength(),
		volume: 1,
		midi:   midi,
		seq:    seq,
		stream: stream,
	}, nil
}

func (s *System) loadSoundFont() (*meltysynth.SoundFont, error) {
	s.soundFontOnce.Do(func() {
		if s.soundFontPath == "" {
			s.soundFontErr = ErrNoSoundFont
			return
		}
		s.soundFont, s.soundFontErr = LoadSoundFont(s.fsys, s.soundFontPath)
		if s.soundFontErr == nil {
			s.log.Info("SoundFont loaded", "path", s.soundFontPath)
		}
	})
	return s.soundFont, s.soundFontErr
}

// SetMuted silences every current and future track.
func (s *System) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	for _, t := range s.tracks {
		t.setMuted(muted)
	}
}

// IsMuted reports whether the system is muted.
func (s *System) IsMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Close releases every open track.
func (s *System) Close() {
	s.mu.Lock()
	tracks := s.tracks
	s.tracks = nil
	s.mu.Unlock()
	for _, t := range tracks {
		t.release()
	}
}

func (s *System) forget(t *track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.tracks {
		if x == t {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			return
		}
	}
}
