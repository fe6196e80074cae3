package media

import (
	"encoding/binary"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// midiStream renders 16-bit stereo samples from a MIDI sequencer for
// Ebitengine's audio player. A stopped stream renders silence.
type midiStream struct {
	sequencer *meltysynth.MidiFileSequencer
	stopped   bool
	left      []float32
	right     []float32
	mu        sync.Mutex
}

func (s *midiStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}
	if s.stopped || s.sequencer == nil {
		clear(p[:samples*4])
		return samples * 4, nil
	}

	if cap(s.left) < samples {
		s.left = make([]float32, samples)
		s.right = make([]float32, samples)
	}
	left, right := s.left[:samples], s.right[:samples]
	s.sequencer.Render(left, right)

	for i := range samples {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return samples * 4, nil
}

// Start resumes rendering.
func (s *midiStream) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = false
}

// Stop makes Read return silence.
func (s *midiStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
