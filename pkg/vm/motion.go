package vm

import "time"

// Motion interpolates one scalar from a start to an end value over time.
type Motion struct {
	From, To float64
	Start    time.Time
	Duration time.Duration
	Tempo    int32
}

// NewMotion creates a motion starting at now. A non-positive duration
// completes immediately.
func NewMotion(from, to float64, now time.Time, d time.Duration, tempo int32) *Motion {
	return &Motion{From: from, To: to, Start: now, Duration: d, Tempo: tempo}
}

// progress returns the eased completion ratio in [0, 1].
func (m *Motion) progress(now time.Time) float64 {
	if m.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(m.Start)) / float64(m.Duration)
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	}
	return Ease(m.Tempo, p)
}

// Value returns the interpolated value at now.
func (m *Motion) Value(now time.Time) float64 {
	return m.From + (m.To-m.From)*m.progress(now)
}

// Done reports whether the motion has reached its end.
func (m *Motion) Done(now time.Time) bool {
	return m.Duration <= 0 || now.Sub(m.Start) >= m.Duration
}

// Remaining returns the time left until the motion ends.
func (m *Motion) Remaining(now time.Time) time.Duration {
	if r := m.Duration - now.Sub(m.Start); r > 0 {
		return r
	}
	return 0
}

// Ease maps a linear ratio p in [0, 1] through the curve for tempo.
// Axl accelerates, Dxl decelerates and AxlDxl does both.
func Ease(tempo int32, p float64) float64 {
	switch tempo {
	case TempoAxl:
		return p * p
	case TempoDxl:
		return 1 - (1-p)*(1-p)
	case TempoAxlDxl:
		return p * p * (3 - 2*p)
	}
	return p
}
