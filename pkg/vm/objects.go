package vm

import (
	"image"
	"image/color"
	"time"
)

// Requester is implemented by objects that accept Request instructions.
type Requester interface {
	Request(req int32)
}

// Timed is implemented by objects with a running time.
type Timed interface {
	Remaining(now time.Time) time.Duration
	Total() time.Duration
}

// updater is implemented by objects that animate with the clock.
type updater interface {
	update(now time.Time)
}

// TextureKind selects how a texture is drawn.
type TextureKind uint8

const (
	TextureImage TextureKind = iota
	TextureColor
	TextureText
)

// Texture is a drawable object: an image, a filled rectangle or a text box.
type Texture struct {
	handle   string
	kind     TextureKind
	priority int
	x, y     float64
	width    int
	height   int
	opacity  float64

	img  image.Image
	fill color.RGBA
	text *TextBox

	moveX, moveY, fade *Motion

	surface Surface
}

func newTexture(handle string, kind TextureKind, priority int, surface Surface) *Texture {
	return &Texture{
		handle:   handle,
		kind:     kind,
		priority: priority,
		opacity:  1,
		surface:  surface,
	}
}

// Handle returns the namespace handle the texture was created under.
func (t *Texture) Handle() string { return t.handle }

// Kind returns how the texture is drawn.
func (t *Texture) Kind() TextureKind { return t.kind }

// Priority orders textures; higher values are drawn on top.
func (t *Texture) Priority() int { return t.priority }

// Position returns the top-left corner in screen pixels.
func (t *Texture) Position() (x, y int) { return int(t.x), int(t.y) }

// Size returns the texture size in pixels.
func (t *Texture) Size() (width, height int) { return t.width, t.height }

// Opacity returns 0.0 (transparent) to 1.0 (opaque).
func (t *Texture) Opacity() float64 { return t.opacity }

// Image returns the decoded image of an image texture.
func (t *Texture) Image() image.Image { return t.img }

// Fill returns the colour of a colour texture.
func (t *Texture) Fill() color.RGBA { return t.fill }

// Text returns the currently revealed text of a text texture.
func (t *Texture) Text() string {
	if t.text == nil {
		return ""
	}
	return t.text.Visible()
}

// TextBox returns the text state of a text texture.
func (t *Texture) TextBox() *TextBox { return t.text }

// MoveTo starts moving the texture to (x, y).
func (t *Texture) MoveTo(now time.Time, d time.Duration, x, y float64, tempo int32) {
	t.moveX = NewMotion(t.x, x, now, d, tempo)
	t.moveY = NewMotion(t.y, y, now, d, tempo)
	t.update(now)
}

// FadeTo starts fading the texture to opacity.
func (t *Texture) FadeTo(now time.Time, d time.Duration, opacity float64, tempo int32) {
	t.fade = NewMotion(t.opacity, opacity, now, d, tempo)
	t.update(now)
}

func (t *Texture) update(now time.Time) {
	if t.moveX != nil {
		t.x, t.y = t.moveX.Value(now), t.moveY.Value(now)
		if t.moveX.Done(now) {
			t.moveX, t.moveY = nil, nil
		}
	}
	if t.fade != nil {
		t.opacity = t.fade.Value(now)
		if t.fade.Done(now) {
			t.fade = nil
		}
	}
	if t.text != nil {
		t.text.update(now)
	}
}

// Action reports whether every motion has finished.
func (t *Texture) Action() bool {
	return t.moveX == nil && t.fade == nil
}

// Remaining returns the time left on the longest running motion.
func (t *Texture) Remaining(now time.Time) time.Duration {
	var r time.Duration
	for _, m := range []*Motion{t.moveX, t.fade} {
		if m != nil && m.Remaining(now) > r {
			r = m.Remaining(now)
		}
	}
	return r
}

// Total returns the duration of the longest running motion.
func (t *Texture) Total() time.Duration {
	var d time.Duration
	for _, m := range []*Motion{t.moveX, t.fade} {
		if m != nil && m.Duration > d {
			d = m.Duration
		}
	}
	return d
}

// Request handles Stop by jumping every motion to its end.
func (t *Texture) Request(req int32) {
	if req != RequestStop {
		return
	}
	if t.moveX != nil {
		t.x, t.y = t.moveX.To, t.moveY.To
		t.moveX, t.moveY = nil, nil
	}
	if t.fade != nil {
		t.opacity = t.fade.To
		t.fade = nil
	}
}

// Delete removes the texture from the surface. Running motions end and the
// text counts as advanced so threads waiting on the texture resume.
func (t *Texture) Delete() {
	t.moveX, t.moveY, t.fade = nil, nil, nil
	if t.text != nil {
		t.text.release()
	}
	if t.surface != nil {
		t.surface.Remove(t)
		t.surface = nil
	}
}

// TextSpeed is the number of characters revealed per second.
const TextSpeed = 40

// TextBox reveals its text over time. A click reveals the rest at once; a
// click on fully revealed text advances it.
type TextBox struct {
	runes    []rune
	shown    int
	started  time.Time
	advanced bool
}

// SetText replaces the text and restarts the reveal.
func (b *TextBox) SetText(now time.Time, text string) {
	b.runes = []rune(text)
	b.shown = 0
	b.started = now
	b.advanced = false
}

func (b *TextBox) update(now time.Time) {
	n := int(now.Sub(b.started).Seconds() * TextSpeed)
	if n > len(b.runes) {
		n = len(b.runes)
	}
	if n > b.shown {
		b.shown = n
	}
}

// Visible returns the revealed part of the text.
func (b *TextBox) Visible() string {
	return string(b.runes[:b.shown])
}

// Complete reports whether the whole text is revealed.
func (b *TextBox) Complete() bool {
	return b.shown >= len(b.runes)
}

// Click reveals the rest of the text, or advances it once complete.
func (b *TextBox) Click() {
	if !b.Complete() {
		b.shown = len(b.runes)
		return
	}
	b.advanced = true
}

func (b *TextBox) release() {
	b.shown = len(b.runes)
	b.advanced = true
}

// Action reports whether the text has been advanced.
func (b *TextBox) Action() bool {
	return b.advanced
}

// Choice is an invisible clickable region.
type Choice struct {
	handle        string
	x, y          int
	width, height int
	selected      bool
}

// Contains reports whether (x, y) is inside the region.
func (c *Choice) Contains(x, y int) bool {
	return x >= c.x && x < c.x+c.width && y >= c.y && y < c.y+c.height
}

// Click marks the choice selected when (x, y) hits it.
func (c *Choice) Click(x, y int) bool {
	if c.Contains(x, y) {
		c.selected = true
	}
	return c.selected
}

// TakeSelected reports and clears the selected flag.
func (c *Choice) TakeSelected() bool {
	s := c.selected
	c.selected = false
	return s
}

// Delete implements Object.
func (c *Choice) Delete() {}

// Sound wraps a Playable opened through Media.
type Sound struct {
	handle  string
	kind    int32
	player  Playable
	volume  float64 // 0 - 1000
	fade    *Motion
	started bool
	paused  bool
	closed  bool
}

func newSound(handle string, kind int32, player Playable) *Sound {
	s := &Sound{handle: handle, kind: kind, player: player, volume: 1000}
	player.SetVolume(1)
	return s
}

// Request plays, stops, pauses or resumes the sound.
func (s *Sound) Request(req int32) {
	switch req {
	case RequestPlay, RequestStart:
		s.player.Play()
		s.started, s.paused = true, false
	case RequestStop:
		s.player.Stop()
		s.paused = false
	case RequestPause:
		s.player.Pause()
		s.paused = true
	case RequestResume:
		s.player.Resume()
		s.paused = false
	}
}

// SetVolume starts a volume change to volume (0 - 1000).
func (s *Sound) SetVolume(now time.Time, d time.Duration, volume float64, tempo int32) {
	s.fade = NewMotion(s.volume, volume, now, d, tempo)
	s.update(now)
}

// SetLoop enables or disables looping.
func (s *Sound) SetLoop(loop bool) {
	s.player.SetLoop(loop)
}

func (s *Sound) update(now time.Time) {
	if s.fade == nil {
		return
	}
	s.volume = s.fade.Value(now)
	s.player.SetVolume(s.volume / 1000)
	if s.fade.Done(now) {
		s.fade = nil
	}
}

// Action reports whether playback has finished. A deleted sound is always
// finished.
func (s *Sound) Action() bool {
	return s.closed || s.started && !s.paused && !s.player.IsPlaying()
}

// Remaining returns the time left until the end of the stream.
func (s *Sound) Remaining(time.Time) time.Duration {
	if r := s.player.Duration() - s.player.Position(); r > 0 {
		return r
	}
	return 0
}

// Total returns the stream duration.
func (s *Sound) Total() time.Duration {
	return s.player.Duration()
}

// Delete stops playback and releases the stream.
func (s *Sound) Delete() {
	if s.closed {
		return
	}
	s.closed = true
	s.player.Stop()
	_ = s.player.Close()
}

// waitAll is satisfied once every member is.
type waitAll []Actionable

func (w waitAll) Action() bool {
	for _, a := range w {
		if !a.Action() {
			return false
		}
	}
	return true
}
