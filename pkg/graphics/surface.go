package graphics

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/zurustar/nsbi/pkg/fileutil"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/vm"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Default screen size.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Surface draws textures with Ebitengine. Add and Remove only queue the
// change; Flush applies it on the render thread.
type Surface struct {
	width, height int
	images        *ImageCache
	list          *DrawList
	queue         *CallbackQueue
	gpu           map[image.Image]*ebiten.Image

	face       text.Face
	lineHeight float64
	textColor  color.Color
	background color.Color

	fontPath string
	fontSize float64

	log *slog.Logger
}

// Option configures a Surface.
type Option func(*Surface)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Surface) {
		s.log = log
	}
}

// WithSize sets the screen size textures are positioned against.
func WithSize(width, height int) Option {
	return func(s *Surface) {
		s.width = width
		s.height = height
	}
}

// WithFont loads a TrueType or OpenType font for text boxes. The built-in
// bitmap font is used when it cannot be loaded.
func WithFont(path string, size float64) Option {
	return func(s *Surface) {
		s.fontPath = path
		s.fontSize = size
	}
}

// WithTextColor sets the colour text boxes are drawn in.
func WithTextColor(c color.Color) Option {
	return func(s *Surface) {
		s.textColor = c
	}
}

// WithBackground sets the colour the screen is cleared to.
func WithBackground(c color.Color) Option {
	return func(s *Surface) {
		s.background = c
	}
}

// NewSurface creates a Surface loading images through fsys.
func NewSurface(fsys fileutil.FileSystem, opts ...Option) *Surface {
	s := &Surface{
		width:      DefaultWidth,
		height:     DefaultHeight,
		list:       NewDrawList(),
		queue:      NewCallbackQueue(),
		gpu:        make(map[image.Image]*ebiten.Image),
		textColor:  color.White,
		background: color.Black,
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.images = NewImageCache(fsys, s.log)

	var face font.Face = basicfont.Face7x13
	if s.fontPath != "" {
		f, err := loadFontFile(s.fontPath, s.fontSize)
		if err != nil {
			s.log.Warn("Font not loaded, using built-in font", "path", s.fontPath, "error", err)
		} else {
			face = f
		}
	}
	s.face = text.NewGoXFace(face)
	m := s.face.Metrics()
	s.lineHeight = m.HAscent + m.HDescent + m.HLineGap
	return s
}

// loadFontFile parses a single font or the first font of a collection.
func loadFontFile(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		collection, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		if f, err = collection.Font(0); err != nil {
			return nil, fmt.Errorf("failed to get font from collection: %w", err)
		}
	}
	if size <= 0 {
		size = 16
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// Size implements vm.Surface.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// LoadImage implements vm.Surface.
func (s *Surface) LoadImage(name string) (image.Image, error) {
	return s.images.Load(name)
}

// Add implements vm.Surface.
func (s *Surface) Add(t *vm.Texture) {
	s.queue.Push(func() { s.list.Add(t) })
}

// Remove implements vm.Surface.
func (s *Surface) Remove(t *vm.Texture) {
	s.queue.Push(func() { s.list.Remove(t) })
}

// Flush applies queued changes. It must be called from the render thread.
func (s *Surface) Flush() {
	if n := s.queue.Drain(); n > 0 {
		s.log.Debug("Surface flushed", "callbacks", n, "textures", s.list.Len())
	}
}

// DrawList returns the textures currently on screen.
func (s *Surface) DrawList() *DrawList { return s.list }

// Draw renders every texture onto screen.
func (s *Surface) Draw(screen *ebiten.Image) {
	screen.Fill(s.background)
	for _, t := range s.list.Items() {
		opacity := t.Opacity()
		if opacity <= 0 {
			continue
		}
		x, y := t.Position()
		w, h := t.Size()
		switch t.Kind() {
		case vm.TextureImage:
			img := t.Image()
			if img == nil {
				continue
			}
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(float64(x), float64(y))
			op.ColorScale.ScaleAlpha(float32(opacity))
			screen.DrawImage(s.gpuImage(img), op)
		case vm.TextureColor:
			vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), fade(t.Fill(), opacity), false)
		case vm.TextureText:
			op := &text.DrawOptions{}
			op.GeoM.Translate(float64(x), float64(y))
			op.ColorScale.ScaleWithColor(s.textColor)
			op.ColorScale.ScaleAlpha(float32(opacity))
			op.LineSpacing = s.lineHeight
			text.Draw(screen, wrap(t.Text(), float64(w), func(str string) float64 {
				return text.Advance(str, s.face)
			}), s.face, op)
		}
	}
}

func (s *Surface) gpuImage(img image.Image) *ebiten.Image {
	if e, ok := img.(*ebiten.Image); ok {
		return e
	}
	e, ok := s.gpu[img]
	if !ok {
		e = ebiten.NewImageFromImage(img)
		s.gpu[img] = e
	}
	return e
}

// fade scales a colour's alpha by opacity.
func fade(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	scale := func(v uint8) uint8 { return uint8(float64(v) * opacity) }
	return color.RGBA{scale(c.R), scale(c.G), scale(c.B), scale(c.A)}
}

// wrap breaks s into lines no wider than width. A width of zero or less
// disables wrapping.
func wrap(s string, width float64, advance func(string) float64) string {
	if width <= 0 {
		return s
	}
	var b strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		var cur []rune
		for _, r := range line {
			next := append(cur, r)
			if len(cur) > 0 && advance(string(next)) > width {
				b.WriteString(string(cur))
				b.WriteByte('\n')
				cur = []rune{r}
				continue
			}
			cur = next
		}
		b.WriteString(string(cur))
	}
	return b.String()
}
