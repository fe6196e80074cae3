package graphics

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/zurustar/nsbi/pkg/fileutil"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/script"
	"github.com/zurustar/nsbi/pkg/vm"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := png.Encode(&b, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func encodeBMP(t *testing.T, w, h int) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := bmp.Encode(&b, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

// encodeRLE8 builds a 4x2 bottom-up RLE8 bitmap with a two-entry palette:
// the bottom row is red, the top row is red, blue, blue, red.
func encodeRLE8() []byte {
	pixels := []byte{
		4, 0, // bottom row: 4 x red
		0, 0, // end of line
		1, 0, // red
		0, 3, 1, 1, 0, 0, // absolute: blue blue red, padded
		0, 1, // end of bitmap
	}
	var b bytes.Buffer
	w := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	offset := uint32(bmpHeaderSize + 2*4)
	b.WriteString("BM")
	w(offset + uint32(len(pixels)))
	w(uint32(0))
	w(offset)
	w(uint32(40))
	w(int32(4))
	w(int32(2))
	w(uint16(1))
	w(uint16(8))
	w(uint32(biRLE8))
	w(uint32(len(pixels)))
	w([2]int32{})
	w(uint32(2))
	w(uint32(0))
	b.Write([]byte{0, 0, 255, 0}) // red (BGRA)
	b.Write([]byte{255, 0, 0, 0}) // blue
	b.Write(pixels)
	return b.Bytes()
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		w, h int
	}{
		{"PNG", encodePNG(t, 3, 2), 3, 2},
		{"非圧縮 BMP", encodeBMP(t, 5, 4), 5, 4},
		{"RLE8 BMP", encodeRLE8(), 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeImage("x", tt.data)
			if err != nil {
				t.Fatalf("DecodeImage failed: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
		})
	}

	t.Run("未対応の形式", func(t *testing.T) {
		if _, err := DecodeImage("x.txt", []byte("hello")); !errors.Is(err, ErrUnsupportedImage) {
			t.Errorf("expected ErrUnsupportedImage, got %v", err)
		}
	})
}

func TestDecodeRLE8Pixels(t *testing.T) {
	img, err := DecodeRLE(bytes.NewReader(encodeRLE8()))
	if err != nil {
		t.Fatal(err)
	}
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	want := [2][4]color.RGBA{
		{red, blue, blue, red},
		{red, red, red, red},
	}
	for y := range 2 {
		for x := range 4 {
			if got := color.RGBAModel.Convert(img.At(x, y)); got != want[y][x] {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want[y][x])
			}
		}
	}
}

func TestDecodeRLEErrors(t *testing.T) {
	data := encodeRLE8()
	data[30] = 0 // uncompressed
	if _, err := DecodeRLE(bytes.NewReader(data)); !errors.Is(err, ErrBadBitmap) {
		t.Errorf("expected ErrBadBitmap, got %v", err)
	}
	if _, err := DecodeRLE(bytes.NewReader([]byte("BM"))); !errors.Is(err, ErrBadBitmap) {
		t.Errorf("expected ErrBadBitmap for truncated header, got %v", err)
	}
}

func TestCallbackQueue(t *testing.T) {
	q := NewCallbackQueue()
	var order []int
	q.Push(func() { order = append(order, 1) })
	q.Push(func() {
		order = append(order, 2)
		q.Push(func() { order = append(order, 3) })
	})
	if q.Len() != 2 {
		t.Fatalf("Len = %d", q.Len())
	}
	if n := q.Drain(); n != 2 {
		t.Errorf("Drain ran %d", n)
	}
	if len(order) != 2 || q.Len() != 1 {
		t.Errorf("order = %v, pending = %d", order, q.Len())
	}
	q.Drain()
	if len(order) != 3 || order[2] != 3 {
		t.Errorf("order = %v", order)
	}
}

func TestWrap(t *testing.T) {
	advance := func(s string) float64 { return float64(len([]rune(s))) }
	tests := []struct {
		name  string
		in    string
		width float64
		want  string
	}{
		{"折り返しなし", "hello", 0, "hello"},
		{"幅で折り返す", "abcdef", 4, "abcd\nef"},
		{"改行を保つ", "ab\ncdef", 3, "ab\ncde\nf"},
		{"日本語", "あいうえお", 2, "あい\nうえ\nお"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrap(tt.in, tt.width, advance); got != tt.want {
				t.Errorf("wrap = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFade(t *testing.T) {
	c := color.RGBA{200, 100, 50, 255}
	if got := fade(c, 1); got != c {
		t.Errorf("fade(1) = %v", got)
	}
	if got := fade(c, 0.5); got != (color.RGBA{100, 50, 25, 127}) {
		t.Errorf("fade(0.5) = %v", got)
	}
}

func testProvider(t *testing.T) fileutil.FileSystem {
	t.Helper()
	p, err := fileutil.NewFSProvider(fstest.MapFS{
		"cg/BG.png":   {Data: encodePNG(t, 200, 100)},
		"cg/face.bmp": {Data: encodeRLE8()},
		"broken.png":  {Data: []byte("junk")},
	}, ".")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestImageCache(t *testing.T) {
	c := NewImageCache(testProvider(t), logger.Discard())
	a, err := c.Load("cg/bg.png")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Load("\\CG\\BG.PNG")
	if err != nil {
		t.Fatal(err)
	}
	if a != b || c.Len() != 1 {
		t.Errorf("same file decoded twice (len %d)", c.Len())
	}
	if _, err := c.Load("broken.png"); err == nil {
		t.Error("broken image must fail")
	}
	if _, err := c.Load("missing.png"); err == nil {
		t.Error("missing image must fail")
	}
}

// runScript starts src on a fresh interpreter drawing to surface.
func runScript(t *testing.T, surface vm.Surface, src string) *vm.Interpreter {
	t.Helper()
	in := vm.New(vm.WithSurface(surface), vm.WithLogger(logger.Discard()))
	s, err := script.AssembleString("main", src)
	if err != nil {
		t.Fatal(err)
	}
	if err := in.StartScript(s, ""); err != nil {
		t.Fatal(err)
	}
	in.Run(10)
	return in
}

const layeredScript = `
	Literal STRING top
	Literal INT 20
	Literal INT 0
	Literal INT 0
	Literal INT 50
	Literal INT 50
	Literal INT 255
	CreateColor
	ClearParams
	Literal STRING bg
	Literal INT 0
	Literal STRING Center
	Literal STRING Middle
	Literal STRING cg/bg.png
	CreateTexture
	ClearParams
	Literal STRING mid
	Literal INT 20
	Literal INT 10
	Literal INT 10
	Literal INT 100
	Literal INT 100
	Literal STRING hello
	CreateText
	ClearParams
`

func handles(list *DrawList) string {
	var names []string
	for _, tex := range list.Items() {
		names = append(names, tex.Handle())
	}
	return strings.Join(names, ",")
}

func TestHeadless_DrawOrder(t *testing.T) {
	h := NewHeadless(testProvider(t), WithHeadlessLogger(logger.Discard()), WithRecordHistory(true))
	in := runScript(t, h, layeredScript)

	if got := handles(h.DrawList()); got != "bg,top,mid" {
		t.Errorf("draw order = %s", got)
	}
	if x, y := in.Objects().Lookup("bg").(*vm.Texture).Position(); x != 300 || y != 250 {
		t.Errorf("centred image at (%d, %d)", x, y)
	}
	if handle, ok := h.DrawList().TopAt(20, 20); !ok || handle != "mid" {
		t.Errorf("TopAt(20,20) = %s, %v", handle, ok)
	}
	if handle, ok := h.DrawList().TopAt(5, 5); !ok || handle != "top" {
		t.Errorf("TopAt(5,5) = %s, %v", handle, ok)
	}
	if _, ok := h.DrawList().TopAt(799, 599); ok {
		t.Error("empty corner must not hit")
	}

	ops := h.OperationHistory()
	if len(ops) != 4 || ops[1].Operation != "LoadImage" || ops[1].Args["width"] != 200 {
		t.Errorf("history = %+v", ops)
	}
	h.ClearOperationHistory()
	if len(h.OperationHistory()) != 0 {
		t.Error("history not cleared")
	}

	in.Objects().Remove("top")
	if got := handles(h.DrawList()); got != "bg,mid" {
		t.Errorf("after delete = %s", got)
	}
}

func TestSurface_QueuesUntilFlush(t *testing.T) {
	s := NewSurface(testProvider(t), WithLogger(logger.Discard()), WithSize(640, 480))
	if w, h := s.Size(); w != 640 || h != 480 {
		t.Errorf("Size = %dx%d", w, h)
	}
	in := runScript(t, s, layeredScript)
	if s.DrawList().Len() != 0 {
		t.Fatal("textures must wait for Flush")
	}
	s.Flush()
	if got := handles(s.DrawList()); got != "bg,top,mid" {
		t.Errorf("draw order = %s", got)
	}
	in.Objects().Remove("*")
	s.Flush()
	if s.DrawList().Len() != 0 {
		t.Errorf("%d textures left after removing all", s.DrawList().Len())
	}
}

func TestSurface_FontFallback(t *testing.T) {
	s := NewSurface(testProvider(t), WithLogger(logger.Discard()), WithFont("/nonexistent/font.ttf", 20))
	if s.lineHeight <= 0 {
		t.Errorf("lineHeight = %v", s.lineHeight)
	}
}
