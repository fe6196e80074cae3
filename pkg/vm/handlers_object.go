package vm

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/nsbi/pkg/script"
)

func msDuration(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// place resolves an x or y operand. Position constants align an object of
// the given size against the screen; Relative values offset current.
func place(v *Value, screen, size int, current float64) float64 {
	if v.Kind() == KindString && !v.Relative {
		if p, ok := lookupGroup(v.s, GroupPosition); ok {
			return float64(alignPosition(p, screen, size))
		}
	}
	i, _ := v.ToInt()
	if v.Relative {
		return current + float64(i)
	}
	return float64(i)
}

func alignPosition(p int32, screen, size int) int {
	switch p {
	case PositionCenter, PositionMiddle:
		return (screen - size) / 2
	case PositionInLeft, PositionInTop:
		return 0
	case PositionInRight, PositionInBottom:
		return screen - size
	case PositionOnLeft, PositionOnTop:
		return -size / 2
	case PositionOnRight, PositionOnBottom:
		return screen - size/2
	case PositionOutLeft, PositionOutTop:
		return -size
	case PositionOutRight, PositionOutBottom:
		return screen
	}
	return 0
}

var namedColors = map[string]color.RGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 255, 0, 255},
	"blue":   {0, 0, 255, 255},
	"yellow": {255, 255, 0, 255},
	"gray":   {128, 128, 128, 255},
}

// parseColor accepts 0xRRGGBB numbers, "#RRGGBB" and "#RGB" strings and a
// few colour names.
func parseColor(v *Value) (color.RGBA, error) {
	rgb := func(n uint32) color.RGBA {
		return color.RGBA{uint8(n >> 16), uint8(n >> 8), uint8(n), 255}
	}
	if v.Kind() != KindString {
		i, _ := v.ToInt()
		return rgb(uint32(i)), nil
	}
	s := strings.TrimSpace(v.s)
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if n, err := strconv.ParseUint(hex, 16, 32); err == nil && len(hex) == 6 {
		return rgb(uint32(n)), nil
	}
	return color.RGBA{A: 255}, NewRuntimeError(ErrorBadCoercion, fmt.Sprintf("bad colour %q", s))
}

// register stores a new object under handle and reports it to the
// surface when it is a texture.
func (in *Interpreter) register(handle string, obj Object) {
	in.objects.Set(handle, obj)
	if tex, ok := obj.(*Texture); ok {
		in.surface.Add(tex)
	}
}

func opCreateTexture(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	priority, errP := in.popInt()
	xv, yv := in.Pop(), in.Pop()
	defer Destroy(xv)
	defer Destroy(yv)
	file := in.popString()

	tex := newTexture(handle, TextureImage, int(priority), in.surface)
	img, err := in.surface.LoadImage(file)
	if err == nil {
		b := img.Bounds()
		tex.img, tex.width, tex.height = img, b.Dx(), b.Dy()
	} else {
		err = NewResourceError(file, err)
	}
	sw, sh := in.surface.Size()
	tex.x = place(xv, sw, tex.width, 0)
	tex.y = place(yv, sh, tex.height, 0)
	in.register(handle, tex)
	return firstError(err, errP)
}

// popRect pops x, y, width and height, resolving positions for the size.
func (in *Interpreter) popRect() (x, y float64, w, h int, err error) {
	xv, yv := in.Pop(), in.Pop()
	defer Destroy(xv)
	defer Destroy(yv)
	wi, errW := in.popInt()
	hi, errH := in.popInt()
	sw, sh := in.surface.Size()
	w, h = int(wi), int(hi)
	return place(xv, sw, w, 0), place(yv, sh, h, 0), w, h, firstError(errW, errH)
}

func opCreateColor(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	priority, errP := in.popInt()
	x, y, w, h, errR := in.popRect()
	cv := in.Pop()
	fill, errC := parseColor(cv)
	Destroy(cv)

	tex := newTexture(handle, TextureColor, int(priority), in.surface)
	tex.x, tex.y, tex.width, tex.height = x, y, w, h
	tex.fill = fill
	in.register(handle, tex)
	return firstError(errP, errR, errC)
}

func opCreateText(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	priority, errP := in.popInt()
	x, y, w, h, errR := in.popRect()
	text := in.popString()

	tex := newTexture(handle, TextureText, int(priority), in.surface)
	tex.x, tex.y, tex.width, tex.height = x, y, w, h
	tex.text = &TextBox{}
	tex.text.SetText(in.clock.Now(), text)
	in.register(handle, tex)
	return firstError(errP, errR)
}

func opCreateSound(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	kind, errK := in.popConstant(GroupSound)
	file := in.popString()

	player, err := in.media.Open(file, kind)
	if err != nil {
		in.objects.Remove(handle)
		return NewResourceError(file, err)
	}
	in.register(handle, newSound(handle, kind, player))
	return errK
}

func opCreateChoice(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	x, y, w, h, err := in.popRect()
	in.register(handle, &Choice{handle: handle, x: int(x), y: int(y), width: w, height: h})
	return err
}

// textures returns every texture handle resolves to.
func (in *Interpreter) textures(handle string) []*Texture {
	var out []*Texture
	in.objects.Execute(handle, func(_ string, slot *Object) {
		if tex, ok := (*slot).(*Texture); ok {
			out = append(out, tex)
		}
	})
	return out
}

func opMove(in *Interpreter, t *Thread, _ *script.Line) error {
	handle := in.popString()
	d, errD := in.popDuration()
	xv, yv := in.Pop(), in.Pop()
	defer Destroy(xv)
	defer Destroy(yv)
	tempo, errT := in.popConstant(GroupTempo)
	wait, errW := in.popBool()

	now := in.clock.Now()
	sw, sh := in.surface.Size()
	var moved waitAll
	for _, tex := range in.textures(handle) {
		x := place(xv, sw, tex.width, tex.x)
		y := place(yv, sh, tex.height, tex.y)
		tex.MoveTo(now, d, x, y, tempo)
		moved = append(moved, tex)
	}
	if len(moved) == 0 {
		return NewMissingObjectError(handle)
	}
	if wait {
		t.WaitFor(moved, now, 0, false)
	}
	return firstError(errD, errT, errW)
}

func opFade(in *Interpreter, t *Thread, _ *script.Line) error {
	handle := in.popString()
	d, errD := in.popDuration()
	opacity, errO := in.popInt()
	tempo, errT := in.popConstant(GroupTempo)
	wait, errW := in.popBool()

	now := in.clock.Now()
	var faded waitAll
	for _, tex := range in.textures(handle) {
		tex.FadeTo(now, d, float64(opacity)/1000, tempo)
		faded = append(faded, tex)
	}
	if len(faded) == 0 {
		return NewMissingObjectError(handle)
	}
	if wait {
		t.WaitFor(faded, now, 0, false)
	}
	return firstError(errD, errO, errT, errW)
}

func opSetVolume(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	d, errD := in.popDuration()
	volume, errV := in.popInt()
	tempo, errT := in.popConstant(GroupTempo)

	now := in.clock.Now()
	n := 0
	in.objects.Execute(handle, func(_ string, slot *Object) {
		if s, ok := (*slot).(*Sound); ok {
			s.SetVolume(now, d, float64(volume), tempo)
			n++
		}
	})
	if n == 0 {
		return NewMissingObjectError(handle)
	}
	return firstError(errD, errV, errT)
}

func opSetLoop(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	loop, err := in.popBool()
	n := 0
	in.objects.Execute(handle, func(_ string, slot *Object) {
		if s, ok := (*slot).(*Sound); ok {
			s.SetLoop(loop)
			n++
		}
	})
	if n == 0 {
		return NewMissingObjectError(handle)
	}
	return err
}

func opSetText(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	text := in.popString()
	now := in.clock.Now()
	n := 0
	for _, tex := range in.textures(handle) {
		if tex.text != nil {
			tex.text.SetText(now, text)
			n++
		}
	}
	if n == 0 {
		return NewMissingObjectError(handle)
	}
	return nil
}

func opIsSelected(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	selected := false
	in.objects.Execute(handle, func(_ string, slot *Object) {
		if c, ok := (*slot).(*Choice); ok && c.TakeSelected() {
			selected = true
		}
	})
	in.Push(MakeBool(selected))
	return nil
}

func imageSizeOp(vertical bool) Handler {
	return func(in *Interpreter, _ *Thread, _ *script.Line) error {
		handle := in.popString()
		tex, ok := in.objects.Lookup(handle).(*Texture)
		if !ok {
			in.Push(MakeInt(0))
			return NewMissingObjectError(handle)
		}
		w, h := tex.Size()
		if vertical {
			in.Push(MakeInt(int32(h)))
		} else {
			in.Push(MakeInt(int32(w)))
		}
		return nil
	}
}

func timeOp(remaining bool) Handler {
	return func(in *Interpreter, _ *Thread, _ *script.Line) error {
		handle := in.popString()
		obj, ok := in.objects.Lookup(handle).(Timed)
		if !ok {
			in.Push(MakeInt(0))
			return NewMissingObjectError(handle)
		}
		d := obj.Total()
		if remaining {
			d = obj.Remaining(in.clock.Now())
		}
		in.Push(MakeInt(int32(d / time.Millisecond)))
		return nil
	}
}
