package graphics

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

const (
	biRLE8 = 1
	biRLE4 = 2

	bmpHeaderSize = 14 + 40
)

// ErrBadBitmap is returned for malformed run-length encoded bitmaps.
var ErrBadBitmap = errors.New("malformed RLE bitmap")

type bitmapHeader struct {
	Magic      [2]byte
	FileSize   uint32
	_          uint32
	DataOffset uint32

	InfoSize    uint32
	Width       int32
	Height      int32
	Planes      uint16
	BitCount    uint16
	Compression uint32
	ImageSize   uint32
	_           [2]int32
	ColorsUsed  uint32
	_           uint32
}

func isRLEBitmap(data []byte) bool {
	if len(data) < bmpHeaderSize || data[0] != 'B' || data[1] != 'M' {
		return false
	}
	c := binary.LittleEndian.Uint32(data[30:34])
	return c == biRLE8 || c == biRLE4
}

// DecodeRLE decodes an 8-bit or 4-bit run-length encoded bitmap.
func DecodeRLE(r io.Reader) (image.Image, error) {
	var h bitmapHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrBadBitmap, err)
	}
	if h.Magic != [2]byte{'B', 'M'} {
		return nil, fmt.Errorf("%w: signature %q", ErrBadBitmap, h.Magic[:])
	}
	bits := 8
	switch {
	case h.Compression == biRLE8 && h.BitCount == 8:
	case h.Compression == biRLE4 && h.BitCount == 4:
		bits = 4
	default:
		return nil, fmt.Errorf("%w: compression %d with %d bits", ErrBadBitmap, h.Compression, h.BitCount)
	}

	n := int(h.ColorsUsed)
	if n == 0 {
		n = 1 << bits
	}
	palette := make(color.Palette, n)
	entry := make([]byte, 4)
	for i := range palette {
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, fmt.Errorf("%w: palette: %v", ErrBadBitmap, err)
		}
		palette[i] = color.RGBA{entry[2], entry[1], entry[0], 255}
	}
	if skip := int64(h.DataOffset) - int64(bmpHeaderSize+4*n); skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadBitmap, err)
		}
	}

	width, height := int(h.Width), int(h.Height)
	topDown := height < 0
	if topDown {
		height = -height
	}
	d := &rleDecoder{
		img:     image.NewPaletted(image.Rect(0, 0, width, height), palette),
		topDown: topDown,
		bits:    bits,
	}
	if err := d.decode(r); err != nil {
		return nil, err
	}
	return d.img, nil
}

type rleDecoder struct {
	img     *image.Paletted
	topDown bool
	bits    int
	x, y    int
}

// put writes a palette index at the cursor and advances it.
func (d *rleDecoder) put(idx uint8) {
	b := d.img.Bounds()
	if d.x < b.Dx() && d.y < b.Dy() && int(idx) < len(d.img.Palette) {
		row := d.y
		if !d.topDown {
			row = b.Dy() - 1 - d.y
		}
		d.img.SetColorIndex(d.x, row, idx)
	}
	d.x++
}

// index returns pixel i of a run or absolute block starting at data.
func (d *rleDecoder) index(data []byte, i int) uint8 {
	if d.bits == 8 {
		return data[i]
	}
	if i%2 == 0 {
		return data[i/2] >> 4
	}
	return data[i/2] & 0x0F
}

func (d *rleDecoder) decode(r io.Reader) error {
	pair := make([]byte, 2)
	for {
		if _, err := io.ReadFull(r, pair); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrBadBitmap, err)
		}
		count, value := int(pair[0]), pair[1]
		if count > 0 {
			// encoded run; 4-bit runs alternate both nibbles
			run := []byte{value, value}
			for i := range count {
				if d.bits == 8 {
					d.put(value)
				} else {
					d.put(d.index(run, i%2))
				}
			}
			continue
		}
		switch value {
		case 0:
			d.x, d.y = 0, d.y+1
		case 1:
			return nil
		case 2:
			if _, err := io.ReadFull(r, pair); err != nil {
				return fmt.Errorf("%w: delta: %v", ErrBadBitmap, err)
			}
			d.x += int(pair[0])
			d.y += int(pair[1])
		default:
			count = int(value)
			size := count
			if d.bits == 4 {
				size = (count + 1) / 2
			}
			// absolute blocks are padded to 16 bits
			block := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, block); err != nil {
				return fmt.Errorf("%w: absolute run: %v", ErrBadBitmap, err)
			}
			for i := range count {
				d.put(d.index(block, i))
			}
		}
	}
}
