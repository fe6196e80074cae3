// Package savefile reads and writes encrypted save slots.
//
// Layout of the decrypted body, little endian, strings as uint32 length
// followed by Shift-JIS bytes:
//
//	uint32 variable count
//	per variable: name, alias, int32 type, int32 int value,
//	              int32 unused, string value, uint8 relative, array name
//	uint32 array count
//	per array: name, uint32 element count, element strings
//
// The file starts with the 4-byte magic "NSBS" and a uint16 version that
// are stored in the clear; everything after them is XORed with the key.
package savefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Version is the layout version written by Encode.
const Version = 1

var magic = [4]byte{'N', 'S', 'B', 'S'}

var (
	// ErrBadMagic is returned when data is not a save file.
	ErrBadMagic = errors.New("not a save file")
	// ErrCorrupt is returned when the body is truncated or malformed.
	ErrCorrupt = errors.New("corrupt save file")
)

// maxString bounds a single string so corrupt lengths fail fast.
const maxString = 1 << 24

// Type tags of a saved variable.
const (
	TypeNull int32 = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
)

// Variable is one saved variable.
type Variable struct {
	Name     string
	Alias    string
	Type     int32
	Int      int32
	Unused   int32
	String   string
	Relative bool
	ArrayRef string
}

// Array is one saved array. Elements are the stringified top-level members.
type Array struct {
	Name     string
	Elements []string
}

// File is the content of a save slot.
type File struct {
	Variables []Variable
	Arrays    []Array
}

// Encode writes f encrypted with key. An empty key writes the body in
// the clear.
func Encode(w io.Writer, f *File, key []byte) error {
	var body bytes.Buffer
	e := &encoder{w: &body, enc: japanese.ShiftJIS.NewEncoder()}

	e.u32(uint32(len(f.Variables)))
	for _, v := range f.Variables {
		e.str(v.Name)
		e.str(v.Alias)
		e.i32(v.Type)
		e.i32(v.Int)
		e.i32(v.Unused)
		e.str(v.String)
		e.bool(v.Relative)
		e.str(v.ArrayRef)
	}
	e.u32(uint32(len(f.Arrays)))
	for _, a := range f.Arrays {
		e.str(a.Name)
		e.u32(uint32(len(a.Elements)))
		for _, s := range a.Elements {
			e.str(s)
		}
	}
	if e.err != nil {
		return e.err
	}

	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(Version)); err != nil {
		return err
	}
	_, err := w.Write(Crypt(body.Bytes(), key))
	return err
}

// Decode reads a file written by Encode with the same key.
func Decode(r io.Reader, key []byte) (*File, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(header[4:]); v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{r: bytes.NewReader(Crypt(raw, key)), dec: japanese.ShiftJIS.NewDecoder()}

	f := &File{}
	n := d.u32()
	for i := uint32(0); i < n && d.err == nil; i++ {
		var v Variable
		v.Name = d.str()
		v.Alias = d.str()
		v.Type = d.i32()
		v.Int = d.i32()
		v.Unused = d.i32()
		v.String = d.str()
		v.Relative = d.bool()
		v.ArrayRef = d.str()
		f.Variables = append(f.Variables, v)
	}
	n = d.u32()
	for i := uint32(0); i < n && d.err == nil; i++ {
		a := Array{Name: d.str()}
		count := d.u32()
		for j := uint32(0); j < count && d.err == nil; j++ {
			a.Elements = append(a.Elements, d.str())
		}
		f.Arrays = append(f.Arrays, a)
	}
	if d.err != nil {
		return nil, d.err
	}
	return f, nil
}

// Crypt XORs data with the repeating key. It is its own inverse.
func Crypt(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

type encoder struct {
	w   io.Writer
	enc transform.Transformer
	err error
}

func (e *encoder) write(v any) {
	if e.err == nil {
		e.err = binary.Write(e.w, binary.LittleEndian, v)
	}
}

func (e *encoder) u32(v uint32) { e.write(v) }
func (e *encoder) i32(v int32)  { e.write(v) }

func (e *encoder) bool(v bool) {
	var b uint8
	if v {
		b = 1
	}
	e.write(b)
}

func (e *encoder) str(s string) {
	if e.err != nil {
		return
	}
	raw, _, err := transform.Bytes(e.enc, []byte(s))
	if err != nil {
		e.err = fmt.Errorf("failed to encode Shift-JIS: %w", err)
		return
	}
	e.u32(uint32(len(raw)))
	if e.err == nil {
		_, e.err = e.w.Write(raw)
	}
}

type decoder struct {
	r   *bytes.Reader
	dec transform.Transformer
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
}

func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *decoder) i32() int32 {
	var v int32
	d.read(&v)
	return v
}

func (d *decoder) bool() bool {
	var v uint8
	d.read(&v)
	return v != 0
}

func (d *decoder) str() string {
	size := d.u32()
	if d.err != nil {
		return ""
	}
	if size > maxString || int(size) > d.r.Len() {
		d.err = fmt.Errorf("%w: string of %d bytes", ErrCorrupt, size)
		return ""
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(d.r, raw); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrCorrupt, err)
		return ""
	}
	out, _, err := transform.Bytes(d.dec, raw)
	if err != nil {
		d.err = fmt.Errorf("%w: %v", ErrCorrupt, err)
		return ""
	}
	return string(out)
}

// Store keeps save slots as files in a directory.
type Store struct {
	dir string
	key []byte
}

// NewStore creates a store writing slot files into dir.
func NewStore(dir string, key []byte) *Store {
	return &Store{dir: dir, key: key}
}

// Path returns the file name used for a slot.
func (s *Store) Path(slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%03d.nsbs", slot))
}

// Save writes a slot, creating the directory when needed.
func (s *Store) Save(slot int, f *File) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	tmp := s.Path(slot) + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	if err := Encode(w, f, s.key); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.Path(slot))
}

// Load reads a slot.
func (s *Store) Load(slot int) (*File, error) {
	in, err := os.Open(s.Path(slot))
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return Decode(bufio.NewReader(in), s.key)
}
