package script

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zurustar/nsbi/pkg/opcode"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ErrInvalidFormat is returned when NSB or MAP data is truncated or malformed.
var ErrInvalidFormat = errors.New("invalid script format")

// NSB layout, little endian, repeated until EOF:
//
//	uint32 entry      1-based line number
//	uint16 magic
//	uint16 nparams
//	nparams × (uint32 length, length bytes of Shift-JIS text)
//
// MAP layout, repeated until EOF:
//
//	uint32 offset     byte offset of the line record inside the NSB data
//	uint16 length
//	length bytes of symbol name
const maxParamLength = 1 << 20

// Decode parses NSB line data and its MAP symbol data into a Script.
// mapData may be nil for scripts without symbols.
func Decode(name string, nsbData, mapData []byte) (*Script, error) {
	lines, offsets, err := decodeLines(nsbData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	symbols := make(map[string]int)
	if len(mapData) > 0 {
		if err := decodeSymbols(mapData, offsets, symbols); err != nil {
			return nil, fmt.Errorf("%s.map: %w", name, err)
		}
	}

	return New(name, lines, symbols), nil
}

func decodeLines(data []byte) ([]Line, map[uint32]int, error) {
	r := bytes.NewReader(data)
	var lines []Line
	offsets := make(map[uint32]int)
	decoder := japanese.ShiftJIS.NewDecoder()

	for r.Len() > 0 {
		offset := uint32(len(data) - r.Len())

		var header struct {
			Entry   uint32
			Magic   uint16
			NParams uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			return nil, nil, fmt.Errorf("%w: line header at offset %d", ErrInvalidFormat, offset)
		}

		ln := Line{Magic: opcode.Magic(header.Magic)}
		if header.NParams > 0 {
			ln.Params = make([]string, header.NParams)
		}
		for i := range ln.Params {
			var size uint32
			if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
				return nil, nil, fmt.Errorf("%w: parameter length at offset %d", ErrInvalidFormat, offset)
			}
			if size > maxParamLength || int(size) > r.Len() {
				return nil, nil, fmt.Errorf("%w: parameter of %d bytes at offset %d", ErrInvalidFormat, size, offset)
			}
			raw := make([]byte, size)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
			}
			text, err := decodeShiftJIS(decoder, raw)
			if err != nil {
				return nil, nil, err
			}
			ln.Params[i] = text
		}

		offsets[offset] = len(lines)
		lines = append(lines, ln)
	}
	// labels placed after the last instruction
	offsets[uint32(len(data))] = len(lines)

	return lines, offsets, nil
}

func decodeSymbols(data []byte, offsets map[uint32]int, symbols map[string]int) error {
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		var offset uint32
		var size uint16
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return fmt.Errorf("%w: symbol offset", ErrInvalidFormat)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("%w: symbol length", ErrInvalidFormat)
		}
		raw := make([]byte, size)
		if _, err := io.ReadFull(r, raw); err != nil {
			return fmt.Errorf("%w: symbol name", ErrInvalidFormat)
		}
		index, ok := offsets[offset]
		if !ok {
			return fmt.Errorf("%w: symbol %q points into the middle of a line (offset %d)", ErrInvalidFormat, raw, offset)
		}
		symbols[string(raw)] = index
	}
	return nil
}

func decodeShiftJIS(decoder transform.Transformer, raw []byte) (string, error) {
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode Shift-JIS: %w", err)
	}
	return string(out), nil
}

// Encode writes a Script back into NSB and MAP form.
func Encode(s *Script, nsb, mapw io.Writer) error {
	encoder := japanese.ShiftJIS.NewEncoder()
	var buf bytes.Buffer
	offsets := make([]uint32, len(s.lines))

	for i, ln := range s.lines {
		offsets[i] = uint32(buf.Len())
		header := struct {
			Entry   uint32
			Magic   uint16
			NParams uint16
		}{uint32(i + 1), uint16(ln.Magic), uint16(len(ln.Params))}
		if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
			return err
		}
		for _, p := range ln.Params {
			raw, _, err := transform.Bytes(encoder, []byte(p))
			if err != nil {
				return fmt.Errorf("failed to encode Shift-JIS: %w", err)
			}
			if err := binary.Write(&buf, binary.LittleEndian, uint32(len(raw))); err != nil {
				return err
			}
			buf.Write(raw)
		}
	}
	if _, err := nsb.Write(buf.Bytes()); err != nil {
		return err
	}

	if mapw == nil {
		return nil
	}
	for _, name := range s.Symbols() {
		idx := s.symbols[name]
		var offset uint32
		if idx < len(offsets) {
			offset = offsets[idx]
		} else {
			offset = uint32(buf.Len())
		}
		if err := binary.Write(mapw, binary.LittleEndian, offset); err != nil {
			return err
		}
		if err := binary.Write(mapw, binary.LittleEndian, uint16(len(name))); err != nil {
			return err
		}
		if _, err := io.WriteString(mapw, name); err != nil {
			return err
		}
	}
	return nil
}
