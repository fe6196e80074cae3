package script

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/zurustar/nsbi/pkg/opcode"
)

// Assemble parses the textual form of a script.
//
//	; comment
//	chapter.main:
//	    Literal STRING "hello world"
//	    Set $greeting =
//	    ClearParams
//
// A line consisting of a single token ending in ':' defines a symbol for
// the next instruction. Other lines are a mnemonic followed by parameters;
// parameters containing blanks are written as Go quoted strings.
func Assemble(name string, r io.Reader) (*Script, error) {
	var lines []Line
	symbols := make(map[string]int)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}

		fields, err := splitFields(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}

		if len(fields) == 1 && strings.HasSuffix(fields[0], ":") {
			label := strings.TrimSuffix(fields[0], ":")
			if _, dup := symbols[label]; dup {
				return nil, fmt.Errorf("%s:%d: duplicate symbol %q", name, lineNo, label)
			}
			symbols[label] = len(lines)
			continue
		}

		magic, ok := opcode.Parse(fields[0])
		if !ok {
			// raw magic numbers keep unknown instructions expressible
			n, err := strconv.ParseUint(fields[0], 0, 16)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: unknown instruction %q", name, lineNo, fields[0])
			}
			magic = opcode.Magic(n)
		}
		lines = append(lines, Line{Magic: magic, Params: fields[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return New(name, lines, symbols), nil
}

// AssembleString is a convenience wrapper used by tests and embedded scripts.
func AssembleString(name, src string) (*Script, error) {
	return Assemble(name, strings.NewReader(src))
}

// MustAssemble panics on error.
func MustAssemble(name, src string) *Script {
	s, err := AssembleString(name, src)
	if err != nil {
		panic(err)
	}
	return s
}

func splitFields(text string) ([]string, error) {
	var fields []string
	for {
		text = strings.TrimLeftFunc(text, unicode.IsSpace)
		if text == "" || text[0] == ';' {
			return fields, nil
		}
		if text[0] == '"' {
			end := closingQuote(text)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string %s", text)
			}
			s, err := strconv.Unquote(text[:end+1])
			if err != nil {
				return nil, fmt.Errorf("bad string %s: %w", text[:end+1], err)
			}
			fields = append(fields, s)
			text = text[end+1:]
			continue
		}
		end := strings.IndexFunc(text, unicode.IsSpace)
		if end < 0 {
			end = len(text)
		}
		fields = append(fields, text[:end])
		text = text[end:]
	}
}

func closingQuote(text string) int {
	for i := 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
