// Package script provides the decoded form of compiled NSB scripts.
// A Script is an immutable list of Lines plus a symbol table mapping
// chapter/scene/function/label names to line indices.
package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zurustar/nsbi/pkg/opcode"
)

// InvalidLine is returned by Symbol when a name cannot be resolved.
const InvalidLine = -1

// Line is one decoded instruction.
type Line struct {
	Magic  opcode.Magic
	Params []string
}

// Param returns the i-th parameter or "" when absent.
func (l *Line) Param(i int) string {
	if i < 0 || i >= len(l.Params) {
		return ""
	}
	return l.Params[i]
}

// String renders the line in assembler syntax.
func (l *Line) String() string {
	var sb strings.Builder
	sb.WriteString(l.Magic.String())
	for _, p := range l.Params {
		sb.WriteByte(' ')
		if p == "" || strings.ContainsAny(p, " \t\"") {
			fmt.Fprintf(&sb, "%q", p)
		} else {
			sb.WriteString(p)
		}
	}
	return sb.String()
}

// Script is a decoded script file.
type Script struct {
	name     string
	lines    []Line
	symbols  map[string]int
	includes []string
}

// New creates a Script from already decoded lines and symbols.
// Include lines are collected into the include list.
func New(name string, lines []Line, symbols map[string]int) *Script {
	if symbols == nil {
		symbols = make(map[string]int)
	}
	s := &Script{
		name:    name,
		lines:   lines,
		symbols: symbols,
	}
	for _, ln := range lines {
		if ln.Magic == opcode.Include && len(ln.Params) > 0 {
			s.includes = append(s.includes, ln.Params[0])
		}
	}
	return s
}

// Name returns the script path the file was loaded from.
func (s *Script) Name() string {
	return s.name
}

// Len returns the number of lines.
func (s *Script) Len() int {
	return len(s.lines)
}

// Line returns the line at index, or nil when out of range.
func (s *Script) Line(index int) *Line {
	if index < 0 || index >= len(s.lines) {
		return nil
	}
	return &s.lines[index]
}

// Symbol resolves a symbol to a line index, or InvalidLine.
func (s *Script) Symbol(name string) int {
	if idx, ok := s.symbols[name]; ok {
		return idx
	}
	return InvalidLine
}

// Symbols returns the symbol names sorted by line index.
func (s *Script) Symbols() []string {
	names := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.symbols[names[i]], s.symbols[names[j]]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
	return names
}

// Includes returns the scripts referenced by Include lines.
func (s *Script) Includes() []string {
	return s.includes
}

// SymbolAt returns the nearest symbol at or before index, used for traces.
func (s *Script) SymbolAt(index int) string {
	best, bestLine := "", -1
	for name, line := range s.symbols {
		if line > index {
			continue
		}
		if line > bestLine || (line == bestLine && name < best) {
			best, bestLine = name, line
		}
	}
	return best
}
