package vm

// Stack is the operand stack shared by every thread of an interpreter.
//
// Values are pushed while an expression is evaluated. Before a handler
// runs, Begin(n) rewinds the write index by n and points the read index at
// the same slot, so the handler pops its n arguments in push order and any
// result it pushes lands where the first argument was. The stack never
// owns values; ownership follows each Value's Literal flag.
type Stack struct {
	values     []*Value
	writeIndex int
	readIndex  int
	readLimit  int
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{values: make([]*Value, 0, 64)}
}

// Push appends v, overwriting stale slots left by earlier statements.
func (s *Stack) Push(v *Value) {
	if s.writeIndex < len(s.values) {
		s.values[s.writeIndex] = v
	} else {
		s.values = append(s.values, v)
	}
	s.writeIndex++
}

// Begin exposes the last n pushed values to Pop.
func (s *Stack) Begin(n int) {
	s.readLimit = s.writeIndex
	if n > s.writeIndex {
		n = s.writeIndex
	}
	if n < 0 {
		n = 0
	}
	s.writeIndex -= n
	s.readIndex = s.writeIndex
}

// Pop returns the next exposed value. Reading past the exposed range
// returns a literal null and ok=false.
func (s *Stack) Pop() (*Value, bool) {
	if s.readIndex >= s.readLimit || s.readIndex >= len(s.values) {
		return MakeNull(), false
	}
	v := s.values[s.readIndex]
	s.readIndex++
	if v == nil {
		return MakeNull(), false
	}
	return v, true
}

// Remaining returns how many exposed values have not been popped yet.
func (s *Stack) Remaining() int {
	if n := s.readLimit - s.readIndex; n > 0 {
		return n
	}
	return 0
}

// Len returns the number of pushed values.
func (s *Stack) Len() int {
	return s.writeIndex
}

// Reset empties the stack at a statement boundary.
func (s *Stack) Reset() {
	for i := range s.values {
		s.values[i] = nil
	}
	s.values = s.values[:0]
	s.writeIndex, s.readIndex, s.readLimit = 0, 0, 0
}
