package vm

// Member is one (key, child) pair of an Array. Key is empty for list-style
// members.
type Member struct {
	Key   string
	Value *Array
}

// Array is a Value with an ordered list of owned child arrays. The same
// tree serves as list and as associative array.
type Array struct {
	Value
	Members []Member
}

// NewArray returns a named null array.
func NewArray() *Array {
	return &Array{}
}

// NewArrayFrom returns a named array holding a copy of v.
func NewArrayFrom(v *Value) *Array {
	a := &Array{}
	a.Assign(v)
	return a
}

// Len returns the number of members.
func (a *Array) Len() int {
	return len(a.Members)
}

// Find returns the first member with the given key, or nil.
func (a *Array) Find(key string) *Array {
	for _, m := range a.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// FindIndex returns the member at index, growing the array with null
// members when it is shorter. Negative indices return nil.
func (a *Array) FindIndex(index int) *Array {
	if index < 0 {
		return nil
	}
	for len(a.Members) <= index {
		a.Members = append(a.Members, Member{Value: NewArray()})
	}
	return a.Members[index].Value
}

// FindValue addresses a member with a script value. Plain strings are keys
// and resolve to nil when missing; everything else, Relative strings
// included, is an index.
func (a *Array) FindValue(key *Value) *Array {
	if k, ok := arrayKey(key); ok {
		return a.Find(k)
	}
	i, _ := key.ToInt()
	return a.FindIndex(int(i))
}

// FindOrAddValue is FindValue that appends a keyed member when the key is
// missing.
func (a *Array) FindOrAddValue(key *Value) *Array {
	if m := a.FindValue(key); m != nil {
		return m
	}
	k, ok := arrayKey(key)
	if !ok {
		return nil
	}
	child := NewArray()
	a.Append(k, child)
	return child
}

// arrayKey reports whether v addresses a member by key rather than index.
func arrayKey(v *Value) (string, bool) {
	if v.Kind() != KindString || v.Relative {
		return "", false
	}
	if _, numeric := v.ToInt(); numeric && !isConstantName(v.s) {
		return "", false
	}
	return v.s, true
}

// Append adds a member at the end.
func (a *Array) Append(key string, child *Array) {
	a.Members = append(a.Members, Member{Key: key, Value: child})
}

// SetKey renames the member holding child. It reports whether child is a
// direct member.
func (a *Array) SetKey(child *Array, key string) bool {
	for i := range a.Members {
		if a.Members[i].Value == child {
			a.Members[i].Key = key
			return true
		}
	}
	return false
}

// Copy returns a deep copy.
func (a *Array) Copy() *Array {
	c := NewArrayFrom(&a.Value)
	for _, m := range a.Members {
		c.Append(m.Key, m.Value.Copy())
	}
	return c
}

// Destroy releases the whole tree.
func (a *Array) Destroy() {
	for _, m := range a.Members {
		m.Value.Destroy()
	}
	a.Members = nil
	a.Value = Value{}
}

func isConstantName(s string) bool {
	_, ok := LookupConstant(s)
	return ok
}
