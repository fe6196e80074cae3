package vm

import "sort"

// Snapshot is a serialisable view of interpreter state for debugging.
type Snapshot struct {
	Threads   []ThreadSnapshot   `cbor:"threads"`
	Variables []VariableSnapshot `cbor:"variables"`
	Arrays    []ArraySnapshot    `cbor:"arrays"`
	Objects   []string           `cbor:"objects"`
	Aliases   map[string]string  `cbor:"aliases"`
}

// ThreadSnapshot describes one live thread.
type ThreadSnapshot struct {
	Name     string   `cbor:"name"`
	Active   bool     `cbor:"active"`
	Waiting  bool     `cbor:"waiting"`
	Starving bool     `cbor:"starving"`
	Frames   []string `cbor:"frames"`
}

// VariableSnapshot describes one variable.
type VariableSnapshot struct {
	Name     string `cbor:"name"`
	Kind     string `cbor:"kind"`
	Value    string `cbor:"value"`
	Relative bool   `cbor:"relative,omitempty"`
}

// ArraySnapshot describes one array subtree.
type ArraySnapshot struct {
	Name    string          `cbor:"name,omitempty"`
	Kind    string          `cbor:"kind"`
	Value   string          `cbor:"value"`
	Members []ArraySnapshot `cbor:"members,omitempty"`
}

// Snapshot captures the current state.
func (in *Interpreter) Snapshot() *Snapshot {
	s := &Snapshot{Aliases: make(map[string]string)}

	for _, t := range in.threads {
		s.Threads = append(s.Threads, ThreadSnapshot{
			Name:     t.name,
			Active:   t.Active(),
			Waiting:  t.Waiting(),
			Starving: t.IsStarving(),
			Frames:   in.Trace(t),
		})
	}

	for _, name := range in.VariableNames() {
		v := in.variables[name]
		s.Variables = append(s.Variables, VariableSnapshot{
			Name:     name,
			Kind:     v.Kind().String(),
			Value:    v.ToString(),
			Relative: v.Relative,
		})
	}

	names := make([]string, 0, len(in.arrays))
	for name := range in.arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := snapshotArray(in.arrays[name])
		a.Name = name
		s.Arrays = append(s.Arrays, a)
	}

	in.objects.Walk(func(handle string, _ Object) {
		s.Objects = append(s.Objects, handle)
	})
	for _, alias := range in.objects.Aliases() {
		path, _ := in.objects.Alias(alias)
		s.Aliases[alias] = path
	}
	return s
}

func snapshotArray(a *Array) ArraySnapshot {
	out := ArraySnapshot{Kind: a.Kind().String(), Value: a.ToString()}
	for _, m := range a.Members {
		child := snapshotArray(m.Value)
		child.Name = m.Key
		out.Members = append(out.Members, child)
	}
	return out
}
