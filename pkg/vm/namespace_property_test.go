package vm

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_NamespaceResolution tests handle resolution laws over
// randomly built namespaces.
func TestProperty_NamespaceResolution(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("an alias resolves to the same object as its target", prop.ForAll(
		func(parent, child string) bool {
			ns := NewNamespace()
			obj := &stubObject{}
			path := "p" + parent + "/c" + child
			ns.Set(path, obj)
			ns.SetAlias("alias", path)
			return ns.Lookup("@alias") == obj && ns.Lookup(path) == obj
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("a wildcard visits exactly the registered matches", prop.ForAll(
		func(n, others int) bool {
			ns := NewNamespace()
			for i := 0; i < n; i++ {
				ns.Set(fmt.Sprintf("Item%d", i), &stubObject{})
			}
			for i := 0; i < others; i++ {
				ns.Set(fmt.Sprintf("Other%d", i), &stubObject{})
			}
			seen := map[string]bool{}
			count := ns.Execute("Item*", func(handle string, slot *Object) {
				if *slot == nil {
					seen["<nil>"] = true
				}
				seen[handle] = true
			})
			return count == n && len(seen) == n && !seen["<nil>"]
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 5),
	))

	properties.Property("removing a handle deletes each object exactly once", prop.ForAll(
		func(depth int) bool {
			ns := NewNamespace()
			var objs []*stubObject
			path := ""
			for i := 0; i <= depth; i++ {
				path = joinPath(path, fmt.Sprintf("n%d", i))
				o := &stubObject{}
				objs = append(objs, o)
				ns.Set(path, o)
			}
			ns.Remove("n0")
			for _, o := range objs {
				if o.deleted != 1 {
					return false
				}
			}
			return len(ns.root.nodes) == 0
		},
		gen.IntRange(0, 8),
	))

	properties.Property("a single segment handle addresses the root level", prop.ForAll(
		func(key string) bool {
			ns := NewNamespace()
			obj := &stubObject{}
			ns.Set("k"+key, obj)
			return len(ns.root.nodes) == 1 && ns.root.nodes[0].obj == obj
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
