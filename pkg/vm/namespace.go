package vm

import (
	"log/slog"
	"strings"

	"github.com/zurustar/nsbi/pkg/logger"
)

// Object is anything a script can address by handle. Delete releases the
// resources the object owns.
type Object interface {
	Delete()
}

// Operation is applied to the slot a handle resolves to. Setting *slot to
// nil deletes the entry together with everything nested below it.
type Operation func(handle string, slot *Object)

// maxAliasDepth bounds alias chains so that a cycle cannot recurse forever.
const maxAliasDepth = 16

type node struct {
	key      string
	obj      Object
	children level
}

// level is one ordered map of a namespace.
type level struct {
	nodes []*node
}

func (l *level) get(key string) *node {
	for _, n := range l.nodes {
		if n.key == key {
			return n
		}
	}
	return nil
}

func (l *level) add(key string) *node {
	n := &node{key: key}
	l.nodes = append(l.nodes, n)
	return n
}

func (l *level) remove(n *node) {
	for i, m := range l.nodes {
		if m == n {
			l.nodes = append(l.nodes[:i], l.nodes[i+1:]...)
			return
		}
	}
}

func (l *level) match(prefix string) []*node {
	var out []*node
	for _, n := range l.nodes {
		if strings.HasPrefix(n.key, prefix) {
			out = append(out, n)
		}
	}
	return out
}

// release deletes every object below l, innermost first.
func (l *level) release() {
	nodes := l.nodes
	l.nodes = nil
	for _, n := range nodes {
		n.children.release()
		if n.obj != nil {
			obj := n.obj
			n.obj = nil
			obj.Delete()
		}
	}
}

// Namespace maps "/"-separated handles to objects. Every entry may hold
// both an object and a nested level, so "Box/Text1/img" addresses an
// object below "Box/Text1". "@name" segments go through the alias table
// and a trailing "*" broadcasts over every key with that prefix.
type Namespace struct {
	root      level
	aliasKeys []string
	aliases   map[string]string
	log       *slog.Logger
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{
		aliases: make(map[string]string),
		log:     logger.GetLogger(),
	}
}

// SetAlias makes "@alias" resolve to path. A leading "@" on alias is
// ignored.
func (ns *Namespace) SetAlias(alias, path string) {
	alias = strings.TrimPrefix(alias, "@")
	if _, ok := ns.aliases[alias]; !ok {
		ns.aliasKeys = append(ns.aliasKeys, alias)
	}
	ns.aliases[alias] = path
}

// Alias returns the path an alias points to.
func (ns *Namespace) Alias(alias string) (string, bool) {
	path, ok := ns.aliases[strings.TrimPrefix(alias, "@")]
	return path, ok
}

// Aliases returns alias names in the order they were first set.
func (ns *Namespace) Aliases() []string {
	out := make([]string, len(ns.aliasKeys))
	copy(out, ns.aliasKeys)
	return out
}

// Execute applies op to every slot handle resolves to and returns how many
// times op ran. An exact handle always runs op once, on an empty slot if
// nothing is registered; a wildcard runs it once per registered match.
func (ns *Namespace) Execute(handle string, op Operation) int {
	return ns.execute(&ns.root, "", handle, op, 0)
}

func (ns *Namespace) execute(lv *level, prefix, handle string, op Operation, depth int) int {
	head, rest, _ := strings.Cut(handle, "/")
	if head == "" {
		if rest == "" {
			return 0
		}
		return ns.execute(lv, prefix, rest, op, depth)
	}

	wildcard := strings.HasSuffix(head, "*")

	if strings.HasPrefix(head, "@") && !wildcard {
		if depth >= maxAliasDepth {
			ns.log.Warn("Alias chain too deep", "handle", handle)
			return 0
		}
		target, ok := ns.aliases[head[1:]]
		if !ok {
			ns.log.Debug("Unknown alias", "alias", head)
			return 0
		}
		return ns.execute(&ns.root, "", joinPath(target, rest), op, depth+1)
	}

	if wildcard {
		pattern := strings.TrimSuffix(head, "*")
		count := 0
		if strings.HasPrefix(pattern, "@") {
			if depth >= maxAliasDepth {
				ns.log.Warn("Alias chain too deep", "handle", handle)
				return 0
			}
			pattern = pattern[1:]
			var targets []string
			for _, key := range ns.aliasKeys {
				if strings.HasPrefix(key, pattern) {
					targets = append(targets, ns.aliases[key])
				}
			}
			for _, target := range targets {
				count += ns.execute(&ns.root, "", joinPath(target, rest), op, depth+1)
			}
			return count
		}
		for _, n := range lv.match(pattern) {
			if rest == "" {
				if n.obj == nil {
					continue
				}
				count += ns.apply(lv, prefix, n, op)
				continue
			}
			count += ns.execute(&n.children, joinPath(prefix, n.key), rest, op, depth)
			ns.prune(lv, n)
		}
		return count
	}

	n := lv.get(head)
	if n == nil {
		n = lv.add(head)
	}
	if rest == "" {
		return ns.apply(lv, prefix, n, op)
	}
	count := ns.execute(&n.children, joinPath(prefix, head), rest, op, depth)
	ns.prune(lv, n)
	return count
}

func (ns *Namespace) apply(lv *level, prefix string, n *node, op Operation) int {
	had := n.obj != nil
	op(joinPath(prefix, n.key), &n.obj)
	if had && n.obj == nil {
		n.children.release()
	}
	ns.prune(lv, n)
	return 1
}

// prune drops an entry that holds neither an object nor children.
func (ns *Namespace) prune(lv *level, n *node) {
	if n.obj == nil && len(n.children.nodes) == 0 {
		lv.remove(n)
	}
}

// Lookup returns the object registered under an exact or aliased handle.
// A wildcard handle returns the first match.
func (ns *Namespace) Lookup(handle string) Object {
	var found Object
	ns.Execute(handle, func(_ string, slot *Object) {
		if found == nil && *slot != nil {
			found = *slot
		}
	})
	return found
}

// Set registers obj under handle, deleting whatever was there before.
func (ns *Namespace) Set(handle string, obj Object) {
	ns.Execute(handle, func(_ string, slot *Object) {
		if *slot != nil && *slot != obj {
			(*slot).Delete()
		}
		*slot = obj
	})
}

// Remove deletes every object handle resolves to and returns how many
// were deleted.
func (ns *Namespace) Remove(handle string) int {
	removed := 0
	ns.Execute(handle, func(_ string, slot *Object) {
		if *slot == nil {
			return
		}
		obj := *slot
		*slot = nil
		obj.Delete()
		removed++
	})
	return removed
}

// Count returns how many registered objects handle resolves to.
func (ns *Namespace) Count(handle string) int {
	count := 0
	ns.Execute(handle, func(_ string, slot *Object) {
		if *slot != nil {
			count++
		}
	})
	return count
}

// Walk calls fn for every registered object, parents before children, in
// registration order.
func (ns *Namespace) Walk(fn func(handle string, obj Object)) {
	walkLevel(&ns.root, "", fn)
}

func walkLevel(lv *level, prefix string, fn func(string, Object)) {
	nodes := make([]*node, len(lv.nodes))
	copy(nodes, lv.nodes)
	for _, n := range nodes {
		handle := joinPath(prefix, n.key)
		if n.obj != nil {
			fn(handle, n.obj)
		}
		walkLevel(&n.children, handle, fn)
	}
}

// Clear deletes every object.
func (ns *Namespace) Clear() {
	ns.root.release()
}

func joinPath(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "/" + key
}
