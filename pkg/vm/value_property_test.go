package vm

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_Coercion tests the laws the operators rely on.
func TestProperty_Coercion(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("int renders and parses back", prop.ForAll(
		func(i int32) bool {
			n, ok := MakeString(MakeInt(i).ToString()).ToInt()
			return ok && n == i
		},
		gen.Int32(),
	))

	properties.Property("relative int survives a string round trip", prop.ForAll(
		func(i int32) bool {
			s := MakeString(MakeRelative(i).ToString())
			s.Relative = true
			n, ok := s.ToInt()
			return ok && n == i && s.ToString() == fmt.Sprintf("@%d", i)
		},
		gen.Int32(),
	))

	properties.Property("int addition matches Go arithmetic", prop.ForAll(
		func(a, b int32) bool {
			v, err := Add(MakeInt(a), MakeInt(b))
			n, _ := v.ToInt()
			return err == nil && v.Kind() == KindInt && n == a+b
		},
		gen.Int32(),
		gen.Int32(),
	))

	properties.Property("string plus anything concatenates", prop.ForAll(
		func(s string, i int32) bool {
			v, err := Add(MakeString(s), MakeInt(i))
			return err == nil && v.ToString() == s+fmt.Sprint(i)
		},
		gen.AnyString(),
		gen.Int32(),
	))

	properties.Property("Equal is symmetric", prop.ForAll(
		func(a int32, s string) bool {
			l, r := MakeInt(a), MakeString(s)
			x, _ := Equal(l, r)
			y, _ := Equal(r, l)
			return x == y
		},
		gen.Int32Range(-2, 2),
		gen.OneConstOf("true", "false", "1", "0", "abc", ""),
	))

	properties.Property("Compare is antisymmetric", prop.ForAll(
		func(a, b int32) bool {
			x, _ := Compare(MakeInt(a), MakeInt(b))
			y, _ := Compare(MakeInt(b), MakeInt(a))
			return x == -y
		},
		gen.Int32(),
		gen.Int32(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestProperty_MotionBounds tests that every tempo starts at From, ends at
// To and stays between them.
func TestProperty_MotionBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("motion value stays within its endpoints", prop.ForAll(
		func(from, to float64, ms int, elapsed int, tempo int32) bool {
			m := NewMotion(from, to, start, time.Duration(ms)*time.Millisecond, tempo)
			lo, hi := from, to
			if lo > hi {
				lo, hi = hi, lo
			}
			v := m.Value(start.Add(time.Duration(elapsed) * time.Millisecond))
			end := m.Value(start.Add(time.Duration(ms) * time.Millisecond))
			return v >= lo-1e-9 && v <= hi+1e-9 && math.Abs(end-to) < 1e-9 && m.Value(start) == from
		},
		gen.Float64Range(-1000, 1000),
		gen.Float64Range(-1000, 1000),
		gen.IntRange(1, 5000),
		gen.IntRange(0, 6000),
		gen.Int32Range(TempoLinear, TempoAxlDxl),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
