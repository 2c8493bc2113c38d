package transform

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// nestedLoops renders one Loop per bound, each nested in the previous one. A
// zero bound reads the limit from the runtime context instead.
func nestedLoops(bounds []int) string {
	var open, end strings.Builder
	for i, n := range bounds {
		if n == 0 {
			fmt.Fprintf(&open, "<Loop max={ctx.limit%d}>", i)
		} else {
			fmt.Fprintf(&open, "<Loop max={%d}>", n)
		}
		end.WriteString("</Loop>")
	}
	return `const ctx = useRuntimeVar("CTX");
export default <Command>` + open.String() + "work" + end.String() + "</Command>;\n"
}

func transformSource(src string) (*ir.Document, error) {
	f, err := source.Parse("doc.tsx", src)
	if err != nil {
		return nil, err
	}
	return New(Options{}).Transform(f)
}

func TestLoopProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	properties.Property("every loop carries a bound", prop.ForAll(
		func(bounds []int) bool {
			doc, err := transformSource(nestedLoops(bounds))
			if err != nil {
				return false
			}
			loops := 0
			ok := true
			for _, b := range doc.Body {
				ir.Walk(b, func(n ir.Node) bool {
					if l, isLoop := n.(*ir.Loop); isLoop {
						loops++
						if l.Max.Ref == nil && l.Max.Static <= 0 {
							ok = false
						}
					}
					return true
				})
			}
			return ok && loops == len(bounds)
		},
		gen.SliceOfN(4, gen.IntRange(0, 50)),
	))

	properties.Property("non-positive static bounds are rejected", prop.ForAll(
		func(n int) bool {
			_, err := transformSource(nestedLoops([]int{5, n}))
			return ir.IsCode(err, ir.ErrStructuralViolation)
		},
		gen.IntRange(-100, -1),
	))

	properties.Property("transform is deterministic", prop.ForAll(
		func(bounds []int) bool {
			src := nestedLoops(bounds)
			a, errA := transformSource(src)
			b, errB := transformSource(src)
			if errA != nil || errB != nil {
				return false
			}
			ha, errA := ir.DocumentHash(a)
			hb, errB := ir.DocumentHash(b)
			return errA == nil && errB == nil && ha == hb
		},
		gen.SliceOfN(3, gen.IntRange(0, 9)),
	))

	properties.TestingRun(t)
}
