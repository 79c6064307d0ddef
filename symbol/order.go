package symbol

import (
	"cmp"

	"github.com/skyleague/therefore-sub001/graph"
)

// Compare orders nodes for collision suffixing and sort tie-breaks: by
// declared name descending, then kind tag descending, then id descending.
// It returns a negative number when a sorts before b.
func Compare(a, b graph.Node) int {
	am, bm := a.Base(), b.Base()
	if c := cmp.Compare(bm.Name, am.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Kind().String(), a.Kind().String()); c != 0 {
		return c
	}
	return cmp.Compare(bm.ID, am.ID)
}
