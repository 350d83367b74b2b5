package geometry

import (
	"strconv"

	"github.com/aretw0/intheflow/pkg/domain"
)

const controlOffset = 50

func bezier(s, t domain.Point) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return "M " + f(s.X) + " " + f(s.Y) +
		" C " + f(s.X+controlOffset) + " " + f(s.Y) +
		", " + f(t.X-controlOffset) + " " + f(t.Y) +
		", " + f(t.X) + " " + f(t.Y)
}
