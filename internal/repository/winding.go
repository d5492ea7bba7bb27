package repository

import "github.com/paulmach/orb"

// orientRings returns a copy of polygon whose first ring winds in the outer
// direction and whose remaining rings wind the opposite way. The input is not modified.
func orientRings(polygon orb.Polygon, outer orb.Orientation) orb.Polygon {
	out := make(orb.Polygon, 0, len(polygon))
	for i, ring := range polygon {
		want := outer
		if i > 0 {
			want = -outer
		}
		r := ring.Clone()
		if r.Orientation() == -want {
			r.Reverse()
		}
		out = append(out, r)
	}
	return out
}
