package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	raycastTolerance     = 1e-7
	raycastMaxIterations = 64
)

// castSupport casts a ray against the convex set described by support, with
// the GJK ray cast: the ray origin advances to the separating plane of the
// closest simplex until it touches the set. A ray starting inside hits at
// distance 0.
func castSupport(support func(mgl64.Vec3) mgl64.Vec3, start, origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	if direction.LenSqr() < 1e-24 {
		return 0, mgl64.Vec3{}, false
	}

	lambda := 0.0
	x := origin
	v := x.Sub(start)
	var normal mgl64.Vec3

	simplex := make([]mgl64.Vec3, 0, 4)
	for range raycastMaxIterations {
		if v.LenSqr() <= raycastTolerance*raycastTolerance {
			break
		}

		p := support(v)
		w := x.Sub(p)
		if vw := v.Dot(w); vw > 0 {
			vr := v.Dot(direction)
			if vr >= 0 {
				return 0, mgl64.Vec3{}, false
			}
			lambda -= vw / vr
			if lambda > maxDistance {
				return 0, mgl64.Vec3{}, false
			}
			x = origin.Add(direction.Mul(lambda))
			normal = v
		} else if v.LenSqr()-v.Dot(w) <= raycastTolerance*v.LenSqr() {
			// no progress left, x lies on the set
			break
		}

		if !containsPoint(simplex, p) {
			simplex = append(simplex, p)
		}

		var closest mgl64.Vec3
		closest, simplex = closestOnSimplex(simplex, x)
		v = x.Sub(closest)
	}

	if normal.LenSqr() < 1e-24 {
		return 0, direction.Mul(-1).Normalize(), true
	}
	return lambda, normal.Normalize(), true
}

func containsPoint(points []mgl64.Vec3, p mgl64.Vec3) bool {
	for _, q := range points {
		if q.Sub(p).LenSqr() < 1e-24 {
			return true
		}
	}
	return false
}

// closestOnSimplex returns the point of the hull of simplex closest to x and
// the smallest sub simplex holding it.
func closestOnSimplex(simplex []mgl64.Vec3, x mgl64.Vec3) (mgl64.Vec3, []mgl64.Vec3) {
	switch len(simplex) {
	case 1:
		return simplex[0], simplex
	case 2:
		return closestOnSegment(simplex[0], simplex[1], x)
	case 3:
		return closestOnTriangle(simplex[0], simplex[1], simplex[2], x)
	}
	return closestOnTetrahedron(simplex[0], simplex[1], simplex[2], simplex[3], x)
}

func closestOnSegment(a, b, x mgl64.Vec3) (mgl64.Vec3, []mgl64.Vec3) {
	ab := b.Sub(a)
	length := ab.LenSqr()
	if length < 1e-24 {
		return a, []mgl64.Vec3{a}
	}

	t := x.Sub(a).Dot(ab) / length
	switch {
	case t <= 0:
		return a, []mgl64.Vec3{a}
	case t >= 1:
		return b, []mgl64.Vec3{b}
	}
	return a.Add(ab.Mul(t)), []mgl64.Vec3{a, b}
}

// closestOnTriangle walks the Voronoi regions of the triangle.
func closestOnTriangle(a, b, c, x mgl64.Vec3) (mgl64.Vec3, []mgl64.Vec3) {
	ab, ac := b.Sub(a), c.Sub(a)

	ax := x.Sub(a)
	d1, d2 := ab.Dot(ax), ac.Dot(ax)
	if d1 <= 0 && d2 <= 0 {
		return a, []mgl64.Vec3{a}
	}

	bx := x.Sub(b)
	d3, d4 := ab.Dot(bx), ac.Dot(bx)
	if d3 >= 0 && d4 <= d3 {
		return b, []mgl64.Vec3{b}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Mul(d1 / (d1 - d3))), []mgl64.Vec3{a, b}
	}

	cx := x.Sub(c)
	d5, d6 := ab.Dot(cx), ac.Dot(cx)
	if d6 >= 0 && d5 <= d6 {
		return c, []mgl64.Vec3{c}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Mul(d2 / (d2 - d6))), []mgl64.Vec3{a, c}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w)), []mgl64.Vec3{b, c}
	}

	sum := va + vb + vc
	if math.Abs(sum) < 1e-24 {
		// collinear points
		return closestOfEdges(x, [][2]mgl64.Vec3{{a, b}, {b, c}, {a, c}})
	}
	v, w := vb/sum, vc/sum
	return a.Add(ab.Mul(v)).Add(ac.Mul(w)), []mgl64.Vec3{a, b, c}
}

func closestOfEdges(x mgl64.Vec3, edges [][2]mgl64.Vec3) (mgl64.Vec3, []mgl64.Vec3) {
	best := math.Inf(1)
	var point mgl64.Vec3
	var subset []mgl64.Vec3
	for _, e := range edges {
		p, s := closestOnSegment(e[0], e[1], x)
		if d := p.Sub(x).LenSqr(); d < best {
			best, point, subset = d, p, s
		}
	}
	return point, subset
}

func closestOnTetrahedron(a, b, c, d, x mgl64.Vec3) (mgl64.Vec3, []mgl64.Vec3) {
	faces := [4][4]mgl64.Vec3{{a, b, c, d}, {a, c, d, b}, {a, d, b, c}, {b, d, c, a}}

	inside := true
	best := math.Inf(1)
	var point mgl64.Vec3
	var subset []mgl64.Vec3
	for _, f := range faces {
		n := f[1].Sub(f[0]).Cross(f[2].Sub(f[0]))
		side := n.Dot(x.Sub(f[0]))
		opposite := n.Dot(f[3].Sub(f[0]))
		if math.Abs(opposite) < 1e-24 || side*opposite < 0 {
			inside = false
		}

		p, s := closestOnTriangle(f[0], f[1], f[2], x)
		if dist := p.Sub(x).LenSqr(); dist < best {
			best, point, subset = dist, p, s
		}
	}

	if inside {
		return x, []mgl64.Vec3{a, b, c, d}
	}
	return point, subset
}
