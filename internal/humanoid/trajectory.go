package humanoid

import "math"

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X, Y float64
}

func (p Point) add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }
func (p Point) sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }
func (p Point) mul(s float64) Point { return Point{p.X * s, p.Y * s} }
func (p Point) Dist(o Point) float64 { return math.Hypot(p.X-o.X, p.Y-o.Y) }
func (p Point) equal(o Point, eps float64) bool { return p.Dist(o) < eps }

// easeInOutCubic accelerates over the first half of a movement and decelerates over the second.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Path returns steps points from just after start up to and including end,
// spaced along the straight line by an ease-in-out profile. Fewer than one
// step, or a sub-pixel distance, yields just end.
func Path(start, end Point, steps int) []Point {
	if steps <= 1 || start.equal(end, 1) {
		return []Point{end}
	}
	delta := end.sub(start)
	path := make([]Point, steps)
	for i := 1; i <= steps; i++ {
		t := easeInOutCubic(float64(i) / float64(steps))
		path[i-1] = start.add(delta.mul(t))
	}
	path[steps-1] = end
	return path
}
