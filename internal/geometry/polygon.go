// Package geometry places the display streams on a regular polygon and measures
// the separation between stream positions.
package geometry

import (
	"fmt"
	"math"
)

// Vertex is one stream position relative to the fixation point.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BuildPolygon returns the vertices of a regular polygon with the given number of
// sides, radius and rotation (in degrees). The first vertex sits at shiftDegrees and
// the rest follow in 360/sides steps.
//
// The planar coordinates are swapped relative to the unit circle: X is the sine
// component and Y the cosine, so a zero shift puts vertex 0 straight above the centre.
func BuildPolygon(sides int, radius, shiftDegrees float64) ([]Vertex, error) {
	if sides <= 0 {
		return nil, fmt.Errorf("polygon needs at least one side, got %d", sides)
	}

	step := 360 / float64(sides)
	vertices := make([]Vertex, 0, sides)
	for i := 0; i < sides; i++ {
		t := (shiftDegrees + step*float64(i)) * math.Pi / 180
		vertices = append(vertices, Vertex{
			X: radius * math.Sin(t),
			Y: radius * math.Cos(t),
		})
	}
	return vertices, nil
}

// DistanceTable returns the straight-line distance from vertex 0 to every vertex.
// On a regular polygon lengths[k] is the distance between any two positions k steps apart.
func DistanceTable(vertices []Vertex) []float64 {
	lengths := make([]float64, len(vertices))
	if len(vertices) == 0 {
		return lengths
	}
	for i, v := range vertices {
		lengths[i] = EuclideanDistance(vertices[0], v)
	}
	return lengths
}

// EuclideanDistance is the straight-line distance between two vertices.
func EuclideanDistance(a, b Vertex) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// CircularDistance is the number of steps between two positions on a ring of the
// given size, going whichever way round is shorter.
func CircularDistance(a, b, sides int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if sides-d < d {
		return sides - d
	}
	return d
}
