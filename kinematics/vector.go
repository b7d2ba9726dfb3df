package kinematics

import (
	"math"
)

// Vector is 2D vector in field units (yards or yards per second)
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + other
func (v Vector) Add(other Vector) Vector {
	return Vector{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns v - other
func (v Vector) Sub(other Vector) Vector {
	return Vector{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale returns v multiplied by k
func (v Vector) Scale(k float64) Vector {
	return Vector{X: v.X * k, Y: v.Y * k}
}

// Dot returns scalar product
func (v Vector) Dot(other Vector) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Norm returns length of vector
func (v Vector) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Unit returns unit vector of the same direction. Zero vector stays zero
func (v Vector) Unit() Vector {
	n := v.Norm()
	if n == 0 {
		return Vector{}
	}
	return v.Scale(1.0 / n)
}

// IsZero reports whether both coordinates are zero
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}
