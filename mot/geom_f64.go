package mot

import (
	"math"
)

// Rectangle is an axis-aligned box in pixel coordinates.
// X and Y are the top-left corner.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// NewRectXYXY builds rectangle from corner coordinates (x1, y1) and (x2, y2).
// Corners may come in any order.
func NewRectXYXY(x1, y1, x2, y2 float64) Rectangle {
	return Rectangle{
		X:      math.Min(x1, x2),
		Y:      math.Min(y1, y2),
		Width:  math.Abs(x2 - x1),
		Height: math.Abs(y2 - y1),
	}
}

// XYXY returns corner coordinates (x1, y1, x2, y2)
func (r Rectangle) XYXY() [4]float64 {
	return [4]float64{r.X, r.Y, r.X + r.Width, r.Y + r.Height}
}

// Center returns center of rectangle
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Area returns rectangle area
func (r Rectangle) Area() float64 {
	return r.Width * r.Height
}

// IsValid reports whether every coordinate is finite and the size is non-negative
func (r Rectangle) IsValid() bool {
	for _, v := range [4]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width >= 0 && r.Height >= 0
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}
