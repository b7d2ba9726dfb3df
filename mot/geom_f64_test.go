package mot

import (
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestNewRectXYXY(t *testing.T) {
	rect := NewRectXYXY(50, 80, 10, 20)
	if rect.X != 10 || rect.Y != 20 || rect.Width != 40 || rect.Height != 60 {
		t.Errorf("Wrong rectangle: %+v", rect)
	}
	corners := rect.XYXY()
	if corners != [4]float64{10, 20, 50, 80} {
		t.Errorf("Wrong corners: %v", corners)
	}
	center := rect.Center()
	if center != NewPoint(30, 50) {
		t.Errorf("Wrong center: %+v", center)
	}
}

func TestRectangleIsValid(t *testing.T) {
	cases := []struct {
		rect  Rectangle
		valid bool
	}{
		{NewRect(0, 0, 10, 10), true},
		{NewRect(5, 5, 0, 0), true},
		{NewRect(0, 0, -1, 10), false},
		{NewRect(math.NaN(), 0, 10, 10), false},
		{NewRect(0, math.Inf(1), 10, 10), false},
	}
	for i, c := range cases {
		if c.rect.IsValid() != c.valid {
			t.Errorf("Case %d: rectangle %+v validity should be %v", i, c.rect, c.valid)
		}
	}
}

func TestIoU(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	if answer := IoU(a, a); math.Abs(answer-1.0) > eps {
		t.Errorf("Identical boxes IoU: %v, correct answer: 1", answer)
	}
	b := NewRect(5, 0, 10, 10)
	correctAnswer := 50.0 / 150.0
	if answer := IoU(a, b); math.Abs(answer-correctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correctAnswer)
	}
	if answer := IoU(a, NewRect(20, 20, 5, 5)); answer != 0 {
		t.Errorf("Disjoint boxes should not overlap, got %v", answer)
	}
	if answer := IoU(NewRect(3, 3, 0, 0), NewRect(3, 3, 0, 0)); answer != 0 {
		t.Errorf("Degenerate boxes should not overlap, got %v", answer)
	}
}
