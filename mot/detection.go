package mot

import (
	"math"

	"github.com/pkg/errors"
)

// Detection is a single detector output for one frame.
type Detection struct {
	FrameID    int
	BBox       Rectangle
	Class      ObjectClass
	Confidence float64
}

// ErrInvalidDetection is returned by Validate for unusable detections
var ErrInvalidDetection = errors.New("invalid detection")

// Validate checks that bbox is finite and has positive area, and confidence lies in [0, 1]
func (d Detection) Validate() error {
	if !d.BBox.IsValid() || d.BBox.Area() <= 0 {
		return errors.Wrapf(ErrInvalidDetection, "bbox %+v", d.BBox)
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return errors.Wrapf(ErrInvalidDetection, "confidence %v", d.Confidence)
	}
	if int(d.Class) >= len(classNames) {
		return errors.Wrapf(ErrInvalidDetection, "class %d", uint8(d.Class))
	}
	return nil
}
