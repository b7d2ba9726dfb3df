package detections

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer produces JSON lines stream understood by Reader
type Writer struct {
	enc *json.Encoder
}

// NewWriter creates stream writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// WriteMeta writes stream header
func (w *Writer) WriteMeta(meta Meta) error {
	if err := w.enc.Encode(wireRecord{Meta: &meta}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WriteFrame writes one frame record
func (w *Writer) WriteFrame(frame Frame) error {
	frameID := frame.FrameID
	rec := wireRecord{
		FrameID:    &frameID,
		Error:      frame.Err,
		Detections: make([]wireDetection, 0, len(frame.Detections)),
	}
	for _, det := range frame.Detections {
		bbox := det.BBox.XYXY()
		rec.Detections = append(rec.Detections, wireDetection{
			BBox:       bbox[:],
			Class:      det.Class.String(),
			Confidence: det.Confidence,
		})
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write frame %d: %w", frame.FrameID, err)
	}
	return nil
}
