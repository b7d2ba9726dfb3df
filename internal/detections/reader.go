package detections

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/LdDl/openscore-go/mot"
)

// Meta is the optional stream header
type Meta struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
}

// Frame is detector output for one frame. Err is set when the detector failed on it
type Frame struct {
	FrameID    int
	Detections []mot.Detection
	Err        string
}

// Stats counts input problems seen so far
type Stats struct {
	Records           int `json:"records"`
	Malformed         int `json:"malformed"`
	InvalidDetections int `json:"invalid_detections"`
}

// Source yields frames in stream order. Next returns io.EOF after the last frame.
type Source interface {
	Meta() Meta
	Next(ctx context.Context) (Frame, error)
	Stats() Stats
	Close() error
}

// maxLineSize bounds one JSON line, a crowded frame stays far below it
const maxLineSize = 8 << 20

type wireDetection struct {
	BBox       []float64 `json:"bbox"`
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
}

type wireRecord struct {
	Meta       *Meta           `json:"meta,omitempty"`
	FrameID    *int            `json:"frame_id,omitempty"`
	Detections []wireDetection `json:"detections,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Reader parses JSON lines stream
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	meta    Meta
	pending []byte
	stats   Stats
}

// NewReader reads the header (if present) and prepares frame iteration
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	reader := &Reader{scanner: scanner}
	if err := reader.readHeader(); err != nil {
		return nil, err
	}
	return reader, nil
}

// OpenFile opens JSON lines file. Path "-" reads stdin
func OpenFile(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open detections: %w", err)
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

func (r *Reader) readHeader() error {
	line, err := r.nextLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	var rec wireRecord
	if json.Unmarshal(line, &rec) == nil && rec.Meta != nil && rec.FrameID == nil {
		r.meta = *rec.Meta
		return nil
	}
	r.pending = line
	return nil
}

// nextLine returns next non-empty line
func (r *Reader) nextLine() ([]byte, error) {
	if r.pending != nil {
		line := r.pending
		r.pending = nil
		return line, nil
	}
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		return cp, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	return nil, io.EOF
}

// Meta returns stream header, zero value when the stream has none
func (r *Reader) Meta() Meta {
	return r.meta
}

// Stats returns counters of processed records
func (r *Reader) Stats() Stats {
	return r.stats
}

// Next returns next frame record. Context is checked between lines
func (r *Reader) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		line, err := r.nextLine()
		if err != nil {
			return Frame{}, err
		}
		r.stats.Records++
		var rec wireRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.FrameID == nil || *rec.FrameID < 0 {
			r.stats.Malformed++
			continue
		}
		return r.convert(rec), nil
	}
}

func (r *Reader) convert(rec wireRecord) Frame {
	frame := Frame{
		FrameID:    *rec.FrameID,
		Err:        rec.Error,
		Detections: make([]mot.Detection, 0, len(rec.Detections)),
	}
	for _, wd := range rec.Detections {
		det, err := toDetection(frame.FrameID, wd)
		if err != nil {
			r.stats.InvalidDetections++
			continue
		}
		frame.Detections = append(frame.Detections, det)
	}
	return frame
}

func toDetection(frameID int, wd wireDetection) (mot.Detection, error) {
	if len(wd.BBox) != 4 {
		return mot.Detection{}, fmt.Errorf("bbox must have 4 coordinates, got %d", len(wd.BBox))
	}
	class, err := mot.ParseObjectClass(wd.Class)
	if err != nil {
		return mot.Detection{}, err
	}
	det := mot.Detection{
		FrameID:    frameID,
		BBox:       mot.NewRectXYXY(wd.BBox[0], wd.BBox[1], wd.BBox[2], wd.BBox[3]),
		Class:      class,
		Confidence: wd.Confidence,
	}
	if err := det.Validate(); err != nil {
		return mot.Detection{}, err
	}
	return det, nil
}

// Close releases underlying file if the reader owns one
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
