package detections

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/openscore-go/mot"
)

func readAll(t *testing.T, src Source) []Frame {
	t.Helper()
	frames := make([]Frame, 0)
	for {
		frame, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
}

func TestReaderParsesStream(t *testing.T) {
	stream := `{"meta":{"width":1280,"height":720,"fps":25,"frame_count":3}}
{"frame_id":0,"detections":[{"bbox":[10,20,50,100],"class":"receiver","confidence":0.9},{"bbox":[60,20,90,100],"class":"Defender","confidence":0.7}]}

not json at all
{"frame_id":1,"detections":[{"bbox":[10,20],"class":"receiver","confidence":0.9},{"bbox":[1,1,5,5],"class":"umpire","confidence":0.9},{"bbox":[1,1,5,5],"class":"ball","confidence":1.5}]}
{"detections":[]}
{"frame_id":2,"error":"cuda out of memory"}
`
	reader, err := NewReader(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, Meta{Width: 1280, Height: 720, FPS: 25, FrameCount: 3}, reader.Meta())

	frames := readAll(t, reader)
	require.Len(t, frames, 3)

	require.Len(t, frames[0].Detections, 2)
	first := frames[0].Detections[0]
	assert.Equal(t, mot.ClassReceiver, first.Class)
	assert.Equal(t, mot.Rectangle{X: 10, Y: 20, Width: 40, Height: 80}, first.BBox)
	assert.Equal(t, mot.ClassDefender, frames[0].Detections[1].Class)

	assert.Empty(t, frames[1].Detections)
	assert.Equal(t, "cuda out of memory", frames[2].Err)

	stats := reader.Stats()
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 2, stats.Malformed)
	assert.Equal(t, 3, stats.InvalidDetections)
}

func TestReaderWithoutHeader(t *testing.T) {
	reader, err := NewReader(strings.NewReader(`{"frame_id":4,"detections":[]}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, Meta{}, reader.Meta())
	frames := readAll(t, reader)
	require.Len(t, frames, 1)
	assert.Equal(t, 4, frames[0].FrameID)
}

func TestReaderEmptyStream(t *testing.T) {
	reader, err := NewReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, readAll(t, reader))
}

func TestReaderCancelled(t *testing.T) {
	reader, err := NewReader(strings.NewReader(`{"frame_id":0}` + "\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reader.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteMeta(Meta{FPS: 30, FrameCount: 2}))
	in := []Frame{
		{FrameID: 0, Detections: []mot.Detection{{FrameID: 0, BBox: mot.NewRect(1, 2, 30, 40), Class: mot.ClassQuarterback, Confidence: 0.75}}},
		{FrameID: 1, Err: "timeout", Detections: []mot.Detection{}},
	}
	for _, f := range in {
		require.NoError(t, w.WriteFrame(f))
	}
	reader, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.Meta().FrameCount)
	assert.Equal(t, in, readAll(t, reader))
}

func TestCommandSource(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	script := `printf '{"meta":{"fps":10}}\n{"frame_id":0,"detections":[]}\n{"frame_id":1,"detections":[]}\n'`
	cmd, err := StartCommand(context.Background(), []string{"sh", "-c", script})
	require.NoError(t, err)
	defer cmd.Close()
	assert.Equal(t, 10.0, cmd.Meta().FPS)
	assert.Len(t, readAll(t, cmd), 2)
}

func TestCommandSourceFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	script := `printf '{"frame_id":0,"detections":[]}\n'; echo "model not found" >&2; exit 3`
	cmd, err := StartCommand(context.Background(), []string{"sh", "-c", script})
	require.NoError(t, err)
	defer cmd.Close()

	frame, err := cmd.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, frame.FrameID)

	_, err = cmd.Next(context.Background())
	require.ErrorIs(t, err, ErrDetectorFailed)
	assert.Contains(t, err.Error(), "model not found")
}

func TestStartCommandEmpty(t *testing.T) {
	_, err := StartCommand(context.Background(), nil)
	assert.Error(t, err)
}
