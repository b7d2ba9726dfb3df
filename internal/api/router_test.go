package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/openscore-go/internal/config"
	"github.com/LdDl/openscore-go/internal/detections"
	"github.com/LdDl/openscore-go/internal/pipeline"
	"github.com/LdDl/openscore-go/internal/tasks"
	"github.com/LdDl/openscore-go/mot"
	"github.com/LdDl/openscore-go/result"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) (*gin.Engine, *tasks.Manager) {
	t.Helper()
	runner, err := pipeline.NewRunner(config.Default())
	require.NoError(t, err)
	manager := tasks.NewManager(tasks.NewMemoryStore(), runner, tasks.Options{Workers: 1, QueueSize: 4}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)
	t.Cleanup(func() {
		cancel()
		manager.Wait()
	})
	return NewRouter(manager, opts, nil), manager
}

func detectionStream(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := detections.NewWriter(&buf)
	require.NoError(t, w.WriteMeta(detections.Meta{Width: 1280, Height: 720, FPS: 30, FrameCount: n}))
	for i := 0; i < n; i++ {
		require.NoError(t, w.WriteFrame(detections.Frame{
			FrameID: i,
			Detections: []mot.Detection{
				{BBox: mot.NewRect(100+float64(i), 300, 40, 80), Class: mot.ClassReceiver, Confidence: 0.9},
				{BBox: mot.NewRect(220, 300, 40, 80), Class: mot.ClassDefender, Confidence: 0.85},
			},
		}))
	}
	return buf.Bytes()
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func submit(t *testing.T, r http.Handler, body []byte) string {
	t.Helper()
	rec := do(r, httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tasks.StatusQueued, resp.Status)
	return resp.TaskID
}

func waitCompleted(t *testing.T, r http.Handler, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := do(r, httptest.NewRequest(http.MethodGet, "/api/status/"+id, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		var task tasks.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
			return false
		}
		return task.Status == tasks.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t, Options{})
	rec := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"openscore"}`, rec.Body.String())
}

func TestTaskFlow(t *testing.T) {
	r, _ := newTestServer(t, Options{ChartThreshold: 75})
	id := submit(t, r, detectionStream(t, 20))
	waitCompleted(t, r, id)

	rec := do(r, httptest.NewRequest(http.MethodGet, "/api/results/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	res, err := result.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Video.TotalFrames)
	assert.NotEmpty(t, res.Summary.ReceiverStats)

	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/report/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "clearly open")

	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	rec = do(r, httptest.NewRequest(http.MethodDelete, "/api/task/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/status/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(r, httptest.NewRequest(http.MethodDelete, "/api/task/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMultipartUpload(t *testing.T) {
	r, _ := newTestServer(t, Options{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadField, "snap.jsonl")
	require.NoError(t, err)
	_, err = part.Write(detectionStream(t, 5))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(r, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	waitCompleted(t, r, resp.TaskID)

	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/status/"+resp.TaskID, nil))
	assert.Contains(t, rec.Body.String(), `"source":"snap.jsonl"`)
}

func TestResultsNotReady(t *testing.T) {
	manager := tasks.NewManager(tasks.NewMemoryStore(), nil, tasks.Options{QueueSize: 2}, nil)
	r := NewRouter(manager, Options{}, nil)
	// Manager is not started so the task stays queued
	id := submit(t, r, detectionStream(t, 2))

	rec := do(r, httptest.NewRequest(http.MethodGet, "/api/results/"+id, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/report/"+id, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/results/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitRejections(t *testing.T) {
	manager := tasks.NewManager(tasks.NewMemoryStore(), nil, tasks.Options{QueueSize: 1}, nil)
	r := NewRouter(manager, Options{MaxUploadBytes: 64}, nil)

	rec := do(r, httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("  \n")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(strings.Repeat("x", 100))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	small := []byte(`{"frame_id":0,"detections":[]}` + "\n")
	rec = do(r, httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(small)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = do(r, httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(small)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "queue of one is full")
}
