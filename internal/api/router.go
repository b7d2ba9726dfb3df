package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LdDl/openscore-go/internal/logging"
	"github.com/LdDl/openscore-go/internal/report"
	"github.com/LdDl/openscore-go/internal/tasks"
	"github.com/LdDl/openscore-go/result"
)

// Service is what the API needs from task registry. *tasks.Manager implements it
type Service interface {
	Submit(ctx context.Context, source string, payload []byte) (*tasks.Task, error)
	Get(ctx context.Context, id string) (*tasks.Task, error)
	Result(ctx context.Context, id string) (*result.Result, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*tasks.Task, error)
}

// Options of router
type Options struct {
	// MaxUploadBytes caps detection stream size, zero means no limit
	MaxUploadBytes int64
	// ChartThreshold is "clearly open" line of HTML report
	ChartThreshold float64
}

// uploadField is multipart field holding detection stream
const uploadField = "detections"

type handler struct {
	svc    Service
	opts   Options
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type submitResponse struct {
	TaskID string       `json:"task_id"`
	Status tasks.Status `json:"status"`
}

// NewRouter builds gin engine with every route
func NewRouter(svc Service, opts Options, logger *slog.Logger) *gin.Engine {
	h := &handler{
		svc:    svc,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)

	r.GET("/", h.health)
	apiRoutes := r.Group("/api")
	apiRoutes.POST("/tasks", h.submit)
	apiRoutes.GET("/tasks", h.list)
	apiRoutes.GET("/status/:id", h.status)
	apiRoutes.GET("/results/:id", h.results)
	apiRoutes.GET("/report/:id", h.report)
	apiRoutes.DELETE("/task/:id", h.delete)
	return r
}

func (h *handler) accessLog(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	h.logger.Debug("request",
		logging.String("method", ctx.Request.Method),
		logging.String("path", ctx.FullPath()),
		logging.Int("status", ctx.Writer.Status()),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func (h *handler) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "service": "openscore"})
}

func (h *handler) submit(ctx *gin.Context) {
	if h.opts.MaxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.opts.MaxUploadBytes)
	}
	source, payload, err := readUpload(ctx)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "detection stream is too large"})
			return
		}
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: "detection stream is empty"})
		return
	}
	task, err := h.svc.Submit(ctx.Request.Context(), source, payload)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, submitResponse{TaskID: task.ID, Status: task.Status})
}

// readUpload takes stream from multipart field or from raw body
func readUpload(ctx *gin.Context) (string, []byte, error) {
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fileHeader, err := ctx.FormFile(uploadField)
		if err != nil {
			return "", nil, err
		}
		payload, err := readPart(fileHeader)
		if err != nil {
			return "", nil, err
		}
		return fileHeader.Filename, payload, nil
	}
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return "", nil, err
	}
	return "body", payload, nil
}

func readPart(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (h *handler) list(ctx *gin.Context) {
	all, err := h.svc.List(ctx.Request.Context())
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, all)
}

func (h *handler) status(ctx *gin.Context) {
	task, err := h.svc.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, task)
}

func (h *handler) results(ctx *gin.Context) {
	res, err := h.svc.Result(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (h *handler) report(ctx *gin.Context) {
	res, err := h.svc.Result(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)
	if err := report.Chart(ctx.Writer, res, report.ChartOptions{Threshold: h.opts.ChartThreshold}); err != nil {
		h.logger.Warn("report rendering failed", logging.TaskID(ctx.Param("id")), logging.Error(err))
	}
}

func (h *handler) delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := h.svc.Delete(ctx.Request.Context(), id); err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"task_id": id, "deleted": true})
}

// fail maps registry errors onto status codes
func (h *handler) fail(ctx *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, tasks.ErrNotReady):
		code = http.StatusConflict
	case errors.Is(err, tasks.ErrQueueFull):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", logging.String("path", ctx.FullPath()), logging.Error(err))
	}
	ctx.JSON(code, errorResponse{Error: err.Error()})
}
