package analysis

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"agronity/agronity-backend/internal/diagnosis"
	"agronity/agronity-backend/internal/feasibility"
	"agronity/agronity-backend/internal/history"
	"agronity/agronity-backend/internal/reports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for crop analysis
type Handler struct {
	service   *Service
	maxUpload int64
	logger    *zap.Logger
}

// NewHandler creates a new analysis handler. maxUpload bounds image uploads
// in bytes.
func NewHandler(service *Service, maxUpload int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{service: service, maxUpload: maxUpload, logger: logger}
}

// RegisterRoutes registers analysis routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/analyze", h.Analyze)
	router.POST("/analyze/report", h.AnalyzeReport)
	router.POST("/analyze_image", h.AnalyzeImage)
	router.POST("/images", h.UploadImage)
	router.GET("/models", h.Models)
	router.GET("/crops", h.Crops)

	hist := router.Group("/history")
	{
		hist.GET("", h.History)
		hist.GET("/export", h.ExportHistory)
	}
}

// Analyze handles POST /analyze
func (h *Handler) Analyze(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	res := h.service.Analyze(c.Request.Context(), q)
	c.JSON(resultStatus(res), res)
}

// AnalyzeReport handles POST /analyze/report
func (h *Handler) AnalyzeReport(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	pdf, res, err := h.service.Report(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Failed to render feasibility report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}
	if res.Status == feasibility.StatusError {
		c.JSON(http.StatusBadRequest, res)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="feasibility-%s.pdf"`, time.Now().UTC().Format("20060102-150405")))
	c.Data(http.StatusOK, reports.ExportFormatPDF.ContentType(), pdf)
}

func (h *Handler) bindQuery(c *gin.Context) (feasibility.Query, bool) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload", "details": err.Error()})
		return feasibility.Query{}, false
	}
	q, err := req.Query()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return feasibility.Query{}, false
	}
	return q, true
}

func resultStatus(res feasibility.Result) int {
	if res.Status == feasibility.StatusError {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

// AnalyzeImage handles POST /analyze_image
func (h *Handler) AnalyzeImage(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	result := h.service.ClassifyImage(c.Request.Context(), diagnosis.Request{Filename: req.Filename})
	c.JSON(http.StatusOK, result)
}

// UploadImage handles POST /images
func (h *Handler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file", "details": err.Error()})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return
	}
	if len(content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is empty"})
		return
	}

	result, err := h.service.UploadImage(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		if errors.Is(err, ErrNoImageStore) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to upload image", zap.String("filename", header.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Models handles GET /models
func (h *Handler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Models())
}

// Crops handles GET /crops
func (h *Handler) Crops(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"crops": h.service.Crops()})
}

// History handles GET /history
func (h *Handler) History(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evals, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		h.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"evaluations": evals,
		"count":       len(evals),
		"summary":     history.Summarize(evals),
	})
}

// ExportHistory handles GET /history/export
func (h *Handler) ExportHistory(c *gin.Context) {
	format, err := reports.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter, err := parseListFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := h.service.ExportHistory(c.Request.Context(), format, filter)
	if err != nil {
		h.historyError(c, err)
		return
	}

	filename := "history-" + time.Now().UTC().Format("20060102") + format.Extension()
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), data)
}

func (h *Handler) historyError(c *gin.Context, err error) {
	if errors.Is(err, ErrHistoryDisabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("Failed to read history", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history"})
}

func parseListFilter(c *gin.Context) (history.ListFilter, error) {
	filter := history.ListFilter{
		Kind:     history.Kind(c.Query("kind")),
		Crop:     c.Query("crop"),
		District: c.Query("district"),
	}
	if filter.Kind != "" && filter.Kind != history.KindFeasibility && filter.Kind != history.KindImage {
		return filter, fmt.Errorf("invalid kind: %s", filter.Kind)
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit: %s", v)
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid offset: %s", v)
		}
		filter.Offset = n
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid since: %s", v)
		}
		filter.Since = &t
	}
	return filter, nil
}
