package analyses

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/extract"
	"skillgap-backend/internal/shared/server/middleware"
	"skillgap-backend/internal/shared/server/respond"
)

const (
	modelRetryAfterSeconds   = "30"
	timeoutRetryAfterSeconds = "1"
	multipartOverheadBytes   = 1 << 20
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc         *Service
	pollLimiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, pollLimiter: newPollLimiter(pollLimitWindow, nil)}
}

type analyzeTextRequest struct {
	Text   string `json:"text" binding:"max=200000"`
	RoleID string `json:"role_id" binding:"max=128"`
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", h.uploadResume)
	rg.POST("/resumes/async", h.uploadResumeAsync)
	rg.POST("/analyses", h.analyzeText)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
}

func (h *Handler) uploadResume(c *gin.Context) {
	upload, roleID, file, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer file.Close()
	analysis, err := h.Svc.AnalyzeUpload(withRequest(c), middleware.UserIDFromContext(c), roleID, upload)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	respond.OK(c, analysis.Result)
}

func (h *Handler) uploadResumeAsync(c *gin.Context) {
	if h.Svc.Queue == nil {
		writeAnalysisError(c, ErrJobQueueNotConfigured)
		return
	}
	upload, roleID, file, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer file.Close()
	analysis, err := h.Svc.Enqueue(withRequest(c), middleware.UserIDFromContext(c), roleID, upload)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

func (h *Handler) analyzeText(c *gin.Context) {
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", []map[string]string{
			{"field": "body", "issue": err.Error()},
		})
		return
	}
	analysis, err := h.Svc.AnalyzeText(withRequest(c), middleware.UserIDFromContext(c), req.RoleID, req.Text)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	respond.OK(c, analysis.Result)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysisID := strings.TrimSpace(c.Param("id"))
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)

	analysis, err := h.Svc.Get(c.Request.Context(), userID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}

	if analysis.Status == StatusQueued || analysis.Status == StatusProcessing {
		if !h.pollLimiter.Allow(userID, analysisID) {
			c.Header("Retry-After", strconv.Itoa(h.pollLimiter.RetryAfterSeconds()))
			respond.Error(c, http.StatusTooManyRequests, "poll_rate_limited", "polling too frequently", nil)
			return
		}
	}

	respond.OK(c, analysis)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	if middleware.IsAnonymous(c) {
		respond.Error(c, http.StatusUnauthorized, "identity_required", "An X-Guest-Id header is required to view history", nil)
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	analyses, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(analyses))
	for _, a := range analyses {
		item := gin.H{
			"analysisId": a.ID,
			"status":     a.Status,
			"createdAt":  a.CreatedAt,
		}
		if a.FileName != "" {
			item["fileName"] = a.FileName
		}
		if a.RoleID != "" {
			item["roleId"] = a.RoleID
		}
		if a.Status == StatusCompleted && a.Result != nil {
			if a.Result.SelectedRole != nil {
				item["selectedRole"] = a.Result.SelectedRole.Title
				item["score"] = a.Result.SelectedRole.Score
			}
			item["noGoodMatch"] = a.Result.NoGoodMatch
			item["summary"] = a.Result.Critique.Summary
		}
		if a.Status == StatusFailed {
			item["errorCode"] = a.ErrorCode
		}
		resp = append(resp, item)
	}

	respond.OK(c, resp)
}

// readUpload pulls the multipart file and optional role_id. It writes the
// error response itself and reports false on failure; on success the caller
// closes the returned file.
func (h *Handler) readUpload(c *gin.Context) (Upload, string, multipart.File, bool) {
	limit := h.Svc.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverheadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAnalysisError(c, ErrFileTooLarge)
			return Upload{}, "", nil, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", []map[string]string{
			{"field": "file", "issue": "required"},
		})
		return Upload{}, "", nil, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return Upload{}, "", nil, false
	}
	return Upload{FileName: fileHeader.Filename, Body: file}, strings.TrimSpace(c.PostForm("role_id")), file, true
}

// withRequest carries the request ID into the service context for logging.
func withRequest(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), c.GetString("requestId"))
}

func writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
	case errors.Is(err, ErrFileTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file exceeds the size limit", nil)
	case errors.Is(err, extract.ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "file type is not supported; upload PDF, DOCX, TXT, MD or CSV", nil)
	case errors.Is(err, extract.ErrUnreadable):
		respond.Error(c, http.StatusUnprocessableEntity, "unreadable_file", "file could not be parsed", nil)
	case errors.Is(err, ErrJobQueueNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "queue_not_configured", "asynchronous analysis is not available", nil)
	case engine.KindOf(err) == engine.KindModelUnavailable:
		c.Header("Retry-After", modelRetryAfterSeconds)
		respond.Error(c, http.StatusServiceUnavailable, "model_unavailable", "analysis model is not available", map[string]any{"retryable": true})
	case engine.KindOf(err) == engine.KindTimeout:
		c.Header("Retry-After", timeoutRetryAfterSeconds)
		respond.Error(c, http.StatusServiceUnavailable, "analysis_timeout", "analysis timed out", map[string]any{"retryable": true})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis failed", nil)
	}
}
