package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/gstr1-reconciler/internal/application/service"
	"github.com/garyjia/gstr1-reconciler/internal/domain/workflow"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/repository"
	"github.com/garyjia/gstr1-reconciler/internal/storage"
	"github.com/garyjia/gstr1-reconciler/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	partyService      service.PartyService
	complianceService service.ComplianceService
	logger            *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	partyService service.PartyService,
	complianceService service.ComplianceService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		partyService:      partyService,
		complianceService: complianceService,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	TemplateVersion string `json:"template_version"`
}

// CreateUserRequest registers a CA or a client party
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=ca customer"`
	CACode   string `json:"ca_code" binding:"required"`
	FirmName string `json:"firm_name"`
	GSTIN    string `json:"gstin" binding:"omitempty,gstin"`
}

// UploadResponse lists stored uploads
type UploadResponse struct {
	Files []models.UploadedFile `json:"files"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:          "healthy",
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			TemplateVersion: workbook.TemplateVersion,
		},
	})
}

// CreateUser handles POST /api/v1/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	user := &models.User{
		Username: req.Username,
		FullName: req.FullName,
		Role:     models.Role(req.Role),
		CACode:   req.CACode,
		FirmName: req.FirmName,
		GSTIN:    req.GSTIN,
	}
	if err := h.partyService.RegisterUser(c.Request.Context(), user); err != nil {
		h.fail(c, "Failed to register user", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// ListUsers handles GET /api/v1/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.partyService.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// GetParty handles GET /api/v1/parties/:partyId
func (h *Handlers) GetParty(c *gin.Context) {
	party, err := h.partyService.GetParty(c.Request.Context(), c.Param("partyId"))
	if err != nil {
		h.fail(c, "Failed to get party", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: party})
}

// UploadFiles handles POST /api/v1/parties/:partyId/files. Every "file" part is
// stored as a Pending extract.
func (h *Handlers) UploadFiles(c *gin.Context) {
	partyID := c.Param("partyId")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "multipart form expected"})
		return
	}
	parts := form.File["file"]
	if len(parts) == 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "no file parts"})
		return
	}

	stored := make([]models.UploadedFile, 0, len(parts))
	for _, part := range parts {
		content, err := readPart(part)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unreadable file part"})
			return
		}

		file, err := h.partyService.UploadFile(c.Request.Context(), partyID, service.UploadRequest{
			FileName:      part.Filename,
			Content:       content,
			FinancialYear: formValue(form, "financial_year"),
			Month:         formValue(form, "month"),
			Note:          formValue(form, "note"),
		})
		if err != nil {
			h.fail(c, "Failed to store upload", err)
			return
		}
		stored = append(stored, *file)
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: UploadResponse{Files: stored}})
}

// ListFiles handles GET /api/v1/parties/:partyId/files
func (h *Handlers) ListFiles(c *gin.Context) {
	status := models.FileStatus(c.Query("status"))
	files, err := h.partyService.ListFiles(c.Request.Context(), c.Param("partyId"), status)
	if err != nil {
		h.fail(c, "Failed to list files", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: files})
}

// RequeueFile handles POST /api/v1/parties/:partyId/files/:fileId/requeue
func (h *Handlers) RequeueFile(c *gin.Context) {
	file, err := h.partyService.RequeueFile(c.Request.Context(), c.Param("partyId"), c.Param("fileId"))
	if err != nil {
		h.fail(c, "Failed to requeue file", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: file})
}

// ProcessParty handles POST /api/v1/parties/:partyId/process
func (h *Handlers) ProcessParty(c *gin.Context) {
	var req service.ProcessRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
	}

	outcome, err := h.complianceService.ProcessParty(c.Request.Context(), c.Param("partyId"), req)
	if err != nil {
		if outcome != nil {
			// The batch ran and failed; the progress trail explains where
			h.logger.Warn("Party batch failed", zap.String("party_id", c.Param("partyId")), zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Data: outcome, Error: err.Error()})
			return
		}
		h.fail(c, "Failed to process party", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// ListLogs handles GET /api/v1/parties/:partyId/logs
func (h *Handlers) ListLogs(c *gin.Context) {
	logs, err := h.partyService.ListLogs(c.Request.Context(), c.Param("partyId"))
	if err != nil {
		h.fail(c, "Failed to list logs", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: logs})
}

// ListArtifacts handles GET /api/v1/parties/:partyId/artifacts
func (h *Handlers) ListArtifacts(c *gin.Context) {
	names, err := h.partyService.ListArtifacts(c.Request.Context(), c.Param("partyId"))
	if err != nil {
		h.fail(c, "Failed to list artifacts", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: names})
}

// DownloadArtifact handles GET /api/v1/parties/:partyId/artifacts/:name
func (h *Handlers) DownloadArtifact(c *gin.Context) {
	name := c.Param("name")
	data, err := h.partyService.OpenArtifact(c.Request.Context(), c.Param("partyId"), name)
	if err != nil {
		h.fail(c, "Failed to open artifact", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// fail maps service errors onto HTTP statuses
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrPartyNotFound), errors.Is(err, storage.ErrArtifactNotFound),
		errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNoPendingFiles), errors.Is(err, service.ErrEmptyUpload),
		errors.Is(err, storage.ErrInvalidArtifactName):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		c.JSON(status, Response{Success: false, Error: msg})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func readPart(part *multipart.FileHeader) ([]byte, error) {
	f, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
