package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes caps CSV uploads when no limit is configured
const DefaultMaxUploadBytes = 5 << 20

// HealthRecordHandler implements the record, import and export endpoints
type HealthRecordHandler struct {
	records        *service.HealthRecordService
	imports        *service.ImportService
	exports        *service.ExportService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHealthRecordHandler creates a new HealthRecordHandler
func NewHealthRecordHandler(
	records *service.HealthRecordService,
	imports *service.ImportService,
	exports *service.ExportService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *HealthRecordHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &HealthRecordHandler{
		records:        records,
		imports:        imports,
		exports:        exports,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// CreateRecord handles POST /api/v1/records
func (h *HealthRecordHandler) CreateRecord(c *gin.Context) {
	var req api.HealthRecordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	rec := req.Record()
	if err := h.records.Create(c.Request.Context(), userID(c), rec); err != nil {
		respondError(c, h.logger, err, "Failed to create health record")
		return
	}

	h.logger.Info("Health record created",
		zap.String("user_id", userID(c)),
		zap.String("record_id", rec.ID),
		zap.String("record_type", string(rec.RecordType)),
	)
	c.JSON(http.StatusCreated, rec)
}

// ListRecords handles GET /api/v1/records
func (h *HealthRecordHandler) ListRecords(c *gin.Context) {
	var params api.ListRecordsParams
	if !bindQuery(c, "type", &params.Type) ||
		!bindQuery(c, "from", &params.From) ||
		!bindQuery(c, "to", &params.To) ||
		!bindQuery(c, "limit", &params.Limit) {
		return
	}

	filter := model.RecordFilter{From: params.From, To: params.To}
	if params.Type != nil {
		t := model.RecordType(*params.Type)
		filter.RecordType = &t
	}
	if params.Limit != nil {
		filter.Limit = *params.Limit
	}

	records, err := h.records.List(c.Request.Context(), userID(c), filter)
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve health records")
		return
	}
	if records == nil {
		records = []model.HealthRecord{}
	}
	c.JSON(http.StatusOK, api.HealthRecordListResponse{Records: records, Count: len(records)})
}

// GetRecord handles GET /api/v1/records/:id
func (h *HealthRecordHandler) GetRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	rec, err := h.records.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve health record")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateRecord handles PUT /api/v1/records/:id
func (h *HealthRecordHandler) UpdateRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req api.HealthRecordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	rec := req.Record()
	if err := h.records.Update(c.Request.Context(), userID(c), id, rec); err != nil {
		respondError(c, h.logger, err, "Failed to update health record")
		return
	}

	h.logger.Info("Health record updated",
		zap.String("user_id", userID(c)),
		zap.String("record_id", id),
	)
	c.JSON(http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/v1/records/:id
func (h *HealthRecordHandler) DeleteRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.records.Delete(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete health record")
		return
	}

	h.logger.Info("Health record deleted",
		zap.String("user_id", userID(c)),
		zap.String("record_id", id),
	)
	c.Status(http.StatusNoContent)
}

// BulkDeleteRecords handles POST /api/v1/records/bulk-delete
func (h *HealthRecordHandler) BulkDeleteRecords(c *gin.Context) {
	var req api.BulkDeleteRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	ids := make([]string, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = id.String()
	}

	deleted, err := h.records.DeleteMany(c.Request.Context(), userID(c), ids)
	if err != nil {
		respondError(c, h.logger, err, "Failed to delete health records")
		return
	}

	h.logger.Info("Health records deleted",
		zap.String("user_id", userID(c)),
		zap.Int("requested", len(ids)),
		zap.Int("deleted", deleted),
	)
	c.JSON(http.StatusOK, api.BulkDeleteResponse{Deleted: deleted})
}

// AssessRecord handles POST /api/v1/records/assess. Nothing is stored.
func (h *HealthRecordHandler) AssessRecord(c *gin.Context) {
	var req api.HealthRecordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	assessments, err := h.records.Assess(c.Request.Context(), userID(c), req.Record())
	if err != nil {
		respondError(c, h.logger, err, "Failed to assess health record")
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

// PreviewImport handles POST /api/v1/records/import/preview
func (h *HealthRecordHandler) PreviewImport(c *gin.Context) {
	content, ok := h.readUpload(c)
	if !ok {
		return
	}

	preview, err := h.imports.Preview(c.Request.Context(), userID(c), content)
	if err != nil {
		respondError(c, h.logger, err, "Failed to preview import")
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ImportRecords handles POST /api/v1/records/import
func (h *HealthRecordHandler) ImportRecords(c *gin.Context) {
	content, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.imports.Import(c.Request.Context(), userID(c), content)
	if err != nil {
		respondError(c, h.logger, err, "Failed to import health records")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ImportTemplate handles GET /api/v1/records/import/template
func (h *HealthRecordHandler) ImportTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="health-records-template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(h.imports.Template()))
}

// readUpload accepts a multipart "file" field, a JSON {"content": ...}
// body or raw CSV text
func (h *HealthRecordHandler) readUpload(c *gin.Context) (string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	contentType := c.ContentType()
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		header, err := c.FormFile("file")
		if err != nil {
			return "", h.uploadError(c, err)
		}
		f, err := header.Open()
		if err != nil {
			return "", h.uploadError(c, err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", h.uploadError(c, err)
		}
		return string(data), true
	case contentType == "application/json":
		var req api.ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", h.uploadError(c, err)
		}
		return req.Content, true
	default:
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", h.uploadError(c, err)
		}
		return string(data), true
	}
}

func (h *HealthRecordHandler) uploadError(c *gin.Context, err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
			Code:    codeValidation,
			Message: fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes),
		})
		return false
	}
	h.logger.Debug("invalid upload", zap.Error(err))
	badRequest(c, "Invalid upload", err)
	return false
}

// ExportRecords handles GET /api/v1/records/export. Dates are whole days
// and to is inclusive.
func (h *HealthRecordHandler) ExportRecords(c *gin.Context) {
	var params api.ExportRecordsParams
	if !bindQuery(c, "format", &params.Format) ||
		!bindQuery(c, "from", &params.From) ||
		!bindQuery(c, "to", &params.To) {
		return
	}

	var rawFormat string
	if params.Format != nil {
		rawFormat = *params.Format
	}
	format, err := service.ParseExportFormat(rawFormat)
	if err != nil {
		respondError(c, h.logger, err, "Failed to export health records")
		return
	}

	var from, to *time.Time
	if params.From != nil {
		t := params.From.Time
		from = &t
	}
	if params.To != nil {
		t := params.To.Time.AddDate(0, 0, 1)
		to = &t
	}

	file, err := h.exports.Export(c.Request.Context(), userID(c), format, from, to)
	if err != nil {
		respondError(c, h.logger, err, "Failed to export health records")
		return
	}

	h.logger.Info("Health records exported",
		zap.String("user_id", userID(c)),
		zap.String("format", string(format)),
		zap.Int("bytes", len(file.Data)),
		zap.String("blob", file.BlobName),
	)
	if file.BlobName != "" {
		c.Header("X-Export-Blob", file.BlobName)
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// ArchivedExport handles GET /api/v1/records/export/archive?blob=...
func (h *HealthRecordHandler) ArchivedExport(c *gin.Context) {
	var params api.ArchivedExportParams
	if !bindQuery(c, "blob", &params.Blob) {
		return
	}
	if params.Blob == "" {
		badRequest(c, "blob is required", nil)
		return
	}

	data, err := h.exports.Archived(c.Request.Context(), userID(c), params.Blob)
	if err != nil {
		respondError(c, h.logger, err, "Failed to download export")
		return
	}

	name := path.Base(params.Blob)
	contentType := service.ExportFormat(strings.TrimPrefix(path.Ext(name), ".")).ContentType()
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, contentType, data)
}
