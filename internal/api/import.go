package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"luongimport/internal/exporter"
	"luongimport/internal/importer"
	"luongimport/internal/model"
	"luongimport/internal/parser"
	"luongimport/internal/store"
)

// multipart framing allowance on top of the file limit
const formOverhead = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errUploadRejected upload problems already answered to the client
var errUploadRejected = errors.New("upload rejected")

// ImportAttendance imports an attendance workbook
// POST /api/import/attendance  (multipart: file, sheet?)
func (h *Handler) ImportAttendance(c *gin.Context) {
	h.limitBody(c, 1)
	up, err := h.readUpload(c, "file", true)
	if err != nil {
		return
	}

	res, err := h.coordinator.ImportAttendance(c.Request.Context(), up.Reader, up.Name, importer.AttendanceOptions{
		SheetName: c.PostForm("sheet"),
		Request:   requestContext(c),
	})
	if err != nil {
		h.importError(c, err)
		return
	}
	success(c, res)
}

// ImportEmployees imports the employee list with the "employees" mapping configuration
// POST /api/import/employees  (multipart: file, sheet?)
func (h *Handler) ImportEmployees(c *gin.Context) {
	h.limitBody(c, 1)
	up, err := h.readUpload(c, "file", true)
	if err != nil {
		return
	}

	mappings, ok := h.loadMappings(c, store.ConfigEmployees)
	if !ok {
		return
	}

	res, err := h.coordinator.ImportTable(c.Request.Context(), up.Reader, up.Name, mappings, importer.TableOptions{
		SheetName: c.PostForm("sheet"),
		Request:   requestContext(c),
	})
	if err != nil {
		h.importError(c, err)
		return
	}
	if wantsReport(c) {
		h.sendReport(c, "nhan-vien-"+res.SessionID+".xlsx", func(e *exporter.Exporter) (*excelize.File, error) {
			return e.ExportTable(res)
		})
		return
	}
	success(c, res)
}

// ImportPayroll imports and reconciles up to two payroll files
// POST /api/import/payroll  (multipart: file1?, file2?, sheet1?, sheet2?)
func (h *Handler) ImportPayroll(c *gin.Context) {
	h.limitBody(c, 2)
	file1, err := h.readUpload(c, "file1", false)
	if err != nil {
		return
	}
	file2, err := h.readUpload(c, "file2", false)
	if err != nil {
		return
	}
	if file1 == nil && file2 == nil {
		errorResponse(c, CodeBadRequest, importer.ErrNoSource.Error())
		return
	}

	m1, ok := h.loadMappings(c, store.ConfigPayrollFile1)
	if !ok {
		return
	}
	m2, ok := h.loadMappings(c, store.ConfigPayrollFile2)
	if !ok {
		return
	}

	res, err := h.coordinator.ImportPayroll(c.Request.Context(), file1, file2, m1, m2, importer.PayrollOptions{
		Sheet1:  c.PostForm("sheet1"),
		Sheet2:  c.PostForm("sheet2"),
		Request: requestContext(c),
	})
	if err != nil {
		h.importError(c, err)
		return
	}
	if wantsReport(c) {
		h.sendReport(c, "bang-luong-"+res.SessionID+".xlsx", func(e *exporter.Exporter) (*excelize.File, error) {
			return e.ExportPayroll(res)
		})
		return
	}
	success(c, res)
}

// wantsReport the client asked for the review workbook instead of JSON (form field format=xlsx)
func wantsReport(c *gin.Context) bool {
	return strings.EqualFold(c.PostForm("format"), "xlsx")
}

func (h *Handler) sendReport(c *gin.Context, filename string, build func(*exporter.Exporter) (*excelize.File, error)) {
	reqLog := h.requestLogger(c)
	f, err := build(exporter.NewExporter(func(p exporter.ProgressEvent) {
		reqLog.Debug("report stage written", "file", filename, "stage", p.Stage, "rows", p.Rows)
	}))
	if err == nil {
		var buf *bytes.Buffer
		if buf, err = exporter.WriteBuffer(f); err == nil {
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
			return
		}
	}
	reqLog.Error("failed to build report", "error", err)
	errorResponse(c, CodeInternal, "failed to build report")
}

func (h *Handler) limitBody(c *gin.Context, files int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, files*h.cfg.MaxUploadBytes()+formOverhead)
}

// readUpload reads one multipart file into memory. A missing optional file returns (nil, nil).
// On any other failure the error response is already written.
func (h *Handler) readUpload(c *gin.Context, field string, required bool) (*importer.Upload, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			errorResponse(c, CodeFileTooLarge, fmt.Sprintf("file too large, limit is %d MB", h.cfg.MaxUploadMB))
			return nil, errUploadRejected
		case errors.Is(err, http.ErrMissingFile) && !required:
			return nil, nil
		case errors.Is(err, http.ErrMissingFile):
			errorResponse(c, CodeBadRequest, fmt.Sprintf("missing upload field %q", field))
			return nil, errUploadRejected
		default:
			errorResponse(c, CodeBadRequest, "invalid multipart form: "+err.Error())
			return nil, errUploadRejected
		}
	}
	defer file.Close()

	if code, msg := h.checkUpload(header); code != CodeOK {
		errorResponse(c, code, msg)
		return nil, errUploadRejected
	}

	content, err := io.ReadAll(file)
	if err != nil {
		errorResponse(c, CodeBadFile, "failed to read upload")
		return nil, errUploadRejected
	}
	return &importer.Upload{Name: filepath.Base(header.Filename), Reader: bytes.NewReader(content)}, nil
}

func (h *Handler) checkUpload(header *multipart.FileHeader) (int, string) {
	if header.Size > h.cfg.MaxUploadBytes() {
		return CodeFileTooLarge, fmt.Sprintf("file too large, limit is %d MB", h.cfg.MaxUploadMB)
	}
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" && ext != ".xlsm" {
		return CodeBadFile, "only .xlsx workbooks are supported"
	}
	return CodeOK, ""
}

func (h *Handler) loadMappings(c *gin.Context, config string) ([]model.ColumnMapping, bool) {
	mappings, err := h.store.ListMappings(config)
	if err != nil {
		h.requestLogger(c).Error("failed to load mappings", "config", config, "error", err)
		errorResponse(c, CodeInternal, "failed to load mapping configuration")
		return nil, false
	}
	if len(mappings) == 0 {
		errorResponse(c, CodeBadRequest, fmt.Sprintf("mapping configuration %q is empty", config))
		return nil, false
	}
	if err := parser.ValidateMappings(h.validate, mappings); err != nil {
		errorResponse(c, CodeBadRequest, fmt.Sprintf("mapping configuration %q: %v", config, err))
		return nil, false
	}
	return mappings, true
}

func (h *Handler) importError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importer.ErrInvalidWorkbook):
		errorResponse(c, CodeBadFile, err.Error())
	case errors.Is(err, importer.ErrNoSource):
		errorResponse(c, CodeBadRequest, err.Error())
	case errors.Is(err, importer.ErrTimeout):
		errorResponse(c, CodeTimeout, err.Error())
	default:
		h.requestLogger(c).Error("import failed", "error", err)
		errorResponse(c, CodeInternal, err.Error())
	}
}
