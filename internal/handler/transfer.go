package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockroom/internal/apierror"
	"stockroom/internal/dto"
	"stockroom/internal/service"
)

type TransferHandler struct{ svc service.TransferService }

func NewTransferHandler(svc service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// BulkImport POST /api/products/bulk — body must be a JSON array of records.
func (h *TransferHandler) BulkImport(c *gin.Context) {
	var records []dto.RawRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("expected a JSON array of products"))
		return
	}
	resp, err := h.svc.BulkImport(c.Request.Context(), records)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ImportCSV POST /api/products/import — multipart upload, field name "csvFile".
func (h *TransferHandler) ImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("csvFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("no file uploaded (csvFile)"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("could not open uploaded file"))
		return
	}
	defer f.Close()
	// Large uploads are spooled to disk by net/http; drop the temp files once
	// ingestion finishes, success or failure.
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	resp, err := h.svc.ImportCSV(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportCSV GET /api/products/export — full catalog as a CSV attachment.
func (h *TransferHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="products.csv"`)
	c.Status(http.StatusOK)

	if err := h.svc.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		// Headers are already out; log and abort the stream.
		_ = c.Error(err)
	}
}
