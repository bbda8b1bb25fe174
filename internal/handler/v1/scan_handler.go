package v1

import (
	"errors"
	"net/http"

	"github.com/carelinkhq/carelink/internal/domain/scan"
	"github.com/carelinkhq/carelink/internal/handler/middleware"
	"github.com/carelinkhq/carelink/internal/service"
	"github.com/carelinkhq/carelink/pkg/metrics"
	"github.com/gin-gonic/gin"
)

type ScanHandler struct {
	ingest *service.IngestService
	col    *metrics.Collector
}

func NewScanHandler(ingest *service.IngestService, col *metrics.Collector) *ScanHandler {
	return &ScanHandler{ingest: ingest, col: col}
}

// Upload ingests one multipart file under the "file" field.
func (h *ScanHandler) Upload(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing credentials")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}

	src, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "cannot open uploaded file")
		return
	}
	defer src.Close()

	f := &scan.File{
		Name:    header.Filename,
		Size:    header.Size,
		Content: src,
	}

	rec, err := h.ingest.Ingest(c.Request.Context(), patientID, claims.AccountID, f, c.ClientIP())
	if err != nil {
		h.col.ScansRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		respondServiceError(c, err)
		return
	}

	h.col.ScansIngestedTotal.Inc()
	h.col.ScanBytesIngested.Add(float64(rec.SizeBytes))

	respondCreated(c, rec.Meta())
}

// List returns the patient's scan metadata; payloads are never listed.
func (h *ScanHandler) List(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing credentials")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	metas, err := h.ingest.ListScans(c.Request.Context(), patientID, claims.AccountID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, metas)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, scan.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, scan.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, scan.ErrPayloadIntegrity):
		return "integrity"
	case errors.Is(err, scan.ErrTransferTimeout):
		return "timeout"
	case errors.Is(err, scan.ErrStorageWrite):
		return "storage"
	default:
		return "other"
	}
}
