package v1

import (
	"errors"
	"net/http"

	"github.com/carelinkhq/carelink/internal/domain/patient"
	"github.com/carelinkhq/carelink/internal/domain/scan"
	"github.com/carelinkhq/carelink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps domain and service errors to HTTP statuses. The
// split matters to callers: 4xx means fix the input, 502 with a patient id
// means retry the link step only, 408/503 mean the whole call is retryable.
func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var linkErr *service.PartialLinkError
	if errors.As(err, &linkErr) {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "patient created but caregiver link failed; retry the link step",
			Code:    "PARTIAL_LINK_FAILURE",
			Details: map[string]string{"patient_id": linkErr.PatientID.String()},
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, service.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrDuplicateAccount),
		errors.Is(err, service.ErrRoleMismatch):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, scan.ErrPayloadIntegrity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, scan.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})

	case errors.Is(err, scan.ErrUnsupportedFormat):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: err.Error()})

	case errors.Is(err, scan.ErrTransferTimeout):
		c.JSON(http.StatusRequestTimeout, ErrorResponse{
			Error: err.Error(),
			Code:  "TRANSFER_TIMEOUT",
		})

	case errors.Is(err, scan.ErrStorageWrite):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "scan storage temporarily unavailable",
			Code:  "STORAGE_WRITE_FAILED",
		})

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}
