package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/internal/domain/patient"
	"github.com/carelinkhq/carelink/internal/handler/middleware"
	"github.com/carelinkhq/carelink/internal/service"
	"github.com/carelinkhq/carelink/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PatientHandler struct {
	registry *service.RegistryService
	col      *metrics.Collector
}

func NewPatientHandler(registry *service.RegistryService, col *metrics.Collector) *PatientHandler {
	return &PatientHandler{registry: registry, col: col}
}

type createPatientRequest struct {
	Name  string `json:"name" binding:"required"`
	Age   int    `json:"age" binding:"required"`
	Email string `json:"email" binding:"required"`
}

type patientResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Email       string    `json:"email"`
	CaregiverID uuid.UUID `json:"caregiver_id"`
	CreatedAt   time.Time `json:"created_at"`
	ScanCount   int       `json:"scan_count"`
}

func toPatientResponse(p *patient.Patient) patientResponse {
	return patientResponse{
		ID:          p.ID,
		Name:        p.Name,
		Age:         p.Age,
		Email:       p.Email,
		CaregiverID: p.CaregiverID,
		CreatedAt:   p.CreatedAt,
		ScanCount:   len(p.Scans),
	}
}

func (h *PatientHandler) Create(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing credentials")
		return
	}
	if claims.Role != domain.RoleCaregiver {
		respondError(c, http.StatusForbidden, "only caregivers can create patients")
		return
	}

	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.registry.CreatePatient(c.Request.Context(), &patient.CreatePatientCommand{
		Name:        req.Name,
		Age:         req.Age,
		Email:       req.Email,
		CaregiverID: claims.AccountID,
	}, c.ClientIP())
	if err != nil {
		var linkErr *service.PartialLinkError
		if errors.As(err, &linkErr) {
			h.col.PatientsCreatedTotal.Inc()
			h.col.LinkFailuresTotal.Inc()
		}
		respondServiceError(c, err)
		return
	}

	h.col.PatientsCreatedTotal.Inc()
	respondCreated(c, toPatientResponse(p))
}

func (h *PatientHandler) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing credentials")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.registry.GetPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !mayViewPatient(claims, p) {
		respondError(c, http.StatusForbidden, "access denied")
		return
	}

	respondOK(c, toPatientResponse(p))
}

// Linked resolves the caregiver's own linked patient.
func (h *PatientHandler) Linked(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing credentials")
		return
	}
	if claims.Role != domain.RoleCaregiver {
		respondError(c, http.StatusForbidden, "only caregivers have a linked patient")
		return
	}

	p, linked, err := h.registry.GetPatientForCaregiver(c.Request.Context(), claims.AccountID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !linked {
		respondError(c, http.StatusNotFound, "no patient linked to this account")
		return
	}

	respondOK(c, toPatientResponse(p))
}

// RetryLink re-runs the caregiver link step after a partial create failure.
func (h *PatientHandler) RetryLink(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing credentials")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.RetryLink(c.Request.Context(), claims.AccountID, id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"patient_id": id, "linked": true})
}

func mayViewPatient(claims *domain.Claims, p *patient.Patient) bool {
	if claims.Role == domain.RoleCaregiver && claims.AccountID == p.CaregiverID {
		return true
	}
	// A patient may view the record registered under their own email.
	return claims.Role == domain.RolePatient && claims.Email == p.Email
}
