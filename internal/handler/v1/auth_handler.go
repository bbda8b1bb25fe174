package v1

import (
	"net/http"
	"time"

	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/internal/service"
	"github.com/carelinkhq/carelink/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthHandler struct {
	directory *service.DirectoryService
	col       *metrics.Collector
}

func NewAuthHandler(directory *service.DirectoryService, col *metrics.Collector) *AuthHandler {
	return &AuthHandler{directory: directory, col: col}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type accountResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.directory.Register(c.Request.Context(), req.Email, req.Password, domain.Role(req.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.col.AccountsRegisteredTotal.WithLabelValues(string(account.Role)).Inc()

	respondCreated(c, accountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Role:      string(account.Role),
		CreatedAt: account.CreatedAt,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.directory.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.directory.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}
