package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"manutencao-predial/portal-backend/internal/apperr"
)

// ClaimsKey is the gin context key holding the verified *Claims
const ClaimsKey = "auth.claims"

type Handler struct {
	service *Service
	devMode bool
}

func NewHandler(s *Service, devMode bool) *Handler {
	return &Handler{service: s, devMode: devMode}
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		apperr.Respond(c, apperr.Validation("credentials", "informe usuário e senha"), h.devMode)
		return
	}
	token, err := h.service.Login(creds)
	if err != nil {
		apperr.Respond(c, err, h.devMode)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Me handles GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	claims, _ := c.Get(ClaimsKey)
	c.JSON(http.StatusOK, claims)
}

// RequireAuth rejects requests without a valid "Bearer <token>" header
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if header == "" {
			apperr.Respond(c, apperr.Unauthorized("token não fornecido"), h.devMode)
			return
		}
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			apperr.Respond(c, apperr.Unauthorized("cabeçalho Authorization malformado"), h.devMode)
			return
		}

		claims, err := h.service.Verify(strings.TrimSpace(raw))
		if err != nil {
			apperr.Respond(c, err, h.devMode)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
