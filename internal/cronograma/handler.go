package cronograma

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/apperr"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

// RenderRequest is the body of POST /cronograma/pdf. Without items the
// stored schedule is printed.
type RenderRequest struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Handler exposes the schedule over HTTP
type Handler struct {
	service *Service
	logger  *zap.Logger
	devMode bool
}

func NewHandler(service *Service, logger *zap.Logger, devMode bool) *Handler {
	return &Handler{service: service, logger: logger, devMode: devMode}
}

// RegisterRoutes registers schedule routes. render wraps the PDF endpoint.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, render ...gin.HandlerFunc) {
	schedule := router.Group("/cronograma")
	{
		schedule.GET("", h.list)
		schedule.POST("", h.create)
		schedule.POST("/reorder", h.reorder)
		schedule.POST("/pdf", append(append([]gin.HandlerFunc{}, render...), h.pdf)...)
		schedule.GET("/export.xlsx", h.exportXLSX)
		schedule.GET("/export.csv", h.exportCSV)
		schedule.PUT("/:id", h.replace)
		schedule.DELETE("/:id", h.remove)
	}
}

// list handles GET /api/v1/cronograma
func (h *Handler) list(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "stats": ComputeStats(items)})
}

// create handles POST /api/v1/cronograma
func (h *Handler) create(c *gin.Context) {
	var in ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.Validation("body", "JSON inválido"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// replace handles PUT /api/v1/cronograma/:id
func (h *Handler) replace(c *gin.Context) {
	var in ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.Validation("body", "JSON inválido"))
		return
	}
	item, err := h.service.Replace(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// remove handles DELETE /api/v1/cronograma/:id
func (h *Handler) remove(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// reorder handles POST /api/v1/cronograma/reorder
func (h *Handler) reorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("ids", "informe a lista de ids na nova ordem"))
		return
	}
	items, err := h.service.Reorder(c.Request.Context(), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// pdf handles POST /api/v1/cronograma/pdf
func (h *Handler) pdf(c *gin.Context) {
	var req RenderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, apperr.Validation("body", "JSON inválido"))
			return
		}
	}

	out, pages, err := h.service.Render(c.Request.Context(), req.Title, req.Items)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", attachment("pdf"))
	c.Header("X-Report-Pages", strconv.Itoa(pages))
	c.Data(http.StatusOK, "application/pdf", out)
}

// exportXLSX handles GET /api/v1/cronograma/export.xlsx
func (h *Handler) exportXLSX(c *gin.Context) {
	h.export(c, "xlsx", xlsxContentType, ExportXLSX)
}

// exportCSV handles GET /api/v1/cronograma/export.csv
func (h *Handler) exportCSV(c *gin.Context) {
	h.export(c, "csv", csvContentType, ExportCSV)
}

func (h *Handler) export(c *gin.Context, ext, contentType string, write func(io.Writer, []Item) error) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, items); err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	c.Header("Content-Disposition", attachment(ext))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *Handler) fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error("Schedule request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	apperr.Respond(c, err, h.devMode)
}

func attachment(ext string) string {
	return fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("cronograma-%s.%s", time.Now().Format("20060102-150405"), ext))
}
