package reports

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/apperr"
)

// multipart parts above this size spill to temporary files
const formMemory = 32 << 20

// Handler handles HTTP requests for report operations
type Handler struct {
	service   *Service
	logger    *zap.Logger
	maxUpload int64
	devMode   bool
}

// NewHandler creates a new reports handler
func NewHandler(service *Service, logger *zap.Logger, maxUpload int64, devMode bool) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		maxUpload: maxUpload,
		devMode:   devMode,
	}
}

// RegisterRoutes registers report routes. render wraps the endpoints that
// build documents.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, render ...gin.HandlerFunc) {
	reports := router.Group("/reports")
	{
		reports.GET("/skins", h.listSkins)

		reports.GET("/archive/presign", h.presign)
		reports.GET("/archive/file", h.download)
		reports.DELETE("/archive/file", h.removeArchived)

		reports.POST("/merge", chain(render, h.merge)...)
		reports.POST("/:skin", chain(render, h.generate)...)
	}
}

// listSkins handles GET /api/v1/reports/skins
func (h *Handler) listSkins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"skins": h.service.Skins()})
}

// generate handles POST /api/v1/reports/:skin
func (h *Handler) generate(c *gin.Context) {
	mf, err := h.multipart(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer mf.RemoveAll()

	report, err := ParseReport(mf, c.Param("skin"))
	if err != nil {
		h.fail(c, err)
		return
	}

	out, err := h.service.Generate(c.Request.Context(), report)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("X-Report-Pages", strconv.Itoa(out.Pages))
	c.Header("X-Report-Warnings", strconv.Itoa(len(out.Warnings)))
	if out.ArchiveKey != "" {
		c.Header("X-Archive-Key", out.ArchiveKey)
	}
	h.sendPDF(c, out.Filename, out.PDF)
}

// merge handles POST /api/v1/reports/merge
func (h *Handler) merge(c *gin.Context) {
	mf, err := h.multipart(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer mf.RemoveAll()

	inputs, intro, err := ParseMerge(mf)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.service.Merge(c.Request.Context(), inputs, intro)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("X-Report-Pages", strconv.Itoa(res.Pages))
	c.Header("X-Skipped-Inputs", strconv.Itoa(len(res.Skipped)))
	name := fmt.Sprintf("documentos-mesclados-%s.pdf", time.Now().Format("20060102-150405"))
	h.sendPDF(c, name, res.PDF)
}

// presign handles GET /api/v1/reports/archive/presign?key=
func (h *Handler) presign(c *gin.Context) {
	res, err := h.service.Presign(c.Request.Context(), c.Query("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// download handles GET /api/v1/reports/archive/file?key=
func (h *Handler) download(c *gin.Context) {
	key := c.Query("key")
	body, err := h.service.OpenArchived(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", attachment(key))
	c.Header("Content-Type", pdfContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("Archived report download interrupted", zap.String("key", key), zap.Error(err))
	}
}

// removeArchived handles DELETE /api/v1/reports/archive/file?key=
func (h *Handler) removeArchived(c *gin.Context) {
	if err := h.service.RemoveArchived(c.Request.Context(), c.Query("key")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) multipart(c *gin.Context) (*multipart.Form, error) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	if err := c.Request.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("form", fmt.Sprintf("envio excede o limite de %d MB", h.maxUpload>>20))
		}
		return nil, apperr.Validation("form", "formulário multipart inválido")
	}
	return c.Request.MultipartForm, nil
}

// sendPDF writes a complete document; nothing is written before it exists
func (h *Handler) sendPDF(c *gin.Context, filename string, pdf []byte) {
	c.Header("Content-Disposition", attachment(filename))
	c.Data(http.StatusOK, pdfContentType, pdf)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error("Report request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	apperr.Respond(c, err, h.devMode)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", path.Base(name))
}

func chain(middlewares []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	return append(append(out, middlewares...), h)
}
