package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	apptemplating "github.com/alexclassroom/woocommerce/internal/application/templating"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/logger"
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/dto"
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxPDFSourceBytes bounds the rendered HTML loaded into memory for PDF conversion
const maxPDFSourceBytes = 16 << 20

// PDFConverter converts rendered HTML to PDF
type PDFConverter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// TemplatingHandler handles template rendering and rendered file endpoints
type TemplatingHandler struct {
	BaseHandler
	service *apptemplating.TemplatingService
	pdf     PDFConverter
}

// NewTemplatingHandler creates a new TemplatingHandler. A nil converter
// disables PDF downloads.
func NewTemplatingHandler(service *apptemplating.TemplatingService, pdf PDFConverter) *TemplatingHandler {
	return &TemplatingHandler{
		service: service,
		pdf:     pdf,
	}
}

// Render godoc
//
//	@Summary		Render a template
//	@Description	Render a template in memory, or to a registered file when metadata is given
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			request	body		apptemplating.RenderRequest	true	"Render request"
//	@Success		200		{object}	dto.Response{data=apptemplating.RenderResponse}
//	@Success		201		{object}	dto.Response{data=apptemplating.RenderResponse}
//	@Failure		400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		422		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/templates/render [post]
func (h *TemplatingHandler) Render(c *gin.Context) {
	var req apptemplating.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.Render(c.Request.Context(), req.Template, req.Variables, req.Metadata)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if req.Metadata == nil {
		h.Success(c, apptemplating.RenderResponse{Output: &result})
		return
	}
	h.Created(c, apptemplating.RenderResponse{FileName: &result})
}

// GetByID godoc
//
//	@Summary		Get rendered file by ID
//	@Tags			rendered-files
//	@Produce		json
//	@Param			id					path		int		true	"Rendered file ID"
//	@Param			include_metadata	query		bool	false	"Include metadata"
//	@Success		200					{object}	dto.Response{data=apptemplating.RenderedFile}
//	@Failure		404					{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/rendered-files/{id} [get]
func (h *TemplatingHandler) GetByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var query dto.IncludeMetadataQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	file, err := h.service.GetByID(c.Request.Context(), uri.ID, query.IncludeMetadata)
	h.respondWithFile(c, file, err)
}

// GetByName godoc
//
//	@Summary		Get rendered file by name
//	@Tags			rendered-files
//	@Produce		json
//	@Param			name				path		string	true	"Rendered file name"
//	@Param			include_metadata	query		bool	false	"Include metadata"
//	@Success		200					{object}	dto.Response{data=apptemplating.RenderedFile}
//	@Failure		404					{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/rendered-files/by-name/{name} [get]
func (h *TemplatingHandler) GetByName(c *gin.Context) {
	var uri dto.NameRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var query dto.IncludeMetadataQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	file, err := h.service.GetByName(c.Request.Context(), uri.Name, query.IncludeMetadata)
	h.respondWithFile(c, file, err)
}

func (h *TemplatingHandler) respondWithFile(c *gin.Context, file *apptemplating.RenderedFile, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if file == nil {
		h.NotFound(c, "Rendered file not found")
		return
	}
	h.Success(c, file)
}

// Download godoc
//
//	@Summary		Download a public rendered file
//	@Description	Stream a public, unexpired rendered file, optionally converted to PDF
//	@Tags			rendered-files
//	@Produce		text/html
//	@Produce		application/pdf
//	@Param			name	path		string	true	"Rendered file name"
//	@Param			format	query		string	false	"html or pdf"
//	@Success		200		{file}		binary	"Rendered file"
//	@Failure		404		{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/rendered-files/by-name/{name}/download [get]
func (h *TemplatingHandler) Download(c *gin.Context) {
	var uri dto.NameRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var query dto.DownloadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if query.Format == "pdf" && h.pdf == nil {
		h.NotFound(c, "PDF conversion is not enabled")
		return
	}

	file, content, err := h.service.OpenPublic(c.Request.Context(), uri.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer content.Close()

	if query.Format == "pdf" {
		h.downloadPDF(c, file, content)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Content-Disposition", `inline; filename="`+file.FileName+`.html"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, content); err != nil {
		logger.GetGinLogger(c).Warn("Failed to stream rendered file",
			zap.String("file_name", file.FileName),
			zap.Error(err),
		)
	}
}

func (h *TemplatingHandler) downloadPDF(c *gin.Context, file *apptemplating.RenderedFile, content io.Reader) {
	html, err := io.ReadAll(io.LimitReader(content, maxPDFSourceBytes+1))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if len(html) > maxPDFSourceBytes {
		h.ErrorWithCode(c, dto.ErrCodeTooLarge, "Rendered file is too large to convert to PDF")
		return
	}

	pdf, err := h.pdf.Convert(c.Request.Context(), string(html))
	if err != nil {
		logger.GetGinLogger(c).Error("PDF conversion failed",
			zap.String("file_name", file.FileName),
			zap.Error(err),
		)
		h.InternalError(c, "PDF conversion failed")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// DeleteByID godoc
//
//	@Summary		Delete rendered file by ID
//	@Tags			rendered-files
//	@Produce		json
//	@Param			id	path		int	true	"Rendered file ID"
//	@Success		200	{object}	dto.Response{data=dto.DeleteResponse}
//	@Failure		500	{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/rendered-files/{id} [delete]
func (h *TemplatingHandler) DeleteByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	deleted, err := h.service.DeleteByID(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.DeleteResponse{Deleted: deleted})
}

// DeleteByName godoc
//
//	@Summary		Delete rendered file by name
//	@Tags			rendered-files
//	@Produce		json
//	@Param			name	path		string	true	"Rendered file name"
//	@Success		200		{object}	dto.Response{data=dto.DeleteResponse}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/rendered-files/by-name/{name} [delete]
func (h *TemplatingHandler) DeleteByName(c *gin.Context) {
	var uri dto.NameRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	deleted, err := h.service.DeleteByName(c.Request.Context(), uri.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.DeleteResponse{Deleted: deleted})
}

// Sweep godoc
//
//	@Summary		Delete expired rendered files
//	@Description	Delete up to limit rendered files that expired before as_of (default now)
//	@Tags			rendered-files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		apptemplating.SweepRequest	false	"Sweep request"
//	@Success		200		{object}	dto.Response{data=apptemplating.SweepResponse}
//	@Failure		500		{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/rendered-files/sweep [post]
func (h *TemplatingHandler) Sweep(c *gin.Context) {
	var req apptemplating.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}

	var asOf time.Time
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	deleted, err := h.service.SweepExpired(c.Request.Context(), asOf, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apptemplating.SweepResponse{Deleted: deleted, AsOf: req.AsOf})
}
