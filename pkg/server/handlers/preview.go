package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/synthmem/pkg/export"
	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/render"
	"github.com/soundprediction/synthmem/pkg/server/dto"
)

// PreviewHandler handles document preview requests
type PreviewHandler struct{}

// NewPreviewHandler creates a new preview handler
func NewPreviewHandler() *PreviewHandler {
	return &PreviewHandler{}
}

// Documents handles POST /api/v1/preview/documents. It validates the posted
// graph, renders the focal node's neighborhood, and returns the documents as
// markdown without writing anything to disk.
func (h *PreviewHandler) Documents(c *gin.Context) {
	var req dto.PreviewDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation failed",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	g := graph.FromPayload(req.Graph)
	if err := graph.MustValidate(g); err != nil {
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   "invalid graph",
			Message: err.Error(),
			Code:    http.StatusUnprocessableEntity,
		})
		return
	}

	radius := req.Radius
	if radius == 0 {
		radius = render.DefaultRadius
	}

	docs, err := render.Render(g, req.FocalID, radius)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   "render failed",
			Message: err.Error(),
			Code:    http.StatusUnprocessableEntity,
		})
		return
	}

	resp := dto.PreviewDocumentsResponse{}
	for _, key := range docs.Keys() {
		doc, _ := docs.Get(key)
		resp.Documents = append(resp.Documents, dto.PreviewDocument{
			Key:      key,
			Path:     export.DocumentPath(key),
			Markdown: export.RenderMarkdown(doc),
		})
	}

	c.JSON(http.StatusOK, resp)
}
