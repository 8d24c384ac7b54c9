package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/umt-ai/unibot/internal/pkg/errcode"
	"github.com/umt-ai/unibot/internal/pkg/response"
	"github.com/umt-ai/unibot/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "no file part")
		return
	}
	if file.Filename == "" {
		response.Error(c, errcode.ErrInvalidFile, "no selected file")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "open upload")
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "read upload")
		return
	}
	doc, err := h.documents.Ingest(c.Request.Context(), getUsername(c), file.Filename, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document_id": doc.ID})
}
