package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"linguachat/internal/app"
	"linguachat/internal/extract"
	"linguachat/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	ragService *app.RAGService
}

type RetrieveRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
	TopK      int    `json:"top_k"`
}

type ClearDocumentsRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func NewDocumentHandler(ragService *app.RAGService) *DocumentHandler {
	return &DocumentHandler{ragService: ragService}
}

// Upload accepts a multipart form with "file", "session_id" and optional
// "name". The file is read fully in memory; nothing is written to disk.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing session_id")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	fileType, err := extract.ParseFileType(ext)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, "unsupported file format: "+ext)
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = file.Filename
	}

	result, err := h.ragService.Ingest(c.Request.Context(), app.IngestInput{
		SessionID:  sessionID,
		SourceName: name,
		FileType:   fileType,
		Data:       data,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, extract.ErrUnsupportedFormat):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
		case errors.Is(err, app.ErrNoContent):
			response.Error(c, http.StatusBadRequest, response.CodeNoContent, err.Error())
		case errors.Is(err, app.ErrEmbeddingFailure):
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) Clear(c *gin.Context) {
	var req ClearDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	cleared := h.ragService.ClearDocuments(req.SessionID)
	response.OK(c, gin.H{"session_id": req.SessionID, "cleared": cleared})
}

func (h *DocumentHandler) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.ragService.Retrieve(c.Request.Context(), req.SessionID, req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmbeddingFailure):
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "retrieve failed")
		}
		return
	}

	response.OK(c, gin.H{
		"session_id": req.SessionID,
		"results":    results,
		"grounded":   h.ragService.HasDocuments(req.SessionID),
	})
}
