package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/editor"
)

func (h *httpHandler) handleSave(c *gin.Context) {
	saved, err := h.editor.Save(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": saved, "save": h.editor.SaveState()})
}

func (h *httpHandler) handleSaveStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.editor.SaveState())
}

func (h *httpHandler) handlePublish(c *gin.Context) {
	published, err := h.editor.Publish(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, published)
}

func (h *httpHandler) handleExport(c *gin.Context) {
	format, err := editor.ParseFormat(c.Query("format"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	exported, err := h.editor.Export(format)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exported.Filename))
	c.Data(http.StatusOK, exported.ContentType, exported.Data)
}

// handleImport reads the format from the format query parameter, then the filename parameter's extension.
func (h *httpHandler) handleImport(c *gin.Context) {
	format, err := importFormat(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		badRequest(c, "invalid_request")
		return
	}
	imported, err := h.editor.Import(body, format)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imported)
}

func importFormat(c *gin.Context) (editor.Format, error) {
	if filename := c.Query("filename"); filename != "" && c.Query("format") == "" {
		return editor.FormatFromFilename(filename)
	}
	return editor.ParseFormat(c.Query("format"))
}

func (h *httpHandler) handleListRemote(c *gin.Context) {
	listed, err := h.editor.ListRemote(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": listed})
}

func (h *httpHandler) handlePullRemote(c *gin.Context) {
	collection, err := h.editor.PullRemote(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": collection})
}

func (h *httpHandler) handleLoadRemote(c *gin.Context) {
	loaded, err := h.editor.LoadRemote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleDeleteRemote(c *gin.Context) {
	if err := h.editor.DeleteRemote(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handlePublishRemote(c *gin.Context) {
	published, err := h.editor.PublishRemote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, published)
}

func (h *httpHandler) handleUnpublishRemote(c *gin.Context) {
	unpublished, err := h.editor.UnpublishRemote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unpublished)
}
