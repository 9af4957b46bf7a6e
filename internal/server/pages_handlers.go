package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/blocks"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/editor"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/library"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

type libraryCategoryPayload struct {
	ID     library.Category     `json:"id"`
	Blocks []library.Descriptor `json:"blocks"`
}

type statePayload struct {
	pages.State
	Save editor.SaveState `json:"save"`
}

type createPageRequest struct {
	Title string `json:"title"`
}

type addBlockRequest struct {
	Type  pages.BlockType `json:"type"`
	Block *pages.Block    `json:"block"`
	Index *int            `json:"index"`
}

type moveBlockRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type selectBlockRequest struct {
	BlockID string `json:"blockId"`
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

func (h *httpHandler) handleLibrary(c *gin.Context) {
	categories := h.library.Categories()
	response := make([]libraryCategoryPayload, 0, len(categories))
	for _, category := range categories {
		response = append(response, libraryCategoryPayload{ID: category, Blocks: h.library.ByCategory(category)})
	}
	c.JSON(http.StatusOK, gin.H{"categories": response})
}

func (h *httpHandler) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, statePayload{State: h.store.Snapshot(), Save: h.editor.SaveState()})
}

func (h *httpHandler) handleListPages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pages": h.store.Pages()})
}

func (h *httpHandler) handleCreatePage(c *gin.Context) {
	var request createPageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			badRequest(c, "invalid_request")
			return
		}
	}
	c.JSON(http.StatusCreated, h.store.CreatePage(request.Title))
}

func (h *httpHandler) handleSetCurrentPage(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		badRequest(c, "invalid_request")
		return
	}
	page, err := editor.DecodePage(body, editor.FormatJSON)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.store.SetCurrentPage(page))
}

func (h *httpHandler) handleOutline(c *gin.Context) {
	current := h.store.CurrentPage()
	c.JSON(http.StatusOK, gin.H{"pageId": current.ID, "blocks": blocks.Outline(current)})
}

func (h *httpHandler) handleOpenPage(c *gin.Context) {
	if !h.store.OpenPage(c.Param("id")) {
		notFound(c, "page_not_found")
		return
	}
	c.JSON(http.StatusOK, h.store.CurrentPage())
}

func (h *httpHandler) handleDeletePage(c *gin.Context) {
	if err := h.editor.DeletePage(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddBlock(c *gin.Context) {
	var request addBlockRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "invalid_request")
		return
	}
	if request.Type != "" {
		block, err := h.editor.AddFromLibrary(request.Type, request.Index)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, block)
		return
	}
	if request.Block == nil || request.Block.Type == "" {
		badRequest(c, "missing_block_type")
		return
	}
	var block pages.Block
	if request.Index == nil {
		block = h.store.AddBlock(*request.Block)
	} else {
		block = h.store.InsertBlock(*request.Block, *request.Index)
	}
	c.JSON(http.StatusCreated, block)
}

func (h *httpHandler) handleUpdateBlock(c *gin.Context) {
	var update pages.BlockUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "invalid_request")
		return
	}
	if update.BlanksType() {
		badRequest(c, "missing_block_type")
		return
	}
	updated, ok := h.store.UpdateBlock(c.Param("id"), update)
	if !ok {
		notFound(c, "block_not_found")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteBlock(c *gin.Context) {
	if !h.store.DeleteBlock(c.Param("id")) {
		notFound(c, "block_not_found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDuplicateBlock(c *gin.Context) {
	duplicate, ok := h.store.DuplicateBlock(c.Param("id"))
	if !ok {
		notFound(c, "block_not_found")
		return
	}
	c.JSON(http.StatusCreated, duplicate)
}

func (h *httpHandler) handleMoveBlock(c *gin.Context) {
	var request moveBlockRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.From == nil || request.To == nil {
		badRequest(c, "invalid_request")
		return
	}
	if !h.store.MoveBlock(*request.From, *request.To) {
		badRequest(c, "invalid_move")
		return
	}
	c.JSON(http.StatusOK, h.store.CurrentPage())
}

func (h *httpHandler) handleSelectBlock(c *gin.Context) {
	var request selectBlockRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "invalid_request")
		return
	}
	if !h.store.SelectBlock(request.BlockID) {
		notFound(c, "block_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"selectedBlockId": h.store.SelectedBlockID()})
}

func (h *httpHandler) handleSetMode(c *gin.Context) {
	var request setModeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "invalid_request")
		return
	}
	mode, err := pages.ParseMode(request.Mode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.store.SetMode(mode)
	c.JSON(http.StatusOK, gin.H{"mode": h.store.Mode()})
}
