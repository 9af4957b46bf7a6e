package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/auth"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/editor"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/gateway"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/library"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	subjectContextKey = "pagebuilder_subject"

	defaultHeartbeatInterval = 15 * time.Second
	maxImportBytes           = 4 << 20
)

var errMissingEditor = errors.New("editor dependency required")

// TokenValidator authenticates API requests.
type TokenValidator interface {
	ValidateRequest(request *http.Request, allowQuery bool) (string, error)
}

// Dependencies wires the HTTP API to the editing workspace. A nil TokenValidator disables authentication.
type Dependencies struct {
	Editor            *editor.Editor
	TokenValidator    TokenValidator
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

// NewHTTPHandler builds the gin router serving the editor API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Editor == nil {
		return nil, errMissingEditor
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins...))

	handler := &httpHandler{
		editor:    deps.Editor,
		store:     deps.Editor.Store(),
		library:   deps.Editor.Library(),
		tokens:    deps.TokenValidator,
		heartbeat: heartbeat,
		logger:    logger,
	}

	router.GET("/healthz", handler.handleHealth)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.GET("/library", handler.handleLibrary)
	protected.GET("/state", handler.handleState)
	protected.GET("/events", handler.handleEvents)

	protected.GET("/pages", handler.handleListPages)
	protected.POST("/pages", handler.handleCreatePage)
	protected.PUT("/pages/current", handler.handleSetCurrentPage)
	protected.GET("/pages/current/outline", handler.handleOutline)
	protected.POST("/pages/:id/open", handler.handleOpenPage)
	protected.DELETE("/pages/:id", handler.handleDeletePage)

	protected.POST("/blocks", handler.handleAddBlock)
	protected.POST("/blocks/move", handler.handleMoveBlock)
	protected.PATCH("/blocks/:id", handler.handleUpdateBlock)
	protected.DELETE("/blocks/:id", handler.handleDeleteBlock)
	protected.POST("/blocks/:id/duplicate", handler.handleDuplicateBlock)

	protected.PUT("/selection", handler.handleSelectBlock)
	protected.PUT("/mode", handler.handleSetMode)

	protected.POST("/save", handler.handleSave)
	protected.GET("/save/status", handler.handleSaveStatus)
	protected.POST("/publish", handler.handlePublish)
	protected.GET("/export", handler.handleExport)
	protected.POST("/import", handler.handleImport)

	protected.GET("/remote/pages", handler.handleListRemote)
	protected.POST("/remote/pages/pull", handler.handlePullRemote)
	protected.POST("/remote/pages/:id/load", handler.handleLoadRemote)
	protected.DELETE("/remote/pages/:id", handler.handleDeleteRemote)
	protected.POST("/remote/pages/:id/publish", handler.handlePublishRemote)
	protected.POST("/remote/pages/:id/unpublish", handler.handleUnpublishRemote)

	return router, nil
}

func corsMiddleware(allowedOrigins ...string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type httpHandler struct {
	editor    *editor.Editor
	store     *pages.Store
	library   *library.Registry
	tokens    TokenValidator
	heartbeat time.Duration
	logger    *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	if h.tokens == nil {
		c.Next()
		return
	}
	allowQuery := c.Request.Method == http.MethodGet && c.FullPath() == "/events"
	subject, err := h.tokens.ValidateRequest(c.Request, allowQuery)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrMissingToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "server.auth.unauthorized"})
		return
	}
	c.Set(subjectContextKey, subject)
	c.Next()
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps package sentinels to HTTP statuses and reports the dotted code when there is one.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	code := ""
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		code = coded.Code()
	}
	reason := code
	if index := strings.LastIndex(code, "."); index >= 0 {
		reason = code[index+1:]
	}
	if reason == "" {
		reason = strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
	}
	body := gin.H{"error": reason}
	if code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(status, body)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, editor.ErrPageNotFound), errors.Is(err, gateway.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrLastPage):
		return http.StatusConflict
	case errors.Is(err, editor.ErrMalformedImport),
		errors.Is(err, editor.ErrUnsupportedFormat),
		errors.Is(err, gateway.ErrInvalidDraft),
		errors.Is(err, library.ErrUnknownBlockType),
		errors.Is(err, pages.ErrInvalidMode),
		errors.Is(err, pages.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrRemoteStatus):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": reason})
}

func notFound(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": reason})
}
