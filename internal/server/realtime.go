package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	realtimeEventReady     = "ready"
	realtimeEventHeartbeat = "heartbeat"
	realtimeSourceBackend  = "pagebuilder"
)

// RealtimeMessage is the data line of one server-sent event.
type RealtimeMessage struct {
	Kind      string    `json:"kind"`
	PageID    string    `json:"pageId,omitempty"`
	BlockIDs  []string  `json:"blockIds,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func messageFromChange(event pages.ChangeEvent) RealtimeMessage {
	return RealtimeMessage{
		Kind:      string(event.Kind),
		PageID:    event.PageID,
		BlockIDs:  event.BlockIDs,
		Source:    realtimeSourceBackend,
		Timestamp: event.Timestamp,
	}
}

// handleEvents streams store changes as server-sent events until the client goes away.
// The event name is the change kind; clients re-read /state for details.
func (h *httpHandler) handleEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.store.Feed().Subscribe(ctx)
	defer cleanup()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	current := h.store.CurrentPage()
	h.emit(c, realtimeEventReady, RealtimeMessage{
		Kind:      realtimeEventReady,
		PageID:    current.ID,
		Source:    realtimeSourceBackend,
		Timestamp: time.Now().UTC(),
	})
	h.logger.Debug("realtime subscriber connected", zap.Int("subscribers", h.store.Feed().SubscriberCount()))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			h.emit(c, string(event.Kind), messageFromChange(event))
		case tick := <-ticker.C:
			h.emit(c, realtimeEventHeartbeat, RealtimeMessage{
				Kind:      realtimeEventHeartbeat,
				Source:    realtimeSourceBackend,
				Timestamp: tick.UTC(),
			})
		}
	}
}

func (h *httpHandler) emit(c *gin.Context, eventName string, message RealtimeMessage) {
	c.SSEvent(eventName, message)
	c.Writer.Flush()
}
