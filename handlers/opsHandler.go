package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errStorageDisabled = errors.New("file storage is not configured")

type summarizeRequest struct {
	Text string `json:"text"`
}

type outboxReplayRequest struct {
	EventIds []int `json:"event_ids"`
}

func (h *Handler) summarizeTranslate(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Text is required")
		return
	}
	result, err := h.Summarizer.Summarize(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// replayOutbox resets DEAD or FAILED report events so the dispatcher publishes them again.
// An empty id list replays all of them.
func (h *Handler) replayOutbox(c *gin.Context) {
	var req outboxReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	for _, id := range req.EventIds {
		if id <= 0 {
			badRequest(c, "event_ids must be positive")
			return
		}
	}
	n, err := h.Outbox.Replay(c.Request.Context(), req.EventIds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": n})
}
