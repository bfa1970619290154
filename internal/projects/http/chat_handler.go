package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
	"github.com/draftpilot/draftpilot-backend/internal/projects/service"
)

type chatStreamReq struct {
	ProjectID string `json:"projectId"`
	StepID    string `json:"stepId"`
	Message   string `json:"message"`
}

type stepTargetReq struct {
	ProjectID string `json:"projectId"`
	StepID    string `json:"stepId"`
}

// notFoundStatus maps the resolver sentinels to a 404 with an entity-specific
// message, so callers can tell which lookup failed.
func notFoundStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		return http.StatusNotFound, "project not found", true
	case errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound, "template not found", true
	case errors.Is(err, domain.ErrStepNotFound):
		return http.StatusNotFound, "step not found", true
	case errors.Is(err, domain.ErrTemplateStepNotFound):
		return http.StatusNotFound, "template step not found", true
	}
	return 0, "", false
}

// chatStream runs one streamed chat turn over SSE. Each frame carries the
// cumulative text so far as {"text": "..."}; error frames carry {"error"}.
// Headers go out lazily so resolution failures can still answer with JSON.
func (h *Handler) chatStream(c *gin.Context) {
	userID := c.GetString("firebase_uid")

	var req chatStreamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	streaming := false
	emit := func(cumulative string) error {
		if !streaming {
			writeSSEHeaders(c)
			streaming = true
		}
		return writeSSEFrame(c, gin.H{"text": cumulative})
	}

	err := h.chat.StreamChat(c.Request.Context(), service.ChatRequest{
		UserID:    userID,
		ProjectID: strings.TrimSpace(req.ProjectID),
		StepID:    strings.TrimSpace(req.StepID),
		Message:   req.Message,
	}, emit)

	if err != nil {
		if streaming {
			// Headers are gone; the best we can do is a terminal error frame.
			_ = writeSSEFrame(c, gin.H{"error": "generation failed"})
			return
		}
		if errors.Is(err, domain.ErrInvalidParams) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing required parameters"})
			return
		}
		if status, msg, ok := notFoundStatus(err); ok {
			c.JSON(status, gin.H{"ok": false, "error": msg})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "failed to generate response"})
		return
	}

	if !streaming {
		// Model produced no chunks; still open and close the channel.
		writeSSEHeaders(c)
		_ = writeSSEFrame(c, gin.H{"text": ""})
	}
}

func (h *Handler) generateExample(c *gin.Context) {
	userID := c.GetString("firebase_uid")

	var req stepTargetReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.StepID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing required parameters"})
		return
	}

	examples, err := h.examples.GenerateForStep(c.Request.Context(), userID, req.ProjectID, req.StepID)
	if err != nil {
		if status, msg, ok := notFoundStatus(err); ok {
			c.JSON(status, gin.H{"ok": false, "error": msg})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "failed to generate examples"})
		return
	}

	c.JSON(http.StatusOK, examples)
}

func (h *Handler) generateArtifact(c *gin.Context) {
	userID := c.GetString("firebase_uid")

	var req stepTargetReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.StepID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing required parameters"})
		return
	}

	artifact, err := h.artifacts.GenerateForStep(c.Request.Context(), userID, req.ProjectID, req.StepID)
	if err != nil {
		if status, msg, ok := notFoundStatus(err); ok {
			c.JSON(status, gin.H{"ok": false, "error": msg})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "failed to generate artifact"})
		return
	}

	c.JSON(http.StatusOK, artifact)
}

func writeSSEHeaders(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()
}

// writeSSEFrame emits one data-only SSE frame and flushes it. The frames are
// written verbatim (not via gin's SSEvent) to keep the data-only wire format
// existing clients parse.
func writeSSEFrame(c *gin.Context, payload gin.H) error {
	if err := c.Request.Context().Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
