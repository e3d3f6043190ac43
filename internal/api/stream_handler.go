package api

import (
	"context"
	"io"
	"strconv"
	"strings"

	"mergeflow/internal/service"
	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/constraints"
	"mergeflow/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StreamProvider interface {
	GetCompensation(lastRev int64) ([]v1.Message, bool)
	GetAllLive(ctx context.Context, project string) ([]v1.LiveConfig, int64)
}

type StreamHandler struct {
	service StreamProvider
	hub     *service.Hub
}

func NewStreamHandler(service StreamProvider, hub *service.Hub) *StreamHandler {
	return &StreamHandler{
		service: service,
		hub:     hub,
	}
}

func parseProjects(raw string) map[string]bool {
	projects := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		if strings.TrimSpace(p) != "" {
			projects[strings.TrimSpace(p)] = true
		}
	}
	return projects
}

// WatchLive is the SDK-facing SSE endpoint. Clients pass last_rev to replay
// missed publishes; if the replay window has moved past it they get a reset
// event and must refetch the snapshot.
func (h *StreamHandler) WatchLive(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	lastRevStr := c.Query("last_rev")
	projects := parseProjects(c.Query("project"))

	if len(projects) == 0 {
		logger.Warn("client without project scope, refused", zap.String("ip", c.ClientIP()))
		return
	}
	logger.Info("stream client connected",
		zap.String("projects", c.Query("project")),
		zap.String("ip", c.ClientIP()),
	)

	var lastRev int64
	if lastRevStr != "" {
		lastRev, _ = strconv.ParseInt(lastRevStr, 10, 64)
	}

	client := h.hub.NewClient(projects, lastRev)

	h.hub.Register <- client
	defer func() {
		h.hub.Unregister <- client
	}()

	messages, ok := h.service.GetCompensation(lastRev)
	maxSentRev := lastRev
	if ok {
		for _, msg := range messages {
			if !projects[msg.Project] {
				continue
			}
			c.SSEvent("message", msg)
			maxSentRev = msg.Revision
		}
	} else {
		c.SSEvent("reset", "revision_too_old")
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return false
			}
			if msg.Action == constraints.HEARTBEAT {
				c.SSEvent("ping", "pong")
				return true
			}
			// hub already filters by project; drop replayed duplicates
			if msg.Revision <= maxSentRev {
				return true
			}
			c.SSEvent("message", msg)
			maxSentRev = msg.Revision
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// DashboardWatch streams every publish to an authenticated console session.
func (h *StreamHandler) DashboardWatch(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	operator := service.GetOperator(c.Request.Context())
	logger.Info("dashboard client connected",
		zap.String("operator", operator),
		zap.String("ip", c.ClientIP()),
	)

	// empty project set receives everything
	client := h.hub.NewClient(nil, 0)

	h.hub.Register <- client
	defer func() {
		h.hub.Unregister <- client
	}()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return false
			}
			if msg.Action == constraints.HEARTBEAT {
				c.SSEvent("ping", "pong")
				return true
			}
			c.SSEvent("message", msg)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// FetchAll returns the live snapshot for a project plus the etcd revision
// to resume the watch stream from.
func (h *StreamHandler) FetchAll(c *gin.Context) {
	project := c.Query("project")

	configs, rev := h.service.GetAllLive(c.Request.Context(), project)

	c.JSON(200, gin.H{
		"data":     configs,
		"revision": rev,
	})
}
