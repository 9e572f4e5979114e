package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/coordinator"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

const progressPollInterval = 100 * time.Millisecond

// WebSocketHandler runs queries over a socket and streams pipeline step
// progress while the coordinator works.
type WebSocketHandler struct {
	coord *coordinator.Coordinator
}

func NewWebSocketHandler(coord *coordinator.Coordinator) *WebSocketHandler {
	return &WebSocketHandler{coord: coord}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string              `json:"type"`
			Request models.QueryRequest `json:"request"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "query" {
			continue
		}

		if err := h.runQuery(c, &msg.Request); err != nil {
			logger.Error("Failed to stream query response", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) runQuery(c *websocket.Conn, req *models.QueryRequest) error {
	ctx := context.Background()

	type result struct {
		resp *models.QueryResponse
	}
	done := make(chan result, 1)

	go func() {
		done <- result{resp: h.coord.Coordinate(ctx, req)}
	}()

	h.send(c, "status", map[string]interface{}{"message": "Processing query..."})

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	lastStep := coordinator.Step("")
	for {
		select {
		case res := <-done:
			return h.sendComplete(c, res.resp)
		case <-ticker.C:
			for _, flow := range h.coord.GetActiveFlows() {
				if flow.SessionID != req.SessionID {
					continue
				}
				if flow.CurrentStep != lastStep && flow.CurrentStep != "" {
					lastStep = flow.CurrentStep
					h.send(c, "progress", map[string]interface{}{
						"request_id": flow.RequestID,
						"step":       flow.CurrentStep,
					})
				}
			}
		}
	}
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, resp *models.QueryResponse) error {
	return c.WriteJSON(map[string]interface{}{
		"type":     "complete",
		"response": resp,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msgType string, payload map[string]interface{}) {
	msg := map[string]interface{}{"type": msgType}
	for k, v := range payload {
		msg[k] = v
	}
	if err := c.WriteJSON(msg); err != nil {
		logger.Debug("WebSocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
