package http

import (
	"context"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/usecase"
	apperrors "cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WebSocketHandler pushes live collection snapshots to connected clients.
// Every remote change is delivered as the complete current item set, never
// a diff.
type WebSocketHandler struct {
	sync       usecase.SyncUsecase
	sendBuffer int
	log        logger.Logger
}

// NewWebSocketHandler creates the live-subscription handler.
func NewWebSocketHandler(syncUC usecase.SyncUsecase, sendBuffer int, log logger.Logger) *WebSocketHandler {
	if sendBuffer <= 0 {
		sendBuffer = 10
	}
	return &WebSocketHandler{
		sync:       syncUC,
		sendBuffer: sendBuffer,
		log:        log.WithComponent("ws-handler"),
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *WebSocketHandler) RegisterRoutes(router fiber.Router) {
	router.Use("/listen", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/listen", websocket.New(h.handleConnection))
}

// snapshotMessage is the wire shape of one delivery.
type snapshotMessage struct {
	Type       string       `json:"type"`
	Collection string       `json:"collection"`
	Items      []model.Item `json:"items"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (h *WebSocketHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	collection := conn.Query("collection")
	if collection == "" {
		_ = conn.WriteJSON(errorMessage{Type: "error", Message: "collection query parameter required"})
		return
	}

	subscriberID := uuid.NewString()
	log := h.log.WithFields(map[string]interface{}{
		"subscriber": subscriberID,
		"collection": collection,
	})

	// Snapshots are queued on a buffered channel so the synchronizer's
	// fan-out never blocks on a slow socket; overflow drops the snapshot,
	// the next change delivers a fresh one.
	snapshots := make(chan []model.Item, h.sendBuffer)
	cancel, err := h.sync.Subscribe(context.Background(), collection, func(items []model.Item) {
		select {
		case snapshots <- items:
		default:
			log.Warn("snapshot dropped, client channel full")
		}
	})
	if err != nil {
		if err == apperrors.ErrCollectionUnknown {
			_ = conn.WriteJSON(errorMessage{Type: "error", Message: "unknown collection"})
		} else {
			_ = conn.WriteJSON(errorMessage{Type: "error", Message: "subscription failed"})
		}
		return
	}
	defer cancel()

	log.Info("client subscribed")

	// Reader: we only care about the close signal; inbound frames are
	// discarded.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case items := <-snapshots:
			msg := snapshotMessage{Type: "snapshot", Collection: collection, Items: items}
			if err := conn.WriteJSON(msg); err != nil {
				log.Infof("client disconnected during write: %v", err)
				return
			}
		case <-done:
			log.Info("client disconnected")
			return
		}
	}
}
