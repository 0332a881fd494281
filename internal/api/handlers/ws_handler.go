package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/daonlab/talkreport/internal/services"
	"github.com/daonlab/talkreport/internal/utils"
	"github.com/daonlab/talkreport/internal/workers"
)

// WSHandler streams pipeline status events for one report: transcription
// progress, analysis runs and publish results, forwarded from Redis
// pub/sub as they happen. The stream is one-way; clients only listen.
type WSHandler struct {
	reports  services.ReportService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(reports services.ReportService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		reports: reports,
		redis:   rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) ReportStatusWS(c *gin.Context) {
	const op = "WSHandler.ReportStatusWS"

	reportID, ok := pathID(c, "report_id", op)
	if !ok {
		return
	}

	if h.redis == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "live status updates are not configured", nil))
		return
	}

	if _, err := h.reports.Get(c.Request.Context(), reportID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, workers.ReportStatusChannel(reportID))
	defer pubsub.Close()

	// reader: drain client frames so pings keep the connection alive and
	// a close frame ends the subscription.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	// writer: Redis Pub/Sub -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			// forward as-is (payload expected JSON string)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
