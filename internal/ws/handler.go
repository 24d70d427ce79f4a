package ws

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solar_yield/internal/yield"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and answers yield queries.
type Handler struct {
	hub         *Hub
	engine      *yield.Engine
	blendFactor float64
	logger      zerolog.Logger
}

func NewHandler(hub *Hub, engine *yield.Engine, blendFactor float64, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, engine: engine, blendFactor: blendFactor, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendGridInfo(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.Debug().Err(err).Msg("invalid message")
		return
	}

	switch env.Type {
	case TypeYieldQuery:
		var p YieldQueryPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.reply(c, TypeYieldError, YieldErrorPayload{Error: "invalid yield:query payload"})
			return
		}
		r, err := h.engine.Estimate(p.SiteQuery)
		if err != nil {
			h.reply(c, TypeYieldError, YieldErrorPayload{RequestID: p.RequestID, Error: err.Error()})
			return
		}
		h.reply(c, TypeYieldResult, YieldResultFromEngine(p.RequestID, r, yield.Blend(r, h.blendFactor)))

	default:
		h.logger.Debug().Str("type", env.Type).Msg("unknown message type")
	}
}

func (h *Handler) reply(c *Client, msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("marshaling reply")
		return
	}
	c.trySend(msg)
}

func (h *Handler) sendGridInfo(c *Client) {
	h.reply(c, TypeGridInfo, GridInfoFromGrid(h.engine.Interpolator().Grid()))
}
