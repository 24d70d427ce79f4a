package ws

import (
	"solar_yield/internal/batch"
)

// Bridge implements batch.Callback and broadcasts job events to the WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnProgress(jobID string, p batch.Progress) {
	b.broadcast(TypeBatchProgress, BatchProgressFromProcessor(jobID, p))
}

func (b *Bridge) OnComplete(jobID string, p batch.Progress) {
	b.broadcast(TypeBatchDone, BatchProgressFromProcessor(jobID, p))
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		b.hub.logger.Error().Err(err).Str("type", msgType).Msg("marshaling message")
		return
	}
	b.hub.Broadcast(msg)
}
