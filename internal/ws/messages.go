package ws

import (
	"github.com/goccy/go-json"

	"solar_yield/internal/batch"
	"solar_yield/internal/model"
	"solar_yield/internal/solar"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Client -> Server
	TypeYieldQuery = "yield:query"

	// Server -> Client
	TypeGridInfo      = "grid:info"
	TypeYieldResult   = "yield:result"
	TypeYieldError    = "yield:error"
	TypeBatchProgress = "batch:progress"
	TypeBatchDone     = "batch:done"
)

// Client -> Server messages

type YieldQueryPayload struct {
	// RequestID is echoed back so clients can match replies.
	RequestID string `json:"request_id,omitempty"`
	model.SiteQuery
}

// Server -> Client messages

type GridInfoPayload struct {
	MinLon   float64 `json:"min_lon"`
	MaxLon   float64 `json:"max_lon"`
	MinLat   float64 `json:"min_lat"`
	MaxLat   float64 `json:"max_lat"`
	Lons     int     `json:"lons"`
	Lats     int     `json:"lats"`
	Months   int     `json:"months"`
	NaNCells int     `json:"nan_cells"`
}

type YieldResultPayload struct {
	RequestID string            `json:"request_id,omitempty"`
	Months    [12]string        `json:"months"`
	Result    model.YieldResult `json:"result"`
	Blended   model.Blended     `json:"blended"`
}

type YieldErrorPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

type BatchProgressPayload struct {
	JobID  string `json:"job_id"`
	Done   int    `json:"done"`
	Failed int    `json:"failed"`
	Total  int    `json:"total"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func GridInfoFromGrid(g *solar.Grid) GridInfoPayload {
	b := g.Bounds()
	nLon, nLat, nMonth := g.Shape()
	return GridInfoPayload{
		MinLon:   b.MinLon,
		MaxLon:   b.MaxLon,
		MinLat:   b.MinLat,
		MaxLat:   b.MaxLat,
		Lons:     nLon,
		Lats:     nLat,
		Months:   nMonth,
		NaNCells: g.NaNCells(),
	}
}

func YieldResultFromEngine(requestID string, r model.YieldResult, b model.Blended) YieldResultPayload {
	return YieldResultPayload{
		RequestID: requestID,
		Months:    model.MonthNames,
		Result:    r,
		Blended:   b,
	}
}

func BatchProgressFromProcessor(jobID string, p batch.Progress) BatchProgressPayload {
	return BatchProgressPayload{
		JobID:  jobID,
		Done:   p.Done,
		Failed: p.Failed,
		Total:  p.Total,
	}
}
