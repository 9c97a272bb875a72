package domain

// EventType tags a progress event for presentation consumers.
type EventType string

const (
	EventLog       EventType = "log"
	EventTape      EventType = "tape"
	EventSentiment EventType = "sentiment"
	EventSignals   EventType = "signals"
	EventTrades    EventType = "trades"
	EventState     EventType = "state"
)

// ProgressEvent is one entry of the ordered event stream a run emits. The
// orchestrator's only coupling to any presentation layer is the observer
// these are delivered to.
type ProgressEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// Observer receives progress events in emission order.
type Observer func(ProgressEvent)

// TradesPayload is the Data of an EventTrades event.
type TradesPayload struct {
	Opened []Position       `json:"opened"`
	Closed []ClosedPosition `json:"closed"`
}

// StatePayload is the Data of an EventState event.
type StatePayload struct {
	Profile string `json:"profile"`
	PortfolioState
}
