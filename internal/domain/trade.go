package domain

import "time"

// TradeEventKind tags an audit row as an open or a close.
type TradeEventKind string

const (
	TradeEventOpen  TradeEventKind = "OPEN"
	TradeEventClose TradeEventKind = "CLOSE"
)

// TradeRecord is one immutable row of the trade audit log. Exit, Pnl and
// Reason carry values on CLOSE; OPEN rows record "signal" as the reason.
// Money fields are decimal strings to keep the log stable across readers.
type TradeRecord struct {
	Timestamp  time.Time      `json:"ts"`
	Event      TradeEventKind `json:"event"`
	Profile    string         `json:"profile"`
	PositionID string         `json:"positionId"`
	MarketID   string         `json:"marketId"`
	Title      string         `json:"title"`
	Side       Action         `json:"side"`
	Stake      string         `json:"stake"`
	Entry      string         `json:"entry"`
	Exit       string         `json:"exit,omitempty"`
	Pnl        string         `json:"pnl,omitempty"`
	Reason     string         `json:"reason"`
}

// TradeRecordRecord bundles a stored trade row with its log index.
type TradeRecordRecord struct {
	Index uint64
	Row   TradeRecord
}
